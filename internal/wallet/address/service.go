package address

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github/chapool/wallet-core/internal/wallet/chain"
	"github/chapool/wallet-core/internal/wallet/errs"
)

const keyLength = 32

type service struct {
	chains chain.Service
}

// NewService creates a new address Service.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(chains chain.Service) Service {
	return &service{chains: chains}
}

func (s *service) ToAddress(key []byte, chainSymbol string) (string, error) {
	cfg, err := s.chains.Get(chainSymbol)
	if err != nil {
		return "", err
	}

	switch cfg.Family {
	case chain.FamilyEVM:
		return evmAddress(key)
	case chain.FamilySolana:
		return solanaAddress(key)
	case chain.FamilyUTXO:
		return utxoAddress(key, cfg.Network)
	default:
		return "", errs.Validation(errs.CodeUnsupportedChain, "unsupported chain family %q", cfg.Family)
	}
}

func (s *service) Validate(addr string, chainSymbol string) error {
	cfg, err := s.chains.Get(chainSymbol)
	if err != nil {
		return err
	}

	switch cfg.Family {
	case chain.FamilyEVM:
		return validateEVM(addr)
	case chain.FamilySolana:
		return validateSolana(addr)
	case chain.FamilyUTXO:
		return validateUTXO(addr, cfg.Network)
	default:
		return errs.Validation(errs.CodeUnsupportedChain, "unsupported chain family %q", cfg.Family)
	}
}

func (s *service) NormalizeKey(key []byte, chainSymbol string) ([]byte, error) {
	cfg, err := s.chains.Get(chainSymbol)
	if err != nil {
		return nil, err
	}

	if cfg.Family == chain.FamilySolana {
		return normalizeSolanaKey(key)
	}

	if len(key) != keyLength {
		return nil, malformed("expected %d-byte secp256k1 key, got %d bytes", keyLength, len(key))
	}
	out := make([]byte, keyLength)
	copy(out, key)
	return out, nil
}

func (s *service) ParseKey(text string, chainSymbol string) ([]byte, error) {
	cfg, err := s.chains.Get(chainSymbol)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if cfg.Family == chain.FamilySolana {
		raw, err := decodeSolanaKey(text)
		if err != nil {
			return nil, err
		}
		defer clear(raw)
		return normalizeSolanaKey(raw)
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimPrefix(text, "0x"), "0X"))
	if err != nil {
		return nil, malformed("private key is not valid hex")
	}
	defer clear(raw)
	return s.NormalizeKey(raw, chainSymbol)
}

func (s *service) Canonical(addr string, chainSymbol string) (string, error) {
	addr = strings.TrimSpace(addr)
	if err := s.Validate(addr, chainSymbol); err != nil {
		return "", err
	}
	cfg, err := s.chains.Get(chainSymbol)
	if err != nil {
		return "", err
	}
	if cfg.Family == chain.FamilyEVM {
		return common.HexToAddress(addr).Hex(), nil
	}
	return addr, nil
}

func (s *service) Equal(a, b string, chainSymbol string) bool {
	cfg, err := s.chains.Get(chainSymbol)
	if err != nil {
		return false
	}
	if cfg.Family == chain.FamilyEVM {
		return strings.EqualFold(a, b)
	}
	return a == b
}

func malformed(format string, args ...any) error {
	return errs.Validation(errs.CodeMalformedKey, format, args...)
}
