package seed

import (
	"crypto/ed25519"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
	"github/chapool/wallet-core/internal/wallet/chain"
	"github/chapool/wallet-core/internal/wallet/errs"
)

type service struct {
	chains chain.Service
}

// NewService creates a new seed Service resolving paths from chains.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(chains chain.Service) Service {
	return &service{chains: chains}
}

func (s *service) Generate(entropyBits int) (string, error) {
	return generate(entropyBits)
}

func (s *service) Validate(mnemonic string) error {
	return validate(mnemonic)
}

func (s *service) Derive(mnemonic string, chainSymbol string) ([]byte, error) {
	cfg, err := s.chains.Get(chainSymbol)
	if err != nil {
		return nil, err
	}
	return derivePath(mnemonic, cfg.Family, cfg.DerivationPath)
}

func (s *service) DeriveAt(mnemonic string, chainSymbol string, index uint32) ([]byte, error) {
	if index >= bip32.FirstHardenedChild {
		return nil, errs.Validation(errs.CodeInvalidInput, "address index %d out of range", index)
	}

	cfg, err := s.chains.Get(chainSymbol)
	if err != nil {
		return nil, err
	}
	if cfg.DerivationPath == chain.SeedPrefixPath {
		if index != 0 {
			return nil, errs.Validation(errs.CodeInvalidInput, "chain %s has a single address, index %d is not available", cfg.Symbol, index)
		}
		return derivePath(mnemonic, cfg.Family, cfg.DerivationPath)
	}

	path, err := WithIndex(cfg.DerivationPath, index)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build derivation path")
	}
	return derivePath(mnemonic, cfg.Family, path)
}

func derivePath(mnemonic string, family chain.Family, path string) ([]byte, error) {
	if path == chain.SeedPrefixPath {
		return seedPrefix(mnemonic, family)
	}

	indices, err := ParsePath(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse derivation path")
	}

	seed, err := bip39Seed(mnemonic)
	if err != nil {
		return nil, err
	}
	defer clear(seed)

	if family.Curve() == "ed25519" {
		key, err := deriveEd25519(seed, indices)
		if err != nil {
			return nil, errors.Wrap(err, "failed to derive ed25519 key")
		}
		return key, nil
	}

	masterKey, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create master key")
	}

	derivedKey, err := deriveKeyFromPath(masterKey, indices)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive key from path")
	}

	// Return private key (32 bytes)
	key := make([]byte, len(derivedKey.Key))
	copy(key, derivedKey.Key)
	clear(derivedKey.Key)
	clear(masterKey.Key)
	return key, nil
}

// seedPrefix returns the first 32 bytes of the BIP39 seed as an ed25519 seed.
func seedPrefix(mnemonic string, family chain.Family) ([]byte, error) {
	if family.Curve() != "ed25519" {
		return nil, errs.Validation(errs.CodeInvalidInput, "%s derivation is only defined for ed25519 chains", chain.SeedPrefixPath)
	}

	seed, err := bip39Seed(mnemonic)
	if err != nil {
		return nil, err
	}
	defer clear(seed)

	key := make([]byte, ed25519.SeedSize)
	copy(key, seed[:ed25519.SeedSize])
	return key, nil
}

// deriveKeyFromPath derives a key step by step from the master key.
func deriveKeyFromPath(masterKey *bip32.Key, indices []uint32) (*bip32.Key, error) {
	var err error

	key := masterKey
	for _, index := range indices {
		parent := key
		key, err = key.NewChildKey(index)
		if parent != masterKey {
			clear(parent.Key)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive child key at index %d", index)
		}
	}

	return key, nil
}
