package address

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github/chapool/wallet-core/internal/wallet/errs"
)

// evmAddress derives the EIP-55 checksummed address of a secp256k1 key.
func evmAddress(key []byte) (string, error) {
	if len(key) != keyLength {
		return "", malformed("expected %d-byte secp256k1 key, got %d bytes", keyLength, len(key))
	}

	ecdsaPrivateKey, err := crypto.ToECDSA(key)
	if err != nil {
		return "", malformed("invalid secp256k1 key: %v", err)
	}

	publicKeyECDSA, ok := ecdsaPrivateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return "", malformed("failed to cast public key to ECDSA")
	}

	return crypto.PubkeyToAddress(*publicKeyECDSA).Hex(), nil
}

// validateEVM accepts all-lowercase, all-uppercase or correctly checksummed hex addresses.
func validateEVM(addr string) error {
	if !common.IsHexAddress(addr) {
		return errs.Validation(errs.CodeInvalidAddress, "invalid EVM address %q", addr)
	}

	body := addr
	if len(body) == 2+common.AddressLength*2 {
		body = body[2:]
	}
	if isMixedCase(body) && common.HexToAddress(addr).Hex()[2:] != body {
		return errs.Validation(errs.CodeInvalidAddress, "EVM address %q has an invalid checksum", addr)
	}
	return nil
}

func isMixedCase(s string) bool {
	var lower, upper bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'f':
			lower = true
		case r >= 'A' && r <= 'F':
			upper = true
		}
	}
	return lower && upper
}
