package signer

import (
	"crypto/ed25519"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github/chapool/wallet-core/internal/wallet/errs"
)

// SignSolana expands the seed into a keypair only for the duration of the call.
func (s *service) SignSolana(tx *solana.Transaction, seed []byte, from solana.PublicKey) (solana.Signature, error) {
	if tx == nil {
		return solana.Signature{}, errs.Validation(errs.CodeInvalidInput, "transaction is required")
	}
	if len(seed) != ed25519.SeedSize {
		return solana.Signature{}, errs.Validation(errs.CodeMalformedKey, "expected %d-byte ed25519 seed, got %d bytes", ed25519.SeedSize, len(seed))
	}

	priv := solana.PrivateKey(ed25519.NewKeyFromSeed(seed))
	defer clear(priv)

	if !priv.PublicKey().Equals(from) {
		return solana.Signature{}, errs.Validation(errs.CodeMalformedKey, "from address does not match private key")
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(from) {
			return &priv
		}
		return nil
	}); err != nil {
		return solana.Signature{}, errors.Wrap(err, "failed to sign transaction")
	}

	if len(tx.Signatures) == 0 {
		return solana.Signature{}, errors.New("transaction has no signatures")
	}
	return tx.Signatures[0], nil
}
