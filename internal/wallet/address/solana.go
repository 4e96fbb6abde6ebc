package address

import (
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"github/chapool/wallet-core/internal/wallet/errs"
)

// solanaAddress returns the base58 public key for a 32-byte ed25519 seed.
func solanaAddress(seed []byte) (string, error) {
	if len(seed) != ed25519.SeedSize {
		return "", malformed("expected %d-byte ed25519 seed, got %d bytes", ed25519.SeedSize, len(seed))
	}

	priv := ed25519.NewKeyFromSeed(seed)
	defer clear(priv)

	return solana.PublicKeyFromBytes(priv[ed25519.SeedSize:]).String(), nil
}

func validateSolana(addr string) error {
	if _, err := solana.PublicKeyFromBase58(addr); err != nil {
		return errs.Validation(errs.CodeInvalidAddress, "invalid Solana address %q", addr)
	}
	return nil
}

// legacyKeySize is the export of the legacy wallet backend: seed, public key
// and 24 zero bytes.
const legacyKeySize = ed25519.PrivateKeySize + 24

// normalizeSolanaKey reduces a 32-byte seed, a 64-byte keypair or an 88-byte
// legacy export to the seed. A public half that does not match its seed, or a
// legacy tail that is not zero, is rejected.
func normalizeSolanaKey(key []byte) ([]byte, error) {
	switch len(key) {
	case ed25519.SeedSize:
		out := make([]byte, ed25519.SeedSize)
		copy(out, key)
		return out, nil
	case ed25519.PrivateKeySize:
		return keypairSeed(key)
	case legacyKeySize:
		if !bytes.Equal(key[ed25519.PrivateKeySize:], make([]byte, legacyKeySize-ed25519.PrivateKeySize)) {
			return nil, malformed("legacy key has a non-zero tail")
		}
		return keypairSeed(key[:ed25519.PrivateKeySize])
	default:
		return nil, malformed("expected 32-byte seed, 64-byte keypair or 88-byte legacy key, got %d bytes", len(key))
	}
}

func keypairSeed(keypair []byte) ([]byte, error) {
	priv := ed25519.NewKeyFromSeed(keypair[:ed25519.SeedSize])
	defer clear(priv)
	if !bytes.Equal(priv[ed25519.SeedSize:], keypair[ed25519.SeedSize:]) {
		return nil, malformed("keypair public key does not match its seed")
	}
	out := make([]byte, ed25519.SeedSize)
	copy(out, keypair[:ed25519.SeedSize])
	return out, nil
}

// decodeSolanaKey accepts hex, the base58 keypair export or the JSON byte
// array written by solana-keygen.
func decodeSolanaKey(text string) ([]byte, error) {
	if strings.HasPrefix(text, "[") {
		return decodeKeygenArray(text)
	}
	if raw, err := hex.DecodeString(text); err == nil {
		return raw, nil
	}
	raw, err := base58.Decode(text)
	if err != nil {
		return nil, malformed("private key is neither hex, base58 nor a JSON byte array")
	}
	return raw, nil
}

func decodeKeygenArray(text string) ([]byte, error) {
	var values []int
	if err := json.Unmarshal([]byte(text), &values); err != nil {
		return nil, malformed("private key is not a valid JSON byte array")
	}

	raw := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			clear(raw)
			return nil, malformed("private key byte %d is out of range", i)
		}
		raw[i] = byte(v)
	}
	clear(values)
	return raw, nil
}
