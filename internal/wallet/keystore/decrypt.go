package keystore

import (
	"github.com/rs/zerolog/log"
	"github/chapool/wallet-core/internal/wallet/errs"
	"golang.org/x/crypto/chacha20poly1305"
)

// open authenticates and decrypts a blob. The reason for a failure is logged
// at debug level only; callers always see errs.ErrDecrypt.
func (s *service) open(blob Blob, secret Secret) ([]byte, error) {
	plaintext, reason := s.tryOpen(blob, secret)
	if reason != "" {
		log.Debug().Str("component", "keystore").Str("reason", reason).Msg("Decryption failed")
		return nil, errs.ErrDecrypt
	}
	return plaintext, nil
}

func (s *service) tryOpen(blob Blob, secret Secret) ([]byte, string) {
	if secret.Empty() {
		return nil, "empty secret"
	}
	if len(blob) < minBlob {
		return nil, "blob too short"
	}
	if blob[0] != blobVersion {
		return nil, "unknown version"
	}
	if SecretSource(blob[offSource]) != secret.source {
		return nil, "secret source mismatch"
	}

	params, err := decodeParams(KDF(blob[offKDF]), blob[offParams:offSalt])
	if err != nil {
		return nil, err.Error()
	}

	key, err := deriveKey(secret.value, blob[offSalt:offNonce], params)
	if err != nil {
		return nil, err.Error()
	}
	defer clear(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, "cipher setup"
	}

	header := blob[:headerSize]
	plaintext, err := aead.Open(nil, blob[offNonce:headerSize], blob[headerSize:], header)
	if err != nil {
		return nil, "authentication failed"
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, ""
}
