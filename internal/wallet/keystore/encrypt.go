package keystore

import (
	"crypto/rand"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
)

// Blob layout.
const (
	blobVersion byte = 1

	saltSize  = 32
	nonceSize = chacha20poly1305.NonceSizeX

	offSource = 1
	offKDF    = 2
	offParams = 3
	offSalt   = offParams + kdfParamsSize
	offNonce  = offSalt + saltSize

	headerSize = offNonce + nonceSize
	minBlob    = headerSize + chacha20poly1305.Overhead
)

// seal encrypts plaintext with a fresh salt and nonce.
func (s *service) seal(plaintext []byte, secret Secret) (Blob, error) {
	if err := secret.validate(); err != nil {
		return nil, err
	}

	params, err := encodeParams(s.params)
	if err != nil {
		return nil, err
	}

	header := make([]byte, headerSize)
	header[0] = blobVersion
	header[offSource] = byte(secret.source)
	header[offKDF] = byte(s.params.KDF)
	copy(header[offParams:offSalt], params)

	salt := header[offSalt:offNonce]
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "failed to generate salt")
	}
	nonce := header[offNonce:headerSize]
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "failed to generate nonce")
	}

	key, err := deriveKey(secret.value, salt, s.params)
	if err != nil {
		return nil, err
	}
	defer clear(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}

	// The whole header is additional data, so version, source and KDF
	// parameters cannot be swapped without breaking the tag.
	out := make([]byte, headerSize, headerSize+len(plaintext)+aead.Overhead())
	copy(out, header)
	out = aead.Seal(out, nonce, plaintext, header)

	return Blob(out), nil
}
