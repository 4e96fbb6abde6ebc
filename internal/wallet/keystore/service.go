package keystore

import (
	"github.com/pkg/errors"
	"github/chapool/wallet-core/internal/wallet/errs"
)

type service struct {
	params Params
}

// NewService creates a key vault that seals new blobs with params.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(params Params) (Service, error) {
	if _, err := encodeParams(params); err != nil {
		return nil, errors.Wrap(err, "invalid keystore parameters")
	}
	return &service{params: params}, nil
}

// Encrypt seals plaintext under secret.
func (s *service) Encrypt(plaintext []byte, secret Secret) (Blob, error) {
	return s.seal(plaintext, secret)
}

// Decrypt opens a blob sealed by Encrypt.
func (s *service) Decrypt(blob Blob, secret Secret) ([]byte, error) {
	return s.open(blob, secret)
}

// EncryptText seals a UTF-8 string.
func (s *service) EncryptText(text string, secret Secret) (Blob, error) {
	raw := []byte(text)
	defer clear(raw)
	return s.seal(raw, secret)
}

// DecryptText opens a blob and returns its contents as a string.
func (s *service) DecryptText(blob Blob, secret Secret) (string, error) {
	raw, err := s.open(blob, secret)
	if err != nil {
		return "", err
	}
	defer clear(raw)
	return string(raw), nil
}

// ReEncrypt decrypts with oldSecret and seals the plaintext under newSecret.
// The input blob is never modified.
func (s *service) ReEncrypt(blob Blob, oldSecret Secret, newSecret Secret) (Blob, error) {
	if err := newSecret.validate(); err != nil {
		return nil, err
	}

	plaintext, err := s.open(blob, oldSecret)
	if err != nil {
		return nil, err
	}
	defer clear(plaintext)

	out, err := s.seal(plaintext, newSecret)
	if err != nil {
		// seal only fails on entropy or parameter errors; never leak partial output.
		return nil, &errs.Error{Kind: errs.KindCrypto, Code: errs.CodeDecryptFailed, Msg: "failed to re-encrypt key", Err: err}
	}
	return out, nil
}
