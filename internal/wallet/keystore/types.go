package keystore

import (
	"encoding/base64"
	"strings"

	"github/chapool/wallet-core/internal/wallet/errs"
)

// Service encrypts and decrypts private-key material under a secret.
// Encryption is authenticated: decrypt never returns bytes that were not
// produced by Encrypt under the same secret.
type Service interface {
	// Encrypt seals plaintext under secret.
	Encrypt(plaintext []byte, secret Secret) (Blob, error)

	// Decrypt opens a blob. Every failure returns errs.ErrDecrypt.
	// WARNING: Caller must clear the returned plaintext after use.
	Decrypt(blob Blob, secret Secret) ([]byte, error)

	// EncryptText seals a textual secret such as a mnemonic or hex key.
	EncryptText(text string, secret Secret) (Blob, error)

	// DecryptText opens a blob produced by EncryptText.
	DecryptText(blob Blob, secret Secret) (string, error)

	// ReEncrypt opens blob with oldSecret and seals the plaintext under newSecret.
	// Either a complete new blob is returned or an error and nothing.
	ReEncrypt(blob Blob, oldSecret Secret, newSecret Secret) (Blob, error)
}

// Blob is a self-describing encrypted value:
//
//	version(1) | source(1) | kdf(1) | kdfParams(9) | salt(32) | nonce(24) | ciphertext+tag
//
// Everything before the ciphertext is authenticated as additional data.
type Blob []byte

// String returns the transportable base64 form.
func (b Blob) String() string {
	return base64.StdEncoding.EncodeToString(b)
}

// ParseBlob decodes the base64 form produced by Blob.String.
func ParseBlob(s string) (Blob, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, errs.Validation(errs.CodeInvalidInput, "encrypted key is not valid base64")
	}
	return Blob(raw), nil
}

// Clone returns an independent copy.
func (b Blob) Clone() Blob {
	if b == nil {
		return nil
	}
	return append(Blob(nil), b...)
}

// KDF identifies the key-derivation function recorded in a blob.
type KDF byte

const (
	KDFScrypt   KDF = 1
	KDFArgon2id KDF = 2
)

func (k KDF) String() string {
	switch k {
	case KDFScrypt:
		return "scrypt"
	case KDFArgon2id:
		return "argon2id"
	default:
		return "unknown"
	}
}

// ParseKDF maps a config name to a KDF.
func ParseKDF(name string) (KDF, error) {
	switch strings.ToLower(name) {
	case "", "scrypt":
		return KDFScrypt, nil
	case "argon2id", "argon2":
		return KDFArgon2id, nil
	default:
		return 0, errs.Validation(errs.CodeInvalidInput, "unknown kdf %q", name)
	}
}

// Params configures key derivation for new blobs. Existing blobs carry their own parameters.
type Params struct {
	KDF KDF

	ScryptN int // CPU/memory cost parameter (262144)
	ScryptR int // Block size parameter (8)
	ScryptP int // Parallelization parameter (1)

	ArgonTime    uint32 // iterations
	ArgonMemory  uint32 // KiB
	ArgonThreads uint8
}

// DefaultParams returns scrypt parameters matching the Ethereum keystore v3 defaults.
func DefaultParams() Params {
	const (
		scryptN = 262144 // CPU/memory cost parameter (2^18)
		scryptR = 8      // Block size parameter
		scryptP = 1      // Parallelization parameter
	)

	return Params{
		KDF:          KDFScrypt,
		ScryptN:      scryptN,
		ScryptR:      scryptR,
		ScryptP:      scryptP,
		ArgonTime:    3,
		ArgonMemory:  64 * 1024,
		ArgonThreads: 4,
	}
}
