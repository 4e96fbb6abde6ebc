package keystore

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// Upper bounds accepted when reading parameters back out of a blob. A forged
// header must not be able to make decryption allocate gigabytes.
const (
	maxScryptN      = 1 << 20
	maxScryptR      = 32
	maxScryptP      = 16
	maxArgonTime    = 16
	maxArgonMemory  = 1024 * 1024 // 1 GiB in KiB
	maxArgonThreads = 64
)

// kdfParamsSize is the encoded size of the per-blob KDF parameters:
// two little-endian uint32 values and one byte.
const kdfParamsSize = 4 + 4 + 1

// encodeParams lays out the parameters for the selected KDF.
//
//	scrypt:   N(4) | r(4) | p(1)
//	argon2id: time(4) | memoryKiB(4) | threads(1)
func encodeParams(p Params) ([]byte, error) {
	out := make([]byte, 0, kdfParamsSize)

	switch p.KDF {
	case KDFScrypt:
		if p.ScryptN <= 1 || p.ScryptN&(p.ScryptN-1) != 0 || p.ScryptR <= 0 || p.ScryptP <= 0 || p.ScryptP > 255 {
			return nil, errors.New("invalid scrypt parameters")
		}
		out = binary.LittleEndian.AppendUint32(out, uint32(p.ScryptN)) //nolint:gosec // checked above
		out = binary.LittleEndian.AppendUint32(out, uint32(p.ScryptR)) //nolint:gosec // checked above
		out = append(out, byte(p.ScryptP))
	case KDFArgon2id:
		if p.ArgonTime == 0 || p.ArgonMemory == 0 || p.ArgonThreads == 0 {
			return nil, errors.New("invalid argon2id parameters")
		}
		out = binary.LittleEndian.AppendUint32(out, p.ArgonTime)
		out = binary.LittleEndian.AppendUint32(out, p.ArgonMemory)
		out = append(out, p.ArgonThreads)
	default:
		return nil, errors.Errorf("unsupported kdf %d", p.KDF)
	}

	return out, nil
}

// decodeParams reads parameters written by encodeParams and enforces the caps.
func decodeParams(kdf KDF, raw []byte) (Params, error) {
	if len(raw) != kdfParamsSize {
		return Params{}, errors.New("truncated kdf parameters")
	}
	a := binary.LittleEndian.Uint32(raw[0:4])
	b := binary.LittleEndian.Uint32(raw[4:8])
	c := raw[8]

	switch kdf {
	case KDFScrypt:
		if a <= 1 || a > maxScryptN || a&(a-1) != 0 || b == 0 || b > maxScryptR || c == 0 || c > maxScryptP {
			return Params{}, errors.New("scrypt parameters out of range")
		}
		return Params{KDF: KDFScrypt, ScryptN: int(a), ScryptR: int(b), ScryptP: int(c)}, nil
	case KDFArgon2id:
		if a == 0 || a > maxArgonTime || b == 0 || b > maxArgonMemory || c == 0 || c > maxArgonThreads {
			return Params{}, errors.New("argon2id parameters out of range")
		}
		return Params{KDF: KDFArgon2id, ArgonTime: a, ArgonMemory: b, ArgonThreads: c}, nil
	default:
		return Params{}, errors.Errorf("unsupported kdf %d", kdf)
	}
}

// deriveKey stretches secret into a 32-byte XChaCha20-Poly1305 key.
func deriveKey(secret, salt []byte, p Params) ([]byte, error) {
	switch p.KDF {
	case KDFScrypt:
		key, err := scrypt.Key(secret, salt, p.ScryptN, p.ScryptR, p.ScryptP, chacha20poly1305.KeySize)
		if err != nil {
			return nil, errors.Wrap(err, "failed to derive key")
		}
		return key, nil
	case KDFArgon2id:
		return argon2.IDKey(secret, salt, p.ArgonTime, p.ArgonMemory, p.ArgonThreads, chacha20poly1305.KeySize), nil
	default:
		return nil, errors.Errorf("unsupported kdf %d", p.KDF)
	}
}
