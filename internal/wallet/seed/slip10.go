package seed

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
)

const ed25519Curve = "ed25519 seed"

// deriveEd25519 implements SLIP-0010 private derivation for ed25519.
// Only hardened indices exist on this curve. The result is the 32-byte key seed.
func deriveEd25519(seed []byte, indices []uint32) ([]byte, error) {
	mac := hmac.New(sha512.New, []byte(ed25519Curve))
	mac.Write(seed)
	sum := mac.Sum(nil)

	key := make([]byte, 32)
	chainCode := make([]byte, 32)
	copy(key, sum[:32])
	copy(chainCode, sum[32:])
	clear(sum)
	defer clear(chainCode)

	data := make([]byte, 1+32+4)
	defer clear(data)
	for _, index := range indices {
		if index < bip32.FirstHardenedChild {
			clear(key)
			return nil, errors.Errorf("ed25519 derivation supports hardened indices only, got %d", index)
		}

		data[0] = 0
		copy(data[1:33], key)
		binary.BigEndian.PutUint32(data[33:], index)

		mac = hmac.New(sha512.New, chainCode)
		mac.Write(data)
		sum = mac.Sum(nil)
		copy(key, sum[:32])
		copy(chainCode, sum[32:])
		clear(sum)
	}

	return key, nil
}
