package seed

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
)

// ParsePath parses a BIP32 path string into child indices.
// Example: "m/44'/60'/0'/0/0" -> [2147483692, 2147483708, 2147483648, 0, 0]
func ParsePath(path string) ([]uint32, error) {
	path = strings.TrimSpace(path)
	if path != "m" && !strings.HasPrefix(path, "m/") {
		return nil, errors.Errorf("invalid derivation path: %s", path)
	}

	parts := strings.Split(strings.TrimPrefix(strings.TrimPrefix(path, "m"), "/"), "/")
	indices := make([]uint32, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}

		hardened := strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h")
		if hardened {
			part = part[:len(part)-1]
		}

		index, err := strconv.ParseUint(part, 10, 31)
		if err != nil {
			return nil, errors.Errorf("invalid path segment: %s", part)
		}

		child := uint32(index)
		if hardened {
			child += bip32.FirstHardenedChild
		}
		indices = append(indices, child)
	}

	return indices, nil
}

// FormatPath is the inverse of ParsePath.
func FormatPath(indices []uint32) string {
	var b strings.Builder
	b.WriteString("m")
	for _, index := range indices {
		b.WriteString("/")
		if index >= bip32.FirstHardenedChild {
			b.WriteString(strconv.FormatUint(uint64(index-bip32.FirstHardenedChild), 10))
			b.WriteString("'")
			continue
		}
		b.WriteString(strconv.FormatUint(uint64(index), 10))
	}
	return b.String()
}

// WithIndex replaces the last path component, keeping its hardening.
// Format: m/44'/60'/0'/0/{index}
func WithIndex(path string, index uint32) (string, error) {
	indices, err := ParsePath(path)
	if err != nil {
		return "", err
	}
	if len(indices) == 0 {
		return "", errors.Errorf("derivation path %s has no components", path)
	}

	last := len(indices) - 1
	if indices[last] >= bip32.FirstHardenedChild {
		indices[last] = index + bip32.FirstHardenedChild
	} else {
		indices[last] = index
	}
	return FormatPath(indices), nil
}
