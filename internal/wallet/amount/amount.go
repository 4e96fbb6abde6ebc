// Package amount converts between human decimal amounts and integer minor units.
package amount

import (
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"github/chapool/wallet-core/internal/wallet/errs"
)

// maxDecimals bounds the token precision accepted from callers.
const maxDecimals = 36

// ToMinor converts a decimal string such as "1.5" into minor units at the given
// precision. The value must be positive and must not carry more fractional
// digits than decimals allows; nothing is rounded.
func ToMinor(value string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > maxDecimals {
		return nil, errs.Validation(errs.CodeInvalidAmount, "unsupported precision %d", decimals)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return nil, errs.Validation(errs.CodeInvalidAmount, "amount is required")
	}
	if strings.ContainsAny(value, "eE") {
		return nil, errs.Validation(errs.CodeInvalidAmount, "amount %q must be a plain decimal", value)
	}

	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, errs.Validation(errs.CodeInvalidAmount, "amount %q is not a decimal number", value)
	}
	if d.Sign() <= 0 {
		return nil, errs.Validation(errs.CodeInvalidAmount, "amount must be positive")
	}

	scaled := d.Shift(int32(decimals)) //nolint:gosec // bounded by maxDecimals
	if !scaled.IsInteger() {
		return nil, errs.Validation(errs.CodeInvalidAmount, "amount %q has more than %d decimal places", value, decimals)
	}

	return scaled.BigInt(), nil
}

// FromMinor formats minor units as a decimal string without trailing zeros.
func FromMinor(minor *big.Int, decimals int) string {
	if minor == nil {
		return "0"
	}
	return decimal.NewFromBigInt(minor, -int32(decimals)).String() //nolint:gosec // decimals is a chain precision
}

// FitsUint64 reports whether v is representable as a uint64, as Solana amounts must be.
func FitsUint64(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.IsUint64()
}

// Uint64 converts v, failing with a validation error when it overflows.
func Uint64(v *big.Int) (uint64, error) {
	if !FitsUint64(v) {
		return 0, errs.Validation(errs.CodeInvalidAmount, "amount exceeds %d", uint64(math.MaxUint64))
	}
	return v.Uint64(), nil
}
