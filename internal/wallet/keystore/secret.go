package keystore

import (
	"fmt"
	"strings"

	"github/chapool/wallet-core/internal/wallet/errs"
)

// SecretSource names where a secret comes from. It is bound into every blob,
// so a blob sealed under a payment password cannot be opened with a device id
// that happens to have the same bytes.
type SecretSource byte

const (
	SourcePaymentPassword SecretSource = 1
	SourceDeviceID        SecretSource = 2
	SourceEnvironmentKey  SecretSource = 3
)

func (s SecretSource) String() string {
	switch s {
	case SourcePaymentPassword:
		return "payment_password"
	case SourceDeviceID:
		return "device_id"
	case SourceEnvironmentKey:
		return "environment_key"
	default:
		return "unknown"
	}
}

// Valid reports whether s is a known source.
func (s SecretSource) Valid() bool {
	return s >= SourcePaymentPassword && s <= SourceEnvironmentKey
}

// ParseSecretSource maps a name such as "payment_password" to its source.
func ParseSecretSource(name string) (SecretSource, error) {
	switch strings.ToLower(strings.ReplaceAll(name, "-", "_")) {
	case "payment_password", "password", "":
		return SourcePaymentPassword, nil
	case "device_id", "device":
		return SourceDeviceID, nil
	case "environment_key", "env", "env_key":
		return SourceEnvironmentKey, nil
	default:
		return 0, errs.Validation(errs.CodeInvalidInput, "unknown secret source %q", name)
	}
}

const redacted = "[REDACTED]"

// Secret is a user secret tagged with its source. Its value never appears in
// logs, fmt output or JSON.
type Secret struct {
	source SecretSource
	value  []byte
}

// NewSecret copies value into a new Secret.
func NewSecret(source SecretSource, value string) Secret {
	return Secret{source: source, value: []byte(value)}
}

// NewSecretBytes copies value into a new Secret.
func NewSecretBytes(source SecretSource, value []byte) Secret {
	return Secret{source: source, value: append([]byte(nil), value...)}
}

// PaymentPassword is shorthand for NewSecret(SourcePaymentPassword, value).
func PaymentPassword(value string) Secret {
	return NewSecret(SourcePaymentPassword, value)
}

// Source returns where the secret came from.
func (s Secret) Source() SecretSource { return s.source }

// Empty reports whether the secret has no value.
func (s Secret) Empty() bool { return len(s.value) == 0 }

// Zero wipes the secret's value.
func (s *Secret) Zero() {
	clear(s.value)
	s.value = nil
}

func (s Secret) String() string { return redacted }

// GoString keeps %#v redacted as well.
func (s Secret) GoString() string { return redacted }

// Format redacts every verb.
func (s Secret) Format(f fmt.State, _ rune) {
	_, _ = f.Write([]byte(redacted))
}

// MarshalJSON never exposes the value.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

func (s Secret) validate() error {
	if !s.source.Valid() {
		return errs.Validation(errs.CodeInvalidInput, "unknown secret source")
	}
	if s.Empty() {
		return errs.Validation(errs.CodeInvalidInput, "secret must not be empty")
	}
	return nil
}
