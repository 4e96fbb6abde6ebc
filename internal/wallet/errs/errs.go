// Package errs defines the error kinds the wallet core exposes at its public
// boundary. Internal code wraps causes with github.com/pkg/errors; only the
// outermost call collapses them into one of the kinds below.
package errs

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind classifies a failure by how the caller should react to it.
type Kind int

const (
	// KindUnknown is never returned from the public surface.
	KindUnknown Kind = iota
	// KindValidation is bad input detected before any network call. Never retried.
	KindValidation
	// KindCrypto is a decryption or authentication failure. Fatal.
	KindCrypto
	// KindNetwork is a transient transport failure.
	KindNetwork
	// KindChainRejection is a deterministic refusal by the chain or node.
	KindChainRejection
	// KindUnconfirmed means the transaction was submitted but its outcome is not known yet.
	KindUnconfirmed
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCrypto:
		return "crypto"
	case KindNetwork:
		return "network"
	case KindChainRejection:
		return "chain_rejection"
	case KindUnconfirmed:
		return "unconfirmed"
	default:
		return "unknown"
	}
}

// Stable error codes.
const (
	CodeInvalidMnemonic      = "invalid_mnemonic"
	CodeUnsupportedChain     = "unsupported_chain"
	CodeMalformedKey         = "malformed_key"
	CodeInvalidAddress       = "invalid_address"
	CodeInvalidAmount        = "invalid_amount"
	CodeInvalidInput         = "invalid_input"
	CodeDecryptFailed        = "decrypt_failed"
	CodeAllEndpointsFailed   = "all_endpoints_failed"
	CodeNetwork              = "network"
	CodeInsufficientGasFunds = "insufficient_gas_funds"
	CodeInsufficientFunds    = "insufficient_funds"
	CodeRejected             = "rejected"
	CodeUnconfirmed          = "unconfirmed"
	CodeWatchOnly            = "watch_only"
	CodeInactive             = "inactive"
	CodeNotFound             = "not_found"
	CodeAlreadyExists        = "already_exists"
)

// Error is a classified failure.
type Error struct {
	Kind Kind
	Code string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by kind and code, so sentinel values such as
// ErrDecrypt work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// ErrDecrypt is the single error returned for every decryption failure.
// It deliberately carries no cause so a wrong secret and a corrupt blob look the same.
var ErrDecrypt = &Error{Kind: KindCrypto, Code: CodeDecryptFailed, Msg: "unable to decrypt key material"}

// Validation returns a KindValidation error.
func Validation(code, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Network wraps a transient transport failure.
func Network(err error, format string, args ...any) *Error {
	return &Error{Kind: KindNetwork, Code: CodeNetwork, Msg: fmt.Sprintf(format, args...), Err: err}
}

// AllEndpointsFailed wraps the aggregated transient failures of every endpoint.
func AllEndpointsFailed(err error, count int) *Error {
	return &Error{Kind: KindNetwork, Code: CodeAllEndpointsFailed, Msg: fmt.Sprintf("all %d endpoints failed", count), Err: err}
}

// Rejected wraps a deterministic chain refusal.
func Rejected(code string, err error, format string, args ...any) *Error {
	return &Error{Kind: KindChainRejection, Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Unconfirmed reports a submitted transaction whose outcome is still unknown.
func Unconfirmed(txID string) *Error {
	return &Error{Kind: KindUnconfirmed, Code: CodeUnconfirmed, Msg: "transaction " + txID + " not confirmed yet"}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Boundary collapses any error into one of the public kinds. Classified errors
// pass through unchanged; anything else is reported as a transport failure.
func Boundary(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindNetwork, Code: CodeNetwork, Msg: "request failed", Err: err}
}
