package transfer

import (
	"context"
	"math/big"
	"time"

	"github.com/pkg/errors"
)

// Status is the outcome of a transfer.
type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusFailed      Status = "failed"
	StatusUnconfirmed Status = "unconfirmed"
)

// Final reports whether no further polling can change the status.
func (s Status) Final() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// ErrTxNotFound is returned by Engine.Status when no endpoint knows the transaction.
var ErrTxNotFound = errors.New("transaction not found")

// Token references a fungible token: an ERC20 contract or an SPL mint.
type Token struct {
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
	Symbol   string `json:"symbol,omitempty"`
}

// Request is a transfer as the caller describes it, with a human decimal amount.
type Request struct {
	Chain  string `json:"chain"`
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
	Token  *Token `json:"token,omitempty"`
}

// Fee holds fee parameters. Which fields are set depends on the chain's fee model.
type Fee struct {
	GasLimit             uint64   `json:"gasLimit,omitempty"`
	GasPrice             *big.Int `json:"gasPrice,omitempty"`
	MaxFeePerGas         *big.Int `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *big.Int `json:"maxPriorityFeePerGas,omitempty"`
	// Total is the worst-case fee in native minor units.
	Total *big.Int `json:"total"`
}

// Unsigned is a validated transfer. Amount is in minor units.
// Prepare fills Fee and the anchor; it returns a copy and never mutates its input.
type Unsigned struct {
	Chain  string
	From   string
	To     string
	Amount *big.Int
	Token  *Token
	Fee    Fee

	// Nonce is the EVM anchor.
	Nonce uint64
	// Blockhash is the Solana anchor.
	Blockhash string
	// CreateRecipientAccount is set when a Solana token transfer must create the
	// recipient's associated token account first.
	CreateRecipientAccount bool
}

// Anchor returns the recency token the transaction is bound to.
func (u *Unsigned) Anchor() string {
	if u.Blockhash != "" {
		return u.Blockhash
	}
	return new(big.Int).SetUint64(u.Nonce).String()
}

// Clone returns a deep copy.
func (u *Unsigned) Clone() *Unsigned {
	out := *u
	out.Amount = cloneInt(u.Amount)
	if u.Token != nil {
		t := *u.Token
		out.Token = &t
	}
	out.Fee = Fee{
		GasLimit:             u.Fee.GasLimit,
		GasPrice:             cloneInt(u.Fee.GasPrice),
		MaxFeePerGas:         cloneInt(u.Fee.MaxFeePerGas),
		MaxPriorityFeePerGas: cloneInt(u.Fee.MaxPriorityFeePerGas),
		Total:                cloneInt(u.Fee.Total),
	}
	return &out
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// Signed is a signed transfer. It is never modified after Sign returns; a
// retry builds and signs a new one.
type Signed struct {
	Unsigned *Unsigned
	TxID     string
	Raw      []byte
	// Payload is the engine's native transaction object.
	Payload any
}

// Result is the outcome reported to callers.
type Result struct {
	TxID     string   `json:"txId"`
	Status   Status   `json:"status"`
	FeePaid  *big.Int `json:"feePaid,omitempty"`
	Block    string   `json:"block,omitempty"`
	Endpoint string   `json:"endpoint,omitempty"`
	Attempts int      `json:"attempts"`
}

// Engine builds, signs and submits transfers for one chain.
// Endpoint arguments index the engine's ordered endpoint list.
type Engine interface {
	// Validate checks a request without network access.
	Validate(req *Request) (*Unsigned, error)

	// Prepare fetches a fresh anchor and fees from one endpoint.
	Prepare(ctx context.Context, endpoint int, u *Unsigned) (*Unsigned, error)

	// Sign produces a signed transfer. The key is not retained.
	Sign(u *Unsigned, key []byte) (*Signed, error)

	// Broadcast submits a signed transfer to one endpoint.
	Broadcast(ctx context.Context, endpoint int, s *Signed) error

	// Status probes one endpoint once for the transaction's status.
	// Unknown transactions yield ErrTxNotFound.
	Status(ctx context.Context, endpoint int, txID string) (*Result, error)

	// Endpoints returns the ordered endpoint URLs.
	Endpoints() []string
}

// Recorder persists transfer outcomes. Implemented outside the core.
type Recorder interface {
	Record(ctx context.Context, req *Request, res *Result) error
}

// Service runs the transfer state machine with endpoint failover.
type Service interface {
	// Transfer validates, signs with key and broadcasts, then waits for confirmation.
	// A transfer whose outcome is not known when polling ends returns a result
	// with StatusUnconfirmed together with an unconfirmed error.
	Transfer(ctx context.Context, req *Request, key []byte) (*Result, error)

	// Validate runs the chain engine's offline checks.
	Validate(req *Request) (*Unsigned, error)

	// Estimate prepares a transfer without signing and returns it with fees filled.
	Estimate(ctx context.Context, req *Request) (*Unsigned, error)

	// Status queries a previously submitted transaction once across endpoints.
	Status(ctx context.Context, chain string, txID string) (*Result, error)
}

// Config bounds broadcast and confirmation.
type Config struct {
	ConfirmInterval time.Duration
	ConfirmAttempts int
	TotalTimeout    time.Duration
}

// DefaultConfig polls every 2s up to 30 times within 60s overall.
func DefaultConfig() Config {
	const (
		defaultConfirmInterval = 2 * time.Second
		defaultConfirmAttempts = 30
		defaultTotalTimeout    = 60 * time.Second
	)

	return Config{
		ConfirmInterval: defaultConfirmInterval,
		ConfirmAttempts: defaultConfirmAttempts,
		TotalTimeout:    defaultTotalTimeout,
	}
}
