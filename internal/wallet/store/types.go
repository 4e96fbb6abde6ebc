// Package store persists wallet records. Records are keyed by chain and
// canonical address and are never hard-deleted.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github/chapool/wallet-core/internal/wallet/errs"
	"github/chapool/wallet-core/internal/wallet/keystore"
)

// ErrNotFound matches every missing-record error with errors.Is.
var ErrNotFound = &errs.Error{Kind: errs.KindValidation, Code: errs.CodeNotFound, Msg: "wallet record not found"}

// ErrExists is returned by Put when a record for the chain and address is already stored.
var ErrExists = &errs.Error{Kind: errs.KindValidation, Code: errs.CodeAlreadyExists, Msg: "wallet record already exists"}

// Record is one wallet address on one chain.
// Watch-only records carry no key material.
type Record struct {
	ID             uuid.UUID             `json:"id"`
	Chain          string                `json:"chain"`
	Address        string                `json:"address"`
	EncryptedKey   keystore.Blob         `json:"encryptedKey,omitempty"`
	SecretSource   keystore.SecretSource `json:"secretSource,omitempty"`
	DerivationPath string                `json:"derivationPath,omitempty"`
	IsWatchOnly    bool                  `json:"isWatchOnly"`
	IsImported     bool                  `json:"isImported"`
	IsActive       bool                  `json:"isActive"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	out := *r
	out.EncryptedKey = r.EncryptedKey.Clone()
	return &out
}

func (r *Record) key() []byte {
	return recordKey(r.Chain, r.Address)
}

func (r *Record) validate() error {
	if r == nil {
		return errs.Validation(errs.CodeInvalidInput, "record is required")
	}
	if r.ID == uuid.Nil {
		return errs.Validation(errs.CodeInvalidInput, "record id is required")
	}
	if r.Chain == "" || r.Address == "" {
		return errs.Validation(errs.CodeInvalidInput, "record chain and address are required")
	}
	if !r.IsWatchOnly && len(r.EncryptedKey) == 0 {
		return errs.Validation(errs.CodeInvalidInput, "record %s has no key material", r.Address)
	}
	return nil
}

const keyPrefix = "wallet/"

// recordKey is "wallet/<CHAIN>/<address>". Addresses are stored in the
// canonical form the caller passes in.
func recordKey(chain string, address string) []byte {
	return []byte(keyPrefix + strings.ToUpper(chain) + "/" + address)
}

func chainPrefix(chain string) []byte {
	if chain == "" {
		return []byte(keyPrefix)
	}
	return []byte(keyPrefix + strings.ToUpper(chain) + "/")
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Chain        string
	SecretSource keystore.SecretSource
	ActiveOnly   bool
	// WithKeysOnly skips watch-only records.
	WithKeysOnly bool
}

func (f Filter) match(r *Record) bool {
	if f.SecretSource != 0 && r.SecretSource != f.SecretSource {
		return false
	}
	if f.ActiveOnly && !r.IsActive {
		return false
	}
	if f.WithKeysOnly && r.IsWatchOnly {
		return false
	}
	return true
}

// Store is the wallet record collaborator.
type Store interface {
	// Get returns the record for a chain and canonical address.
	Get(ctx context.Context, chain string, address string) (*Record, error)

	// Put inserts a new record. It fails with ErrExists if one is already stored.
	Put(ctx context.Context, r *Record) error

	// Update replaces an existing record and sets UpdatedAt.
	Update(ctx context.Context, r *Record) error

	// UpdateAll replaces every given record in one transaction. Either all
	// records are written or none are.
	UpdateAll(ctx context.Context, records []*Record) error

	// List returns matching records ordered by chain and address.
	List(ctx context.Context, f Filter) ([]*Record, error)

	// RecordTransfer inserts or replaces a transfer outcome. The CreatedAt of
	// an existing entry is kept.
	RecordTransfer(ctx context.Context, t *Transfer) error

	// ListTransfers returns transfers sent from address on chain, newest
	// first. An empty address lists the whole chain.
	ListTransfers(ctx context.Context, chain string, from string) ([]*Transfer, error)

	Close() error
}

func notFound(chain string, address string) error {
	return &errs.Error{Kind: errs.KindValidation, Code: errs.CodeNotFound, Msg: "no wallet for " + address + " on " + strings.ToUpper(chain)}
}

func exists(chain string, address string) error {
	return &errs.Error{Kind: errs.KindValidation, Code: errs.CodeAlreadyExists, Msg: "wallet for " + address + " on " + strings.ToUpper(chain) + " already exists"}
}
