package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Badger stores records in a badger database.
type Badger struct {
	db *badger.DB
}

var _ Store = (*Badger)(nil)

// NewBadger opens the database at path. An empty path opens an in-memory database.
func NewBadger(path string) (*Badger, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "Cannot acquire directory lock") ||
			strings.Contains(msg, "resource temporarily unavailable") {
			return nil, errors.Wrapf(err, "wallet store at %s is locked by another process", path)
		}
		return nil, errors.Wrapf(err, "failed to open wallet store at %s", path)
	}

	log.Debug().Str("component", "store").Str("path", path).Msg("Opened wallet store")
	return &Badger{db: db}, nil
}

func (b *Badger) Get(ctx context.Context, chain string, address string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var r *Record
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		r, err = getRecord(txn, recordKey(chain, address))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, notFound(chain, address)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read wallet record")
	}
	return r, nil
}

func (b *Badger) Put(ctx context.Context, r *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.validate(); err != nil {
		return err
	}

	err := b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(r.key())
		if err == nil {
			return exists(r.Chain, r.Address)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setRecord(txn, r)
	})
	if errors.Is(err, ErrExists) {
		return err
	}
	return errors.Wrap(err, "failed to insert wallet record")
}

func (b *Badger) Update(ctx context.Context, r *Record) error {
	return b.UpdateAll(ctx, []*Record{r})
}

func (b *Badger) UpdateAll(ctx context.Context, records []*Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range records {
		if err := r.validate(); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	err := b.db.Update(func(txn *badger.Txn) error {
		for _, r := range records {
			if _, err := txn.Get(r.key()); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return notFound(r.Chain, r.Address)
				}
				return err
			}
			updated := r.Clone()
			updated.UpdatedAt = now
			if err := setRecord(txn, updated); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return errors.Wrap(err, "failed to update wallet records")
	}

	for _, r := range records {
		r.UpdatedAt = now
	}
	return nil
}

func (b *Badger) List(ctx context.Context, f Filter) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := chainPrefix(f.Chain)
	var out []*Record
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var r Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &r)
			}); err != nil {
				return errors.Wrapf(err, "failed to decode record %s", it.Item().Key())
			}
			if f.match(&r) {
				out = append(out, &r)
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list wallet records")
	}
	return out, nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

func getRecord(txn *badger.Txn, key []byte) (*Record, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	var r Record
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	}); err != nil {
		return nil, errors.Wrap(err, "failed to decode wallet record")
	}
	return &r, nil
}

func setRecord(txn *badger.Txn, r *Record) error {
	val, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "failed to encode wallet record")
	}
	return txn.Set(r.key(), val)
}

func (b *Badger) RecordTransfer(ctx context.Context, t *Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	entry := *t
	entry.UpdatedAt = now
	err := b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(entry.key())
		switch {
		case err == nil:
			var prev Transfer
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &prev)
			}); err != nil {
				return errors.Wrap(err, "failed to decode transfer")
			}
			entry.CreatedAt = prev.CreatedAt
		case errors.Is(err, badger.ErrKeyNotFound):
			if entry.CreatedAt.IsZero() {
				entry.CreatedAt = now
			}
		default:
			return err
		}

		val, err := json.Marshal(&entry)
		if err != nil {
			return errors.Wrap(err, "failed to encode transfer")
		}
		return txn.Set(entry.key(), val)
	})
	if err != nil {
		return errors.Wrap(err, "failed to record transfer")
	}

	t.CreatedAt, t.UpdatedAt = entry.CreatedAt, entry.UpdatedAt
	return nil
}

func (b *Badger) ListTransfers(ctx context.Context, chain string, from string) ([]*Transfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := senderPrefix(chain, from)
	var out []*Transfer
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var t Transfer
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			}); err != nil {
				return errors.Wrapf(err, "failed to decode transfer %s", it.Item().Key())
			}
			out = append(out, &t)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to list transfers")
	}

	sortTransfers(out)
	return out, nil
}
