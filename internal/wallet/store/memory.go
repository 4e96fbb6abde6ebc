package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Store, used for tests and one-shot CLI runs.
type Memory struct {
	mu        sync.RWMutex
	records   map[string]*Record
	transfers map[string]*Transfer
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]*Record), transfers: make(map[string]*Transfer)}
}

func (m *Memory) Get(ctx context.Context, chain string, address string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[string(recordKey(chain, address))]
	if !ok {
		return nil, notFound(chain, address)
	}
	return r.Clone(), nil
}

func (m *Memory) Put(ctx context.Context, r *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := string(r.key())
	if _, ok := m.records[key]; ok {
		return exists(r.Chain, r.Address)
	}
	m.records[key] = r.Clone()
	return nil
}

func (m *Memory) Update(ctx context.Context, r *Record) error {
	return m.UpdateAll(ctx, []*Record{r})
}

func (m *Memory) UpdateAll(ctx context.Context, records []*Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range records {
		if err := r.validate(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range records {
		if _, ok := m.records[string(r.key())]; !ok {
			return notFound(r.Chain, r.Address)
		}
	}

	now := time.Now().UTC()
	for _, r := range records {
		r.UpdatedAt = now
		m.records[string(r.key())] = r.Clone()
	}
	return nil
}

func (m *Memory) List(ctx context.Context, f Filter) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := string(chainPrefix(f.Chain))
	keys := make([]string, 0, len(m.records))
	for k := range m.records {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var out []*Record
	for _, k := range keys {
		if r := m.records[k]; f.match(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) RecordTransfer(ctx context.Context, t *Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	entry := *t
	entry.UpdatedAt = now
	key := string(entry.key())
	if prev, ok := m.transfers[key]; ok {
		entry.CreatedAt = prev.CreatedAt
	} else if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	m.transfers[key] = &entry

	t.CreatedAt, t.UpdatedAt = entry.CreatedAt, entry.UpdatedAt
	return nil
}

func (m *Memory) ListTransfers(ctx context.Context, chain string, from string) ([]*Transfer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := string(senderPrefix(chain, from))
	var out []*Transfer
	for k, t := range m.transfers {
		if strings.HasPrefix(k, prefix) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sortTransfers(out)
	return out, nil
}
