package transfer

import (
	"context"
	"strings"
	"sync"
)

// SenderLocks serializes transfers per (chain, sender). Anchors such as EVM
// nonces race when two transfers from one sender are prepared concurrently.
type SenderLocks struct {
	mu    sync.Mutex
	locks map[string]*senderLock
}

type senderLock struct {
	ch   chan struct{}
	refs int
}

// NewSenderLocks creates an empty lock table.
func NewSenderLocks() *SenderLocks {
	return &SenderLocks{locks: make(map[string]*senderLock)}
}

// Lock blocks until the sender is free or ctx ends. The returned unlock is idempotent.
func (l *SenderLocks) Lock(ctx context.Context, chain string, sender string) (func(), error) {
	key := strings.ToUpper(chain) + "/" + sender

	l.mu.Lock()
	sl, ok := l.locks[key]
	if !ok {
		sl = &senderLock{ch: make(chan struct{}, 1)}
		l.locks[key] = sl
	}
	sl.refs++
	l.mu.Unlock()

	select {
	case sl.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, sl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-sl.ch
			l.release(key, sl)
		})
	}, nil
}

func (l *SenderLocks) release(key string, sl *senderLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sl.refs--
	if sl.refs == 0 {
		delete(l.locks, key)
	}
}

// Len returns the number of senders currently locked or waiting.
func (l *SenderLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
