package evm

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// sentNonce is the next nonce after the last transaction this process
// broadcast for a sender, together with that transaction's hash.
type sentNonce struct {
	next uint64
	hash common.Hash
}

// nonceTracker remembers the last accepted transaction per sender, so a
// lagging node's pending count cannot hand out a nonce that is already in
// flight.
type nonceTracker struct {
	mu   sync.Mutex
	sent map[common.Address]sentNonce
}

func newNonceTracker() *nonceTracker {
	return &nonceTracker{sent: make(map[common.Address]sentNonce)}
}

// ahead returns the tracked entry when it is above the node's pending count.
// The caller must confirm the entry's transaction still exists before using it.
func (t *nonceTracker) ahead(addr common.Address, pending uint64) (sentNonce, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sent[addr]
	if !ok || s.next <= pending {
		return sentNonce{}, false
	}
	return s, true
}

// commit is called only after a node accepted a transaction with nonce.
func (t *nonceTracker) commit(addr common.Address, nonce uint64, hash common.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if nonce+1 >= t.sent[addr].next {
		t.sent[addr] = sentNonce{next: nonce + 1, hash: hash}
	}
}

// forget drops the entry for addr if it still refers to hash.
func (t *nonceTracker) forget(addr common.Address, hash common.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if s, ok := t.sent[addr]; ok && s.hash == hash {
		delete(t.sent, addr)
	}
}
