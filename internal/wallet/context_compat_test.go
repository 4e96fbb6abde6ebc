package wallet_test

import (
	"context"
	"sync"
	"testing"
)

var testContexts sync.Map

// testContext stands in for testing.T.Context (Go 1.24+): one context per
// test, canceled when the test finishes.
func testContext(t testing.TB) context.Context {
	if ctx, ok := testContexts.Load(t); ok {
		return ctx.(context.Context)
	}
	ctx, cancel := context.WithCancel(context.Background())
	testContexts.Store(t, ctx)
	t.Cleanup(func() {
		cancel()
		testContexts.Delete(t)
	})
	return ctx
}
