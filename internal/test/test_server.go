package test

import (
	"context"
	"testing"
	"time"

	"github/chapool/wallet-core/internal/api"
	"github/chapool/wallet-core/internal/config"
	"github/chapool/wallet-core/internal/wallet/store"
)

// Mnemonic is the BIP39 test vector used across the suite.
const Mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

// Config returns the service config with an in-memory store and a cheap KDF.
func Config(t *testing.T) config.Server {
	t.Helper()

	cfg := config.DefaultServiceConfigFromEnv()
	cfg.Store.InMemory = true
	cfg.Keystore = config.Keystore{KDF: "scrypt", ScryptN: 1024, ScryptR: 8, ScryptP: 1}
	cfg.Transfer.ConfirmInterval = 10 * time.Millisecond
	cfg.Transfer.ConfirmAttempts = 3
	cfg.Transfer.TotalTimeout = 5 * time.Second
	cfg.Chains.File = ""

	return cfg
}

// WithTestServer runs closure against a fully wired server backed by a
// memory store. RPC endpoints are configured but never dialled unless a
// test sends a transfer.
func WithTestServer(t *testing.T, closure func(s *api.Server)) {
	t.Helper()

	WithTestServerConfigurable(t, Config(t), closure)
}

func WithTestServerConfigurable(t *testing.T, cfg config.Server, closure func(s *api.Server)) {
	t.Helper()

	s, err := api.InitNewServerWithStore(cfg, store.NewMemory())
	if err != nil {
		t.Fatalf("failed to init server: %v", err)
	}

	t.Cleanup(func() {
		for _, err := range s.Shutdown(context.Background()) {
			t.Errorf("failed to shutdown server: %v", err)
		}
	})

	closure(s)
}
