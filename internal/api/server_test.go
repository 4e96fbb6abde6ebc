package api_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/wallet-core/internal/api"
	"github/chapool/wallet-core/internal/test"
	"github/chapool/wallet-core/internal/wallet/keystore"
	"github/chapool/wallet-core/internal/wallet/store"
)

func TestServerReady(t *testing.T) {
	test.WithTestServer(t, func(s *api.Server) {
		assert.True(t, s.Ready())

		engines := s.Engines.Engines()
		assert.Contains(t, engines, "ETH")
		assert.Contains(t, engines, "SOL")
		assert.NotContains(t, engines, "BTC")

		addr, blob, err := s.Wallet.DeriveWallet(testContext(t), test.Mnemonic, "ETH", keystore.PaymentPassword("pw"))
		require.NoError(t, err)
		assert.Equal(t, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94", addr)
		assert.NotEmpty(t, blob)
	})
}

func TestNewServerIsNotReady(t *testing.T) {
	s := api.NewServer(test.Config(t))
	assert.False(t, s.Ready())
	assert.Empty(t, s.Shutdown(testContext(t)))
}

func TestInitNewServerRejectsBadKDF(t *testing.T) {
	cfg := test.Config(t)
	cfg.Keystore.KDF = "md5"

	_, err := api.InitNewServer(cfg)
	require.Error(t, err)
}

func TestShutdownWritesMetricsTextfile(t *testing.T) {
	cfg := test.Config(t)
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "wallet.prom")

	s, err := api.InitNewServerWithStore(cfg, store.NewMemory())
	require.NoError(t, err)

	s.Metrics.TransferFinished("ETH", "confirmed")
	require.Empty(t, s.Shutdown(testContext(t)))

	out, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(out), `wallet_transfers_total{chain="ETH",status="confirmed"} 1`)
}
