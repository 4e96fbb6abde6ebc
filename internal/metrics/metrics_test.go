package metrics_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/wallet-core/internal/metrics"
)

func TestCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	m.TransferFinished("ETH", "confirmed")
	m.TransferFinished("ETH", "confirmed")
	m.Failover("SOL")
	m.ObserveConfirm("SOL", 3*time.Second)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Transfers.WithLabelValues("ETH", "confirmed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Failovers.WithLabelValues("SOL")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.Confirm))

	_, err = metrics.New(reg)
	require.Error(t, err, "duplicate registration")
}

func TestNilServiceIsNoop(t *testing.T) {
	var m *metrics.Service
	assert.NotPanics(t, func() {
		m.TransferFinished("ETH", "failed")
		m.Failover("ETH")
		m.ObserveConfirm("ETH", time.Second)
	})
}

func TestWriteTextfile(t *testing.T) {
	m, err := metrics.New(metrics.NewRegistry())
	require.NoError(t, err)
	m.TransferFinished("SOL", "unconfirmed")

	path := filepath.Join(t.TempDir(), "wallet.prom")
	require.NoError(t, m.WriteTextfile(path))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(out), `wallet_transfers_total{chain="SOL",status="unconfirmed"} 1`)

	unregistered, err := metrics.New(nil)
	require.NoError(t, err)
	require.Error(t, unregistered.WriteTextfile(path))
}
