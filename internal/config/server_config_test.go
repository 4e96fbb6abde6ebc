package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/wallet-core/internal/config"
	"github/chapool/wallet-core/internal/wallet/keystore"
)

func TestPrintServiceEnv(t *testing.T) {
	t.Setenv("WALLET_SECRETS_ENVIRONMENT_KEY", "do-not-print")

	cfg := config.DefaultServiceConfigFromEnv()
	out, err := json.MarshalIndent(cfg, "", "  ")
	require.NoError(t, err)
	assert.NotContains(t, string(out), "do-not-print")
}

func TestDefaultServiceConfigFromEnv(t *testing.T) {
	t.Setenv("WALLET_LOGGER_LEVEL", "debug")
	t.Setenv("WALLET_STORE_IN_MEMORY", "true")
	t.Setenv("WALLET_TRANSFER_CONFIRM_ATTEMPTS", "7")
	t.Setenv("WALLET_TRANSFER_CONFIRM_INTERVAL", "500ms")
	t.Setenv("WALLET_KEYSTORE_KDF", "argon2id")
	t.Setenv("WALLET_SECRETS_DEVICE_ID", "device-1")
	t.Setenv("WALLET_METRICS_TEXTFILE", "/var/lib/node_exporter/wallet.prom")

	cfg := config.DefaultServiceConfigFromEnv()

	assert.Equal(t, zerolog.DebugLevel, cfg.Logger.Level)
	assert.Empty(t, cfg.StorePath())
	assert.Equal(t, 7, cfg.Transfer.ConfirmAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Transfer.ConfirmInterval)
	assert.Equal(t, "device-1", cfg.Secrets.DeviceID)
	assert.Equal(t, "/var/lib/node_exporter/wallet.prom", cfg.Metrics.Textfile)

	params, err := cfg.Keystore.Params()
	require.NoError(t, err)
	assert.Equal(t, keystore.KDFArgon2id, params.KDF)
	assert.Equal(t, keystore.DefaultParams().ScryptN, params.ScryptN)
}

func TestDefaultsMatchPackages(t *testing.T) {
	cfg := config.DefaultServiceConfigFromEnv()

	params, err := cfg.Keystore.Params()
	require.NoError(t, err)
	assert.Equal(t, keystore.DefaultParams(), params)
	assert.Equal(t, "./data/wallets", cfg.StorePath())
	assert.Positive(t, cfg.RPC.CallTimeout)
}

func TestInvalidKDF(t *testing.T) {
	_, err := config.Keystore{KDF: "md5"}.Params()
	require.Error(t, err)
}

func TestRPCURLsFromEnv(t *testing.T) {
	urls := config.RPCURLsFromEnv([]string{
		"ETH_RPC_URL=https://a.example, https://b.example",
		"MATIC_RPC_URL=https://matic.example",
		"POLYGON_RPC_URL=https://polygon.example",
		"SOLANA_RPC_URL=https://sol.example",
		"BSC_RPC_URL=",
		"WALLET_RPC_URL=https://ignored.example",
		"PATH=/usr/bin",
	})

	assert.Equal(t, map[string][]string{
		"ETH":   {"https://a.example", "https://b.example"},
		"MATIC": {"https://matic.example"},
		"SOL":   {"https://sol.example"},
	}, urls)
}

func TestLoadChains(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "chains.toml")
	require.NoError(t, os.WriteFile(file, []byte(`
[[chain]]
symbol = "sepolia"
name = "Sepolia"
family = "evm"
derivation_path = "m/44'/60'/0'/0/0"
decimals = 18
fee_model = "eip1559"
chain_id = 11155111
rpc_urls = ["https://rpc.sepolia.example"]
`), 0o600))

	cfg := config.Server{Chains: config.Chains{
		File:    file,
		RPCURLs: map[string][]string{"ETH": {"https://eth.example"}},
	}}

	chains, err := cfg.LoadChains()
	require.NoError(t, err)

	bySymbol := make(map[string][]string, len(chains))
	for _, c := range chains {
		bySymbol[c.Symbol] = c.RPCURLs
	}
	assert.Equal(t, []string{"https://rpc.sepolia.example"}, bySymbol["SEPOLIA"])
	assert.Equal(t, []string{"https://eth.example"}, bySymbol["ETH"])
	assert.Contains(t, bySymbol, "SOL")
}

func TestDotEnvTryLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env.test")
	require.NoError(t, os.WriteFile(file, []byte("WALLET_TEST_DOTENV=loaded\n"), 0o600))
	t.Setenv("WALLET_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("WALLET_TEST_DOTENV"))

	config.DotEnvTryLoad(file)
	assert.Equal(t, "loaded", os.Getenv("WALLET_TEST_DOTENV"))

	config.DotEnvTryLoad(filepath.Join(t.TempDir(), "missing"))
}
