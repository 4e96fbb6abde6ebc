package wallet_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/wallet-core/internal/wallet"
	"github/chapool/wallet-core/internal/wallet/address"
	"github/chapool/wallet-core/internal/wallet/chain"
	"github/chapool/wallet-core/internal/wallet/signer"
)

func TestNewRegistry(t *testing.T) {
	chains := chain.NewDefaultService()
	require.NoError(t, chains.SetRPCURLs("MATIC", nil))

	registry, err := wallet.NewRegistry(chains, address.NewService(chains), signer.NewService())
	require.NoError(t, err)
	defer registry.Close()

	engines := registry.Engines()
	assert.Contains(t, engines, "ETH")
	assert.Contains(t, engines, "BSC")
	assert.Contains(t, engines, "SOL")
	assert.NotContains(t, engines, "BTC", "utxo chains derive only")
	assert.NotContains(t, engines, "MATIC", "chains without endpoints cannot send")

	sol := engines["SOL"]
	assert.Equal(t, []string{"https://api.mainnet-beta.solana.com", "https://solana-api.projectserum.com"}, sol.Endpoints())
}
