package command_test

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/wallet-core/internal/api"
	"github/chapool/wallet-core/internal/test"
	"github/chapool/wallet-core/internal/util/command"
	"github/chapool/wallet-core/internal/wallet"
	"github/chapool/wallet-core/internal/wallet/keystore"
	"github/chapool/wallet-core/internal/wallet/store"
)

func TestWithServer(t *testing.T) {
	cfg := test.Config(t)
	cfg.Logger.PrettyPrintConsole = false

	var testError = errors.New("test error")

	resultErr := command.WithServer(testContext(t), cfg, func(ctx context.Context, s *api.Server) error {
		assert.True(t, s.Ready())

		created, err := s.Wallet.CreateWallet(ctx, &wallet.CreateRequest{
			Chain:  "SOL",
			Secret: keystore.PaymentPassword("pw"),
		})
		require.NoError(t, err)

		records, err := s.Wallet.ListWallets(ctx, store.Filter{Chain: "SOL"})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, created.Record.Address, records[0].Address)

		return testError
	})

	assert.Equal(t, testError, resultErr)
}

func TestNewSubcommandGroup(t *testing.T) {
	var ran bool
	child := &cobra.Command{
		Use: "child",
		Run: func(_ *cobra.Command, _ []string) { ran = true },
	}

	group := command.NewSubcommandGroup("group", child)
	group.SetArgs([]string{"child"})
	require.NoError(t, group.Execute())
	assert.True(t, ran)
}
