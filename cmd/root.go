package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/wallet-core/cmd/env"
	"github/chapool/wallet-core/cmd/probe"
	"github/chapool/wallet-core/cmd/wallet"
	"github/chapool/wallet-core/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Version: config.GetFormattedBuildArgs(),
	Use:     "app",
	Short:   config.ModuleName,
	Long: fmt.Sprintf(`%v

A multi-chain wallet core: derives, encrypts and stores keys for EVM chains,
Solana and Bitcoin, and sends EVM and Solana transfers with RPC failover.
Configured through ENV (prefix %s_) and an optional .env.local file.`, config.ModuleName, config.EnvPrefix),
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	// attach the subcommands
	rootCmd.AddCommand(
		env.New(),
		probe.New(),
		wallet.New(),
	)

	// an interrupted transfer stops polling and reports what it knows
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		log.Error().Err(err).Msg("Failed to execute root command")
		os.Exit(1)
	}
}
