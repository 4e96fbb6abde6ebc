package probe

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/wallet-core/internal/api"
	"github/chapool/wallet-core/internal/config"
	"github/chapool/wallet-core/internal/util/command"
	"github/chapool/wallet-core/internal/wallet/store"
)

func newReadiness() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readiness",
		Short: "Checks that all components are wired and the wallet store is readable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			verbose, _ := cmd.Flags().GetBool(verboseFlag)
			cfg := config.DefaultServiceConfigFromEnv()

			return command.WithServer(cmd.Context(), cfg, func(ctx context.Context, s *api.Server) error {
				records, err := s.Store.List(ctx, store.Filter{})
				if err != nil {
					return errors.Wrap(err, "wallet store is not readable")
				}

				if verbose {
					fmt.Fprintf(cmd.OutOrStdout(), "store: %d wallets\nchains: %d\nengines: %d\n",
						len(records), len(s.Chains.List()), len(s.Engines.Engines()))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")

	return cmd
}
