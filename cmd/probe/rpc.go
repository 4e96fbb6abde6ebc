package probe

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/wallet-core/internal/api"
	"github/chapool/wallet-core/internal/config"
	"github/chapool/wallet-core/internal/util/command"
)

func newRPC() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rpc [chain...]",
		Short: "Checks every configured RPC endpoint of the given chains, or of all chains",
		Long: `Checks every configured RPC endpoint.

EVM endpoints must report the configured chain id, Solana endpoints must
report a healthy node. Exits non-zero if any chain has no working endpoint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, _ := cmd.Flags().GetBool(verboseFlag)
			cfg := config.DefaultServiceConfigFromEnv()

			return command.WithServer(cmd.Context(), cfg, func(ctx context.Context, s *api.Server) error {
				return rpcCmdFunc(ctx, cmd, s, args, verbose)
			})
		},
	}

	cmd.Flags().BoolP(verboseFlag, "v", false, "Show verbose output.")

	return cmd
}

func rpcCmdFunc(ctx context.Context, cmd *cobra.Command, s *api.Server, chains []string, verbose bool) error {
	results := s.Engines.Probe(ctx, chains...)
	if len(results) == 0 {
		return errors.New("no transfer-capable chain matched")
	}

	healthy := make(map[string]bool)
	for _, r := range results {
		if _, ok := healthy[r.Chain]; !ok {
			healthy[r.Chain] = false
		}

		if r.Err != nil {
			log.Warn().Err(r.Err).Str("chain", r.Chain).Str("endpoint", r.Endpoint).Msg("RPC endpoint failed")
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s FAIL %s\n", r.Chain, r.Endpoint)
			continue
		}

		healthy[r.Chain] = true
		if verbose {
			fmt.Fprintf(cmd.OutOrStdout(), "%-10s OK   %s\n", r.Chain, r.Endpoint)
		}
	}

	var down []string
	for chain, ok := range healthy {
		if !ok {
			down = append(down, chain)
		}
	}
	sort.Strings(down)
	if len(down) > 0 {
		return errors.Errorf("no working endpoint for %v", down)
	}

	return nil
}
