package wallet

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/wallet-core/internal/api"
	"github/chapool/wallet-core/internal/wallet/keystore"
	"github/chapool/wallet-core/internal/wallet/store"
)

func newWatch() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <address>",
		Short: "Store a watch-only wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server, _ *prompter) error {
				rec, err := s.Wallet.WatchWallet(ctx, chainOf(cmd), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, rec)
			})
		},
	}

	addChainFlag(cmd)

	return cmd
}

func newList() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored wallets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server, _ *prompter) error {
				f := store.Filter{Chain: chainOf(cmd)}
				f.ActiveOnly, _ = cmd.Flags().GetBool("active")
				f.WithKeysOnly, _ = cmd.Flags().GetBool("with-keys")

				if name, _ := cmd.Flags().GetString(sourceFlag); name != "" {
					source, err := keystore.ParseSecretSource(name)
					if err != nil {
						return err
					}
					f.SecretSource = source
				}

				records, err := s.Wallet.ListWallets(ctx, f)
				if err != nil {
					return err
				}
				if records == nil {
					records = []*store.Record{}
				}
				return printJSON(cmd, records)
			})
		},
	}

	cmd.Flags().String(chainFlag, "", "only list this chain")
	cmd.Flags().String(sourceFlag, "", "only list keys sealed under this secret source")
	cmd.Flags().Bool("active", false, "skip deactivated wallets")
	cmd.Flags().Bool("with-keys", false, "skip watch-only wallets")

	return cmd
}

func newChangeSecret() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "change-secret [address]",
		Short: "Re-encrypt one stored key, or with --all every key of a secret source",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if all == (len(args) == 1) {
				return errors.New("pass either an address or --all")
			}

			return run(cmd, func(ctx context.Context, s *api.Server, p *prompter) error {
				oldSecret, err := p.secret(s.Config, sourceOf(cmd), "Current secret: ", false)
				if err != nil {
					return err
				}
				defer oldSecret.Zero()

				newSource, _ := cmd.Flags().GetString("new-source")
				newSecret, err := p.secret(s.Config, newSource, "New secret: ", true)
				if err != nil {
					return err
				}
				defer newSecret.Zero()

				if all {
					n, err := s.Wallet.ChangeSecretAll(ctx, oldSecret, newSecret)
					if err != nil {
						return err
					}
					return printJSON(cmd, map[string]int{"updated": n})
				}

				rec, err := s.Wallet.ChangeSecret(ctx, chainOf(cmd), args[0], oldSecret, newSecret)
				if err != nil {
					return err
				}
				return printJSON(cmd, rec)
			})
		},
	}

	cmd.Flags().String(chainFlag, "", "chain symbol of the wallet")
	addSourceFlag(cmd)
	cmd.Flags().String("new-source", "payment_password", "secret source of the new secret")
	cmd.Flags().Bool("all", false, "re-encrypt every stored key sealed under --source")

	return cmd
}

func newDeactivate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deactivate <address>",
		Short: "Mark a wallet inactive so it can no longer send",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server, _ *prompter) error {
				rec, err := s.Wallet.Deactivate(ctx, chainOf(cmd), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, rec)
			})
		},
	}

	addChainFlag(cmd)

	return cmd
}
