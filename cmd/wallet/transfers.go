package wallet

import (
	"context"

	"github.com/spf13/cobra"
	"github/chapool/wallet-core/internal/api"
	"github/chapool/wallet-core/internal/wallet"
	"github/chapool/wallet-core/internal/wallet/errs"
	"github/chapool/wallet-core/internal/wallet/keystore"
	"github/chapool/wallet-core/internal/wallet/store"
)

func newTransfer() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Send native coins or tokens from a stored wallet and wait for confirmation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server, p *prompter) error {
				req := transferRequestOf(cmd)

				rec, err := s.Wallet.GetWallet(ctx, req.Chain, req.From)
				if err != nil {
					return err
				}
				// watch-only wallets are refused by the service before a secret is needed
				var secret keystore.Secret
				if !rec.IsWatchOnly {
					secret, err = p.secret(s.Config, rec.SecretSource.String(), "Secret: ", false)
					if err != nil {
						return err
					}
					defer secret.Zero()
				}

				res, err := s.Wallet.Transfer(ctx, &wallet.TransferRequest{
					Chain:  req.Chain,
					From:   req.From,
					To:     req.To,
					Amount: req.Amount,
					Token:  req.Token,
					Secret: secret,
				})
				if res != nil {
					if printErr := printJSON(cmd, res); printErr != nil {
						return printErr
					}
				}
				if res != nil && errs.KindOf(err) == errs.KindUnconfirmed {
					cmd.PrintErrln("Transfer was sent but not confirmed yet, check it later with: wallet status --chain", req.Chain, res.TxID)
				}
				return err
			})
		},
	}

	addTransferFlags(cmd)

	return cmd
}

func newEstimate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the fee of a transfer without signing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server, _ *prompter) error {
				u, err := s.Wallet.EstimateFee(ctx, transferRequestOf(cmd))
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{
					"chain":                  u.Chain,
					"amount":                 u.Amount.String(),
					"fee":                    u.Fee,
					"anchor":                 u.Anchor(),
					"createRecipientAccount": u.CreateRecipientAccount,
				})
			})
		},
	}

	addTransferFlags(cmd)

	return cmd
}

func newStatus() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <tx-id>",
		Short: "Query the status of a submitted transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server, _ *prompter) error {
				res, err := s.Wallet.TransferStatus(ctx, chainOf(cmd), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, res)
			})
		},
	}

	addChainFlag(cmd)

	return cmd
}

func newHistory() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [address]",
		Short: "List recorded transfers, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server, _ *prompter) error {
				var addr string
				if len(args) == 1 {
					addr = args[0]
				}
				out, err := s.Wallet.ListTransfers(ctx, chainOf(cmd), addr)
				if err != nil {
					return err
				}
				if out == nil {
					out = []*store.Transfer{}
				}
				return printJSON(cmd, out)
			})
		},
	}

	addChainFlag(cmd)

	return cmd
}
