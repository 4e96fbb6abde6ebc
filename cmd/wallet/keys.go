package wallet

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/wallet-core/internal/api"
	"github/chapool/wallet-core/internal/wallet"
	"github/chapool/wallet-core/internal/wallet/keystore"
)

func newGenerate() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new mnemonic, store the derived wallet and print the mnemonic once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server, p *prompter) error {
				secret, err := p.secret(s.Config, sourceOf(cmd), "Secret: ", true)
				if err != nil {
					return err
				}
				defer secret.Zero()

				bits, _ := cmd.Flags().GetInt("entropy")
				created, err := s.Wallet.CreateWallet(ctx, &wallet.CreateRequest{
					Chain:       chainOf(cmd),
					Secret:      secret,
					EntropyBits: bits,
					Index:       indexOf(cmd),
				})
				if err != nil {
					return err
				}

				fmt.Fprintln(cmd.ErrOrStderr(), "Write the mnemonic down now, it is not stored and will not be shown again.")
				return printJSON(cmd, map[string]any{
					"wallet":   created.Record,
					"mnemonic": created.Mnemonic,
				})
			})
		},
	}

	addChainFlag(cmd)
	addSourceFlag(cmd)
	cmd.Flags().Int("entropy", wallet.DefaultEntropyBits, "mnemonic entropy in bits: 128 (12 words) or 256 (24 words)")
	cmd.Flags().Uint32(indexFlag, 0, "account index replacing the last derivation path component")

	return cmd
}

func newDerive() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive the address and encrypted key for a mnemonic without storing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server, p *prompter) error {
				mnemonic, err := p.readLine("Mnemonic: ")
				if err != nil {
					return err
				}
				secret, err := p.secret(s.Config, sourceOf(cmd), "Secret: ", true)
				if err != nil {
					return err
				}
				defer secret.Zero()

				addr, blob, err := s.Wallet.DeriveWallet(ctx, mnemonic, chainOf(cmd), secret)
				if err != nil {
					return err
				}

				return printJSON(cmd, map[string]string{
					"address":      addr,
					"encryptedKey": blob.String(),
				})
			})
		},
	}

	addChainFlag(cmd)
	addSourceFlag(cmd)

	return cmd
}

func newImport() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a wallet from a mnemonic or a private key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server, p *prompter) error {
				req := &wallet.ImportRequest{Chain: chainOf(cmd), Index: indexOf(cmd)}

				fromKey, _ := cmd.Flags().GetBool("private-key")
				if fromKey {
					key, err := p.readLine("Private key: ")
					if err != nil {
						return err
					}
					req.PrivateKey = key
				} else {
					mnemonic, err := p.readLine("Mnemonic: ")
					if err != nil {
						return err
					}
					req.Mnemonic = mnemonic
				}

				secret, err := p.secret(s.Config, sourceOf(cmd), "Secret: ", true)
				if err != nil {
					return err
				}
				defer secret.Zero()
				req.Secret = secret

				rec, err := s.Wallet.ImportWallet(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd, rec)
			})
		},
	}

	addChainFlag(cmd)
	addSourceFlag(cmd)
	cmd.Flags().Bool("private-key", false, "read a private key (hex, or base58 for Solana) instead of a mnemonic")
	cmd.Flags().Uint32(indexFlag, 0, "account index replacing the last derivation path component")

	return cmd
}

func newDecrypt() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decrypt <address>",
		Short: "Print the raw private key of a stored wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server, p *prompter) error {
				rec, err := s.Wallet.GetWallet(ctx, chainOf(cmd), args[0])
				if err != nil {
					return err
				}
				if rec.IsWatchOnly {
					return errors.Errorf("%s is watch-only and has no key", rec.Address)
				}

				secret, err := p.secret(s.Config, rec.SecretSource.String(), "Secret: ", false)
				if err != nil {
					return err
				}
				defer secret.Zero()

				key, err := s.Wallet.DecryptKey(rec.EncryptedKey, secret)
				if err != nil {
					return err
				}
				defer clear(key)

				_, err = fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(key))
				return err
			})
		},
	}

	addChainFlag(cmd)

	return cmd
}

func newVerify() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <address>",
		Short: "Check that a stored key decrypts and derives its address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *api.Server, p *prompter) error {
				rec, err := s.Wallet.GetWallet(ctx, chainOf(cmd), args[0])
				if err != nil {
					return err
				}

				secret, err := p.secret(s.Config, rec.SecretSource.String(), "Secret: ", false)
				if err != nil {
					return err
				}
				defer secret.Zero()

				if err := s.Wallet.VerifyRecord(ctx, rec.Chain, rec.Address, secret); err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return err
			})
		},
	}

	addChainFlag(cmd)

	return cmd
}

func newReEncrypt() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reencrypt <encrypted-key>",
		Short: "Re-encrypt a base64 encrypted key under a new secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(_ context.Context, s *api.Server, p *prompter) error {
				blob, err := keystore.ParseBlob(args[0])
				if err != nil {
					return err
				}

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

				out, err := s.Wallet.ReEncrypt(blob, oldSecret, newSecret)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), out.String())
				return err
			})
		},
	}

	addSourceFlag(cmd)
	cmd.Flags().String("new-source", "payment_password", "secret source of the new secret")

	return cmd
}
