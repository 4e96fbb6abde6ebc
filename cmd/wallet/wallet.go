package wallet

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"
	"github/chapool/wallet-core/internal/api"
	"github/chapool/wallet-core/internal/config"
	"github/chapool/wallet-core/internal/util/command"
	"github/chapool/wallet-core/internal/wallet/transfer"
)

const (
	chainFlag  = "chain"
	sourceFlag = "source"
	indexFlag  = "index"
)

func New() *cobra.Command {
	return command.NewSubcommandGroup("wallet",
		newGenerate(),
		newDerive(),
		newImport(),
		newWatch(),
		newList(),
		newDecrypt(),
		newVerify(),
		newTransfer(),
		newEstimate(),
		newStatus(),
		newHistory(),
		newReEncrypt(),
		newChangeSecret(),
		newDeactivate(),
	)
}

// run executes fn against a wired server built from the environment.
func run(cmd *cobra.Command, fn func(ctx context.Context, s *api.Server, p *prompter) error) error {
	cfg := config.DefaultServiceConfigFromEnv()
	p := newPrompter(cmd)

	return command.WithServer(cmd.Context(), cfg, func(ctx context.Context, s *api.Server) error {
		return fn(ctx, s, p)
	})
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func addChainFlag(cmd *cobra.Command) {
	cmd.Flags().String(chainFlag, "", "chain symbol, e.g. ETH, BSC, SOL")
	_ = cmd.MarkFlagRequired(chainFlag)
}

func addSourceFlag(cmd *cobra.Command) {
	cmd.Flags().String(sourceFlag, "payment_password", "secret source: payment_password, device_id or environment_key")
}

func chainOf(cmd *cobra.Command) string {
	v, _ := cmd.Flags().GetString(chainFlag)
	return strings.ToUpper(v)
}

func sourceOf(cmd *cobra.Command) string {
	v, _ := cmd.Flags().GetString(sourceFlag)
	return v
}

// indexOf returns nil when --index was not given.
func indexOf(cmd *cobra.Command) *uint32 {
	if !cmd.Flags().Changed(indexFlag) {
		return nil
	}
	v, _ := cmd.Flags().GetUint32(indexFlag)
	return &v
}

func addTransferFlags(cmd *cobra.Command) {
	addChainFlag(cmd)
	cmd.Flags().String("from", "", "sending wallet address")
	cmd.Flags().String("to", "", "recipient address")
	cmd.Flags().String("amount", "", "amount in whole units, e.g. 0.25")
	cmd.Flags().String("token", "", "ERC20 contract or SPL mint; native asset when empty")
	cmd.Flags().Int("decimals", 0, "token decimals")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
}

func transferRequestOf(cmd *cobra.Command) *transfer.Request {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	amount, _ := cmd.Flags().GetString("amount")
	token, _ := cmd.Flags().GetString("token")
	decimals, _ := cmd.Flags().GetInt("decimals")

	req := &transfer.Request{
		Chain:  chainOf(cmd),
		From:   from,
		To:     to,
		Amount: amount,
	}
	if token != "" {
		req.Token = &transfer.Token{Address: token, Decimals: decimals}
	}
	return req
}
