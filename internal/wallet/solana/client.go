package solana

import (
	"context"

	solanago "github.com/gagliardetto/solana-go"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github/chapool/wallet-core/internal/wallet/rpc"
)

// Client is the subset of the solana-go RPC client the engine uses.
type Client interface {
	GetLatestBlockhash(ctx context.Context, commitment solrpc.CommitmentType) (*solrpc.GetLatestBlockhashResult, error)
	GetAccountInfo(ctx context.Context, account solanago.PublicKey) (*solrpc.GetAccountInfoResult, error)
	GetBalance(ctx context.Context, account solanago.PublicKey, commitment solrpc.CommitmentType) (*solrpc.GetBalanceResult, error)
	GetTokenAccountBalance(ctx context.Context, account solanago.PublicKey, commitment solrpc.CommitmentType) (*solrpc.GetTokenAccountBalanceResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solanago.Transaction, opts solrpc.TransactionOpts) (solanago.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solanago.Signature) (*solrpc.GetSignatureStatusesResult, error)
	GetTransaction(ctx context.Context, sig solanago.Signature, opts *solrpc.GetTransactionOpts) (*solrpc.GetTransactionResult, error)
	GetHealth(ctx context.Context) (string, error)
}

var _ Client = (*solrpc.Client)(nil)

// Dial creates a client for url. The HTTP transport connects lazily.
//
//nolint:ireturn // Client is the engine's seam for fakes
func Dial(_ context.Context, url string) (Client, error) {
	return solrpc.New(url), nil
}

// Close releases a client created by Dial.
func Close(c Client) {
	if closer, ok := c.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
}

// NewEndpoints builds the failover set for a Solana cluster.
func NewEndpoints(chainSymbol string, urls []string, opts ...rpc.Option) (*rpc.Endpoints[Client], error) {
	return rpc.NewEndpoints(chainSymbol, urls, Dial, Close, opts...)
}
