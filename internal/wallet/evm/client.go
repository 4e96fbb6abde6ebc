package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github/chapool/wallet-core/internal/wallet/rpc"
)

// Client is the subset of ethclient the engine uses.
type Client interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
}

var _ Client = (*ethclient.Client)(nil)

// Dial connects to an EVM JSON-RPC endpoint.
//
//nolint:ireturn // Client is the engine's seam for fakes
func Dial(ctx context.Context, url string) (Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to RPC node")
	}
	return client, nil
}

// Close releases a client created by Dial.
func Close(c Client) {
	if closer, ok := c.(interface{ Close() }); ok {
		closer.Close()
	}
}

// NewEndpoints builds the failover set for an EVM chain.
func NewEndpoints(chainSymbol string, urls []string, opts ...rpc.Option) (*rpc.Endpoints[Client], error) {
	return rpc.NewEndpoints(chainSymbol, urls, Dial, Close, opts...)
}
