// Package evm builds, signs and submits transfers on EVM chains.
package evm

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github/chapool/wallet-core/internal/wallet/address"
	"github/chapool/wallet-core/internal/wallet/amount"
	"github/chapool/wallet-core/internal/wallet/chain"
	"github/chapool/wallet-core/internal/wallet/errs"
	"github/chapool/wallet-core/internal/wallet/rpc"
	"github/chapool/wallet-core/internal/wallet/signer"
	"github/chapool/wallet-core/internal/wallet/transfer"
)

const (
	nativeTransferGas = 21000
	// gas estimates are padded by 10%
	gasEstimateNumerator   = 11
	gasEstimateDenominator = 10
	maxUint256Bits         = 256
)

// Engine implements transfer.Engine for one EVM chain.
type Engine struct {
	cfg       *chain.Config
	codec     address.Service
	signer    signer.Service
	endpoints *rpc.Endpoints[Client]
	nonces    *nonceTracker
}

var _ transfer.Engine = (*Engine)(nil)

// NewEngine creates an engine. The endpoint set is owned by the caller.
func NewEngine(cfg *chain.Config, codec address.Service, sig signer.Service, endpoints *rpc.Endpoints[Client]) (*Engine, error) {
	if cfg == nil || cfg.Family != chain.FamilyEVM {
		return nil, errors.New("evm engine requires an evm chain config")
	}
	if cfg.ChainID <= 0 {
		return nil, errors.Errorf("chain %s has no chain id", cfg.Symbol)
	}
	return &Engine{
		cfg:       cfg,
		codec:     codec,
		signer:    sig,
		endpoints: endpoints,
		nonces:    newNonceTracker(),
	}, nil
}

// Endpoints returns the ordered endpoint URLs.
func (e *Engine) Endpoints() []string {
	return e.endpoints.URLs()
}

// Validate checks addresses and converts the amount without touching the network.
func (e *Engine) Validate(req *transfer.Request) (*transfer.Unsigned, error) {
	if req == nil {
		return nil, errs.Validation(errs.CodeInvalidInput, "transfer request is required")
	}
	if err := e.codec.Validate(req.From, e.cfg.Symbol); err != nil {
		return nil, err
	}
	if err := e.codec.Validate(req.To, e.cfg.Symbol); err != nil {
		return nil, err
	}

	decimals := e.cfg.Decimals
	var token *transfer.Token
	if req.Token != nil {
		if err := e.codec.Validate(req.Token.Address, e.cfg.Symbol); err != nil {
			return nil, errs.Validation(errs.CodeInvalidAddress, "invalid token contract %q", req.Token.Address)
		}
		t := *req.Token
		t.Address = common.HexToAddress(t.Address).Hex()
		token = &t
		decimals = t.Decimals
	}

	value, err := amount.ToMinor(req.Amount, decimals)
	if err != nil {
		return nil, err
	}
	if value.BitLen() > maxUint256Bits {
		return nil, errs.Validation(errs.CodeInvalidAmount, "amount exceeds uint256")
	}

	return &transfer.Unsigned{
		Chain:  e.cfg.Symbol,
		From:   common.HexToAddress(req.From).Hex(),
		To:     common.HexToAddress(req.To).Hex(),
		Amount: value,
		Token:  token,
	}, nil
}

// Prepare fetches nonce and fees from one endpoint and checks balances.
func (e *Engine) Prepare(ctx context.Context, endpoint int, u *transfer.Unsigned) (*transfer.Unsigned, error) {
	out := u.Clone()
	from := common.HexToAddress(u.From)

	err := e.endpoints.Call(ctx, endpoint, func(ctx context.Context, c Client) error {
		pending, err := c.PendingNonceAt(ctx, from)
		if err != nil {
			return errors.Wrap(err, "failed to get pending nonce")
		}
		out.Nonce, err = e.nextNonce(ctx, c, from, pending)
		if err != nil {
			return err
		}

		fee, err := e.fees(ctx, c)
		if err != nil {
			return err
		}

		gas, err := e.gasLimit(ctx, c, from, out)
		if err != nil {
			return err
		}
		fee.GasLimit = gas
		fee.Total = new(big.Int).Mul(new(big.Int).SetUint64(gas), fee.price())
		out.Fee = fee.Fee

		return e.checkBalances(ctx, c, from, out)
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// nextNonce returns max(pending, last sent + 1). The tracked value is used
// only while the node still knows the last sent transaction; a dropped one
// falls back to the node's pending count.
func (e *Engine) nextNonce(ctx context.Context, c Client, from common.Address, pending uint64) (uint64, error) {
	sent, ok := e.nonces.ahead(from, pending)
	if !ok {
		return pending, nil
	}

	_, _, err := c.TransactionByHash(ctx, sent.hash)
	switch {
	case err == nil:
		return sent.next, nil
	case errors.Is(err, ethereum.NotFound):
		e.nonces.forget(from, sent.hash)
		return pending, nil
	default:
		return 0, errors.Wrap(err, "failed to look up last sent transaction")
	}
}

type preparedFee struct {
	transfer.Fee
}

// price is the highest per-gas price the transaction can pay.
func (f *preparedFee) price() *big.Int {
	if f.MaxFeePerGas != nil {
		return f.MaxFeePerGas
	}
	return f.GasPrice
}

func (e *Engine) fees(ctx context.Context, c Client) (*preparedFee, error) {
	if e.cfg.FeeModel == chain.FeeEIP1559 {
		head, err := c.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, errors.Wrap(err, "failed to get latest header")
		}
		if head.BaseFee != nil {
			tip, err := c.SuggestGasTipCap(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "failed to suggest gas tip cap")
			}
			maxFee := new(big.Int).Mul(head.BaseFee, big.NewInt(2)) //nolint:mnd // 2x base fee headroom
			maxFee.Add(maxFee, tip)
			return &preparedFee{transfer.Fee{MaxFeePerGas: maxFee, MaxPriorityFeePerGas: tip}}, nil
		}
	}

	price, err := c.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to suggest gas price")
	}
	return &preparedFee{transfer.Fee{GasPrice: price}}, nil
}

func (e *Engine) gasLimit(ctx context.Context, c Client, from common.Address, u *transfer.Unsigned) (uint64, error) {
	if u.Token == nil {
		return nativeTransferGas, nil
	}

	contract := common.HexToAddress(u.Token.Address)
	gas, err := c.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &contract,
		Data: transferData(common.HexToAddress(u.To), u.Amount),
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to estimate gas")
	}
	return gas * gasEstimateNumerator / gasEstimateDenominator, nil
}

func (e *Engine) checkBalances(ctx context.Context, c Client, from common.Address, u *transfer.Unsigned) error {
	native, err := c.BalanceAt(ctx, from, nil)
	if err != nil {
		return errors.Wrap(err, "failed to get balance")
	}

	if u.Token == nil {
		need := new(big.Int).Add(u.Amount, u.Fee.Total)
		if native.Cmp(need) < 0 {
			return errs.Rejected(errs.CodeInsufficientFunds, nil,
				"balance %s is below amount plus fee %s", native, need)
		}
		return nil
	}

	if native.Cmp(u.Fee.Total) < 0 {
		return errs.Rejected(errs.CodeInsufficientGasFunds, nil,
			"native balance %s does not cover estimated gas cost %s", native, u.Fee.Total)
	}

	contract := common.HexToAddress(u.Token.Address)
	resp, err := c.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: balanceOfData(from)}, nil)
	if err != nil {
		return errors.Wrap(err, "failed to call balanceOf")
	}
	if new(big.Int).SetBytes(resp).Cmp(u.Amount) < 0 {
		return errs.Rejected(errs.CodeInsufficientFunds, nil, "token balance is below %s", u.Amount)
	}
	return nil
}

// Sign builds the EIP-1559 or legacy transaction and signs it.
func (e *Engine) Sign(u *transfer.Unsigned, key []byte) (*transfer.Signed, error) {
	if u.Fee.GasLimit == 0 || u.Fee.Total == nil {
		return nil, errors.New("transfer is not prepared")
	}

	req := &signer.EVMRequest{
		ChainID:              e.cfg.ChainID,
		From:                 common.HexToAddress(u.From),
		To:                   common.HexToAddress(u.To),
		Value:                u.Amount,
		Gas:                  u.Fee.GasLimit,
		GasPrice:             u.Fee.GasPrice,
		MaxFeePerGas:         u.Fee.MaxFeePerGas,
		MaxPriorityFeePerGas: u.Fee.MaxPriorityFeePerGas,
		Nonce:                u.Nonce,
	}
	if u.Token != nil {
		req.To = common.HexToAddress(u.Token.Address)
		req.Value = new(big.Int)
		req.Data = transferData(common.HexToAddress(u.To), u.Amount)
	}

	signed, err := e.signer.SignEVM(req, key)
	if err != nil {
		return nil, err
	}

	return &transfer.Signed{
		Unsigned: u,
		TxID:     signed.TxHash,
		Raw:      signed.RawTransaction,
		Payload:  signed.Tx,
	}, nil
}

// Broadcast submits the transaction and advances the local nonce on acceptance.
func (e *Engine) Broadcast(ctx context.Context, endpoint int, s *transfer.Signed) error {
	tx, ok := s.Payload.(*types.Transaction)
	if !ok {
		return errors.New("signed transfer does not hold an EVM transaction")
	}

	err := e.endpoints.Call(ctx, endpoint, func(ctx context.Context, c Client) error {
		return c.SendTransaction(ctx, tx)
	})
	if err != nil && !isAlreadyKnown(err) {
		return classifySendError(err)
	}

	e.nonces.commit(common.HexToAddress(s.Unsigned.From), tx.Nonce(), tx.Hash())
	return nil
}

// Status reads the receipt, falling back to the transaction lookup while pending.
func (e *Engine) Status(ctx context.Context, endpoint int, txID string) (*transfer.Result, error) {
	hash := common.HexToHash(txID)
	var res *transfer.Result

	err := e.endpoints.Call(ctx, endpoint, func(ctx context.Context, c Client) error {
		receipt, err := c.TransactionReceipt(ctx, hash)
		if err == nil {
			res = receiptResult(txID, receipt)
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return errors.Wrap(err, "failed to get transaction receipt")
		}

		_, _, err = c.TransactionByHash(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			return transfer.ErrTxNotFound
		}
		if err != nil {
			return errors.Wrap(err, "failed to get transaction")
		}
		res = &transfer.Result{TxID: txID, Status: transfer.StatusPending}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func receiptResult(txID string, receipt *types.Receipt) *transfer.Result {
	res := &transfer.Result{TxID: txID, Status: transfer.StatusFailed}
	if receipt.Status == types.ReceiptStatusSuccessful {
		res.Status = transfer.StatusConfirmed
	}
	if receipt.BlockNumber != nil {
		res.Block = receipt.BlockNumber.String()
	}
	if receipt.EffectiveGasPrice != nil {
		res.FeePaid = new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), receipt.EffectiveGasPrice)
	}
	return res
}

func isAlreadyKnown(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") || strings.Contains(msg, "known transaction")
}

// classifySendError maps node refusals to stable codes. Transient errors pass through.
func classifySendError(err error) error {
	if rpc.IsTransient(err) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return errs.Rejected(errs.CodeInsufficientFunds, err, "insufficient funds for transfer")
	default:
		return errs.Rejected(errs.CodeRejected, err, "transaction rejected by node")
	}
}

// Probe checks that endpoint answers and serves the configured chain id.
func (e *Engine) Probe(ctx context.Context, endpoint int) error {
	return e.endpoints.Call(ctx, endpoint, func(ctx context.Context, c Client) error {
		id, err := c.ChainID(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to get chain id")
		}
		if id.Int64() != e.cfg.ChainID {
			return errs.Validation(errs.CodeInvalidInput, "endpoint serves chain id %s, expected %d", id, e.cfg.ChainID)
		}
		return nil
	})
}
