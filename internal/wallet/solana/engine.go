// Package solana builds, signs and submits native SOL and SPL token transfers.
package solana

import (
	"context"
	"math/big"
	"strconv"
	"strings"

	solanago "github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	solrpc "github.com/gagliardetto/solana-go/rpc"
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
	// LamportsPerSignature is the base fee of a single-signature transaction.
	LamportsPerSignature = 5000
	// TokenAccountRent is the rent-exempt minimum of a 165-byte SPL token account.
	TokenAccountRent = 2039280
)

// Engine implements transfer.Engine for a Solana cluster.
type Engine struct {
	cfg       *chain.Config
	codec     address.Service
	signer    signer.Service
	endpoints *rpc.Endpoints[Client]
}

var _ transfer.Engine = (*Engine)(nil)

// NewEngine creates an engine. The endpoint set is owned by the caller.
func NewEngine(cfg *chain.Config, codec address.Service, sig signer.Service, endpoints *rpc.Endpoints[Client]) (*Engine, error) {
	if cfg == nil || cfg.Family != chain.FamilySolana {
		return nil, errors.New("solana engine requires a solana chain config")
	}
	return &Engine{
		cfg:       cfg,
		codec:     codec,
		signer:    sig,
		endpoints: endpoints,
	}, nil
}

// Endpoints returns the ordered endpoint URLs.
func (e *Engine) Endpoints() []string {
	return e.endpoints.URLs()
}

// Validate checks addresses and the mint and converts the amount to base units.
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
	var tok *transfer.Token
	if req.Token != nil {
		if err := e.codec.Validate(req.Token.Address, e.cfg.Symbol); err != nil {
			return nil, errs.Validation(errs.CodeInvalidAddress, "invalid token mint %q", req.Token.Address)
		}
		t := *req.Token
		tok = &t
		decimals = t.Decimals
	}

	value, err := amount.ToMinor(req.Amount, decimals)
	if err != nil {
		return nil, err
	}
	if _, err := amount.Uint64(value); err != nil {
		return nil, err
	}

	return &transfer.Unsigned{
		Chain:  e.cfg.Symbol,
		From:   req.From,
		To:     req.To,
		Amount: value,
		Token:  tok,
	}, nil
}

// Prepare fetches a finalized blockhash from one endpoint, resolves the
// recipient token account and checks balances.
func (e *Engine) Prepare(ctx context.Context, endpoint int, u *transfer.Unsigned) (*transfer.Unsigned, error) {
	out := u.Clone()
	from := solanago.MustPublicKeyFromBase58(u.From)

	err := e.endpoints.Call(ctx, endpoint, func(ctx context.Context, c Client) error {
		latest, err := c.GetLatestBlockhash(ctx, solrpc.CommitmentFinalized)
		if err != nil {
			return errors.Wrap(err, "failed to get latest blockhash")
		}
		if latest == nil || latest.Value == nil {
			return errors.New("empty latest blockhash response")
		}
		out.Blockhash = latest.Value.Blockhash.String()

		if out.Token != nil {
			create, err := e.needsRecipientAccount(ctx, c, out)
			if err != nil {
				return err
			}
			out.CreateRecipientAccount = create
		}

		out.Fee = transfer.Fee{Total: big.NewInt(LamportsPerSignature)}

		return e.checkBalances(ctx, c, from, out)
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (e *Engine) needsRecipientAccount(ctx context.Context, c Client, u *transfer.Unsigned) (bool, error) {
	ata, _, err := solanago.FindAssociatedTokenAddress(
		solanago.MustPublicKeyFromBase58(u.To),
		solanago.MustPublicKeyFromBase58(u.Token.Address),
	)
	if err != nil {
		return false, errors.Wrap(err, "failed to derive recipient token account")
	}

	_, err = c.GetAccountInfo(ctx, ata)
	if errors.Is(err, solrpc.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to get recipient token account")
	}
	return false, nil
}

func (e *Engine) checkBalances(ctx context.Context, c Client, from solanago.PublicKey, u *transfer.Unsigned) error {
	bal, err := c.GetBalance(ctx, from, solrpc.CommitmentConfirmed)
	if err != nil {
		return errors.Wrap(err, "failed to get balance")
	}
	lamports := new(big.Int).SetUint64(bal.Value)

	if u.Token == nil {
		need := new(big.Int).Add(u.Amount, u.Fee.Total)
		if lamports.Cmp(need) < 0 {
			return errs.Rejected(errs.CodeInsufficientFunds, nil,
				"balance %s lamports is below amount plus fee %s", lamports, need)
		}
		return nil
	}

	need := new(big.Int).Set(u.Fee.Total)
	if u.CreateRecipientAccount {
		need.Add(need, big.NewInt(TokenAccountRent))
	}
	if lamports.Cmp(need) < 0 {
		return errs.Rejected(errs.CodeInsufficientGasFunds, nil,
			"balance %s lamports does not cover fee and account rent %s", lamports, need)
	}

	source, _, err := solanago.FindAssociatedTokenAddress(from, solanago.MustPublicKeyFromBase58(u.Token.Address))
	if err != nil {
		return errors.Wrap(err, "failed to derive source token account")
	}
	tokenBal, err := c.GetTokenAccountBalance(ctx, source, solrpc.CommitmentConfirmed)
	if err != nil {
		if isMissingAccount(err) {
			return errs.Rejected(errs.CodeInsufficientFunds, err, "sender has no token account for %s", u.Token.Address)
		}
		return errors.Wrap(err, "failed to get token balance")
	}
	if tokenBal == nil || tokenBal.Value == nil {
		return errors.New("empty token balance response")
	}
	held, ok := new(big.Int).SetString(tokenBal.Value.Amount, 10)
	if !ok {
		return errors.Errorf("invalid token balance %q", tokenBal.Value.Amount)
	}
	if held.Cmp(u.Amount) < 0 {
		return errs.Rejected(errs.CodeInsufficientFunds, nil, "token balance %s is below %s", held, u.Amount)
	}
	return nil
}

// Sign assembles the instructions and signs with the sender's seed.
func (e *Engine) Sign(u *transfer.Unsigned, key []byte) (*transfer.Signed, error) {
	if u.Blockhash == "" {
		return nil, errors.New("transfer is not prepared")
	}
	blockhash, err := solanago.HashFromBase58(u.Blockhash)
	if err != nil {
		return nil, errors.Wrap(err, "invalid blockhash")
	}

	from := solanago.MustPublicKeyFromBase58(u.From)
	instructions, err := e.instructions(from, u)
	if err != nil {
		return nil, err
	}

	tx, err := solanago.NewTransaction(instructions, blockhash, solanago.TransactionPayer(from))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build transaction")
	}

	sig, err := e.signer.SignSolana(tx, key, from)
	if err != nil {
		return nil, err
	}

	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode transaction")
	}

	return &transfer.Signed{
		Unsigned: u,
		TxID:     sig.String(),
		Raw:      raw,
		Payload:  tx,
	}, nil
}

func (e *Engine) instructions(from solanago.PublicKey, u *transfer.Unsigned) ([]solanago.Instruction, error) {
	value, err := amount.Uint64(u.Amount)
	if err != nil {
		return nil, err
	}
	to := solanago.MustPublicKeyFromBase58(u.To)

	if u.Token == nil {
		return []solanago.Instruction{
			system.NewTransferInstruction(value, from, to).Build(),
		}, nil
	}

	mint := solanago.MustPublicKeyFromBase58(u.Token.Address)
	source, _, err := solanago.FindAssociatedTokenAddress(from, mint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive source token account")
	}
	dest, _, err := solanago.FindAssociatedTokenAddress(to, mint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive recipient token account")
	}

	out := make([]solanago.Instruction, 0, 2) //nolint:mnd // create + transfer
	if u.CreateRecipientAccount {
		out = append(out, associatedtokenaccount.NewCreateInstruction(from, to, mint).Build())
	}
	out = append(out, token.NewTransferCheckedInstruction(
		value,
		uint8(u.Token.Decimals), //nolint:gosec // decimals are bounded by amount.ToMinor
		source,
		mint,
		dest,
		from,
		nil,
	).Build())
	return out, nil
}

// Broadcast submits the transaction with preflight simulation enabled.
func (e *Engine) Broadcast(ctx context.Context, endpoint int, s *transfer.Signed) error {
	tx, ok := s.Payload.(*solanago.Transaction)
	if !ok {
		return errors.New("signed transfer does not hold a solana transaction")
	}

	maxRetries := uint(0)
	err := e.endpoints.Call(ctx, endpoint, func(ctx context.Context, c Client) error {
		_, err := c.SendTransactionWithOpts(ctx, tx, solrpc.TransactionOpts{
			PreflightCommitment: solrpc.CommitmentConfirmed,
			MaxRetries:          &maxRetries,
		})
		return err
	})
	if err != nil && !isAlreadyProcessed(err) {
		return classifySendError(err)
	}
	return nil
}

// Status looks the signature up, falling back to the transaction itself when
// the status cache no longer holds it.
func (e *Engine) Status(ctx context.Context, endpoint int, txID string) (*transfer.Result, error) {
	sig, err := solanago.SignatureFromBase58(txID)
	if err != nil {
		return nil, errs.Validation(errs.CodeInvalidInput, "invalid transaction signature %q", txID)
	}

	var res *transfer.Result
	err = e.endpoints.Call(ctx, endpoint, func(ctx context.Context, c Client) error {
		statuses, err := c.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			return errors.Wrap(err, "failed to get signature status")
		}

		if statuses != nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
			st := statuses.Value[0]
			res = &transfer.Result{TxID: txID, Status: transfer.StatusPending, Block: strconv.FormatUint(st.Slot, 10)}
			switch {
			case st.Err != nil:
				res.Status = transfer.StatusFailed
			case st.ConfirmationStatus == solrpc.ConfirmationStatusConfirmed ||
				st.ConfirmationStatus == solrpc.ConfirmationStatusFinalized:
				res.Status = transfer.StatusConfirmed
			default:
				return nil
			}
			res.FeePaid = e.feePaid(ctx, c, sig)
			return nil
		}

		var found *transfer.Result
		found, err = e.lookupTransaction(ctx, c, sig, txID)
		if err != nil {
			return err
		}
		res = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) lookupTransaction(ctx context.Context, c Client, sig solanago.Signature, txID string) (*transfer.Result, error) {
	tx, err := c.GetTransaction(ctx, sig, transactionOpts())
	if errors.Is(err, solrpc.ErrNotFound) {
		return nil, transfer.ErrTxNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	res := &transfer.Result{TxID: txID, Status: transfer.StatusConfirmed, Block: strconv.FormatUint(tx.Slot, 10)}
	if tx.Meta != nil {
		res.FeePaid = new(big.Int).SetUint64(tx.Meta.Fee)
		if tx.Meta.Err != nil {
			res.Status = transfer.StatusFailed
		}
	}
	return res, nil
}

// feePaid is best effort; a missing fee does not change the outcome.
func (e *Engine) feePaid(ctx context.Context, c Client, sig solanago.Signature) *big.Int {
	tx, err := c.GetTransaction(ctx, sig, transactionOpts())
	if err != nil || tx == nil || tx.Meta == nil {
		return nil
	}
	return new(big.Int).SetUint64(tx.Meta.Fee)
}

func transactionOpts() *solrpc.GetTransactionOpts {
	version := uint64(0)
	return &solrpc.GetTransactionOpts{
		Commitment:                     solrpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &version,
	}
}

func isAlreadyProcessed(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "already been processed")
}

func isMissingAccount(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "could not find account")
}

// classifySendError maps preflight refusals to stable codes. Transient errors pass through.
func classifySendError(err error) error {
	if rpc.IsTransient(err) {
		return err
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient lamports"),
		strings.Contains(msg, "insufficient funds"),
		strings.Contains(msg, "attempt to debit an account but found no record of a prior credit"):
		return errs.Rejected(errs.CodeInsufficientFunds, err, "insufficient funds for transfer")
	default:
		return errs.Rejected(errs.CodeRejected, err, "transaction rejected by node")
	}
}

// Probe checks that endpoint reports itself healthy.
func (e *Engine) Probe(ctx context.Context, endpoint int) error {
	return e.endpoints.Call(ctx, endpoint, func(ctx context.Context, c Client) error {
		health, err := c.GetHealth(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to get health")
		}
		if health != solrpc.HealthOk {
			return errors.Errorf("node reports %q", health)
		}
		return nil
	})
}
