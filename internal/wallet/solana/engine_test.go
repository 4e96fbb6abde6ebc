package solana_test

import (
	"context"
	"sync"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/wallet-core/internal/wallet/address"
	"github/chapool/wallet-core/internal/wallet/chain"
	"github/chapool/wallet-core/internal/wallet/errs"
	"github/chapool/wallet-core/internal/wallet/rpc"
	"github/chapool/wallet-core/internal/wallet/signer"
	"github/chapool/wallet-core/internal/wallet/solana"
	"github/chapool/wallet-core/internal/wallet/transfer"
)

const (
	recipient = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
	usdcMint  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

// fakeClient is an in-memory Solana node.
type fakeClient struct {
	mu sync.Mutex

	blockhash    solanago.Hash
	balance      uint64
	tokenBalance string
	noTokenAcct  bool
	recipientATA bool
	blockhashErr error
	sendErr      error
	statuses     map[solanago.Signature]*solrpc.SignatureStatusesResult
	transactions map[solanago.Signature]*solrpc.GetTransactionResult
	sent         []*solanago.Transaction
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		blockhash:    solanago.Hash{1, 2, 3},
		balance:      2_000_000_000,
		tokenBalance: "10000000",
		statuses:     make(map[solanago.Signature]*solrpc.SignatureStatusesResult),
		transactions: make(map[solanago.Signature]*solrpc.GetTransactionResult),
	}
}

func (f *fakeClient) GetLatestBlockhash(context.Context, solrpc.CommitmentType) (*solrpc.GetLatestBlockhashResult, error) {
	if f.blockhashErr != nil {
		return nil, f.blockhashErr
	}
	return &solrpc.GetLatestBlockhashResult{Value: &solrpc.LatestBlockhashResult{Blockhash: f.blockhash, LastValidBlockHeight: 100}}, nil
}

func (f *fakeClient) GetAccountInfo(context.Context, solanago.PublicKey) (*solrpc.GetAccountInfoResult, error) {
	if !f.recipientATA {
		return nil, solrpc.ErrNotFound
	}
	return &solrpc.GetAccountInfoResult{Value: &solrpc.Account{}}, nil
}

func (f *fakeClient) GetBalance(context.Context, solanago.PublicKey, solrpc.CommitmentType) (*solrpc.GetBalanceResult, error) {
	return &solrpc.GetBalanceResult{Value: f.balance}, nil
}

func (f *fakeClient) GetTokenAccountBalance(context.Context, solanago.PublicKey, solrpc.CommitmentType) (*solrpc.GetTokenAccountBalanceResult, error) {
	if f.noTokenAcct {
		return nil, &jsonrpc.RPCError{Code: -32602, Message: "Invalid param: could not find account"}
	}
	return &solrpc.GetTokenAccountBalanceResult{Value: &solrpc.UiTokenAmount{Amount: f.tokenBalance, Decimals: 6}}, nil
}

func (f *fakeClient) SendTransactionWithOpts(_ context.Context, tx *solanago.Transaction, _ solrpc.TransactionOpts) (solanago.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return solanago.Signature{}, f.sendErr
	}
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

func (f *fakeClient) GetSignatureStatuses(_ context.Context, _ bool, sigs ...solanago.Signature) (*solrpc.GetSignatureStatusesResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &solrpc.GetSignatureStatusesResult{}
	for _, sig := range sigs {
		out.Value = append(out.Value, f.statuses[sig])
	}
	return out, nil
}

func (f *fakeClient) GetTransaction(_ context.Context, sig solanago.Signature, _ *solrpc.GetTransactionOpts) (*solrpc.GetTransactionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tx, ok := f.transactions[sig]; ok {
		return tx, nil
	}
	return nil, solrpc.ErrNotFound
}

func (f *fakeClient) GetHealth(context.Context) (string, error) { return solrpc.HealthOk, nil }

type fixture struct {
	engine *solana.Engine
	client *fakeClient
	seed   []byte
	sender string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	chains := chain.NewDefaultService()
	cfg, err := chains.Get("SOL")
	require.NoError(t, err)

	client := newFakeClient()
	dial := func(context.Context, string) (solana.Client, error) { return client, nil }
	endpoints, err := rpc.NewEndpoints(cfg.Symbol, []string{"http://sol-a"}, dial, nil)
	require.NoError(t, err)

	codec := address.NewService(chains)
	engine, err := solana.NewEngine(cfg, codec, signer.NewService(), endpoints)
	require.NoError(t, err)

	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	sender, err := codec.ToAddress(seed, "SOL")
	require.NoError(t, err)

	return &fixture{engine: engine, client: client, seed: seed, sender: sender}
}

func (fx *fixture) prepare(t *testing.T, req *transfer.Request) *transfer.Unsigned {
	t.Helper()
	u, err := fx.engine.Validate(req)
	require.NoError(t, err)
	prepared, err := fx.engine.Prepare(testContext(t), 0, u)
	require.NoError(t, err)
	return prepared
}

func TestValidate(t *testing.T) {
	fx := newFixture(t)

	u, err := fx.engine.Validate(&transfer.Request{From: fx.sender, To: recipient, Amount: "0.25"})
	require.NoError(t, err)
	assert.Equal(t, "250000000", u.Amount.String())

	_, err = fx.engine.Validate(&transfer.Request{From: fx.sender, To: "0xdead", Amount: "1"})
	assert.Equal(t, errs.CodeInvalidAddress, errs.CodeOf(err))

	_, err = fx.engine.Validate(&transfer.Request{From: fx.sender, To: recipient, Amount: "0.0000000001"})
	assert.Equal(t, errs.CodeInvalidAmount, errs.CodeOf(err))

	_, err = fx.engine.Validate(&transfer.Request{From: fx.sender, To: recipient, Amount: "100000000000"})
	assert.Equal(t, errs.CodeInvalidAmount, errs.CodeOf(err), "lamports must fit in uint64")
}

func TestNativeTransfer(t *testing.T) {
	fx := newFixture(t)

	prepared := fx.prepare(t, &transfer.Request{From: fx.sender, To: recipient, Amount: "0.5"})
	assert.Equal(t, fx.client.blockhash.String(), prepared.Blockhash)
	assert.Equal(t, int64(solana.LamportsPerSignature), prepared.Fee.Total.Int64())

	signed, err := fx.engine.Sign(prepared, fx.seed)
	require.NoError(t, err)

	tx, ok := signed.Payload.(*solanago.Transaction)
	require.True(t, ok)
	require.NoError(t, tx.VerifySignatures())
	assert.Equal(t, tx.Signatures[0].String(), signed.TxID)
	assert.Equal(t, fx.client.blockhash, tx.Message.RecentBlockhash)
	require.Len(t, tx.Message.Instructions, 1)

	program, err := tx.Message.Program(tx.Message.Instructions[0].ProgramIDIndex)
	require.NoError(t, err)
	assert.True(t, program.Equals(system.ProgramID))

	require.NoError(t, fx.engine.Broadcast(testContext(t), 0, signed))
	assert.Len(t, fx.client.sent, 1)
}

func TestNativeInsufficientFunds(t *testing.T) {
	fx := newFixture(t)
	fx.client.balance = 1000

	u, err := fx.engine.Validate(&transfer.Request{From: fx.sender, To: recipient, Amount: "0.5"})
	require.NoError(t, err)

	_, err = fx.engine.Prepare(testContext(t), 0, u)
	assert.Equal(t, errs.CodeInsufficientFunds, errs.CodeOf(err))
	assert.False(t, rpc.IsTransient(err))
}

func TestTokenTransferCreatesRecipientAccount(t *testing.T) {
	fx := newFixture(t)

	req := &transfer.Request{From: fx.sender, To: recipient, Amount: "1.5", Token: &transfer.Token{Address: usdcMint, Decimals: 6}}
	prepared := fx.prepare(t, req)
	assert.True(t, prepared.CreateRecipientAccount)
	assert.Equal(t, "1500000", prepared.Amount.String())

	signed, err := fx.engine.Sign(prepared, fx.seed)
	require.NoError(t, err)
	tx, ok := signed.Payload.(*solanago.Transaction)
	require.True(t, ok)
	assert.Len(t, tx.Message.Instructions, 2)

	fx.client.recipientATA = true
	prepared = fx.prepare(t, req)
	assert.False(t, prepared.CreateRecipientAccount)

	signed, err = fx.engine.Sign(prepared, fx.seed)
	require.NoError(t, err)
	tx, ok = signed.Payload.(*solanago.Transaction)
	require.True(t, ok)
	assert.Len(t, tx.Message.Instructions, 1)
}

func TestTokenTransferBalanceChecks(t *testing.T) {
	req := func(fx *fixture) *transfer.Request {
		return &transfer.Request{From: fx.sender, To: recipient, Amount: "1", Token: &transfer.Token{Address: usdcMint, Decimals: 6}}
	}

	t.Run("rent not covered", func(t *testing.T) {
		fx := newFixture(t)
		fx.client.balance = solana.LamportsPerSignature + 1
		u, err := fx.engine.Validate(req(fx))
		require.NoError(t, err)
		_, err = fx.engine.Prepare(testContext(t), 0, u)
		assert.Equal(t, errs.CodeInsufficientGasFunds, errs.CodeOf(err))
	})

	t.Run("no token account", func(t *testing.T) {
		fx := newFixture(t)
		fx.client.noTokenAcct = true
		u, err := fx.engine.Validate(req(fx))
		require.NoError(t, err)
		_, err = fx.engine.Prepare(testContext(t), 0, u)
		assert.Equal(t, errs.CodeInsufficientFunds, errs.CodeOf(err))
	})

	t.Run("token balance too low", func(t *testing.T) {
		fx := newFixture(t)
		fx.client.tokenBalance = "999999"
		u, err := fx.engine.Validate(req(fx))
		require.NoError(t, err)
		_, err = fx.engine.Prepare(testContext(t), 0, u)
		assert.Equal(t, errs.CodeInsufficientFunds, errs.CodeOf(err))
	})
}

func TestSignRejectsForeignSeed(t *testing.T) {
	fx := newFixture(t)
	prepared := fx.prepare(t, &transfer.Request{From: fx.sender, To: recipient, Amount: "0.1"})

	other := make([]byte, 32)
	_, err := fx.engine.Sign(prepared, other)
	assert.Equal(t, errs.CodeMalformedKey, errs.CodeOf(err))
}

func TestBroadcastClassification(t *testing.T) {
	fx := newFixture(t)
	prepared := fx.prepare(t, &transfer.Request{From: fx.sender, To: recipient, Amount: "0.1"})
	signed, err := fx.engine.Sign(prepared, fx.seed)
	require.NoError(t, err)

	fx.client.sendErr = &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: Error processing Instruction 0: custom program error: 0x1 insufficient lamports"}
	err = fx.engine.Broadcast(testContext(t), 0, signed)
	assert.Equal(t, errs.CodeInsufficientFunds, errs.CodeOf(err))

	fx.client.sendErr = &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: Blockhash not found"}
	err = fx.engine.Broadcast(testContext(t), 0, signed)
	assert.True(t, rpc.IsTransient(err))

	fx.client.sendErr = &jsonrpc.RPCError{Code: -32002, Message: "This transaction has already been processed"}
	assert.NoError(t, fx.engine.Broadcast(testContext(t), 0, signed))
}

func TestStatus(t *testing.T) {
	fx := newFixture(t)
	prepared := fx.prepare(t, &transfer.Request{From: fx.sender, To: recipient, Amount: "0.1"})
	signed, err := fx.engine.Sign(prepared, fx.seed)
	require.NoError(t, err)
	sig := solanago.MustSignatureFromBase58(signed.TxID)

	_, err = fx.engine.Status(testContext(t), 0, signed.TxID)
	require.ErrorIs(t, err, transfer.ErrTxNotFound)

	fx.client.statuses[sig] = &solrpc.SignatureStatusesResult{Slot: 42, ConfirmationStatus: solrpc.ConfirmationStatusProcessed}
	res, err := fx.engine.Status(testContext(t), 0, signed.TxID)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusPending, res.Status)

	fx.client.statuses[sig] = &solrpc.SignatureStatusesResult{Slot: 42, ConfirmationStatus: solrpc.ConfirmationStatusConfirmed}
	fx.client.transactions[sig] = &solrpc.GetTransactionResult{Slot: 42, Meta: &solrpc.TransactionMeta{Fee: 5000}}
	res, err = fx.engine.Status(testContext(t), 0, signed.TxID)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusConfirmed, res.Status)
	assert.Equal(t, "42", res.Block)
	assert.Equal(t, int64(5000), res.FeePaid.Int64())

	fx.client.statuses[sig] = &solrpc.SignatureStatusesResult{Slot: 42, Err: map[string]any{"InstructionError": []any{0, "Custom"}}}
	res, err = fx.engine.Status(testContext(t), 0, signed.TxID)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusFailed, res.Status)
}

func TestStatusFallsBackToTransactionLookup(t *testing.T) {
	fx := newFixture(t)
	prepared := fx.prepare(t, &transfer.Request{From: fx.sender, To: recipient, Amount: "0.1"})
	signed, err := fx.engine.Sign(prepared, fx.seed)
	require.NoError(t, err)
	sig := solanago.MustSignatureFromBase58(signed.TxID)

	fx.client.transactions[sig] = &solrpc.GetTransactionResult{Slot: 7, Meta: &solrpc.TransactionMeta{Fee: 5000}}
	res, err := fx.engine.Status(testContext(t), 0, signed.TxID)
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusConfirmed, res.Status)
	assert.Equal(t, "7", res.Block)
}

func TestProbe(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, fx.engine.Probe(testContext(t), 0))
}
