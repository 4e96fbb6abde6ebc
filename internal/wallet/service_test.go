package wallet_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/wallet-core/internal/wallet"
	"github/chapool/wallet-core/internal/wallet/address"
	"github/chapool/wallet-core/internal/wallet/chain"
	"github/chapool/wallet-core/internal/wallet/errs"
	"github/chapool/wallet-core/internal/wallet/keystore"
	"github/chapool/wallet-core/internal/wallet/seed"
	"github/chapool/wallet-core/internal/wallet/store"
	"github/chapool/wallet-core/internal/wallet/transfer"
)

//nolint:dupword // BIP39 test mnemonic
const abandonMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

const (
	goldenEVM = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	goldenSOL = "HAgk14JpMQLgt6rVgv7cBQFJWFto5Dqxi472uT3DKpqk"
	recipient = "0x000000000000000000000000000000000000dEaD"
)

// fakeTransfers records the key it was handed and reports every transfer confirmed.
type fakeTransfers struct {
	mu       sync.Mutex
	codec    address.Service
	calls    []string
	statuses map[string]*transfer.Result
}

func (f *fakeTransfers) Transfer(_ context.Context, req *transfer.Request, key []byte) (*transfer.Result, error) {
	addr, err := f.codec.ToAddress(key, req.Chain)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, addr)
	f.mu.Unlock()
	return &transfer.Result{TxID: "0xabc", Status: transfer.StatusConfirmed, Attempts: 1}, nil
}

func (f *fakeTransfers) Validate(req *transfer.Request) (*transfer.Unsigned, error) {
	if err := f.codec.Validate(req.To, req.Chain); err != nil {
		return nil, err
	}
	return &transfer.Unsigned{Chain: req.Chain, From: req.From, To: req.To}, nil
}

func (f *fakeTransfers) Estimate(_ context.Context, req *transfer.Request) (*transfer.Unsigned, error) {
	return f.Validate(req)
}

func (f *fakeTransfers) Status(_ context.Context, _ string, txID string) (*transfer.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if res, ok := f.statuses[txID]; ok {
		return res, nil
	}
	return nil, transfer.ErrTxNotFound
}

func (f *fakeTransfers) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	svc       wallet.Service
	store     store.Store
	transfers *fakeTransfers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	chains := chain.NewDefaultService()
	codec := address.NewService(chains)
	vault, err := keystore.NewService(keystore.Params{KDF: keystore.KDFScrypt, ScryptN: 1024, ScryptR: 8, ScryptP: 1})
	require.NoError(t, err)

	records := store.NewMemory()
	transfers := &fakeTransfers{codec: codec}
	svc := wallet.NewService(chains, seed.NewService(chains), codec, vault, transfers, records)

	return &fixture{svc: svc, store: records, transfers: transfers}
}

func password(v string) keystore.Secret { return keystore.PaymentPassword(v) }

func TestDeriveWalletGolden(t *testing.T) {
	fx := newFixture(t)

	for symbol, want := range map[string]string{"SOL": goldenSOL, "ETH": goldenEVM, "BSC": goldenEVM} {
		addr, blob, err := fx.svc.DeriveWallet(testContext(t), abandonMnemonic, symbol, password("pw"))
		require.NoError(t, err)
		assert.Equal(t, want, addr, symbol)

		key, err := fx.svc.DecryptKey(blob, password("pw"))
		require.NoError(t, err)
		assert.Len(t, key, 32)
	}

	_, _, err := fx.svc.DeriveWallet(testContext(t), "abandon abandon", "ETH", password("pw"))
	assert.Equal(t, errs.CodeInvalidMnemonic, errs.CodeOf(err))

	_, _, err = fx.svc.DeriveWallet(testContext(t), abandonMnemonic, "DOGE", password("pw"))
	assert.Equal(t, errs.CodeUnsupportedChain, errs.CodeOf(err))

	_, _, err = fx.svc.DeriveWallet(testContext(t), abandonMnemonic, "ETH", password(""))
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}

func TestDecryptKeyWrongSecret(t *testing.T) {
	fx := newFixture(t)

	_, blob, err := fx.svc.DeriveWallet(testContext(t), abandonMnemonic, "ETH", password("right"))
	require.NoError(t, err)

	_, err = fx.svc.DecryptKey(blob, password("wrong"))
	require.ErrorIs(t, err, errs.ErrDecrypt)
	assert.Equal(t, errs.KindCrypto, errs.KindOf(err))
}

func TestReEncrypt(t *testing.T) {
	fx := newFixture(t)

	_, blob, err := fx.svc.DeriveWallet(testContext(t), abandonMnemonic, "SOL", password("old"))
	require.NoError(t, err)
	original := blob.Clone()

	_, err = fx.svc.ReEncrypt(blob, password("nope"), password("new"))
	require.ErrorIs(t, err, errs.ErrDecrypt)
	assert.Equal(t, original, blob)

	next, err := fx.svc.ReEncrypt(blob, password("old"), keystore.NewSecret(keystore.SourceDeviceID, "device-1"))
	require.NoError(t, err)
	_, err = fx.svc.DecryptKey(next, keystore.NewSecret(keystore.SourceDeviceID, "device-1"))
	require.NoError(t, err)
	_, err = fx.svc.DecryptKey(next, password("device-1"))
	require.ErrorIs(t, err, errs.ErrDecrypt, "the secret source is bound into the blob")
}

func TestCreateWalletAndTransfer(t *testing.T) {
	fx := newFixture(t)
	ctx := testContext(t)

	created, err := fx.svc.CreateWallet(ctx, &wallet.CreateRequest{Chain: "eth", Secret: password("pw")})
	require.NoError(t, err)
	assert.NotEmpty(t, created.Mnemonic)
	assert.Equal(t, "ETH", created.Record.Chain)
	assert.True(t, created.Record.IsActive)
	assert.Equal(t, "m/44'/60'/0'/0/0", created.Record.DerivationPath)

	addr, _, err := fx.svc.DeriveWallet(ctx, created.Mnemonic, "ETH", password("x"))
	require.NoError(t, err)
	assert.Equal(t, addr, created.Record.Address)

	res, err := fx.svc.Transfer(ctx, &wallet.TransferRequest{
		Chain: "ETH", From: created.Record.Address, To: recipient, Amount: "0.1", Secret: password("pw"),
	})
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusConfirmed, res.Status)
	require.Equal(t, 1, fx.transfers.callCount())
	assert.Equal(t, created.Record.Address, fx.transfers.calls[0], "the engine gets the key of the sending wallet")

	_, err = fx.svc.Transfer(ctx, &wallet.TransferRequest{
		Chain: "ETH", From: created.Record.Address, To: recipient, Amount: "0.1", Secret: password("wrong"),
	})
	require.ErrorIs(t, err, errs.ErrDecrypt)

	_, err = fx.svc.Transfer(ctx, &wallet.TransferRequest{
		Chain: "ETH", From: created.Record.Address, To: "0x12", Amount: "0.1", Secret: password("pw"),
	})
	assert.Equal(t, errs.CodeInvalidAddress, errs.CodeOf(err))
	assert.Equal(t, 1, fx.transfers.callCount())
}

func TestCreateWalletAtIndex(t *testing.T) {
	fx := newFixture(t)
	index := uint32(3)

	created, err := fx.svc.CreateWallet(testContext(t), &wallet.CreateRequest{Chain: "SOL", Secret: password("pw"), Index: &index})
	require.NoError(t, err)
	assert.Equal(t, "m/44'/501'/0'/3'", created.Record.DerivationPath)
}

func TestTransferRejectsWatchOnlyAndInactive(t *testing.T) {
	fx := newFixture(t)
	ctx := testContext(t)

	_, err := fx.svc.WatchWallet(ctx, "ETH", goldenEVM)
	require.NoError(t, err)
	_, err = fx.svc.Transfer(ctx, &wallet.TransferRequest{Chain: "ETH", From: goldenEVM, To: recipient, Amount: "1", Secret: password("pw")})
	assert.Equal(t, errs.CodeWatchOnly, errs.CodeOf(err))

	rec, err := fx.svc.ImportWallet(ctx, &wallet.ImportRequest{Chain: "SOL", Mnemonic: abandonMnemonic, Secret: password("pw")})
	require.NoError(t, err)
	assert.True(t, rec.IsImported)

	_, err = fx.svc.Deactivate(ctx, "SOL", rec.Address)
	require.NoError(t, err)
	_, err = fx.svc.Transfer(ctx, &wallet.TransferRequest{Chain: "SOL", From: rec.Address, To: goldenSOL, Amount: "1", Secret: password("pw")})
	assert.Equal(t, errs.CodeInactive, errs.CodeOf(err))

	_, err = fx.svc.Transfer(ctx, &wallet.TransferRequest{Chain: "ETH", From: recipient, To: goldenEVM, Amount: "1", Secret: password("pw")})
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
	assert.Zero(t, fx.transfers.callCount())
}

func TestImportWallet(t *testing.T) {
	fx := newFixture(t)
	ctx := testContext(t)

	rec, err := fx.svc.ImportWallet(ctx, &wallet.ImportRequest{
		Chain:      "ETH",
		PrivateKey: "0x1ab42cc412b618bdea3a599e3c9bae199ebf030895b039e9db1e30dafb12b727",
		Secret:     password("pw"),
	})
	require.NoError(t, err)
	assert.Equal(t, goldenEVM, rec.Address)
	assert.Empty(t, rec.DerivationPath)

	_, err = fx.svc.ImportWallet(ctx, &wallet.ImportRequest{Chain: "ETH", Mnemonic: abandonMnemonic, Secret: password("pw")})
	require.ErrorIs(t, err, store.ErrExists)

	_, err = fx.svc.ImportWallet(ctx, &wallet.ImportRequest{Chain: "ETH", Secret: password("pw")})
	assert.Equal(t, errs.CodeInvalidInput, errs.CodeOf(err))

	_, err = fx.svc.ImportWallet(ctx, &wallet.ImportRequest{Chain: "ETH", Mnemonic: abandonMnemonic, PrivateKey: "00", Secret: password("pw")})
	assert.Equal(t, errs.CodeInvalidInput, errs.CodeOf(err))

	got, err := fx.svc.GetWallet(ctx, "eth", "0x9858effd232b4033e47d90003d41ec34ecaeda94")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID, "lookups accept any address spelling")
}

func TestLegacySolanaWallet(t *testing.T) {
	const legacyAddress = "EHqmfkN89RJ7Y33CXM6uCzhVeuywHoJXZZLszBHHZy7o"

	sol, err := chain.NewDefaultService().Get("SOL")
	require.NoError(t, err)
	legacy := *sol
	legacy.DerivationPath = chain.SeedPrefixPath

	chains := chain.NewService(&legacy)
	codec := address.NewService(chains)
	vault, err := keystore.NewService(keystore.Params{KDF: keystore.KDFScrypt, ScryptN: 1024, ScryptR: 8, ScryptP: 1})
	require.NoError(t, err)
	svc := wallet.NewService(chains, seed.NewService(chains), codec, vault, &fakeTransfers{codec: codec}, store.NewMemory())

	addr, _, err := svc.DeriveWallet(testContext(t), abandonMnemonic, "SOL", password("pw"))
	require.NoError(t, err)
	assert.Equal(t, legacyAddress, addr)

	rec, err := svc.ImportWallet(testContext(t), &wallet.ImportRequest{Chain: "SOL", Mnemonic: abandonMnemonic, Secret: password("pw")})
	require.NoError(t, err)
	assert.Equal(t, legacyAddress, rec.Address)
	assert.Equal(t, chain.SeedPrefixPath, rec.DerivationPath)
}

func TestChangeSecretWrongOldSecretLeavesRecord(t *testing.T) {
	fx := newFixture(t)
	ctx := testContext(t)

	rec, err := fx.svc.ImportWallet(ctx, &wallet.ImportRequest{Chain: "ETH", Mnemonic: abandonMnemonic, Secret: password("old")})
	require.NoError(t, err)

	_, err = fx.svc.ChangeSecret(ctx, "ETH", rec.Address, password("bad"), password("new"))
	require.ErrorIs(t, err, errs.ErrDecrypt)

	stored, err := fx.store.Get(ctx, "ETH", rec.Address)
	require.NoError(t, err)
	assert.Equal(t, rec.EncryptedKey, stored.EncryptedKey, "stored blob must be byte-for-byte unchanged")

	updated, err := fx.svc.ChangeSecret(ctx, "ETH", rec.Address, password("old"), password("new"))
	require.NoError(t, err)
	assert.NotEqual(t, rec.EncryptedKey, updated.EncryptedKey)

	require.NoError(t, fx.svc.VerifyRecord(ctx, "ETH", rec.Address, password("new")))
	require.ErrorIs(t, fx.svc.VerifyRecord(ctx, "ETH", rec.Address, password("old")), errs.ErrDecrypt)
}

func TestChangeSecretAll(t *testing.T) {
	fx := newFixture(t)
	ctx := testContext(t)

	eth, err := fx.svc.ImportWallet(ctx, &wallet.ImportRequest{Chain: "ETH", Mnemonic: abandonMnemonic, Secret: password("old")})
	require.NoError(t, err)
	sol, err := fx.svc.ImportWallet(ctx, &wallet.ImportRequest{Chain: "SOL", Mnemonic: abandonMnemonic, Secret: password("old")})
	require.NoError(t, err)
	device := keystore.NewSecret(keystore.SourceDeviceID, "device")
	bsc, err := fx.svc.ImportWallet(ctx, &wallet.ImportRequest{Chain: "BSC", Mnemonic: abandonMnemonic, Secret: device})
	require.NoError(t, err)

	n, err := fx.svc.ChangeSecretAll(ctx, password("old"), password("new"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, rec := range []*struct{ chain, addr string }{{"ETH", eth.Address}, {"SOL", sol.Address}} {
		require.NoError(t, fx.svc.VerifyRecord(ctx, rec.chain, rec.addr, password("new")))
	}
	require.NoError(t, fx.svc.VerifyRecord(ctx, "BSC", bsc.Address, device))
}

func TestChangeSecretAllIsAllOrNothing(t *testing.T) {
	fx := newFixture(t)
	ctx := testContext(t)

	_, err := fx.svc.ImportWallet(ctx, &wallet.ImportRequest{Chain: "ETH", Mnemonic: abandonMnemonic, Secret: password("old")})
	require.NoError(t, err)
	other, err := fx.svc.ImportWallet(ctx, &wallet.ImportRequest{Chain: "SOL", Mnemonic: abandonMnemonic, Secret: password("different")})
	require.NoError(t, err)

	before, err := fx.store.List(ctx, store.Filter{})
	require.NoError(t, err)

	_, err = fx.svc.ChangeSecretAll(ctx, password("old"), password("new"))
	require.ErrorIs(t, err, errs.ErrDecrypt)

	after, err := fx.store.List(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].EncryptedKey, after[i].EncryptedKey)
	}
	require.NoError(t, fx.svc.VerifyRecord(ctx, "SOL", other.Address, password("different")))
}

func TestListWallets(t *testing.T) {
	fx := newFixture(t)
	ctx := testContext(t)

	_, err := fx.svc.WatchWallet(ctx, "sol", goldenSOL)
	require.NoError(t, err)
	_, err = fx.svc.ImportWallet(ctx, &wallet.ImportRequest{Chain: "ETH", Mnemonic: abandonMnemonic, Secret: password("pw")})
	require.NoError(t, err)

	all, err := fx.svc.ListWallets(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	sol, err := fx.svc.ListWallets(ctx, store.Filter{Chain: "sol"})
	require.NoError(t, err)
	require.Len(t, sol, 1)
	assert.True(t, sol[0].IsWatchOnly)
	assert.Empty(t, sol[0].EncryptedKey)

	_, err = fx.svc.ListWallets(ctx, store.Filter{Chain: "DOGE"})
	assert.Equal(t, errs.CodeUnsupportedChain, errs.CodeOf(err))
}

func TestTransferStatusNotFound(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.svc.TransferStatus(testContext(t), "ETH", "0xabc")
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
}
