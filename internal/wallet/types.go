package wallet

import (
	"context"

	"github/chapool/wallet-core/internal/wallet/keystore"
	"github/chapool/wallet-core/internal/wallet/store"
	"github/chapool/wallet-core/internal/wallet/transfer"
)

// DefaultEntropyBits yields 12-word mnemonics.
const DefaultEntropyBits = 128

// Service is the wallet core's public surface. Every error it returns is an
// *errs.Error; use errs.KindOf and errs.CodeOf to branch on it.
type Service interface {
	// DeriveWallet derives the chain key from mnemonic and returns its address
	// and the key encrypted under secret. Nothing is stored.
	DeriveWallet(ctx context.Context, mnemonic string, chain string, secret keystore.Secret) (string, keystore.Blob, error)

	// DecryptKey opens an encrypted key.
	// WARNING: Caller must clear the returned key after use.
	DecryptKey(blob keystore.Blob, secret keystore.Secret) ([]byte, error)

	// Transfer sends from a stored wallet. The key is decrypted for the
	// duration of signing only.
	Transfer(ctx context.Context, req *TransferRequest) (*transfer.Result, error)

	// ReEncrypt seals the key in blob under newSecret. The input is never modified.
	ReEncrypt(blob keystore.Blob, oldSecret keystore.Secret, newSecret keystore.Secret) (keystore.Blob, error)

	// CreateWallet generates a mnemonic, derives and stores the wallet. The
	// mnemonic is returned once and never stored.
	CreateWallet(ctx context.Context, req *CreateRequest) (*Created, error)

	// ImportWallet stores a wallet from a mnemonic or a raw private key.
	ImportWallet(ctx context.Context, req *ImportRequest) (*store.Record, error)

	// WatchWallet stores an address without key material.
	WatchWallet(ctx context.Context, chain string, address string) (*store.Record, error)

	GetWallet(ctx context.Context, chain string, address string) (*store.Record, error)
	ListWallets(ctx context.Context, f store.Filter) ([]*store.Record, error)

	// ChangeSecret re-encrypts one stored key. On any failure the stored
	// record is left untouched.
	ChangeSecret(ctx context.Context, chain string, address string, oldSecret keystore.Secret, newSecret keystore.Secret) (*store.Record, error)

	// ChangeSecretAll re-encrypts every stored key sealed under oldSecret's
	// source. Either every record is updated or none is.
	ChangeSecretAll(ctx context.Context, oldSecret keystore.Secret, newSecret keystore.Secret) (int, error)

	// Deactivate marks a wallet inactive. Inactive wallets cannot send.
	Deactivate(ctx context.Context, chain string, address string) (*store.Record, error)

	// VerifyRecord checks that the stored key decrypts under secret and
	// derives the stored address.
	VerifyRecord(ctx context.Context, chain string, address string, secret keystore.Secret) error

	// EstimateFee validates and prepares a transfer without signing it.
	EstimateFee(ctx context.Context, req *transfer.Request) (*transfer.Unsigned, error)

	// TransferStatus queries a submitted transaction once. A final status is
	// written back to the transfer history.
	TransferStatus(ctx context.Context, chain string, txID string) (*transfer.Result, error)

	// ListTransfers returns recorded transfers sent from address, newest
	// first. An empty address lists the whole chain.
	ListTransfers(ctx context.Context, chain string, address string) ([]*store.Transfer, error)
}

// TransferRequest sends Amount (a decimal string in whole units) of the
// chain's native asset, or of Token when set, from the stored wallet From.
type TransferRequest struct {
	Chain  string
	From   string
	To     string
	Amount string
	Token  *transfer.Token
	Secret keystore.Secret
}

// CreateRequest describes a new wallet.
type CreateRequest struct {
	Chain  string
	Secret keystore.Secret
	// EntropyBits defaults to DefaultEntropyBits.
	EntropyBits int
	// Index replaces the last component of the chain's derivation path.
	Index *uint32
}

// Created is a freshly generated wallet.
type Created struct {
	Record   *store.Record
	Mnemonic string
}

// ImportRequest imports a wallet. Exactly one of Mnemonic and PrivateKey is set.
type ImportRequest struct {
	Chain      string
	Mnemonic   string
	PrivateKey string
	Index      *uint32
	Secret     keystore.Secret
}
