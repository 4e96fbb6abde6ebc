// Package wallet is the public surface of the wallet core: derivation,
// custody of encrypted keys and transfers from stored wallets.
package wallet

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github/chapool/wallet-core/internal/util"
	"github/chapool/wallet-core/internal/wallet/address"
	"github/chapool/wallet-core/internal/wallet/chain"
	"github/chapool/wallet-core/internal/wallet/errs"
	"github/chapool/wallet-core/internal/wallet/keystore"
	"github/chapool/wallet-core/internal/wallet/seed"
	"github/chapool/wallet-core/internal/wallet/store"
	"github/chapool/wallet-core/internal/wallet/transfer"
)

type service struct {
	chains    chain.Service
	seeds     seed.Service
	addresses address.Service
	vault     keystore.Service
	transfers transfer.Service
	store     store.Store
}

// NewService creates the wallet service.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(
	chains chain.Service,
	seeds seed.Service,
	addresses address.Service,
	vault keystore.Service,
	transfers transfer.Service,
	records store.Store,
) Service {
	return &service{
		chains:    chains,
		seeds:     seeds,
		addresses: addresses,
		vault:     vault,
		transfers: transfers,
		store:     records,
	}
}

func (s *service) DeriveWallet(ctx context.Context, mnemonic string, chainSymbol string, secret keystore.Secret) (string, keystore.Blob, error) {
	addr, blob, err := s.derive(ctx, mnemonic, chainSymbol, nil, secret)
	return addr, blob, errs.Boundary(err)
}

func (s *service) derive(ctx context.Context, mnemonic string, chainSymbol string, index *uint32, secret keystore.Secret) (string, keystore.Blob, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	var (
		key []byte
		err error
	)
	if index != nil {
		key, err = s.seeds.DeriveAt(mnemonic, chainSymbol, *index)
	} else {
		key, err = s.seeds.Derive(mnemonic, chainSymbol)
	}
	if err != nil {
		return "", nil, err
	}
	defer clear(key)

	return s.seal(key, chainSymbol, secret)
}

// seal derives the address of key and encrypts key under secret.
func (s *service) seal(key []byte, chainSymbol string, secret keystore.Secret) (string, keystore.Blob, error) {
	addr, err := s.addresses.ToAddress(key, chainSymbol)
	if err != nil {
		return "", nil, err
	}
	blob, err := s.vault.Encrypt(key, secret)
	if err != nil {
		return "", nil, err
	}
	return addr, blob, nil
}

func (s *service) DecryptKey(blob keystore.Blob, secret keystore.Secret) ([]byte, error) {
	key, err := s.vault.Decrypt(blob, secret)
	return key, errs.Boundary(err)
}

func (s *service) ReEncrypt(blob keystore.Blob, oldSecret keystore.Secret, newSecret keystore.Secret) (keystore.Blob, error) {
	out, err := s.vault.ReEncrypt(blob, oldSecret, newSecret)
	return out, errs.Boundary(err)
}

func (s *service) Transfer(ctx context.Context, req *TransferRequest) (*transfer.Result, error) {
	res, err := s.transfer(ctx, req)
	if err != nil {
		util.LogFromContext(ctx).Debug().Err(err).Str("component", "wallet").Msg("Transfer returned an error")
	}
	return res, errs.Boundary(err)
}

func (s *service) transfer(ctx context.Context, req *TransferRequest) (*transfer.Result, error) {
	if req == nil {
		return nil, errs.Validation(errs.CodeInvalidInput, "transfer request is required")
	}

	rec, err := s.lookup(ctx, req.Chain, req.From)
	if err != nil {
		return nil, err
	}
	if err := spendable(rec); err != nil {
		return nil, err
	}

	tr := &transfer.Request{
		Chain:  rec.Chain,
		From:   rec.Address,
		To:     req.To,
		Amount: req.Amount,
		Token:  req.Token,
	}
	// reject bad input before the key is decrypted
	if _, err := s.transfers.Validate(tr); err != nil {
		return nil, err
	}

	key, err := s.openKey(rec, req.Secret)
	if err != nil {
		return nil, err
	}
	defer clear(key)

	return s.transfers.Transfer(ctx, tr, key)
}

// openKey decrypts a record's key and checks it still derives the record's address.
func (s *service) openKey(rec *store.Record, secret keystore.Secret) ([]byte, error) {
	raw, err := s.vault.Decrypt(rec.EncryptedKey, secret)
	if err != nil {
		return nil, err
	}
	key, err := s.addresses.NormalizeKey(raw, rec.Chain)
	clear(raw)
	if err != nil {
		return nil, err
	}

	addr, err := s.addresses.ToAddress(key, rec.Chain)
	if err != nil {
		clear(key)
		return nil, err
	}
	if !s.addresses.Equal(addr, rec.Address, rec.Chain) {
		clear(key)
		return nil, errs.Validation(errs.CodeMalformedKey, "stored key does not derive %s", rec.Address)
	}
	return key, nil
}

func spendable(rec *store.Record) error {
	if rec.IsWatchOnly {
		return errs.Validation(errs.CodeWatchOnly, "wallet %s is watch-only", rec.Address)
	}
	if !rec.IsActive {
		return errs.Validation(errs.CodeInactive, "wallet %s is inactive", rec.Address)
	}
	return nil
}

// lookup resolves a wallet by chain and any accepted spelling of its address.
func (s *service) lookup(ctx context.Context, chainSymbol string, addr string) (*store.Record, error) {
	cfg, err := s.chains.Get(chainSymbol)
	if err != nil {
		return nil, err
	}
	canonical, err := s.addresses.Canonical(addr, cfg.Symbol)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, cfg.Symbol, canonical)
}

func (s *service) CreateWallet(ctx context.Context, req *CreateRequest) (*Created, error) {
	created, err := s.createWallet(ctx, req)
	return created, errs.Boundary(err)
}

func (s *service) createWallet(ctx context.Context, req *CreateRequest) (*Created, error) {
	if req == nil {
		return nil, errs.Validation(errs.CodeInvalidInput, "create request is required")
	}
	cfg, err := s.chains.Get(req.Chain)
	if err != nil {
		return nil, err
	}

	bits := req.EntropyBits
	if bits == 0 {
		bits = DefaultEntropyBits
	}
	mnemonic, err := s.seeds.Generate(bits)
	if err != nil {
		return nil, err
	}

	rec, err := s.storeDerived(ctx, cfg, mnemonic, req.Index, req.Secret, false)
	if err != nil {
		return nil, err
	}

	util.LogFromContext(ctx).Info().
		Str("component", "wallet").
		Str("chain", rec.Chain).
		Str("address", rec.Address).
		Msg("Wallet created")

	return &Created{Record: rec, Mnemonic: mnemonic}, nil
}

func (s *service) storeDerived(ctx context.Context, cfg *chain.Config, mnemonic string, index *uint32, secret keystore.Secret, imported bool) (*store.Record, error) {
	path := cfg.DerivationPath
	if index != nil && path != chain.SeedPrefixPath {
		var err error
		if path, err = seed.WithIndex(path, *index); err != nil {
			return nil, errors.Wrap(err, "failed to build derivation path")
		}
	}

	addr, blob, err := s.derive(ctx, mnemonic, cfg.Symbol, index, secret)
	if err != nil {
		return nil, err
	}

	rec := newRecord(cfg.Symbol, addr)
	rec.EncryptedKey = blob
	rec.SecretSource = secret.Source()
	rec.DerivationPath = path
	rec.IsImported = imported

	if err := s.store.Put(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func newRecord(chainSymbol string, addr string) *store.Record {
	now := time.Now().UTC()
	return &store.Record{
		ID:        uuid.New(),
		Chain:     chainSymbol,
		Address:   addr,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *service) ImportWallet(ctx context.Context, req *ImportRequest) (*store.Record, error) {
	rec, err := s.importWallet(ctx, req)
	return rec, errs.Boundary(err)
}

func (s *service) importWallet(ctx context.Context, req *ImportRequest) (*store.Record, error) {
	if req == nil {
		return nil, errs.Validation(errs.CodeInvalidInput, "import request is required")
	}
	cfg, err := s.chains.Get(req.Chain)
	if err != nil {
		return nil, err
	}

	hasMnemonic := strings.TrimSpace(req.Mnemonic) != ""
	hasKey := strings.TrimSpace(req.PrivateKey) != ""
	switch {
	case hasMnemonic == hasKey:
		return nil, errs.Validation(errs.CodeInvalidInput, "exactly one of mnemonic and private key is required")
	case hasMnemonic:
		return s.storeDerived(ctx, cfg, req.Mnemonic, req.Index, req.Secret, true)
	}

	key, err := s.addresses.ParseKey(req.PrivateKey, cfg.Symbol)
	if err != nil {
		return nil, err
	}
	defer clear(key)

	addr, blob, err := s.seal(key, cfg.Symbol, req.Secret)
	if err != nil {
		return nil, err
	}

	rec := newRecord(cfg.Symbol, addr)
	rec.EncryptedKey = blob
	rec.SecretSource = req.Secret.Source()
	rec.IsImported = true

	if err := s.store.Put(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *service) WatchWallet(ctx context.Context, chainSymbol string, addr string) (*store.Record, error) {
	cfg, err := s.chains.Get(chainSymbol)
	if err != nil {
		return nil, errs.Boundary(err)
	}
	canonical, err := s.addresses.Canonical(addr, cfg.Symbol)
	if err != nil {
		return nil, errs.Boundary(err)
	}

	rec := newRecord(cfg.Symbol, canonical)
	rec.IsWatchOnly = true
	if err := s.store.Put(ctx, rec); err != nil {
		return nil, errs.Boundary(err)
	}
	return rec, nil
}

func (s *service) GetWallet(ctx context.Context, chainSymbol string, addr string) (*store.Record, error) {
	rec, err := s.lookup(ctx, chainSymbol, addr)
	return rec, errs.Boundary(err)
}

func (s *service) ListWallets(ctx context.Context, f store.Filter) ([]*store.Record, error) {
	if f.Chain != "" {
		cfg, err := s.chains.Get(f.Chain)
		if err != nil {
			return nil, errs.Boundary(err)
		}
		f.Chain = cfg.Symbol
	}
	records, err := s.store.List(ctx, f)
	return records, errs.Boundary(err)
}

func (s *service) ChangeSecret(ctx context.Context, chainSymbol string, addr string, oldSecret keystore.Secret, newSecret keystore.Secret) (*store.Record, error) {
	rec, err := s.lookup(ctx, chainSymbol, addr)
	if err != nil {
		return nil, errs.Boundary(err)
	}
	if rec.IsWatchOnly {
		return nil, errs.Validation(errs.CodeWatchOnly, "wallet %s is watch-only", rec.Address)
	}

	blob, err := s.vault.ReEncrypt(rec.EncryptedKey, oldSecret, newSecret)
	if err != nil {
		return nil, errs.Boundary(err)
	}

	updated := rec.Clone()
	updated.EncryptedKey = blob
	updated.SecretSource = newSecret.Source()
	if err := s.store.Update(ctx, updated); err != nil {
		return nil, errs.Boundary(err)
	}
	return updated, nil
}

func (s *service) ChangeSecretAll(ctx context.Context, oldSecret keystore.Secret, newSecret keystore.Secret) (int, error) {
	log := util.LogFromContext(ctx).With().Str("component", "wallet").Logger()

	records, err := s.store.List(ctx, store.Filter{SecretSource: oldSecret.Source(), WithKeysOnly: true})
	if err != nil {
		return 0, errs.Boundary(err)
	}

	updated := make([]*store.Record, 0, len(records))
	for _, rec := range records {
		blob, err := s.vault.ReEncrypt(rec.EncryptedKey, oldSecret, newSecret)
		if err != nil {
			log.Warn().Str("chain", rec.Chain).Str("address", rec.Address).Msg("Secret change aborted, key did not open")
			return 0, errs.Boundary(err)
		}
		next := rec.Clone()
		next.EncryptedKey = blob
		next.SecretSource = newSecret.Source()
		updated = append(updated, next)
	}

	if len(updated) == 0 {
		return 0, nil
	}
	if err := s.store.UpdateAll(ctx, updated); err != nil {
		return 0, errs.Boundary(err)
	}

	log.Info().Int("count", len(updated)).Str("source", newSecret.Source().String()).Msg("Re-encrypted wallet keys")
	return len(updated), nil
}

func (s *service) Deactivate(ctx context.Context, chainSymbol string, addr string) (*store.Record, error) {
	rec, err := s.lookup(ctx, chainSymbol, addr)
	if err != nil {
		return nil, errs.Boundary(err)
	}
	if !rec.IsActive {
		return rec, nil
	}
	rec.IsActive = false
	if err := s.store.Update(ctx, rec); err != nil {
		return nil, errs.Boundary(err)
	}
	return rec, nil
}

func (s *service) EstimateFee(ctx context.Context, req *transfer.Request) (*transfer.Unsigned, error) {
	u, err := s.transfers.Estimate(ctx, req)
	return u, errs.Boundary(err)
}

func (s *service) TransferStatus(ctx context.Context, chainSymbol string, txID string) (*transfer.Result, error) {
	res, err := s.transfers.Status(ctx, chainSymbol, txID)
	if errors.Is(err, transfer.ErrTxNotFound) {
		return nil, errs.Validation(errs.CodeNotFound, "transaction %s not found", txID)
	}
	if err != nil {
		return nil, errs.Boundary(err)
	}
	s.refreshHistory(ctx, chainSymbol, res)
	return res, nil
}
