package wallet

import (
	"context"

	"github/chapool/wallet-core/internal/util"
	"github/chapool/wallet-core/internal/wallet/errs"
	"github/chapool/wallet-core/internal/wallet/keystore"
)

// VerifyRecord decrypts the stored key and compares the address it derives
// with the stored address. A wrong secret yields errs.ErrDecrypt.
func (s *service) VerifyRecord(ctx context.Context, chainSymbol string, addr string, secret keystore.Secret) error {
	log := util.LogFromContext(ctx).With().Str("component", "wallet_verification").Logger()

	rec, err := s.lookup(ctx, chainSymbol, addr)
	if err != nil {
		return errs.Boundary(err)
	}
	if rec.IsWatchOnly {
		return errs.Validation(errs.CodeWatchOnly, "wallet %s is watch-only", rec.Address)
	}

	key, err := s.openKey(rec, secret)
	if err != nil {
		log.Warn().
			Str("chain", rec.Chain).
			Str("address", rec.Address).
			Str("code", errs.CodeOf(err)).
			Msg("Wallet verification failed")
		return errs.Boundary(err)
	}
	clear(key)

	log.Debug().Str("chain", rec.Chain).Str("address", rec.Address).Msg("Wallet verification successful")
	return nil
}
