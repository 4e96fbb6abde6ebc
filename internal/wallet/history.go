package wallet

import (
	"context"

	"github/chapool/wallet-core/internal/util"
	"github/chapool/wallet-core/internal/wallet/errs"
	"github/chapool/wallet-core/internal/wallet/store"
	"github/chapool/wallet-core/internal/wallet/transfer"
)

// HistoryRecorder writes transfer outcomes to the wallet store.
type HistoryRecorder struct {
	store store.Store
}

var _ transfer.Recorder = (*HistoryRecorder)(nil)

func NewHistoryRecorder(records store.Store) *HistoryRecorder {
	return &HistoryRecorder{store: records}
}

func (h *HistoryRecorder) Record(ctx context.Context, req *transfer.Request, res *transfer.Result) error {
	if req == nil || res == nil || res.TxID == "" {
		return nil
	}
	return h.store.RecordTransfer(ctx, historyEntry(req, res))
}

func historyEntry(req *transfer.Request, res *transfer.Result) *store.Transfer {
	t := &store.Transfer{
		TxID:     res.TxID,
		Chain:    req.Chain,
		From:     req.From,
		To:       req.To,
		Amount:   req.Amount,
		Status:   string(res.Status),
		Block:    res.Block,
		Endpoint: res.Endpoint,
		Attempts: res.Attempts,
	}
	if req.Token != nil {
		t.Token = req.Token.Address
	}
	if res.FeePaid != nil {
		t.FeePaid = res.FeePaid.String()
	}
	return t
}

func (s *service) ListTransfers(ctx context.Context, chainSymbol string, addr string) ([]*store.Transfer, error) {
	if _, err := s.chains.Get(chainSymbol); err != nil {
		return nil, errs.Boundary(err)
	}
	if addr != "" {
		canonical, err := s.addresses.Canonical(addr, chainSymbol)
		if err != nil {
			return nil, errs.Boundary(err)
		}
		addr = canonical
	}

	out, err := s.store.ListTransfers(ctx, chainSymbol, addr)
	return out, errs.Boundary(err)
}

// refreshHistory stores a final status for a transaction already in the
// history. Failures are logged only.
func (s *service) refreshHistory(ctx context.Context, chainSymbol string, res *transfer.Result) {
	if res == nil || !res.Status.Final() {
		return
	}

	log := util.LogFromContext(ctx).With().Str("component", "wallet").Str("txId", res.TxID).Logger()

	entries, err := s.store.ListTransfers(ctx, chainSymbol, "")
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read transfer history")
		return
	}
	for _, e := range entries {
		if e.TxID != res.TxID || e.Status == string(res.Status) {
			continue
		}
		e.Status = string(res.Status)
		if res.FeePaid != nil {
			e.FeePaid = res.FeePaid.String()
		}
		if res.Block != "" {
			e.Block = res.Block
		}
		if err := s.store.RecordTransfer(ctx, e); err != nil {
			log.Warn().Err(err).Msg("Failed to update transfer history")
		}
		return
	}
}
