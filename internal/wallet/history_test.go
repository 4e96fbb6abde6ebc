package wallet_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/wallet-core/internal/wallet"
	"github/chapool/wallet-core/internal/wallet/errs"
	"github/chapool/wallet-core/internal/wallet/transfer"
)

func TestHistoryRecorder(t *testing.T) {
	fx := newFixture(t)
	recorder := wallet.NewHistoryRecorder(fx.store)

	req := &transfer.Request{
		Chain:  "ETH",
		From:   goldenEVM,
		To:     "0x000000000000000000000000000000000000dEaD",
		Amount: "0.5",
		Token:  &transfer.Token{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6},
	}
	require.NoError(t, recorder.Record(testContext(t), req, &transfer.Result{
		TxID:     "0xfeed",
		Status:   transfer.StatusUnconfirmed,
		Attempts: 2,
	}))
	// results without a transaction id are not recorded
	require.NoError(t, recorder.Record(testContext(t), req, &transfer.Result{Status: transfer.StatusUnconfirmed}))

	got, err := fx.svc.ListTransfers(testContext(t), "ETH", "0x9858effd232b4033e47d90003d41ec34ecaeda94")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0xfeed", got[0].TxID)
	assert.Equal(t, "0.5", got[0].Amount)
	assert.Equal(t, req.Token.Address, got[0].Token)
	assert.Equal(t, string(transfer.StatusUnconfirmed), got[0].Status)

	fx.transfers.statuses = map[string]*transfer.Result{
		"0xfeed": {TxID: "0xfeed", Status: transfer.StatusConfirmed, FeePaid: big.NewInt(21000), Block: "100"},
	}
	res, err := fx.svc.TransferStatus(testContext(t), "ETH", "0xfeed")
	require.NoError(t, err)
	assert.Equal(t, transfer.StatusConfirmed, res.Status)

	got, err = fx.svc.ListTransfers(testContext(t), "ETH", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, string(transfer.StatusConfirmed), got[0].Status)
	assert.Equal(t, "21000", got[0].FeePaid)
	assert.Equal(t, "100", got[0].Block)

	_, err = fx.svc.ListTransfers(testContext(t), "ETH", "not-an-address")
	assert.Equal(t, errs.CodeInvalidAddress, errs.CodeOf(err))
	assert.IsType(t, &errs.Error{}, err)

	_, err = fx.svc.ListTransfers(testContext(t), "DOGE", "")
	assert.Equal(t, errs.CodeUnsupportedChain, errs.CodeOf(err))
	assert.IsType(t, &errs.Error{}, err)
}
