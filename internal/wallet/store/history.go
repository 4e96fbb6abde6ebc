package store

import (
	"sort"
	"strings"
	"time"

	"github/chapool/wallet-core/internal/wallet/errs"
)

// Transfer is the recorded outcome of one outgoing transfer. Recording the
// same transaction again replaces the earlier entry, so a later status check
// can upgrade an unconfirmed transfer.
type Transfer struct {
	TxID      string    `json:"txId"`
	Chain     string    `json:"chain"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    string    `json:"amount"`
	Token     string    `json:"token,omitempty"`
	Status    string    `json:"status"`
	FeePaid   string    `json:"feePaid,omitempty"`
	Block     string    `json:"block,omitempty"`
	Endpoint  string    `json:"endpoint,omitempty"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *Transfer) key() []byte {
	return transferKey(t.Chain, t.From, t.TxID)
}

func (t *Transfer) validate() error {
	if t == nil {
		return errs.Validation(errs.CodeInvalidInput, "transfer is required")
	}
	if t.TxID == "" || t.Chain == "" || t.From == "" {
		return errs.Validation(errs.CodeInvalidInput, "transfer chain, sender and transaction id are required")
	}
	return nil
}

const transferPrefix = "transfer/"

// transferKey is "transfer/<CHAIN>/<from>/<txid>".
func transferKey(chain string, from string, txID string) []byte {
	return []byte(transferPrefix + strings.ToUpper(chain) + "/" + from + "/" + txID)
}

func senderPrefix(chain string, from string) []byte {
	if from == "" {
		return []byte(transferPrefix + strings.ToUpper(chain) + "/")
	}
	return []byte(transferPrefix + strings.ToUpper(chain) + "/" + from + "/")
}

// sortTransfers orders newest first.
func sortTransfers(out []*Transfer) {
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
}
