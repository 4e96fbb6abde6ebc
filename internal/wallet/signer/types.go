package signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gagliardetto/solana-go"
)

// Service signs chain transactions with a raw private key. It never stores keys.
type Service interface {
	// SignEVM signs an EVM transaction (EIP-1559 when MaxFeePerGas is set, else legacy EIP-155)
	SignEVM(req *EVMRequest, privateKey []byte) (*EVMSigned, error)

	// SignSolana signs tx with the ed25519 key expanded from a 32-byte seed
	SignSolana(tx *solana.Transaction, seed []byte, from solana.PublicKey) (solana.Signature, error)
}

// EVMRequest represents a request to sign an EVM transaction
type EVMRequest struct {
	ChainID              int64          // Chain ID (1 for Ethereum mainnet, 137 for Polygon, etc.)
	From                 common.Address // Address the key must control
	To                   common.Address // Recipient, or token contract for ERC20 calls
	Value                *big.Int       // Amount in wei
	Gas                  uint64         // Gas limit
	GasPrice             *big.Int       // Legacy gas price
	MaxFeePerGas         *big.Int       // EIP-1559 fee cap
	MaxPriorityFeePerGas *big.Int       // EIP-1559 tip cap
	Nonce                uint64         // Transaction nonce
	Data                 []byte         // Transaction data (for contract calls)
}

// Dynamic reports whether the request uses EIP-1559 fees.
func (r *EVMRequest) Dynamic() bool {
	return r.MaxFeePerGas != nil
}

// EVMSigned represents a signed EVM transaction
type EVMSigned struct {
	Tx             *types.Transaction
	RawTransaction []byte // binary-encoded signed transaction
	TxHash         string // Transaction hash (hex string with 0x prefix)
}
