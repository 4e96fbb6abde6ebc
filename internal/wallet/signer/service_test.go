package signer_test

import (
	"crypto/ed25519"
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/wallet-core/internal/wallet/errs"
	"github/chapool/wallet-core/internal/wallet/signer"
)

const (
	evmKeyHex  = "1ab42cc412b618bdea3a599e3c9bae199ebf030895b039e9db1e30dafb12b727"
	evmAddress = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
)

func evmKey(t *testing.T) []byte {
	t.Helper()
	key, err := hex.DecodeString(evmKeyHex)
	require.NoError(t, err)
	return key
}

func TestSignEVMDynamicFee(t *testing.T) {
	s := signer.NewService()

	req := &signer.EVMRequest{
		ChainID:              1,
		From:                 common.HexToAddress(evmAddress),
		To:                   common.HexToAddress("0x000000000000000000000000000000000000dEaD"),
		Value:                big.NewInt(1000),
		Gas:                  21000,
		MaxFeePerGas:         big.NewInt(30_000_000_000),
		MaxPriorityFeePerGas: big.NewInt(1_000_000_000),
		Nonce:                7,
	}

	signed, err := s.SignEVM(req, evmKey(t))
	require.NoError(t, err)

	assert.Equal(t, uint8(types.DynamicFeeTxType), signed.Tx.Type())
	assert.Equal(t, uint64(7), signed.Tx.Nonce())
	assert.Equal(t, signed.Tx.Hash().Hex(), signed.TxHash)

	sender, err := types.Sender(types.NewLondonSigner(big.NewInt(1)), signed.Tx)
	require.NoError(t, err)
	assert.Equal(t, req.From, sender)

	decoded := new(types.Transaction)
	require.NoError(t, decoded.UnmarshalBinary(signed.RawTransaction))
	assert.Equal(t, signed.Tx.Hash(), decoded.Hash())
}

func TestSignEVMLegacy(t *testing.T) {
	s := signer.NewService()

	req := &signer.EVMRequest{
		ChainID:  56,
		From:     common.HexToAddress(evmAddress),
		To:       common.HexToAddress("0x000000000000000000000000000000000000dEaD"),
		Value:    big.NewInt(1),
		Gas:      21000,
		GasPrice: big.NewInt(3_000_000_000),
	}

	signed, err := s.SignEVM(req, evmKey(t))
	require.NoError(t, err)

	assert.Equal(t, uint8(types.LegacyTxType), signed.Tx.Type())
	assert.True(t, signed.Tx.Protected())
	assert.Equal(t, big.NewInt(56), signed.Tx.ChainId())
}

func TestSignEVMRejectsForeignFrom(t *testing.T) {
	s := signer.NewService()

	_, err := s.SignEVM(&signer.EVMRequest{
		ChainID:  1,
		From:     common.HexToAddress("0x000000000000000000000000000000000000dEaD"),
		GasPrice: big.NewInt(1),
	}, evmKey(t))
	require.Error(t, err)
	assert.Equal(t, errs.CodeMalformedKey, errs.CodeOf(err))

	_, err = s.SignEVM(&signer.EVMRequest{ChainID: 1}, make([]byte, 32))
	assert.Equal(t, errs.CodeMalformedKey, errs.CodeOf(err))
}

func TestSignSolana(t *testing.T) {
	s := signer.NewService()

	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 1
	from := solana.PrivateKey(ed25519.NewKeyFromSeed(seed)).PublicKey()
	to := solana.MustPublicKeyFromBase58("HAgk14JpMQLgt6rVgv7cBQFJWFto5Dqxi472uT3DKpqk")

	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(1000, from, to).Build()},
		solana.Hash{1, 2, 3},
		solana.TransactionPayer(from),
	)
	require.NoError(t, err)

	sig, err := s.SignSolana(tx, seed, from)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures[0], sig)
	require.NoError(t, tx.VerifySignatures())

	_, err = s.SignSolana(tx, seed, to)
	assert.Equal(t, errs.CodeMalformedKey, errs.CodeOf(err))

	_, err = s.SignSolana(tx, seed[:16], from)
	assert.Equal(t, errs.CodeMalformedKey, errs.CodeOf(err))
}
