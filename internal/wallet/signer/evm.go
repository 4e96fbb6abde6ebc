package signer

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/wallet-core/internal/wallet/errs"
)

// SignEVM signs an EIP-1559 or legacy transaction after checking that the key controls req.From.
func (s *service) SignEVM(req *EVMRequest, privateKey []byte) (*EVMSigned, error) {
	if req == nil {
		return nil, errs.Validation(errs.CodeInvalidInput, "sign request is required")
	}

	ecdsaPrivateKey, err := crypto.ToECDSA(privateKey)
	if err != nil {
		return nil, errs.Validation(errs.CodeMalformedKey, "invalid secp256k1 private key")
	}
	defer zeroECDSA(ecdsaPrivateKey)

	// Verify from address matches private key
	derivedAddress := crypto.PubkeyToAddress(ecdsaPrivateKey.PublicKey)
	if derivedAddress != req.From {
		return nil, errs.Validation(errs.CodeMalformedKey, "from address does not match private key")
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	to := req.To
	chainID := big.NewInt(req.ChainID)

	//nolint:varnamelen // tx is a common abbreviation for transaction
	var tx *types.Transaction
	var txSigner types.Signer

	if req.Dynamic() {
		if req.MaxPriorityFeePerGas == nil {
			return nil, errors.New("maxPriorityFeePerGas is required for EIP-1559 transactions")
		}
		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     req.Nonce,
			GasTipCap: req.MaxPriorityFeePerGas,
			GasFeeCap: req.MaxFeePerGas,
			Gas:       req.Gas,
			To:        &to,
			Value:     value,
			Data:      req.Data,
		})
		txSigner = types.NewLondonSigner(chainID)
	} else {
		if req.GasPrice == nil {
			return nil, errors.New("gasPrice is required for legacy transactions")
		}
		tx = types.NewTx(&types.LegacyTx{
			Nonce:    req.Nonce,
			GasPrice: req.GasPrice,
			Gas:      req.Gas,
			To:       &to,
			Value:    value,
			Data:     req.Data,
		})
		txSigner = types.NewEIP155Signer(chainID)
	}

	signedTx, err := types.SignTx(tx, txSigner, ecdsaPrivateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	txBytes, err := signedTx.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal transaction")
	}

	return &EVMSigned{
		Tx:             signedTx,
		RawTransaction: txBytes,
		TxHash:         signedTx.Hash().Hex(),
	}, nil
}

func zeroECDSA(key *ecdsa.PrivateKey) {
	if key != nil && key.D != nil {
		key.D.SetInt64(0)
	}
}
