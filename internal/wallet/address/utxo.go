package address

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/crypto"
	"github/chapool/wallet-core/internal/wallet/errs"
)

// NetParams resolves a chaincfg network by name. Empty means mainnet.
func NetParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "", "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet3", "testnet":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, errs.Validation(errs.CodeUnsupportedChain, "unknown bitcoin network %q", network)
	}
}

// utxoAddress derives the native segwit (P2WPKH) address of a secp256k1 key.
func utxoAddress(key []byte, network string) (string, error) {
	if len(key) != keyLength {
		return "", malformed("expected %d-byte secp256k1 key, got %d bytes", keyLength, len(key))
	}
	// ToECDSA rejects zero and out-of-range scalars, which btcec would silently reduce.
	if _, err := crypto.ToECDSA(key); err != nil {
		return "", malformed("invalid secp256k1 key: %v", err)
	}

	params, err := NetParams(network)
	if err != nil {
		return "", err
	}

	_, pub := btcec.PrivKeyFromBytes(key)
	witnessProg := btcutil.Hash160(pub.SerializeCompressed())

	addr, err := btcutil.NewAddressWitnessPubKeyHash(witnessProg, params)
	if err != nil {
		return "", malformed("failed to encode witness address: %v", err)
	}
	return addr.EncodeAddress(), nil
}

func validateUTXO(addr string, network string) error {
	params, err := NetParams(network)
	if err != nil {
		return err
	}

	decoded, err := btcutil.DecodeAddress(addr, params)
	if err != nil || !decoded.IsForNet(params) {
		return errs.Validation(errs.CodeInvalidAddress, "invalid bitcoin address %q", addr)
	}
	return nil
}
