package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github/chapool/wallet-core/internal/config"
	"github/chapool/wallet-core/internal/metrics"
	"github/chapool/wallet-core/internal/wallet"
	"github/chapool/wallet-core/internal/wallet/address"
	"github/chapool/wallet-core/internal/wallet/chain"
	"github/chapool/wallet-core/internal/wallet/keystore"
	"github/chapool/wallet-core/internal/wallet/rpc"
	"github/chapool/wallet-core/internal/wallet/signer"
	"github/chapool/wallet-core/internal/wallet/store"
	"github/chapool/wallet-core/internal/wallet/transfer"
)

// PROVIDERS - define here only providers that for various reasons (e.g. cyclic dependency) can't live in their corresponding packages
// or for wrapping providers that only accept sub-configs to prevent the requirements for defining providers for sub-configs.
// https://github.com/google/wire/blob/main/docs/guide.md#defining-providers

// NewChains builds the chain registry from the built-in table, the chains
// file and RPC URL overrides.
//
//nolint:ireturn
func NewChains(cfg config.Server) (chain.Service, error) {
	configs, err := cfg.LoadChains()
	if err != nil {
		return nil, err
	}

	return chain.NewService(configs...), nil
}

//nolint:ireturn
func NewKeystore(cfg config.Server) (keystore.Service, error) {
	params, err := cfg.Keystore.Params()
	if err != nil {
		return nil, err
	}

	return keystore.NewService(params)
}

//nolint:ireturn
func NewStore(cfg config.Server) (store.Store, error) {
	path := cfg.StorePath()
	if path == "" {
		log.Warn().Msg("Wallet store is in-memory, records are lost on exit")
	}

	return store.NewBadger(path)
}

func NewEngines(cfg config.Server, chains chain.Service, codec address.Service, sig signer.Service) (*wallet.Registry, error) {
	return wallet.NewRegistry(chains, codec, sig, rpc.WithCallTimeout(cfg.RPC.CallTimeout))
}

//nolint:ireturn
func NewMetricsRegisterer() prometheus.Registerer {
	return metrics.NewRegistry()
}

// NewTransfer runs transfers on the registry's engines and records every
// outcome in the wallet store.
//
//nolint:ireturn
func NewTransfer(cfg config.Server, engines *wallet.Registry, m *metrics.Service, records store.Store) transfer.Service {
	return transfer.NewService(engines.Engines(), cfg.Transfer, m, wallet.NewHistoryRecorder(records))
}
