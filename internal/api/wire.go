//go:build wireinject

package api

import (
	"github.com/google/wire"
	"github/chapool/wallet-core/internal/config"
	"github/chapool/wallet-core/internal/metrics"
	"github/chapool/wallet-core/internal/wallet"
	"github/chapool/wallet-core/internal/wallet/address"
	"github/chapool/wallet-core/internal/wallet/seed"
	"github/chapool/wallet-core/internal/wallet/signer"
	"github/chapool/wallet-core/internal/wallet/store"
)

// INJECTORS - https://github.com/google/wire/blob/main/docs/guide.md#injectors

// serviceSet groups the default set of providers that are required for initing a server
var serviceSet = wire.NewSet(
	newServerWithComponents,
	NewChains,
	NewKeystore,
	NewEngines,
	NewTransfer,
	NewMetricsRegisterer,
	metrics.New,
	address.NewService,
	seed.NewService,
	signer.NewService,
	wallet.NewService,
)

// InitNewServer returns a new Server instance backed by the configured badger store.
func InitNewServer(
	_ config.Server,
) (*Server, error) {
	wire.Build(serviceSet, NewStore)
	return new(Server), nil
}

// InitNewServerWithStore returns a new Server instance with the given store.
// All the other components are initialized via go wire according to the configuration.
func InitNewServerWithStore(
	_ config.Server,
	_ store.Store,
) (*Server, error) {
	wire.Build(serviceSet)
	return new(Server), nil
}
