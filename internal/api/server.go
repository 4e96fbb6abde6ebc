package api

import (
	"context"

	"github.com/rs/zerolog/log"
	"github/chapool/wallet-core/internal/config"
	"github/chapool/wallet-core/internal/metrics"
	"github/chapool/wallet-core/internal/util"
	"github/chapool/wallet-core/internal/wallet"
	"github/chapool/wallet-core/internal/wallet/address"
	"github/chapool/wallet-core/internal/wallet/chain"
	"github/chapool/wallet-core/internal/wallet/keystore"
	"github/chapool/wallet-core/internal/wallet/seed"
	"github/chapool/wallet-core/internal/wallet/signer"
	"github/chapool/wallet-core/internal/wallet/store"
	"github/chapool/wallet-core/internal/wallet/transfer"
)

// Server is a central struct keeping all the dependencies.
// It is initialized with wire, which handles making the new instances of the components
// in the right order. To add a new component, 3 steps are required:
// - declaring it in this struct
// - adding a provider function in providers.go
// - adding the provider's function name to the arguments of wire.Build() in wire.go
//
// Components labeled as `wire:"-"` will be skipped and have to be initialized after the InitNewServer* call.
// For more information about wire refer to https://pkg.go.dev/github.com/google/wire
type Server struct {
	Config    config.Server
	Chains    chain.Service
	Addresses address.Service
	Seeds     seed.Service
	Keystore  keystore.Service
	Signer    signer.Service
	Store     store.Store
	Engines   *wallet.Registry
	Metrics   *metrics.Service
	Transfer  transfer.Service
	Wallet    wallet.Service
}

// newServerWithComponents is used by wire to initialize the server components.
// Components not listed here won't be handled by wire and should be initialized separately.
// Components which shouldn't be handled must be labeled `wire:"-"` in Server struct.
func newServerWithComponents(
	cfg config.Server,
	chains chain.Service,
	addresses address.Service,
	seeds seed.Service,
	vault keystore.Service,
	sig signer.Service,
	records store.Store,
	engines *wallet.Registry,
	m *metrics.Service,
	transfers transfer.Service,
	walletService wallet.Service,
) *Server {
	return &Server{
		Config:    cfg,
		Chains:    chains,
		Addresses: addresses,
		Seeds:     seeds,
		Keystore:  vault,
		Signer:    sig,
		Store:     records,
		Engines:   engines,
		Metrics:   m,
		Transfer:  transfers,
		Wallet:    walletService,
	}
}

func NewServer(config config.Server) *Server {
	s := &Server{
		Config: config,
	}

	return s
}

func (s *Server) Ready() bool {
	if err := util.IsStructInitialized(s); err != nil {
		log.Debug().Err(err).Msg("Server is not fully initialized")
		return false
	}

	return true
}

// Shutdown writes the metrics textfile if configured, releases RPC clients
// and closes the wallet store.
func (s *Server) Shutdown(_ context.Context) []error {
	log.Debug().Msg("Shutting down server")

	var errs []error

	if path := s.Config.Metrics.Textfile; path != "" && s.Metrics != nil {
		log.Debug().Str("path", path).Msg("Writing metrics textfile")

		if err := s.Metrics.WriteTextfile(path); err != nil {
			log.Error().Err(err).Msg("Failed to write metrics textfile")
			errs = append(errs, err)
		}
	}

	if s.Engines != nil {
		log.Debug().Msg("Closing RPC endpoints")
		s.Engines.Close()
	}

	if s.Store != nil {
		log.Debug().Msg("Closing wallet store")

		if err := s.Store.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close wallet store")
			errs = append(errs, err)
		}
	}

	return errs
}
