package wallet

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github/chapool/wallet-core/internal/wallet/address"
	"github/chapool/wallet-core/internal/wallet/chain"
	"github/chapool/wallet-core/internal/wallet/evm"
	"github/chapool/wallet-core/internal/wallet/rpc"
	"github/chapool/wallet-core/internal/wallet/signer"
	"github/chapool/wallet-core/internal/wallet/solana"
	"github/chapool/wallet-core/internal/wallet/transfer"
)

// Prober is implemented by engines that can health-check one endpoint.
type Prober interface {
	Probe(ctx context.Context, endpoint int) error
}

// Registry owns the transfer engine of every chain that can send, together
// with their RPC endpoint sets.
type Registry struct {
	engines transfer.Engines
	closers []func()
}

// NewRegistry builds an engine for every chain with a fee model and at least
// one RPC URL. Chains without either are skipped.
func NewRegistry(chains chain.Service, codec address.Service, sig signer.Service, opts ...rpc.Option) (*Registry, error) {
	r := &Registry{engines: make(transfer.Engines)}

	for _, cfg := range chains.List() {
		if !cfg.CanTransfer() {
			continue
		}

		var (
			engine transfer.Engine
			err    error
		)
		switch cfg.Family {
		case chain.FamilyEVM:
			engine, err = r.evmEngine(cfg, codec, sig, opts)
		case chain.FamilySolana:
			engine, err = r.solanaEngine(cfg, codec, sig, opts)
		default:
			continue
		}
		if err != nil {
			r.Close()
			return nil, errors.Wrapf(err, "failed to build %s engine", cfg.Symbol)
		}

		r.engines[strings.ToUpper(cfg.Symbol)] = engine
		log.Debug().
			Str("component", "wallet").
			Str("chain", cfg.Symbol).
			Strs("endpoints", cfg.RPCURLs).
			Msg("Transfer engine ready")
	}

	return r, nil
}

//nolint:ireturn
func (r *Registry) evmEngine(cfg *chain.Config, codec address.Service, sig signer.Service, opts []rpc.Option) (transfer.Engine, error) {
	endpoints, err := evm.NewEndpoints(cfg.Symbol, cfg.RPCURLs, opts...)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, endpoints.Close)
	return evm.NewEngine(cfg, codec, sig, endpoints)
}

//nolint:ireturn
func (r *Registry) solanaEngine(cfg *chain.Config, codec address.Service, sig signer.Service, opts []rpc.Option) (transfer.Engine, error) {
	endpoints, err := solana.NewEndpoints(cfg.Symbol, cfg.RPCURLs, opts...)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, endpoints.Close)
	return solana.NewEngine(cfg, codec, sig, endpoints)
}

// Engines returns the engine table keyed by chain symbol.
func (r *Registry) Engines() transfer.Engines {
	return r.engines
}

// ProbeResult is the health of one endpoint.
type ProbeResult struct {
	Chain    string
	Endpoint string
	Err      error
}

// Probe checks every endpoint of every engine, in chain and endpoint order.
func (r *Registry) Probe(ctx context.Context, chains ...string) []ProbeResult {
	var out []ProbeResult
	for _, symbol := range sortedSymbols(r.engines, chains) {
		engine := r.engines[symbol]
		prober, ok := engine.(Prober)
		if !ok {
			continue
		}
		for i, url := range engine.Endpoints() {
			out = append(out, ProbeResult{Chain: symbol, Endpoint: url, Err: prober.Probe(ctx, i)})
		}
	}
	return out
}

// Close releases every RPC client.
func (r *Registry) Close() {
	for _, c := range r.closers {
		c()
	}
	r.closers = nil
}

func sortedSymbols(engines transfer.Engines, only []string) []string {
	want := make(map[string]bool, len(only))
	for _, s := range only {
		want[strings.ToUpper(s)] = true
	}

	out := make([]string, 0, len(engines))
	for symbol := range engines {
		if len(want) == 0 || want[symbol] {
			out = append(out, symbol)
		}
	}
	sort.Strings(out)
	return out
}
