package chain

import (
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github/chapool/wallet-core/internal/wallet/errs"
)

const (
	evmPath  = "m/44'/60'/0'/0/0"
	solPath  = "m/44'/501'/0'/0'"
	btcPath  = "m/84'/0'/0'/0/0"
	decimals = 18
)

// Defaults returns the built-in chain table.
func Defaults() []*Config {
	return []*Config{
		{Symbol: "ETH", Name: "Ethereum", Family: FamilyEVM, DerivationPath: evmPath, Decimals: decimals,
			FeeModel: FeeEIP1559, ChainID: 1, RPCURLs: []string{"https://ethereum-rpc.publicnode.com", "https://cloudflare-eth.com"}},
		{Symbol: "BSC", Name: "BNB Smart Chain", Family: FamilyEVM, DerivationPath: evmPath, Decimals: decimals,
			FeeModel: FeeLegacy, ChainID: 56, RPCURLs: []string{"https://bsc-dataseed.binance.org", "https://bsc-dataseed1.defibit.io"}},
		{Symbol: "MATIC", Name: "Polygon", Family: FamilyEVM, DerivationPath: evmPath, Decimals: decimals,
			FeeModel: FeeEIP1559, ChainID: 137, RPCURLs: []string{"https://polygon-rpc.com"}},
		{Symbol: "AVAX", Name: "Avalanche C-Chain", Family: FamilyEVM, DerivationPath: evmPath, Decimals: decimals,
			FeeModel: FeeEIP1559, ChainID: 43114, RPCURLs: []string{"https://api.avax.network/ext/bc/C/rpc"}},
		{Symbol: "BASE", Name: "Base", Family: FamilyEVM, DerivationPath: evmPath, Decimals: decimals,
			FeeModel: FeeEIP1559, ChainID: 8453, RPCURLs: []string{"https://mainnet.base.org"}},
		{Symbol: "ARBITRUM", Name: "Arbitrum One", Family: FamilyEVM, DerivationPath: evmPath, Decimals: decimals,
			FeeModel: FeeEIP1559, ChainID: 42161, RPCURLs: []string{"https://arb1.arbitrum.io/rpc"}},
		{Symbol: "OPTIMISM", Name: "Optimism", Family: FamilyEVM, DerivationPath: evmPath, Decimals: decimals,
			FeeModel: FeeEIP1559, ChainID: 10, RPCURLs: []string{"https://mainnet.optimism.io"}},
		{Symbol: "SOL", Name: "Solana", Family: FamilySolana, DerivationPath: solPath, Decimals: 9,
			FeeModel: FeeLamports, RPCURLs: []string{"https://api.mainnet-beta.solana.com", "https://solana-api.projectserum.com"}},
		{Symbol: "BTC", Name: "Bitcoin", Family: FamilyUTXO, DerivationPath: btcPath, Decimals: 8,
			FeeModel: FeeNone, Network: "mainnet"},
	}
}

type service struct {
	mu     sync.RWMutex
	chains map[string]*Config
}

// NewService creates a registry seeded with the given configs.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewService(configs ...*Config) Service {
	s := &service{chains: make(map[string]*Config, len(configs))}
	for _, c := range configs {
		cp := *c
		cp.RPCURLs = append([]string(nil), c.RPCURLs...)
		s.chains[strings.ToUpper(c.Symbol)] = &cp
	}
	return s
}

// NewDefaultService creates a registry with the built-in chains.
//
//nolint:ireturn
func NewDefaultService() Service {
	return NewService(Defaults()...)
}

func (s *service) Get(symbol string) (*Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chains[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return nil, errs.Validation(errs.CodeUnsupportedChain, "unsupported chain %q", symbol)
	}
	cp := *c
	cp.RPCURLs = append([]string(nil), c.RPCURLs...)
	return &cp, nil
}

func (s *service) List() []*Config {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Config, 0, len(s.chains))
	for _, c := range s.chains {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

func (s *service) SetRPCURLs(symbol string, urls []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chains[strings.ToUpper(symbol)]
	if !ok {
		return errs.Validation(errs.CodeUnsupportedChain, "unsupported chain %q", symbol)
	}
	c.RPCURLs = append([]string(nil), urls...)
	return nil
}

// ParseRPCURLs splits a comma separated endpoint list, primary first.
func ParseRPCURLs(rpcURL string) []string {
	if rpcURL == "" {
		return nil
	}

	urls := strings.Split(rpcURL, ",")
	result := make([]string, 0, len(urls))

	for _, url := range urls {
		url = strings.TrimSpace(url)
		if url != "" {
			result = append(result, url)
		}
	}

	return result
}

type chainsFile struct {
	Chains []*Config `toml:"chain"`
}

// LoadFile reads additional or overriding chain definitions from a TOML file
// of [[chain]] tables and merges them over base.
func LoadFile(path string, base []*Config) ([]*Config, error) {
	var f chainsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, errors.Wrapf(err, "failed to decode chains file %s", path)
	}

	merged := make(map[string]*Config, len(base)+len(f.Chains))
	for _, c := range base {
		merged[strings.ToUpper(c.Symbol)] = c
	}
	for _, c := range f.Chains {
		if c.Symbol == "" || c.Family == "" {
			return nil, errors.Errorf("chains file %s: symbol and family are required", path)
		}
		c.Symbol = strings.ToUpper(c.Symbol)
		merged[c.Symbol] = c
	}

	out := make([]*Config, 0, len(merged))
	for _, c := range merged {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}
