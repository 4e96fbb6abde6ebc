package chain

// Family groups chains that share key, address and transaction semantics.
type Family string

const (
	FamilyEVM    Family = "evm"
	FamilySolana Family = "solana"
	FamilyUTXO   Family = "utxo"
)

// Curve is the signature scheme a family's keys live on.
func (f Family) Curve() string {
	if f == FamilySolana {
		return "ed25519"
	}
	return "secp256k1"
}

// FeeModel selects how an EVM chain prices gas.
type FeeModel string

const (
	FeeLegacy  FeeModel = "legacy"
	FeeEIP1559 FeeModel = "eip1559"
	// FeeLamports is Solana's flat per-signature fee.
	FeeLamports FeeModel = "lamports"
	// FeeNone marks chains the core can derive for but not send from.
	FeeNone FeeModel = "none"
)

// SeedPrefixPath is a DerivationPath value for Solana wallets created by the
// legacy wallet backend: the key is the first 32 bytes of the BIP39 seed and
// no path is walked.
const SeedPrefixPath = "bip39-seed"

// Config is the static description of one chain.
type Config struct {
	Symbol         string   `toml:"symbol"`
	Name           string   `toml:"name"`
	Family         Family   `toml:"family"`
	DerivationPath string   `toml:"derivation_path"`
	Decimals       int      `toml:"decimals"`
	FeeModel       FeeModel `toml:"fee_model"`
	// RPCURLs is ordered: primary first, then backups.
	RPCURLs []string `toml:"rpc_urls"`
	// ChainID is the EIP-155 chain id (EVM only).
	ChainID int64 `toml:"chain_id"`
	// Network is the chaincfg network name (UTXO only): mainnet, testnet3, regtest, signet.
	Network string `toml:"network"`
}

// CanTransfer reports whether the core can build transfers for this chain.
func (c *Config) CanTransfer() bool {
	return c.FeeModel != FeeNone && len(c.RPCURLs) > 0
}

// Service resolves chain configs by symbol.
type Service interface {
	// Get returns the config for the given symbol (case-insensitive).
	Get(symbol string) (*Config, error)

	// List returns all known chains ordered by symbol.
	List() []*Config

	// SetRPCURLs replaces a chain's endpoint list.
	SetRPCURLs(symbol string, urls []string) error
}
