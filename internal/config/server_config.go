package config

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"github/chapool/wallet-core/internal/util"
	"github/chapool/wallet-core/internal/wallet/chain"
	"github/chapool/wallet-core/internal/wallet/keystore"
	"github/chapool/wallet-core/internal/wallet/rpc"
	"github/chapool/wallet-core/internal/wallet/transfer"
)

// EnvPrefix prefixes every scalar setting read from the environment.
const EnvPrefix = "WALLET"

const rpcURLSuffix = "_RPC_URL"

// rpcURLAliases maps network names used in env files to chain symbols.
var rpcURLAliases = map[string]string{
	"POLYGON":   "MATIC",
	"AVALANCHE": "AVAX",
	"SOLANA":    "SOL",
	"ARB":       "ARBITRUM",
	"OP":        "OPTIMISM",
	"BNB":       "BSC",
}

type Store struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path     string `json:"path"`
	InMemory bool   `json:"inMemory"`
}

type Chains struct {
	// File is an optional TOML file of [[chain]] tables merged over the built-in table.
	File string `json:"file"`
	// RPCURLs overrides endpoint lists by upper-case symbol, primary first.
	RPCURLs map[string][]string `json:"rpcUrls"`
}

type RPC struct {
	CallTimeout time.Duration `json:"callTimeout"`
}

type Metrics struct {
	// Textfile receives the collected metrics on shutdown when set.
	Textfile string `json:"textfile"`
}

type Keystore struct {
	KDF          string `json:"kdf"`
	ScryptN      int    `json:"scryptN"`
	ScryptR      int    `json:"scryptR"`
	ScryptP      int    `json:"scryptP"`
	ArgonTime    uint32 `json:"argonTime"`
	ArgonMemory  uint32 `json:"argonMemory"`
	ArgonThreads uint8  `json:"argonThreads"`
}

// Params converts the settings into keystore parameters for new blobs.
func (k Keystore) Params() (keystore.Params, error) {
	kdf, err := keystore.ParseKDF(k.KDF)
	if err != nil {
		return keystore.Params{}, err
	}

	return keystore.Params{
		KDF:          kdf,
		ScryptN:      k.ScryptN,
		ScryptR:      k.ScryptR,
		ScryptP:      k.ScryptP,
		ArgonTime:    k.ArgonTime,
		ArgonMemory:  k.ArgonMemory,
		ArgonThreads: k.ArgonThreads,
	}, nil
}

// Secrets holds non-interactive secret sources. They never appear in JSON.
type Secrets struct {
	DeviceID       string `json:"-"`
	EnvironmentKey string `json:"-"`
}

type Paths struct {
	ConfigFile string `json:"configFile"`
	EnvFile    string `json:"envFile"`
}

// Server is the complete runtime configuration.
type Server struct {
	Logger   util.LoggerConfig `json:"logger"`
	Store    Store             `json:"store"`
	Chains   Chains            `json:"chains"`
	RPC      RPC               `json:"rpc"`
	Transfer transfer.Config   `json:"transfer"`
	Keystore Keystore          `json:"keystore"`
	Metrics  Metrics           `json:"metrics"`
	Secrets  Secrets           `json:"-"`
	Paths    Paths             `json:"paths"`
}

// StorePath returns the badger path, "" meaning in-memory.
func (s Server) StorePath() string {
	if s.Store.InMemory {
		return ""
	}
	return s.Store.Path
}

// LoadChains returns the built-in chain table merged with the chains file and
// the RPC URL overrides.
func (s Server) LoadChains() ([]*chain.Config, error) {
	configs := chain.Defaults()
	if s.Chains.File != "" {
		var err error
		configs, err = chain.LoadFile(s.Chains.File, configs)
		if err != nil {
			return nil, err
		}
	}

	for _, c := range configs {
		if urls, ok := s.Chains.RPCURLs[strings.ToUpper(c.Symbol)]; ok {
			c.RPCURLs = append([]string(nil), urls...)
		}
	}

	return configs, nil
}

func setDefaults(v *viper.Viper) {
	params := keystore.DefaultParams()
	transferDefaults := transfer.DefaultConfig()

	v.SetDefault("logger.level", zerolog.InfoLevel.String())
	v.SetDefault("logger.request_level", zerolog.DebugLevel.String())
	v.SetDefault("logger.pretty_print_console", false)

	v.SetDefault("store.path", "./data/wallets")
	v.SetDefault("store.in_memory", false)

	v.SetDefault("chains.file", "")

	v.SetDefault("rpc.call_timeout", rpc.DefaultCallTimeout)

	v.SetDefault("transfer.confirm_interval", transferDefaults.ConfirmInterval)
	v.SetDefault("transfer.confirm_attempts", transferDefaults.ConfirmAttempts)
	v.SetDefault("transfer.total_timeout", transferDefaults.TotalTimeout)

	v.SetDefault("keystore.kdf", params.KDF.String())
	v.SetDefault("keystore.scrypt_n", params.ScryptN)
	v.SetDefault("keystore.scrypt_r", params.ScryptR)
	v.SetDefault("keystore.scrypt_p", params.ScryptP)
	v.SetDefault("keystore.argon_time", params.ArgonTime)
	v.SetDefault("keystore.argon_memory", params.ArgonMemory)
	v.SetDefault("keystore.argon_threads", params.ArgonThreads)

	v.SetDefault("metrics.textfile", "")

	v.SetDefault("secrets.device_id", "")
	v.SetDefault("secrets.environment_key", "")

	v.SetDefault("config_file", "")
	v.SetDefault("env_file", DefaultEnvFile)
}

func parseLevel(v *viper.Viper, key string, fallback zerolog.Level) zerolog.Level {
	level, err := zerolog.ParseLevel(v.GetString(key))
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Err(err).Str("key", key).Msg("Invalid log level, using default")
		return fallback
	}
	return level
}

// DefaultServiceConfigFromEnv builds the configuration from defaults, an
// optional env file, an optional config file and the environment, in
// increasing order of precedence.
func DefaultServiceConfigFromEnv() Server {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	envFile := v.GetString("env_file")
	DotEnvTryLoad(envFile)

	configFile := v.GetString("config_file")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			log.Error().Err(err).Str("path", configFile).Msg("Failed to read config file, continuing with environment")
		}
	}

	return Server{
		Logger: util.LoggerConfig{
			Level:              parseLevel(v, "logger.level", zerolog.InfoLevel),
			RequestLevel:       parseLevel(v, "logger.request_level", zerolog.DebugLevel),
			PrettyPrintConsole: v.GetBool("logger.pretty_print_console"),
		},
		Store: Store{
			Path:     v.GetString("store.path"),
			InMemory: v.GetBool("store.in_memory"),
		},
		Chains: Chains{
			File:    v.GetString("chains.file"),
			RPCURLs: RPCURLsFromEnv(os.Environ()),
		},
		RPC: RPC{
			CallTimeout: v.GetDuration("rpc.call_timeout"),
		},
		Transfer: transfer.Config{
			ConfirmInterval: v.GetDuration("transfer.confirm_interval"),
			ConfirmAttempts: v.GetInt("transfer.confirm_attempts"),
			TotalTimeout:    v.GetDuration("transfer.total_timeout"),
		},
		Keystore: Keystore{
			KDF:          v.GetString("keystore.kdf"),
			ScryptN:      v.GetInt("keystore.scrypt_n"),
			ScryptR:      v.GetInt("keystore.scrypt_r"),
			ScryptP:      v.GetInt("keystore.scrypt_p"),
			ArgonTime:    v.GetUint32("keystore.argon_time"),
			ArgonMemory:  v.GetUint32("keystore.argon_memory"),
			ArgonThreads: v.GetUint8("keystore.argon_threads"),
		},
		Metrics: Metrics{
			Textfile: v.GetString("metrics.textfile"),
		},
		Secrets: Secrets{
			DeviceID:       v.GetString("secrets.device_id"),
			EnvironmentKey: v.GetString("secrets.environment_key"),
		},
		Paths: Paths{
			ConfigFile: configFile,
			EnvFile:    envFile,
		},
	}
}

// RPCURLsFromEnv collects <SYMBOL>_RPC_URL entries from environ, a list of
// KEY=VALUE pairs. Values are comma separated, primary first.
func RPCURLsFromEnv(environ []string) map[string][]string {
	out := make(map[string][]string)

	keys := make([]string, 0, len(environ))
	values := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasSuffix(key, rpcURLSuffix) {
			continue
		}
		keys = append(keys, key)
		values[key] = value
	}
	// direct symbols win over aliases regardless of env order
	sort.SliceStable(keys, func(i, j int) bool {
		return isAlias(keys[i]) && !isAlias(keys[j])
	})

	for _, key := range keys {
		symbol := strings.ToUpper(strings.TrimSuffix(key, rpcURLSuffix))
		if symbol == "" || symbol == EnvPrefix {
			continue
		}
		if alias, ok := rpcURLAliases[symbol]; ok {
			symbol = alias
		}
		if urls := chain.ParseRPCURLs(values[key]); len(urls) > 0 {
			out[symbol] = urls
		}
	}

	return out
}

func isAlias(key string) bool {
	_, ok := rpcURLAliases[strings.ToUpper(strings.TrimSuffix(key, rpcURLSuffix))]
	return ok
}
