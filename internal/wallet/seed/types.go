package seed

// Service turns BIP39 mnemonics into per-chain private keys.
// All methods are CPU-bound and never touch the network.
type Service interface {
	// Generate creates a new checksum-valid mnemonic from entropyBits of randomness
	// (128, 160, 192, 224 or 256).
	Generate(entropyBits int) (string, error)

	// Validate checks the mnemonic's words and checksum.
	Validate(mnemonic string) error

	// Derive returns the raw private key for the chain's canonical derivation path.
	// secp256k1 chains yield a 32-byte scalar, ed25519 chains a 32-byte seed.
	// WARNING: Caller must clear the returned key after use.
	Derive(mnemonic string, chainSymbol string) ([]byte, error)

	// DeriveAt is Derive with the last path component replaced by index.
	DeriveAt(mnemonic string, chainSymbol string, index uint32) ([]byte, error)
}
