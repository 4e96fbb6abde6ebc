package address

// Service maps key material to chain addresses. Every method is pure and
// deterministic: identical input always yields identical output.
type Service interface {
	// ToAddress derives the address string for a private key on the given chain.
	// EVM and UTXO chains take a 32-byte secp256k1 scalar, Solana a 32-byte ed25519 seed.
	ToAddress(key []byte, chainSymbol string) (string, error)

	// Validate reports whether addr is a well-formed destination on the chain.
	Validate(addr string, chainSymbol string) error

	// NormalizeKey converts accepted binary key encodings to the canonical 32-byte form.
	// Solana accepts a 32-byte seed or a 64-byte seed||pubkey keypair.
	NormalizeKey(key []byte, chainSymbol string) ([]byte, error)

	// ParseKey decodes a textual private key (hex for secp256k1 chains,
	// base58 or hex for Solana) and normalizes it.
	ParseKey(text string, chainSymbol string) ([]byte, error)

	// Canonical validates addr and returns the chain's canonical spelling:
	// EIP-55 checksum on EVM chains, the address unchanged elsewhere.
	Canonical(addr string, chainSymbol string) (string, error)

	// Equal compares two addresses using the chain's canonical form.
	Equal(a, b string, chainSymbol string) bool
}
