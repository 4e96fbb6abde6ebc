package seed

import (
	"strings"

	"github.com/tyler-smith/go-bip39"
	"github/chapool/wallet-core/internal/wallet/errs"
	"golang.org/x/text/unicode/norm"
)

// Normalize applies NFKD and collapses whitespace, as BIP39 requires before
// checksum validation and seed stretching.
func Normalize(mnemonic string) string {
	return strings.Join(strings.Fields(norm.NFKD.String(mnemonic)), " ")
}

func generate(entropyBits int) (string, error) {
	switch entropyBits {
	case 128, 160, 192, 224, 256:
	default:
		return "", errs.Validation(errs.CodeInvalidInput, "entropy must be 128, 160, 192, 224 or 256 bits, got %d", entropyBits)
	}

	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return "", errs.Validation(errs.CodeInvalidInput, "failed to create entropy: %v", err)
	}
	defer clear(entropy)

	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", errs.Validation(errs.CodeInvalidInput, "failed to encode mnemonic: %v", err)
	}

	return mnemonic, nil
}

func validate(mnemonic string) error {
	if !bip39.IsMnemonicValid(Normalize(mnemonic)) {
		return errs.Validation(errs.CodeInvalidMnemonic, "invalid mnemonic")
	}
	return nil
}

// bip39Seed stretches the mnemonic into the 64-byte BIP39 seed (empty passphrase).
func bip39Seed(mnemonic string) ([]byte, error) {
	seed, err := bip39.NewSeedWithErrorChecking(Normalize(mnemonic), "")
	if err != nil {
		return nil, errs.Validation(errs.CodeInvalidMnemonic, "invalid mnemonic")
	}
	return seed, nil
}
