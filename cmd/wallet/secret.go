package wallet

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github/chapool/wallet-core/internal/config"
	"github/chapool/wallet-core/internal/wallet/keystore"
	"golang.org/x/term"
)

// prompter reads secrets from the terminal with echo disabled, or line by
// line when stdin is piped.
type prompter struct {
	in       *bufio.Reader
	out      io.Writer
	fd       int
	terminal bool
}

func newPrompter(cmd *cobra.Command) *prompter {
	p := &prompter{
		in:  bufio.NewReader(cmd.InOrStdin()),
		out: cmd.ErrOrStderr(),
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.fd = int(f.Fd())
		p.terminal = true
	}
	return p
}

// readLine returns the next input line. On a terminal the input is hidden.
func (p *prompter) readLine(prompt string) (string, error) {
	if !p.terminal {
		line, err := p.in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return "", errors.Wrap(err, "failed to read from stdin")
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(p.out, prompt)
	value, err := term.ReadPassword(p.fd)
	fmt.Fprintln(p.out)
	if err != nil {
		return "", errors.Wrap(err, "failed to read password from terminal")
	}
	return string(value), nil
}

// readConfirmed asks twice on a terminal. Piped input is read once.
func (p *prompter) readConfirmed(prompt string) (string, error) {
	value, err := p.readLine(prompt)
	if err != nil {
		return "", err
	}
	if !p.terminal {
		return value, nil
	}

	again, err := p.readLine("Repeat " + strings.ToLower(prompt[:1]) + prompt[1:])
	if err != nil {
		return "", err
	}
	if value != again {
		return "", errors.New("inputs do not match")
	}
	return value, nil
}

// secret resolves a secret of the given source. Device ids and environment
// keys come from the configuration when set; payment passwords are always
// prompted for.
func (p *prompter) secret(cfg config.Server, sourceName string, prompt string, confirm bool) (keystore.Secret, error) {
	source, err := keystore.ParseSecretSource(sourceName)
	if err != nil {
		return keystore.Secret{}, err
	}

	switch source {
	case keystore.SourceDeviceID:
		if cfg.Secrets.DeviceID != "" {
			return keystore.NewSecret(source, cfg.Secrets.DeviceID), nil
		}
	case keystore.SourceEnvironmentKey:
		if cfg.Secrets.EnvironmentKey == "" {
			return keystore.Secret{}, errors.Errorf("environment key is not configured, set %s_SECRETS_ENVIRONMENT_KEY", config.EnvPrefix)
		}
		return keystore.NewSecret(source, cfg.Secrets.EnvironmentKey), nil
	default:
	}

	read := p.readLine
	if confirm {
		read = p.readConfirmed
	}
	value, err := read(prompt)
	if err != nil {
		return keystore.Secret{}, err
	}
	secret := keystore.NewSecret(source, value)
	if secret.Empty() {
		return keystore.Secret{}, errors.New("secret must not be empty")
	}
	return secret, nil
}
