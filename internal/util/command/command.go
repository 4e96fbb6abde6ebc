package command

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github/chapool/wallet-core/internal/api"
	"github/chapool/wallet-core/internal/config"
	"github/chapool/wallet-core/internal/util"
)

const (
	// DefaultShutdownTimeout bounds Server.Shutdown after a command returns.
	DefaultShutdownTimeout = 15 * time.Second
)

// NewSubcommandGroup returns a command that only groups subcommands and
// prints its help when run on its own.
func NewSubcommandGroup(use string, subcommands ...*cobra.Command) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: use + " related subcommands",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(subcommands...)

	return cmd
}

// WithServer initializes the logger and a fully wired server from config,
// runs f and shuts the server down again. The error of f is returned as is.
func WithServer(ctx context.Context, cfg config.Server, f func(ctx context.Context, s *api.Server) error) error {
	util.InitLogger(cfg.Logger)

	s, err := api.InitNewServer(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to initialize server")
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultShutdownTimeout)
		defer cancel()

		if errs := s.Shutdown(shutdownCtx); len(errs) > 0 {
			log.Error().Errs("shutdownErrors", errs).Msg("Failed to gracefully shut down server")
		}
	}()

	if !s.Ready() {
		return errors.New("server is not ready")
	}

	return f(util.WithLogger(ctx, log.Logger), s)
}
