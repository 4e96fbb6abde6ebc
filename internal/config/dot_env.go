package config

import (
	"io/fs"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/subosito/gotenv"
)

// DefaultEnvFile is read on startup when present.
const DefaultEnvFile = ".env.local"

// DotEnvTryLoad loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set are kept. A missing file is not an error.
func DotEnvTryLoad(path string) {
	if path == "" {
		return
	}

	err := gotenv.Load(path)
	if err == nil {
		log.Debug().Str("path", path).Msg("Loaded env file")
		return
	}
	if errors.Is(err, fs.ErrNotExist) {
		return
	}

	log.Warn().Err(err).Str("path", path).Msg("Failed to load env file")
}
