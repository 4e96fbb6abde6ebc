package util_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github/chapool/wallet-core/internal/util"
)

func TestLogFromContext(t *testing.T) {
	assert.Equal(t, &log.Logger, util.LogFromContext(context.Background()))

	var buf bytes.Buffer
	l := zerolog.New(&buf).With().Str("request", "r1").Logger()
	ctx := util.WithLogger(context.Background(), l)

	util.LogFromContext(ctx).Info().Msg("hello")
	assert.Contains(t, buf.String(), `"request":"r1"`)
}
