package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github/chapool/wallet-core/internal/util"
)

func TestIsStructInitialized(t *testing.T) {
	type deps struct {
		Name    string
		Store   map[string]int
		Skipped *int `wire:"-"`
	}

	assert.Error(t, util.IsStructInitialized(&deps{}))
	assert.NoError(t, util.IsStructInitialized(&deps{Store: map[string]int{}}))
	assert.Error(t, util.IsStructInitialized((*deps)(nil)))
	assert.Error(t, util.IsStructInitialized(42))
}
