package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-filecache/types"
)

func TestParserLookup(t *testing.T) {
	t.Parallel()

	cfg := Defaults()
	cfg.Store.Path = "/var/lib/filecache/cache.db"

	p, err := NewParser(cfg)
	require.NoError(t, err)

	value, ok := p.Lookup("store.path")
	require.True(t, ok)
	assert.Equal(t, "/var/lib/filecache/cache.db", value)

	assert.Equal(t, "5s", p.GetValue("store.busy_timeout", nil))
	assert.Equal(t, "fallback", p.GetValue("store.config.host", "fallback"))

	_, ok = p.Lookup("hasher.chunk_size.bytes")
	assert.False(t, ok)

	var hasherConfig types.HasherConfig
	require.NoError(t, p.GetAs("hasher", &hasherConfig))
	assert.Equal(t, *cfg.Hasher, hasherConfig)

	var missing string
	assert.ErrorIs(t, p.GetAs("store.nope", &missing), types.ErrConfigNotFound)
}
