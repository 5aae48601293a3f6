package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saiset-co/sai-filecache/types"
)

type redisSection struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	KeyPrefix string `json:"key_prefix"`
}

func TestUnmarshalConfigFromYAMLMap(t *testing.T) {
	t.Parallel()

	raw := map[interface{}]interface{}{
		"host":       "127.0.0.1",
		"port":       6380,
		"key_prefix": "fc",
	}

	var cfg redisSection
	require.NoError(t, UnmarshalConfig(raw, &cfg))
	assert.Equal(t, redisSection{Host: "127.0.0.1", Port: 6380, KeyPrefix: "fc"}, cfg)
}

func TestUnmarshalConfigTypedPointer(t *testing.T) {
	t.Parallel()

	in := &redisSection{Host: "cache"}
	var cfg redisSection
	require.NoError(t, UnmarshalConfig(in, &cfg))
	assert.Equal(t, "cache", cfg.Host)
}

func TestUnmarshalConfigNil(t *testing.T) {
	t.Parallel()

	var cfg redisSection
	assert.ErrorIs(t, UnmarshalConfig(nil, &cfg), types.ErrConfigIsNil)
}

func TestMarshalEntry(t *testing.T) {
	t.Parallel()

	entry := types.CacheEntry{
		ContentDigest:  "abc",
		SourcePath:     "/tmp/a.pdf",
		Payload:        `{"ok":true}`,
		OriginEndpoint: "https://api.example",
		CapturedAt:     42,
	}

	data, err := Marshal(entry)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "\n")

	var decoded types.CacheEntry
	require.NoError(t, Unmarshal(data, &decoded))
	assert.Equal(t, entry, decoded)
}
