package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/saiset-co/sai-filecache/logger"
	"github.com/saiset-co/sai-filecache/metrics"
	"github.com/saiset-co/sai-filecache/types"
)

func newTestLogger(t *testing.T) types.Logger {
	return logger.NewZapWrapper(zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel)))
}

func TestNewStoreTypes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cases := map[string]*types.StoreConfig{
		"sqlite": {Type: "sqlite", Path: filepath.Join(dir, "cache.db")},
		"memory": {Type: "memory"},
		"clover": {Type: "clover", Path: filepath.Join(dir, "clover")},
	}

	for name, config := range cases {
		s, err := NewStore(config, logger.NewNop(), metrics.NewNop())
		require.NoError(t, err, name)
		assert.Equal(t, name, s.Name())
		assert.NoError(t, s.Close())
	}
}

func TestNewStoreUnknownType(t *testing.T) {
	t.Parallel()

	_, err := NewStore(&types.StoreConfig{Type: "etcd"}, logger.NewNop(), metrics.NewNop())
	assert.ErrorIs(t, err, types.ErrStoreTypeUnknown)

	_, err = NewStore(nil, logger.NewNop(), metrics.NewNop())
	assert.ErrorIs(t, err, types.ErrConfigIsNil)
}

func TestRegisterStore(t *testing.T) {
	t.Parallel()

	RegisterStore("test-memory", func(config *types.StoreConfig, logger types.Logger) (types.ResultStore, error) {
		return NewMemoryStore(logger), nil
	})

	s, err := NewStore(&types.StoreConfig{Type: "test-memory"}, logger.NewNop(), metrics.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())
}

func TestInstrumentedStoreRecordsOperations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	m := metrics.NewMemoryMetrics(nil)

	s, err := NewStore(&types.StoreConfig{Type: "memory"}, logger.NewZapWrapper(zap.New(core)), m)
	require.NoError(t, err)

	_, _, err = s.Get(ctx, digestOf(1))
	require.Error(t, err, "get before init")

	require.NoError(t, s.Init(ctx))
	_, found, err := s.Get(ctx, digestOf(1))
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Put(ctx, entry(digestOf(1), "payload")))
	_, found, err = s.Get(ctx, digestOf(1))
	require.NoError(t, err)
	assert.True(t, found)

	_, err = s.ListRecent(ctx, types.MaxRecentEntries)
	require.NoError(t, err)

	count := func(operation, result string) float64 {
		return m.Counter("store_operations_total", map[string]string{
			"operation": operation,
			"result":    result,
		}).Get()
	}

	assert.Equal(t, 1.0, count("init", "success"))
	assert.Equal(t, 1.0, count("get", "error"))
	assert.Equal(t, 1.0, count("get", "miss"))
	assert.Equal(t, 1.0, count("get", "hit"))
	assert.Equal(t, 1.0, count("put", "success"))
	assert.Equal(t, 1.0, count("list", "success"))
	assert.Equal(t, 1.0, m.Gauge("store_recent_entries", map[string]string{"store": "memory"}).Get())

	getDuration := m.Histogram("store_operation_duration_seconds", nil, map[string]string{"operation": "get"})
	assert.Equal(t, uint64(3), getDuration.GetCount())

	assert.Equal(t, 1, logs.FilterMessage("Cache hit").Len())
	assert.Equal(t, 1, logs.FilterMessage("Cache miss").Len())
	assert.Equal(t, 1, logs.FilterMessage("Cache entry stored").Len())
	assert.Equal(t, 1, logs.FilterMessage("Cache store initialized").FilterField(zap.String("store", "memory")).Len())

	failures := logs.FilterMessage("Store lookup failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zapcore.ErrorLevel, failures[0].Level)
}
