package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-filecache/types"
)

var customStoreCreators = sync.Map{}

func RegisterStore(storeName string, creator types.ResultStoreCreator) {
	customStoreCreators.Store(storeName, creator)
}

func NewStore(config *types.StoreConfig, logger types.Logger, metrics types.MetricsManager, opts ...Option) (types.ResultStore, error) {
	if config == nil {
		return nil, types.Errorf(types.ErrConfigIsNil, "store")
	}

	var impl types.ResultStore
	var err error

	switch config.Type {
	case "sqlite", "":
		impl, err = NewSQLiteStore(config, logger, opts...)
	case "memory":
		impl = NewMemoryStore(logger, opts...)
	case "redis":
		impl, err = NewRedisStore(config, logger, opts...)
	case "clover":
		impl, err = NewCloverStore(config, logger, opts...)
	default:
		creator, exists := customStoreCreators.Load(config.Type)
		if !exists {
			return nil, types.Errorf(types.ErrStoreTypeUnknown, "type: %s", config.Type)
		}
		impl, err = creator.(types.ResultStoreCreator)(config, logger)
	}

	if err != nil {
		return nil, err
	}

	return newInstrumentedStore(logger, metrics, impl), nil
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the wall clock used to stamp captured_at.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type instrumentedStore struct {
	impl    types.ResultStore
	logger  types.Logger
	metrics types.MetricsManager
}

func newInstrumentedStore(logger types.Logger, metrics types.MetricsManager, impl types.ResultStore) types.ResultStore {
	return &instrumentedStore{
		impl:    impl,
		logger:  logger,
		metrics: metrics,
	}
}

func (is *instrumentedStore) Init(ctx context.Context) error {
	start := time.Now()
	err := is.impl.Init(ctx)
	duration := time.Since(start)

	result := "success"
	if err != nil {
		result = "error"
		is.logger.ErrorWithErrStack("Store init failed", err, zap.String("store", is.impl.Name()))
	}

	is.recordMetric("init", result, duration)
	return err
}

func (is *instrumentedStore) Get(ctx context.Context, digest string) (string, bool, error) {
	start := time.Now()
	payload, found, err := is.impl.Get(ctx, digest)
	duration := time.Since(start)

	var result string
	switch {
	case err != nil:
		result = "error"
		is.logger.ErrorWithErrStack("Store lookup failed", err, zap.String("digest", digest))
	case found:
		result = "hit"
		is.logger.Debug("Cache hit", zap.String("digest", digest))
	default:
		result = "miss"
		is.logger.Debug("Cache miss", zap.String("digest", digest))
	}

	is.recordMetric("get", result, duration)
	return payload, found, err
}

func (is *instrumentedStore) Put(ctx context.Context, entry types.CacheEntry) error {
	start := time.Now()
	err := is.impl.Put(ctx, entry)
	duration := time.Since(start)

	result := "success"
	if err != nil {
		result = "error"
		is.logger.ErrorWithErrStack("Store write failed", err, zap.String("digest", entry.ContentDigest))
	} else {
		is.logger.Debug("Cache entry stored",
			zap.String("digest", entry.ContentDigest),
			zap.String("source_path", entry.SourcePath),
			zap.String("origin_endpoint", entry.OriginEndpoint))
	}

	is.recordMetric("put", result, duration)
	return err
}

func (is *instrumentedStore) ListRecent(ctx context.Context, limit int) ([]types.CacheEntrySummary, error) {
	start := time.Now()
	entries, err := is.impl.ListRecent(ctx, limit)
	duration := time.Since(start)

	result := "success"
	if err != nil {
		result = "error"
		is.logger.ErrorWithErrStack("Store listing failed", err)
	} else {
		is.metrics.Gauge("store_recent_entries", map[string]string{"store": is.impl.Name()}).Set(float64(len(entries)))
	}

	is.recordMetric("list", result, duration)
	return entries, err
}

func (is *instrumentedStore) Name() string {
	return is.impl.Name()
}

func (is *instrumentedStore) Close() error {
	return is.impl.Close()
}

func (is *instrumentedStore) recordMetric(operation, result string, duration time.Duration) {
	opCounter := is.metrics.Counter("store_operations_total", map[string]string{
		"operation": operation,
		"result":    result,
	})
	opCounter.Inc()

	opDuration := is.metrics.Histogram("store_operation_duration_seconds",
		[]float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		map[string]string{"operation": operation},
	)
	opDuration.Observe(duration.Seconds())
}
