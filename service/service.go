package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/saiset-co/sai-filecache/config"
	"github.com/saiset-co/sai-filecache/hasher"
	"github.com/saiset-co/sai-filecache/logger"
	"github.com/saiset-co/sai-filecache/metrics"
	"github.com/saiset-co/sai-filecache/store"
	"github.com/saiset-co/sai-filecache/types"
)

// FetchFunc obtains the remote result for a file whose digest missed the cache.
type FetchFunc func(ctx context.Context, digest string) (string, error)

type Result struct {
	Digest  string `json:"digest"`
	Payload string `json:"payload"`
	Hit     bool   `json:"hit"`
}

// Service is the boundary the host calls into. Every method is safe for
// concurrent use.
type Service struct {
	config  *types.ServiceConfig
	logger  types.Logger
	metrics types.MetricsManager
	hasher  *hasher.Hasher
	store   types.ResultStore
	group   singleflight.Group

	storeOptions []store.Option
}

type Option func(*Service)

func WithLogger(logger types.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(metrics types.MetricsManager) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithStore replaces the configured backend. The store is used as given,
// without the metrics wrapper.
func WithStore(store types.ResultStore) Option {
	return func(s *Service) {
		s.store = store
	}
}

func WithStoreOptions(opts ...store.Option) Option {
	return func(s *Service) {
		s.storeOptions = append(s.storeOptions, opts...)
	}
}

func NewService(cfg *types.ServiceConfig, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, types.Errorf(types.ErrConfigIsNil, "service")
	}

	s := &Service{config: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.registerProviders(); err != nil {
		return nil, err
	}

	return s, nil
}

// NewServiceFromFile loads configPath over the defaults and builds a Service.
func NewServiceFromFile(configPath string, opts ...Option) (*Service, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, types.WrapError(err, "failed to load config")
	}
	return NewService(cfg, opts...)
}

func (s *Service) registerProviders() error {
	var err error

	if s.logger == nil {
		s.logger, err = logger.New(s.config.Logger)
		if err != nil {
			return types.WrapError(err, "failed to register logger")
		}
	}

	if s.metrics == nil {
		s.metrics, err = metrics.NewManager(s.config.Metrics, s.logger)
		if err != nil {
			return types.WrapError(err, "failed to register metrics manager")
		}
	}

	s.hasher, err = hasher.New(s.config.Hasher)
	if err != nil {
		return types.WrapError(err, "failed to register hasher")
	}

	if s.store == nil {
		s.store, err = store.NewStore(s.config.Store, s.logger, s.metrics, s.storeOptions...)
		if err != nil {
			return types.WrapError(err, "failed to register store")
		}
	}

	return nil
}

func (s *Service) Logger() types.Logger {
	return s.logger
}

func (s *Service) Metrics() types.MetricsManager {
	return s.metrics
}

func (s *Service) Store() types.ResultStore {
	return s.store
}

// InitCache prepares the store location. It is safe to call on every start.
func (s *Service) InitCache(ctx context.Context) error {
	return s.store.Init(ctx)
}

func (s *Service) HashFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	start := time.Now()
	digest, n, err := s.hasher.DigestFile(path)
	if err != nil {
		s.logger.Warn("Failed to hash file", zap.String("path", path), zap.Error(err))
		return "", err
	}

	s.metrics.Counter("hasher_bytes_total", map[string]string{"algorithm": string(s.hasher.Algorithm())}).Add(float64(n))
	s.metrics.Histogram("hasher_duration_seconds",
		[]float64{0.001, 0.01, 0.1, 1.0, 10.0},
		map[string]string{"algorithm": string(s.hasher.Algorithm())},
	).ObserveDuration(start)

	s.logger.Debug("File hashed",
		zap.String("path", path),
		zap.String("digest", digest),
		zap.Int64("bytes", n))

	return digest, nil
}

// HashFiles hashes paths concurrently, bounded by the hasher concurrency, and
// returns digests in input order. The first failure cancels the rest.
func (s *Service) HashFiles(ctx context.Context, paths []string) ([]string, error) {
	digests := make([]string, len(paths))

	g, gCtx := errgroup.WithContext(ctx)
	if s.config.Hasher != nil && s.config.Hasher.Concurrency > 0 {
		g.SetLimit(s.config.Hasher.Concurrency)
	}

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			digest, err := s.HashFile(gCtx, path)
			if err != nil {
				return err
			}
			digests[i] = digest
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return digests, nil
}

func (s *Service) GetCachedResult(ctx context.Context, digest string) (string, bool, error) {
	return s.store.Get(ctx, digest)
}

func (s *Service) SaveCachedResult(ctx context.Context, digest, sourcePath, payload, endpoint string) error {
	return s.store.Put(ctx, types.CacheEntry{
		ContentDigest:  digest,
		SourcePath:     sourcePath,
		Payload:        payload,
		OriginEndpoint: endpoint,
	})
}

func (s *Service) ListCacheEntries(ctx context.Context) ([]types.CacheEntrySummary, error) {
	return s.store.ListRecent(ctx, types.MaxRecentEntries)
}

// ListCacheEntriesN is ListCacheEntries with a caller-chosen size, clamped to
// the same maximum.
func (s *Service) ListCacheEntriesN(ctx context.Context, limit int) ([]types.CacheEntrySummary, error) {
	return s.store.ListRecent(ctx, types.ClampLimit(limit))
}

// Resolve hashes path and returns the cached payload for it, calling fetch
// and storing its result on a miss. Concurrent misses on the same digest share
// one fetch, which keeps running for the remaining callers when one of them
// gives up.
func (s *Service) Resolve(ctx context.Context, path, endpoint string, fetch FetchFunc) (*Result, error) {
	if fetch == nil {
		return nil, types.ErrFetchIsNil
	}

	digest, err := s.HashFile(ctx, path)
	if err != nil {
		return nil, err
	}

	payload, found, err := s.store.Get(ctx, digest)
	if err != nil {
		return nil, err
	}
	if found {
		s.recordResolve("hit")
		return &Result{Digest: digest, Payload: payload, Hit: true}, nil
	}

	// The shared fetch outlives any single caller; each caller stops waiting
	// when its own ctx is done.
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(digest, func() (interface{}, error) {
		// A resolver that finished between our lookup and now has already stored it.
		payload, found, err := s.store.Get(shared, digest)
		if err != nil {
			return nil, err
		}
		if found {
			return &Result{Digest: digest, Payload: payload, Hit: true}, nil
		}

		payload, err = fetch(shared, digest)
		if err != nil {
			return nil, types.WrapError(err, "failed to fetch result")
		}

		if err := s.SaveCachedResult(shared, digest, path, payload, endpoint); err != nil {
			return nil, err
		}

		return &Result{Digest: digest, Payload: payload}, nil
	})

	waiting := s.metrics.Gauge("resolve_waiting", nil)
	waiting.Inc()
	defer waiting.Dec()

	var res singleflight.Result
	select {
	case <-ctx.Done():
		s.recordResolve("error")
		return nil, ctx.Err()
	case res = <-ch:
	}

	if res.Err != nil {
		s.recordResolve("error")
		return nil, res.Err
	}

	v := res.Val
	result := *v.(*Result)
	if result.Hit {
		s.recordResolve("hit")
	} else {
		s.recordResolve("miss")
	}

	return &result, nil
}

func (s *Service) Close() error {
	if err := s.store.Close(); err != nil {
		return types.WrapError(err, "failed to close store")
	}

	// Sync reports EINVAL for stderr and stdout.
	if err := s.logger.Sync(); err != nil {
		s.logger.Debug("Failed to sync logger", zap.Error(err))
	}

	return nil
}

func (s *Service) recordResolve(result string) {
	s.metrics.Counter("resolve_total", map[string]string{"result": result}).Inc()
}
