package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-filecache/types"
	"github.com/saiset-co/sai-filecache/utils"
)

type RedisConfig struct {
	Host               string `json:"host"`
	Port               int    `json:"port"`
	Password           string `json:"password"`
	DB                 int    `json:"db"`
	PoolSize           int    `json:"pool_size"`
	MinIdleConnections int    `json:"min_idle_connections"`
	DialTimeout        string `json:"dial_timeout"`
	ReadTimeout        string `json:"read_timeout"`
	WriteTimeout       string `json:"write_timeout"`
	KeyPrefix          string `json:"key_prefix"`
}

// RedisStore keeps each entry as a JSON string and indexes recency in a sorted
// set scored by the negated capture time, so an ascending ZRANGE yields newest
// first with ties broken by digest.
type RedisStore struct {
	logger      types.Logger
	config      *RedisConfig
	client      *redis.Client
	now         func() time.Time
	initialized atomic.Bool
}

func NewRedisStore(config *types.StoreConfig, logger types.Logger, opts ...Option) (*RedisStore, error) {
	redisConfig := &RedisConfig{
		Host:               "localhost",
		Port:               6379,
		PoolSize:           10,
		MinIdleConnections: 2,
		DialTimeout:        "5s",
		ReadTimeout:        "3s",
		WriteTimeout:       "3s",
		KeyPrefix:          "filecache",
	}

	if config.Config != nil {
		if err := utils.UnmarshalConfig(config.Config, redisConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal redis store config")
		}
	}

	clientOptions, err := redisConfig.clientOptions()
	if err != nil {
		return nil, err
	}

	o := buildOptions(opts)

	return &RedisStore{
		logger: logger,
		config: redisConfig,
		client: redis.NewClient(clientOptions),
		now:    o.now,
	}, nil
}

func (c *RedisConfig) clientOptions() (*redis.Options, error) {
	timeouts := make([]time.Duration, 3)
	for i, raw := range []string{c.DialTimeout, c.ReadTimeout, c.WriteTimeout} {
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, types.Errorf(types.ErrConfigParseFailed, "redis timeout %q: %v", raw, err)
		}
		timeouts[i] = d
	}

	return &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", c.Host, c.Port),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConnections,
		DialTimeout:  timeouts[0],
		ReadTimeout:  timeouts[1],
		WriteTimeout: timeouts[2],
	}, nil
}

func (r *RedisStore) Init(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return types.NewStorageError("init", types.WrapError(err, "failed to connect to redis"))
	}

	if err := r.client.SetNX(ctx, r.buildKey("schema"), "1", 0).Err(); err != nil {
		return types.NewStorageError("init", err)
	}

	if r.initialized.CompareAndSwap(false, true) {
		r.logger.Info("Cache store initialized",
			zap.String("store", r.Name()),
			zap.String("key_prefix", r.config.KeyPrefix))
	}

	return nil
}

func (r *RedisStore) Get(ctx context.Context, digest string) (string, bool, error) {
	if err := r.ready("get"); err != nil {
		return "", false, err
	}

	result, err := r.client.Get(ctx, r.entryKey(digest)).Result()
	if err != nil {
		if types.IsError(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, types.NewStorageError("get", err)
	}

	var entry types.CacheEntry
	if err := utils.Unmarshal([]byte(result), &entry); err != nil {
		return "", false, types.NewStorageError("get", types.WrapError(err, "failed to unmarshal cache entry"))
	}

	return entry.Payload, true, nil
}

func (r *RedisStore) Put(ctx context.Context, entry types.CacheEntry) error {
	if err := r.ready("put"); err != nil {
		return err
	}

	entry.CapturedAt = r.now().Unix()

	data, err := utils.Marshal(entry)
	if err != nil {
		return types.NewStorageError("put", types.WrapError(err, "failed to marshal cache entry"))
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.entryKey(entry.ContentDigest), data, 0)
		pipe.ZAdd(ctx, r.buildKey("recent"), redis.Z{
			Score:  -float64(entry.CapturedAt),
			Member: entry.ContentDigest,
		})
		return nil
	})
	if err != nil {
		return types.NewStorageError("put", err)
	}

	return nil
}

func (r *RedisStore) ListRecent(ctx context.Context, limit int) ([]types.CacheEntrySummary, error) {
	limit = types.ClampLimit(limit)

	if err := r.ready("list"); err != nil {
		return nil, err
	}

	digests, err := r.client.ZRange(ctx, r.buildKey("recent"), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, types.NewStorageError("list", err)
	}

	entries := make([]types.CacheEntrySummary, 0, len(digests))
	if len(digests) == 0 {
		return entries, nil
	}

	keys := make([]string, len(digests))
	for i, digest := range digests {
		keys[i] = r.entryKey(digest)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, types.NewStorageError("list", err)
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			r.logger.Warn("Recent index references a missing entry", zap.String("digest", digests[i]))
			continue
		}

		var entry types.CacheEntry
		if err := utils.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, types.NewStorageError("list", types.WrapError(err, "failed to unmarshal cache entry"))
		}
		entries = append(entries, entry.Summary())
	}

	return entries, nil
}

func (r *RedisStore) Name() string {
	return "redis"
}

func (r *RedisStore) Close() error {
	r.initialized.Store(false)
	if err := r.client.Close(); err != nil {
		return types.NewStorageError("close", err)
	}
	return nil
}

func (r *RedisStore) ready(op string) error {
	if !r.initialized.Load() {
		return types.NewStorageError(op, types.ErrStoreNotInitialized)
	}
	return nil
}

func (r *RedisStore) entryKey(digest string) string {
	return r.buildKey("entry:" + digest)
}

func (r *RedisStore) buildKey(key string) string {
	if r.config.KeyPrefix != "" {
		return fmt.Sprintf("%s:%s", r.config.KeyPrefix, key)
	}
	return key
}
