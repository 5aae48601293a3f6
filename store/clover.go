package store

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/ostafen/clover"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-filecache/types"
)

const cloverCollection = "api_cache"

// CloverStore keeps entries as documents in an embedded clover database. The
// database directory is opened by Init and held until Close.
type CloverStore struct {
	db     *clover.DB
	path   string
	logger types.Logger
	now    func() time.Time
	mu     sync.RWMutex
}

func NewCloverStore(config *types.StoreConfig, logger types.Logger, opts ...Option) (*CloverStore, error) {
	if config.Path == "" {
		return nil, types.Errorf(types.ErrStorePathEmpty, "clover")
	}

	o := buildOptions(opts)

	return &CloverStore{
		path:   config.Path,
		logger: logger,
		now:    o.now,
	}, nil
}

func (c *CloverStore) Init(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.path, 0o755); err != nil {
		return types.NewIOError("init", c.path, err)
	}

	if c.db == nil {
		db, err := clover.Open(c.path)
		if err != nil {
			return types.NewStorageError("init", types.WrapError(err, "failed to open clover database"))
		}
		c.db = db
	}

	exists, err := c.db.HasCollection(cloverCollection)
	if err != nil {
		return types.NewStorageError("init", types.WrapError(err, "failed to check collection existence"))
	}

	if !exists {
		if err := c.db.CreateCollection(cloverCollection); err != nil {
			return types.NewStorageError("init", types.WrapError(err, "failed to create collection"))
		}
	}

	c.logger.Info("Cache store initialized", zap.String("store", c.Name()), zap.String("path", c.path))
	return nil
}

func (c *CloverStore) Get(_ context.Context, digest string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.ready("get"); err != nil {
		return "", false, err
	}

	docs, err := c.db.Query(cloverCollection).
		Where(clover.Field("content_digest").Eq(digest)).
		Limit(1).
		FindAll()
	if err != nil {
		return "", false, types.NewStorageError("get", err)
	}

	if len(docs) == 0 {
		return "", false, nil
	}

	payload, _ := docs[0].Get("payload").(string)
	return payload, true, nil
}

// Put updates the document holding the digest in place, or inserts one when
// the digest is new. The write lock serializes the lookup and the write.
func (c *CloverStore) Put(_ context.Context, entry types.CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready("put"); err != nil {
		return err
	}

	fields := map[string]interface{}{
		"content_digest":  entry.ContentDigest,
		"source_path":     entry.SourcePath,
		"payload":         entry.Payload,
		"origin_endpoint": entry.OriginEndpoint,
		"captured_at":     c.now().Unix(),
	}

	existing, err := c.db.Query(cloverCollection).
		Where(clover.Field("content_digest").Eq(entry.ContentDigest)).
		FindFirst()
	if err != nil {
		return types.NewStorageError("put", types.WrapError(err, "failed to look up entry"))
	}

	if existing != nil {
		if err := c.db.Query(cloverCollection).UpdateById(existing.ObjectId(), fields); err != nil {
			return types.NewStorageError("put", types.WrapError(err, "failed to update entry"))
		}
		return nil
	}

	doc := clover.NewDocument()
	doc.SetAll(fields)

	if err := c.db.Insert(cloverCollection, doc); err != nil {
		return types.NewStorageError("put", types.WrapError(err, "failed to insert entry"))
	}

	return nil
}

func (c *CloverStore) ListRecent(_ context.Context, limit int) ([]types.CacheEntrySummary, error) {
	limit = types.ClampLimit(limit)

	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.ready("list"); err != nil {
		return nil, err
	}

	docs, err := c.db.Query(cloverCollection).
		Sort(
			clover.SortOption{Field: "captured_at", Direction: -1},
			clover.SortOption{Field: "content_digest", Direction: 1},
		).
		Limit(limit).
		FindAll()
	if err != nil {
		return nil, types.NewStorageError("list", err)
	}

	entries := make([]types.CacheEntrySummary, 0, len(docs))
	for _, doc := range docs {
		digest, _ := doc.Get("content_digest").(string)
		sourcePath, _ := doc.Get("source_path").(string)
		entries = append(entries, types.CacheEntrySummary{
			ContentDigest: digest,
			SourcePath:    sourcePath,
			CapturedAt:    toInt64(doc.Get("captured_at")),
		})
	}

	return entries, nil
}

func (c *CloverStore) Name() string {
	return "clover"
}

func (c *CloverStore) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}

	err := c.db.Close()
	c.db = nil
	if err != nil {
		return types.NewStorageError("close", types.WrapError(err, "failed to close clover database"))
	}

	return nil
}

func (c *CloverStore) ready(op string) error {
	if c.db == nil {
		return types.NewStorageError(op, types.ErrStoreNotInitialized)
	}
	return nil
}

// toInt64 accepts the numeric representations clover normalizes documents to.
func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case uint64:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
