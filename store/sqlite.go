package store

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-filecache/types"
)

const DefaultBusyTimeout = 5 * time.Second

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS api_cache (
		content_digest TEXT PRIMARY KEY,
		source_path TEXT NOT NULL,
		payload TEXT NOT NULL,
		origin_endpoint TEXT NOT NULL,
		captured_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_api_cache_captured_at ON api_cache(captured_at DESC);
	`

// SQLiteStore keeps entries in a single SQLite file. It holds no locks of its
// own; every call checks a connection out of the pool and SQLite's file locking
// arbitrates between callers and processes.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger types.Logger
	now    func() time.Time
}

func NewSQLiteStore(config *types.StoreConfig, logger types.Logger, opts ...Option) (*SQLiteStore, error) {
	if config.Path == "" {
		return nil, types.Errorf(types.ErrStorePathEmpty, "sqlite")
	}

	busyTimeout := config.BusyTimeout
	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeout
	}

	dsn, err := sqliteDSN(config.Path, busyTimeout)
	if err != nil {
		return nil, types.NewIOError("open", config.Path, err)
	}

	// sql.Open only validates the driver name; the file is touched on first use.
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, types.NewStorageError("open", err)
	}

	o := buildOptions(opts)

	return &SQLiteStore{
		db:     db,
		path:   config.Path,
		logger: logger,
		now:    o.now,
	}, nil
}

// sqliteDSN builds a file: URI for path. SQLite decodes the URI, so the path is
// percent-escaped and made absolute to keep '#', '?' and '%' inside the name.
func sqliteDSN(path string, busyTimeout time.Duration) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	uriPath := filepath.ToSlash(abs)
	if !strings.HasPrefix(uriPath, "/") {
		uriPath = "/" + uriPath
	}

	query := url.Values{}
	query.Set("_busy_timeout", strconv.FormatInt(busyTimeout.Milliseconds(), 10))
	query.Set("_journal_mode", "WAL")

	u := url.URL{Scheme: "file", Path: uriPath, RawQuery: query.Encode()}
	return u.String(), nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return types.NewIOError("init", filepath.Dir(s.path), err)
	}

	conn, err := s.conn(ctx, "init")
	if err != nil {
		return err
	}
	defer s.release(conn)

	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		return types.NewStorageError("init", types.WrapError(err, "failed to create api_cache table"))
	}

	s.logger.Info("Cache store initialized", zap.String("store", s.Name()), zap.String("path", s.path))
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, digest string) (string, bool, error) {
	conn, err := s.conn(ctx, "get")
	if err != nil {
		return "", false, err
	}
	defer s.release(conn)

	query := `SELECT payload FROM api_cache WHERE content_digest = ?`

	var payload string
	err = conn.QueryRowContext(ctx, query, digest).Scan(&payload)
	if err != nil {
		if types.IsError(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, types.NewStorageError("get", err)
	}

	return payload, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, entry types.CacheEntry) error {
	conn, err := s.conn(ctx, "put")
	if err != nil {
		return err
	}
	defer s.release(conn)

	query := `INSERT OR REPLACE INTO api_cache
			  (content_digest, source_path, payload, origin_endpoint, captured_at)
			  VALUES (?, ?, ?, ?, ?)`

	_, err = conn.ExecContext(ctx, query,
		entry.ContentDigest, entry.SourcePath, entry.Payload, entry.OriginEndpoint, s.now().Unix())
	if err != nil {
		return types.NewStorageError("put", err)
	}

	return nil
}

func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]types.CacheEntrySummary, error) {
	limit = types.ClampLimit(limit)

	conn, err := s.conn(ctx, "list")
	if err != nil {
		return nil, err
	}
	defer s.release(conn)

	query := `SELECT content_digest, source_path, captured_at FROM api_cache
			  ORDER BY captured_at DESC, content_digest ASC LIMIT ?`

	rows, err := conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, types.NewStorageError("list", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			s.logger.Error("Failed to close database rows", zap.Error(err))
		}
	}(rows)

	entries := make([]types.CacheEntrySummary, 0, limit)
	for rows.Next() {
		var entry types.CacheEntrySummary
		if err := rows.Scan(&entry.ContentDigest, &entry.SourcePath, &entry.CapturedAt); err != nil {
			return nil, types.NewStorageError("list", types.WrapError(err, "failed to scan entry"))
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, types.NewStorageError("list", err)
	}

	return entries, nil
}

func (s *SQLiteStore) Name() string {
	return "sqlite"
}

func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return types.NewStorageError("close", err)
	}
	return nil
}

func (s *SQLiteStore) conn(ctx context.Context, op string) (*sql.Conn, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, types.NewStorageError(op, types.WrapError(err, "failed to open connection"))
	}
	return conn, nil
}

func (s *SQLiteStore) release(conn *sql.Conn) {
	if err := conn.Close(); err != nil {
		s.logger.Error("Failed to release database connection", zap.Error(err))
	}
}
