package types

import (
	"context"
)

// MaxRecentEntries caps every recency listing.
const MaxRecentEntries = 50

// ResultStore persists remote API responses keyed by the content digest of
// the file that produced them. Get reports a miss as ("", false, nil); any
// returned error is a storage fault. Every method except Init requires a prior
// successful Init against the same location.
type ResultStore interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, digest string) (string, bool, error)
	Put(ctx context.Context, entry CacheEntry) error
	ListRecent(ctx context.Context, limit int) ([]CacheEntrySummary, error)
	Name() string
	Close() error
}

type ResultStoreCreator func(config *StoreConfig, logger Logger) (ResultStore, error)

type CacheEntry struct {
	ContentDigest  string `json:"content_digest"`
	SourcePath     string `json:"source_path"`
	Payload        string `json:"payload"`
	OriginEndpoint string `json:"origin_endpoint"`
	CapturedAt     int64  `json:"captured_at"`
}

type CacheEntrySummary struct {
	ContentDigest string `json:"content_digest"`
	SourcePath    string `json:"source_path"`
	CapturedAt    int64  `json:"captured_at"`
}

func (e CacheEntry) Summary() CacheEntrySummary {
	return CacheEntrySummary{
		ContentDigest: e.ContentDigest,
		SourcePath:    e.SourcePath,
		CapturedAt:    e.CapturedAt,
	}
}

// ClampLimit maps a requested listing size onto [1, MaxRecentEntries].
func ClampLimit(limit int) int {
	if limit <= 0 || limit > MaxRecentEntries {
		return MaxRecentEntries
	}
	return limit
}
