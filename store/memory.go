package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-filecache/types"
)

type MemoryStore struct {
	logger      types.Logger
	now         func() time.Time
	entries     map[string]types.CacheEntry
	initialized bool
	closed      bool
	mu          sync.RWMutex
}

func NewMemoryStore(logger types.Logger, opts ...Option) *MemoryStore {
	o := buildOptions(opts)

	return &MemoryStore{
		logger:  logger,
		now:     o.now,
		entries: make(map[string]types.CacheEntry),
	}
}

func (m *MemoryStore) Init(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return types.NewStorageError("init", types.ErrStoreClosed)
	}

	if !m.initialized {
		m.initialized = true
		m.logger.Info("Cache store initialized", zap.String("store", m.Name()))
	}

	return nil
}

func (m *MemoryStore) Get(_ context.Context, digest string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.ready("get"); err != nil {
		return "", false, err
	}

	entry, exists := m.entries[digest]
	if !exists {
		return "", false, nil
	}

	return entry.Payload, true, nil
}

func (m *MemoryStore) Put(_ context.Context, entry types.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ready("put"); err != nil {
		return err
	}

	entry.CapturedAt = m.now().Unix()
	m.entries[entry.ContentDigest] = entry

	return nil
}

func (m *MemoryStore) ListRecent(_ context.Context, limit int) ([]types.CacheEntrySummary, error) {
	limit = types.ClampLimit(limit)

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.ready("list"); err != nil {
		return nil, err
	}

	entries := make([]types.CacheEntrySummary, 0, len(m.entries))
	for _, entry := range m.entries {
		entries = append(entries, entry.Summary())
	}

	sortRecent(entries)

	if len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

func (m *MemoryStore) Name() string {
	return "memory"
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.entries = make(map[string]types.CacheEntry)

	return nil
}

// ready must be called with mu held.
func (m *MemoryStore) ready(op string) error {
	if m.closed {
		return types.NewStorageError(op, types.ErrStoreClosed)
	}
	if !m.initialized {
		return types.NewStorageError(op, types.ErrStoreNotInitialized)
	}
	return nil
}

// sortRecent orders newest first, equal timestamps by digest ascending.
func sortRecent(entries []types.CacheEntrySummary) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CapturedAt != entries[j].CapturedAt {
			return entries[i].CapturedAt > entries[j].CapturedAt
		}
		return entries[i].ContentDigest < entries[j].ContentDigest
	})
}
