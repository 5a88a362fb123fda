package history

import (
	"context"
	"time"

	"github.com/mikey/llm-phish-filter/internal/core"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// MemoryHistory is an in-memory implementation of the HistoryRepository interface
type MemoryHistory struct {
	cache  *gocache.Cache
	logger *zap.Logger
}

// NewMemoryHistory creates a new in-memory history. Expired entries are
// dropped by the go-cache janitor every cleanupFreq.
func NewMemoryHistory(logger *zap.Logger, ttl, cleanupFreq time.Duration) *MemoryHistory {
	return &MemoryHistory{
		cache:  gocache.New(ttl, cleanupFreq),
		logger: logger,
	}
}

// Save stores an entry under its email id
func (h *MemoryHistory) Save(ctx context.Context, entry *core.HistoryEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	stored := *entry
	h.cache.Set(entry.EmailID, &stored, ttl)
	return nil
}

// Get retrieves the entry for an email id
func (h *MemoryHistory) Get(ctx context.Context, emailID string) (*core.HistoryEntry, error) {
	val, found := h.cache.Get(emailID)
	if !found {
		return nil, core.ErrNotFound
	}
	entry := *val.(*core.HistoryEntry)
	return &entry, nil
}

// Latest retrieves the most recently analyzed entry
func (h *MemoryHistory) Latest(ctx context.Context) (*core.HistoryEntry, error) {
	var latest *core.HistoryEntry
	for _, item := range h.cache.Items() {
		entry := item.Object.(*core.HistoryEntry)
		if latest == nil || entry.AnalyzedAt.After(latest.AnalyzedAt) {
			latest = entry
		}
	}
	if latest == nil {
		return nil, core.ErrNotFound
	}
	entry := *latest
	return &entry, nil
}

// Cleanup removes expired entries
func (h *MemoryHistory) Cleanup(ctx context.Context) error {
	before := h.cache.ItemCount()
	h.cache.DeleteExpired()
	h.logger.Debug("Cleaned up expired history entries", zap.Int("expired_count", before-h.cache.ItemCount()))
	return nil
}

// Stop drops all entries
func (h *MemoryHistory) Stop() {
	h.cache.Flush()
}
