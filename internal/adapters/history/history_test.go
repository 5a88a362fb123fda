package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/llm-phish-filter/internal/core"
	"go.uber.org/zap/zaptest"
)

type repository interface {
	core.HistoryRepository
	Stop()
}

func newEntry(emailID string, analyzedAt time.Time, ttl time.Duration) *core.HistoryEntry {
	return &core.HistoryEntry{
		ID:      "id-" + emailID,
		EmailID: emailID,
		From:    "boss@company.com",
		Subject: "Urgent",
		Result: core.ScanResult{
			IsPhishing:     true,
			Confidence:     80,
			Indicators:     []string{"spoofed sender"},
			Recommendation: "Delete it.",
			Source:         core.SourceRemote,
		},
		Model:      "m",
		Threshold:  50,
		AnalyzedAt: analyzedAt,
		ExpiresAt:  analyzedAt.Add(ttl),
	}
}

func repositories(t *testing.T) map[string]repository {
	t.Helper()
	logger := zaptest.NewLogger(t)

	sqlite, err := NewSQLiteHistory(filepath.Join(t.TempDir(), "history.db"), logger, time.Hour)
	if err != nil {
		t.Fatalf("NewSQLiteHistory() error: %v", err)
	}
	return map[string]repository{
		"memory": NewMemoryHistory(logger, time.Hour, time.Hour),
		"sqlite": sqlite,
	}
}

func TestRepositories_SaveGetLatest(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			defer repo.Stop()

			if _, err := repo.Latest(ctx); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("Latest() on empty repo = %v, want ErrNotFound", err)
			}

			now := time.Now()
			older := newEntry("a", now.Add(-time.Minute), time.Hour)
			newer := newEntry("b", now, time.Hour)
			for _, e := range []*core.HistoryEntry{older, newer} {
				if err := repo.Save(ctx, e); err != nil {
					t.Fatalf("Save() error: %v", err)
				}
			}

			got, err := repo.Get(ctx, "a")
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			if got.ID != "id-a" || got.Result.Confidence != 80 || got.Result.Indicators[0] != "spoofed sender" || got.Result.Source != core.SourceRemote {
				t.Errorf("unexpected entry: %+v", got)
			}
			if !got.AnalyzedAt.Equal(older.AnalyzedAt) {
				t.Errorf("AnalyzedAt = %v, want %v", got.AnalyzedAt, older.AnalyzedAt)
			}

			latest, err := repo.Latest(ctx)
			if err != nil {
				t.Fatalf("Latest() error: %v", err)
			}
			if latest.EmailID != "b" {
				t.Errorf("Latest() = %q, want b", latest.EmailID)
			}

			if _, err := repo.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("Get(missing) = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestRepositories_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			defer repo.Stop()

			first := newEntry("a", time.Now(), time.Hour)
			second := newEntry("a", time.Now(), time.Hour)
			second.ID = "replacement"
			second.Result.Confidence = 10

			_ = repo.Save(ctx, first)
			if err := repo.Save(ctx, second); err != nil {
				t.Fatalf("Save() error: %v", err)
			}
			got, err := repo.Get(ctx, "a")
			if err != nil {
				t.Fatalf("Get() error: %v", err)
			}
			if got.ID != "replacement" || got.Result.Confidence != 10 {
				t.Errorf("entry not replaced: %+v", got)
			}
		})
	}
}

func TestRepositories_ExpiredEntriesAreInvisible(t *testing.T) {
	ctx := context.Background()
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			defer repo.Stop()

			if err := repo.Save(ctx, newEntry("short", time.Now(), 20*time.Millisecond)); err != nil {
				t.Fatalf("Save() error: %v", err)
			}
			time.Sleep(50 * time.Millisecond)

			if _, err := repo.Get(ctx, "short"); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("Get() of expired entry = %v, want ErrNotFound", err)
			}
			if _, err := repo.Latest(ctx); !errors.Is(err, core.ErrNotFound) {
				t.Errorf("Latest() with only expired entries = %v, want ErrNotFound", err)
			}
			if err := repo.Cleanup(ctx); err != nil {
				t.Errorf("Cleanup() error: %v", err)
			}
		})
	}
}
