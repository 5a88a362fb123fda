package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/llm-phish-filter/internal/core"
	"go.uber.org/zap"
)

// sqlHistory holds the queries shared by the SQLite and MySQL repositories.
// Timestamps are stored as unix nanoseconds so both dialects compare them the same way.
type sqlHistory struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	name        string
}

func newSQLHistory(db *sql.DB, logger *zap.Logger, cleanupFreq time.Duration, name string) *sqlHistory {
	h := &sqlHistory{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		name:        name,
	}

	go h.startCleanupTask()

	return h
}

// Save stores an entry, replacing any previous entry for the same email
func (h *sqlHistory) Save(ctx context.Context, entry *core.HistoryEntry) error {
	result, err := json.Marshal(entry.Result)
	if err != nil {
		return fmt.Errorf("failed to encode scan result: %w", err)
	}

	_, err = h.db.ExecContext(ctx, `
		REPLACE INTO phish_history (email_id, id, sender, subject, result, model, threshold, analyzed_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.EmailID, entry.ID, entry.From, entry.Subject, string(result), entry.Model, entry.Threshold,
		entry.AnalyzedAt.UnixNano(), entry.ExpiresAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to store history entry: %w", err)
	}
	return nil
}

// Get retrieves the entry for an email id
func (h *sqlHistory) Get(ctx context.Context, emailID string) (*core.HistoryEntry, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT email_id, id, sender, subject, result, model, threshold, analyzed_at, expires_at
		FROM phish_history
		WHERE email_id = ? AND expires_at > ?
	`, emailID, time.Now().UnixNano())
	return scanEntry(row)
}

// Latest retrieves the most recently analyzed entry
func (h *sqlHistory) Latest(ctx context.Context) (*core.HistoryEntry, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT email_id, id, sender, subject, result, model, threshold, analyzed_at, expires_at
		FROM phish_history
		WHERE expires_at > ?
		ORDER BY analyzed_at DESC
		LIMIT 1
	`, time.Now().UnixNano())
	return scanEntry(row)
}

// Cleanup removes expired entries
func (h *sqlHistory) Cleanup(ctx context.Context) error {
	result, err := h.db.ExecContext(ctx, `
		DELETE FROM phish_history
		WHERE expires_at <= ?
	`, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		h.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		h.logger.Debug("Cleaned up expired history entries", zap.Int64("expired_count", rowsAffected))
	}
	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (h *sqlHistory) startCleanupTask() {
	ticker := time.NewTicker(h.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := h.Cleanup(context.Background()); err != nil {
				h.logger.Error("Failed to clean up history", zap.Error(err))
			}
		case <-h.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (h *sqlHistory) Stop() {
	close(h.stopCh)
	if err := h.db.Close(); err != nil {
		h.logger.Error("Failed to close database", zap.String("driver", h.name), zap.Error(err))
	}
}

func scanEntry(row *sql.Row) (*core.HistoryEntry, error) {
	var entry core.HistoryEntry
	var result string
	var analyzedAt, expiresAt int64

	err := row.Scan(&entry.EmailID, &entry.ID, &entry.From, &entry.Subject, &result,
		&entry.Model, &entry.Threshold, &analyzedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	if err := json.Unmarshal([]byte(result), &entry.Result); err != nil {
		return nil, fmt.Errorf("failed to decode scan result: %w", err)
	}
	entry.AnalyzedAt = time.Unix(0, analyzedAt)
	entry.ExpiresAt = time.Unix(0, expiresAt)
	return &entry, nil
}
