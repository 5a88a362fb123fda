package core

import (
	"context"
)

// RemoteScorer sends an email to a language model and returns its raw completion text
type RemoteScorer interface {
	// Score returns the unvalidated model output for the email
	Score(ctx context.Context, email *EmailData, settings Settings) (string, error)
}

// HistoryRepository defines the interface for storing analysis results
type HistoryRepository interface {
	// Save stores an entry, replacing any previous entry for the same email
	Save(ctx context.Context, entry *HistoryEntry) error

	// Get retrieves the entry for an email id
	Get(ctx context.Context, emailID string) (*HistoryEntry, error)

	// Latest retrieves the most recently analyzed entry
	Latest(ctx context.Context) (*HistoryEntry, error)

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}

// TelemetrySink receives scan events for the remote dashboard
type TelemetrySink interface {
	Publish(ctx context.Context, event *TelemetryEvent) error
}

// SettingsStore loads and persists user settings
type SettingsStore interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, settings Settings) error
}

// EmailSource extracts the email currently open in a mail client.
// It returns nil without error when no email is open.
type EmailSource interface {
	ExtractCurrent(ctx context.Context) (*EmailData, error)
}
