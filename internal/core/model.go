package core

import (
	"time"
)

// EmailData represents the normalized email handed to the engine by a source
type EmailData struct {
	From    string   `json:"from"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	Links   []string `json:"links"`
	EmailID string   `json:"emailId,omitempty"`
	Service string   `json:"service,omitempty"`
}

// ResultSource tags where a ScanResult came from
type ResultSource string

const (
	SourceLocal    ResultSource = "local"
	SourceFallback ResultSource = "fallback"
	SourceRemote   ResultSource = "remote"
)

// ScanResult represents the verdict produced by the engine
type ScanResult struct {
	IsPhishing     bool         `json:"isPhishing" yaml:"isPhishing"`
	Confidence     int          `json:"confidence" yaml:"confidence"`
	Indicators     []string     `json:"indicators" yaml:"indicators"`
	Recommendation string       `json:"recommendation" yaml:"recommendation"`
	Source         ResultSource `json:"source,omitempty" yaml:"source,omitempty"`
}

// LinkAnalysisOutcome is the per-scan output of AnalyzeLinks
type LinkAnalysisOutcome struct {
	Indicators []string
	ScoreDelta int
}

// Settings holds the user-facing scanner settings
type Settings struct {
	APIKey           string `json:"or_api_key,omitempty" yaml:"or_api_key,omitempty"`
	Endpoint         string `json:"or_endpoint" yaml:"or_endpoint"`
	Model            string `json:"or_model" yaml:"or_model"`
	Threshold        int    `json:"user_threshold" yaml:"user_threshold"`
	DashboardEnabled bool   `json:"firebaseEnabled" yaml:"firebaseEnabled"`
	UserEmail        string `json:"userEmail,omitempty" yaml:"userEmail,omitempty"`
}

// User threshold bounds. A zero threshold means unset.
const (
	DefaultUserThreshold = 50
	MinUserThreshold     = 1
	MaxUserThreshold     = 100
)

// EffectiveThreshold returns the threshold clamped to [1,100], or the default when unset
func (s Settings) EffectiveThreshold() int {
	switch {
	case s.Threshold == 0:
		return DefaultUserThreshold
	case s.Threshold < MinUserThreshold:
		return MinUserThreshold
	case s.Threshold > MaxUserThreshold:
		return MaxUserThreshold
	}
	return s.Threshold
}

// HasAPIKey reports whether the remote path is configured
func (s Settings) HasAPIKey() bool {
	return s.APIKey != ""
}

// HistoryEntry is a stored analysis, keyed by email id
type HistoryEntry struct {
	ID         string
	EmailID    string
	From       string
	Subject    string
	Result     ScanResult
	Model      string
	Threshold  int
	AnalyzedAt time.Time
	ExpiresAt  time.Time
}

// TelemetryEvent is the denormalized record pushed to the dashboard
type TelemetryEvent struct {
	Timestamp      time.Time
	User           string
	From           string
	Subject        string
	Score          int
	IsPhishing     bool
	Reasons        []string
	Recommendation string
}
