package telemetry

import (
	"context"

	"github.com/mikey/llm-phish-filter/internal/core"
	"go.uber.org/zap"
)

// LogSink writes scan events to the application log
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a new log sink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish logs the event
func (s *LogSink) Publish(ctx context.Context, event *core.TelemetryEvent) error {
	s.logger.Info("Dashboard event",
		zap.Time("timestamp", event.Timestamp),
		zap.String("user", event.User),
		zap.String("from", event.From),
		zap.String("subject", event.Subject),
		zap.Int("score", event.Score),
		zap.Bool("is_phishing", event.IsPhishing),
		zap.Strings("reasons", event.Reasons),
		zap.String("recommendation", event.Recommendation))
	return nil
}

// NoneSink discards scan events
type NoneSink struct{}

// Publish does nothing
func (NoneSink) Publish(ctx context.Context, event *core.TelemetryEvent) error {
	return nil
}
