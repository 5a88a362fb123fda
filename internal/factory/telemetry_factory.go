package factory

import (
	"context"
	"fmt"

	"github.com/mikey/llm-phish-filter/internal/adapters/telemetry"
	"github.com/mikey/llm-phish-filter/internal/config"
	"github.com/mikey/llm-phish-filter/internal/core"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// TelemetryFactory creates dashboard sinks based on configuration
type TelemetryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTelemetryFactory creates a new telemetry factory
func NewTelemetryFactory(cfg *config.Config, logger *zap.Logger) *TelemetryFactory {
	return &TelemetryFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTelemetrySink creates the configured sink
func (f *TelemetryFactory) CreateTelemetrySink(ctx context.Context) (core.TelemetrySink, error) {
	telemetryConfig, err := f.cfg.GetTelemetry()
	if err != nil {
		return nil, err
	}

	switch telemetryConfig.Type {
	case "none", "":
		return telemetry.NoneSink{}, nil
	case "log":
		return telemetry.NewLogSink(f.logger), nil
	case "firestore":
		var opts []option.ClientOption
		if telemetryConfig.Endpoint != "" {
			opts = append(opts, option.WithEndpoint(telemetryConfig.Endpoint))
		}
		switch {
		case telemetryConfig.CredentialsFile != "":
			opts = append(opts, option.WithCredentialsFile(telemetryConfig.CredentialsFile))
		case telemetryConfig.Endpoint != "":
			opts = append(opts, option.WithoutAuthentication())
		}
		sink, err := telemetry.NewFirestoreSink(ctx, telemetryConfig.ProjectID, telemetryConfig.Collection, f.logger, opts...)
		if err != nil {
			return nil, err
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unsupported telemetry type: %s", telemetryConfig.Type)
	}
}
