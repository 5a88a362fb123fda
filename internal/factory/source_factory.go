package factory

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mikey/llm-phish-filter/internal/adapters/source"
	"github.com/mikey/llm-phish-filter/internal/config"
	"github.com/mikey/llm-phish-filter/internal/core"
	"go.uber.org/zap"
)

// SourceFactory creates settings stores and email sources
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSettingsStore creates the file backed settings store
func (f *SourceFactory) CreateSettingsStore() core.SettingsStore {
	return config.NewFileSettingsStore(f.cfg.GetString("settings.path"), f.logger)
}

// CreateWebmailSource creates a source reading the open email of a browser tab
func (f *SourceFactory) CreateWebmailSource(ctx context.Context) (*source.WebmailSource, error) {
	sourceConfig, err := f.cfg.GetSource()
	if err != nil {
		return nil, err
	}
	return source.NewWebmailSource(ctx, sourceConfig.Service, sourceConfig.BrowserURL, f.logger)
}

// CreateFileSource creates a source reading a raw message file, or stdin for "-"
func (f *SourceFactory) CreateFileSource(path string) (core.EmailSource, error) {
	if path != "-" {
		return source.NewFileSource(path), nil
	}
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read message from stdin: %w", err)
	}
	return source.NewBytesSource(raw), nil
}
