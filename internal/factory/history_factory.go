package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/llm-phish-filter/internal/adapters/history"
	"github.com/mikey/llm-phish-filter/internal/config"
	"github.com/mikey/llm-phish-filter/internal/core"
	"go.uber.org/zap"
)

// HistoryFactory creates history repositories based on configuration
type HistoryFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewHistoryFactory creates a new history factory
func NewHistoryFactory(cfg *config.Config, logger *zap.Logger) *HistoryFactory {
	return &HistoryFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateHistoryRepository creates a history repository based on the
// configuration. It returns nil when history is disabled.
func (f *HistoryFactory) CreateHistoryRepository() (core.HistoryRepository, error) {
	historyConfig, err := f.cfg.GetHistory()
	if err != nil {
		return nil, err
	}
	if !historyConfig.Enabled {
		f.logger.Info("Analysis history disabled")
		return nil, nil
	}

	switch historyConfig.Type {
	case "memory":
		return history.NewMemoryHistory(f.logger, historyConfig.TTL, historyConfig.CleanupFrequency), nil
	case "sqlite":
		path := os.ExpandEnv(historyConfig.SQLitePath)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		repo, err := history.NewSQLiteHistory(path, f.logger, historyConfig.CleanupFrequency)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case "mysql":
		repo, err := history.NewMySQLHistory(historyConfig.MySQLDSN, f.logger, historyConfig.CleanupFrequency)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported history type: %s", historyConfig.Type)
	}
}
