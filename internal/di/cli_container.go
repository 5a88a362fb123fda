package di

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-phish-filter/internal/config"
	"github.com/mikey/llm-phish-filter/internal/core"
	"github.com/mikey/llm-phish-filter/internal/factory"
	"github.com/mikey/llm-phish-filter/internal/logging"
)

// CLIFlags contains the command line flags of the detector CLI
type CLIFlags struct {
	ConfigFile string
	Verbose    bool
	JSONLog    bool

	// LLM provider flags
	Provider  string
	APIKey    string
	Endpoint  string
	Model     string
	Threshold int
	RateLimit float64

	// Local scanner flags
	LocalThreshold int

	// Webmail flags
	Service      string
	BrowserURL   string
	PollInterval time.Duration

	// History flags
	History bool
}

// BuildCLIContainer creates the dependency injection container of the detector CLI
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		cfg, err := config.NewWithFile(flags.ConfigFile)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Debug("Loaded configuration from file", zap.String("file", used))
		}
		applyFlags(cfg, flags)
		return cfg, nil
	}); err != nil {
		return nil, err
	}

	// Register settings store, overlaying the flags on the saved settings
	if err := container.Provide(func(f *factory.SourceFactory, flags *CLIFlags) (core.SettingsStore, error) {
		store := f.CreateSettingsStore()
		if !flags.overridesSettings() {
			return store, nil
		}
		settings, err := store.Load(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		return config.NewMemorySettingsStore(flags.overlay(settings)), nil
	}); err != nil {
		return nil, err
	}

	if err := provideEngine(container); err != nil {
		return nil, err
	}

	return container, nil
}

// applyFlags copies the flags that map onto configuration keys
func applyFlags(cfg *config.Config, flags *CLIFlags) {
	v := cfg.GetViper()

	v.Set("server.filter_type", "cli")
	v.Set("cli.verbose", flags.Verbose)
	v.Set("history.enabled", flags.History)

	if flags.Provider != "" {
		v.Set("llm.provider", flags.Provider)
	}
	if flags.RateLimit > 0 {
		v.Set("llm.rate_limit", flags.RateLimit)
	}
	if flags.LocalThreshold > 0 {
		v.Set("heuristics.threshold", flags.LocalThreshold)
	}
	if flags.Service != "" {
		v.Set("source.service", flags.Service)
	}
	if flags.BrowserURL != "" {
		v.Set("source.browser_url", flags.BrowserURL)
	}
	if flags.PollInterval > 0 {
		v.Set("source.poll_interval", flags.PollInterval.String())
	}
}

func (flags *CLIFlags) overridesSettings() bool {
	return flags.APIKey != "" || flags.Endpoint != "" || flags.Model != "" || flags.Threshold > 0
}

func (flags *CLIFlags) overlay(settings core.Settings) core.Settings {
	if flags.APIKey != "" {
		settings.APIKey = flags.APIKey
	}
	if flags.Endpoint != "" {
		settings.Endpoint = flags.Endpoint
	}
	if flags.Model != "" {
		settings.Model = flags.Model
	}
	if flags.Threshold > 0 {
		settings.Threshold = flags.Threshold
	}
	return settings
}
