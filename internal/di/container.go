package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-phish-filter/internal/config"
	"github.com/mikey/llm-phish-filter/internal/core"
	"github.com/mikey/llm-phish-filter/internal/factory"
	"github.com/mikey/llm-phish-filter/internal/logging"
	"github.com/mikey/llm-phish-filter/internal/ports"
	"github.com/mikey/llm-phish-filter/internal/prompt"
	"github.com/mikey/llm-phish-filter/internal/utils"
)

// BuildContainer creates the dependency injection container of the filter daemon
func BuildContainer(configFile string) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		return config.NewWithFile(configFile)
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register settings store
	if err := container.Provide(func(f *factory.SourceFactory) core.SettingsStore {
		return f.CreateSettingsStore()
	}); err != nil {
		return nil, err
	}

	if err := provideEngine(container); err != nil {
		return nil, err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideEngine registers the factories and the analysis service. The caller
// provides the configuration, the logger and the settings store.
func provideEngine(container *dig.Container) error {
	// Register factories
	for _, constructor := range []any{
		factory.NewTextProcessorFactory,
		factory.NewScorerFactory,
		factory.NewHistoryFactory,
		factory.NewTelemetryFactory,
		factory.NewSourceFactory,
		factory.NewFilterFactory,
	} {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	// Register text processor and prompt builder
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.TextProcessorFactory, tp *utils.TextProcessor) (*prompt.Builder, error) {
		return f.CreatePromptBuilder(tp)
	}); err != nil {
		return err
	}

	// Register remote scorer
	if err := container.Provide(func(f *factory.ScorerFactory) (core.RemoteScorer, error) {
		return f.CreateScorer()
	}); err != nil {
		return err
	}

	// Register history repository, nil when disabled
	if err := container.Provide(func(f *factory.HistoryFactory) (core.HistoryRepository, error) {
		return f.CreateHistoryRepository()
	}); err != nil {
		return err
	}

	// Register telemetry sink
	if err := container.Provide(func(f *factory.TelemetryFactory) (core.TelemetrySink, error) {
		return f.CreateTelemetrySink(context.Background())
	}); err != nil {
		return err
	}

	// Register local scanner and reconciler
	if err := container.Provide(func(cfg *config.Config) *core.LocalScanner {
		return core.NewLocalScanner(cfg.GetHeuristics().Threshold)
	}); err != nil {
		return err
	}
	if err := container.Provide(core.NewReconciler); err != nil {
		return err
	}

	// Register service options
	if err := container.Provide(func(cfg *config.Config) (core.ServiceOptions, error) {
		llmConfig, err := cfg.GetLLM()
		if err != nil {
			return core.ServiceOptions{}, err
		}
		historyConfig, err := cfg.GetHistory()
		if err != nil {
			return core.ServiceOptions{}, err
		}
		telemetryConfig, err := cfg.GetTelemetry()
		if err != nil {
			return core.ServiceOptions{}, err
		}
		return core.ServiceOptions{
			RemoteTimeout:    llmConfig.Timeout,
			HistoryTTL:       historyConfig.TTL,
			TelemetryTimeout: telemetryConfig.Timeout,
		}, nil
	}); err != nil {
		return err
	}

	// Register phishing analysis service
	return container.Provide(core.NewPhishingAnalysisService)
}

// Shutdown releases the resources held by the engine
func Shutdown(
	logger *zap.Logger,
	service *core.PhishingAnalysisService,
	scorer core.RemoteScorer,
	history core.HistoryRepository,
) {
	if err := service.Close(); err != nil {
		logger.Error("Failed to close analysis service", zap.Error(err))
	}

	if closer, ok := scorer.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close remote scorer", zap.Error(err))
		}
	}

	if stopper, ok := history.(interface{ Stop() }); ok {
		stopper.Stop()
	}
}
