package factory

import (
	"fmt"
	"time"

	"github.com/mikey/llm-phish-filter/internal/adapters/filter"
	"github.com/mikey/llm-phish-filter/internal/config"
	"github.com/mikey/llm-phish-filter/internal/core"
	"github.com/mikey/llm-phish-filter/internal/ports"
	"github.com/mikey/llm-phish-filter/internal/whitelist"
	"go.uber.org/zap"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	service  *core.PhishingAnalysisService
	settings core.SettingsStore
	history  core.HistoryRepository
}

// NewFilterFactory creates a new filter factory. history may be nil.
func NewFilterFactory(
	cfg *config.Config,
	logger *zap.Logger,
	service *core.PhishingAnalysisService,
	settings core.SettingsStore,
	history core.HistoryRepository,
) *FilterFactory {
	return &FilterFactory{
		cfg:      cfg,
		logger:   logger,
		service:  service,
		settings: settings,
		history:  history,
	}
}

// CreateEmailFilter creates the filter selected by server.filter_type
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	return f.CreateEmailFilterOfType(f.cfg.GetString("server.filter_type"))
}

// CreateEmailFilterOfType creates an email filter of the given type
func (f *FilterFactory) CreateEmailFilterOfType(filterType string) (ports.EmailFilter, error) {
	serverConfig := f.cfg.GetServer()

	switch filterType {
	case "postfix":
		llmConfig, err := f.cfg.GetLLM()
		if err != nil {
			return nil, err
		}
		return filter.NewPostfixFilter(
			f.service,
			f.settings,
			whitelist.NewChecker(serverConfig.WhitelistedDomains, f.logger),
			f.logger,
			filter.PostfixOptions{
				ListenAddr:     serverConfig.ListenAddress,
				BlockPhishing:  serverConfig.BlockPhishing,
				StatusHeader:   serverConfig.StatusHeader,
				ScoreHeader:    serverConfig.ScoreHeader,
				ReasonHeader:   serverConfig.ReasonHeader,
				PostfixAddr:    serverConfig.PostfixAddress,
				PostfixPort:    serverConfig.PostfixPort,
				PostfixEnabled: serverConfig.PostfixEnabled,
				SubjectPrefix:  serverConfig.SubjectPrefix,
				ModifySubject:  serverConfig.ModifySubject,
				Timeout:        llmConfig.Timeout + 30*time.Second,
			},
		), nil
	case "milter":
		llmConfig, err := f.cfg.GetLLM()
		if err != nil {
			return nil, err
		}
		return filter.NewMilterFilter(
			f.service,
			f.settings,
			whitelist.NewChecker(serverConfig.WhitelistedDomains, f.logger),
			f.logger,
			filter.MilterOptions{
				ListenAddr:    serverConfig.ListenAddress,
				BlockPhishing: serverConfig.BlockPhishing,
				StatusHeader:  serverConfig.StatusHeader,
				ScoreHeader:   serverConfig.ScoreHeader,
				ReasonHeader:  serverConfig.ReasonHeader,
				SubjectPrefix: serverConfig.SubjectPrefix,
				ModifySubject: serverConfig.ModifySubject,
				Timeout:       llmConfig.Timeout + 30*time.Second,
			},
		), nil
	case "http":
		return filter.NewHTTPFilter(f.service, f.settings, f.history, f.logger, serverConfig.HTTPAddress), nil
	case "cli":
		return filter.NewCliFilter(f.service, f.settings, f.logger, nil, f.cfg.GetBool("cli.verbose"))
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", filterType)
	}
}
