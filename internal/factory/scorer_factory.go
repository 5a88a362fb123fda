package factory

import (
	"fmt"

	"github.com/mikey/llm-phish-filter/internal/adapters/bedrock"
	"github.com/mikey/llm-phish-filter/internal/adapters/gemini"
	"github.com/mikey/llm-phish-filter/internal/adapters/openai"
	"github.com/mikey/llm-phish-filter/internal/adapters/ratelimit"
	"github.com/mikey/llm-phish-filter/internal/config"
	"github.com/mikey/llm-phish-filter/internal/core"
	"github.com/mikey/llm-phish-filter/internal/prompt"
	"go.uber.org/zap"
)

// ScorerFactory creates remote scorers
type ScorerFactory struct {
	cfg     *config.Config
	logger  *zap.Logger
	prompts *prompt.Builder
}

// NewScorerFactory creates a new scorer factory
func NewScorerFactory(cfg *config.Config, logger *zap.Logger, prompts *prompt.Builder) *ScorerFactory {
	return &ScorerFactory{
		cfg:     cfg,
		logger:  logger,
		prompts: prompts,
	}
}

// CreateScorer creates the remote scorer of the configured provider, rate
// limited when a rate limit is set
func (f *ScorerFactory) CreateScorer() (core.RemoteScorer, error) {
	llmConfig, err := f.cfg.GetLLM()
	if err != nil {
		return nil, err
	}

	var scorer core.RemoteScorer
	switch llmConfig.Provider {
	case "openai", "openrouter":
		scorer, err = openai.NewFactory(f.cfg, f.logger, f.prompts).CreateScorer()
	case "gemini":
		scorer, err = gemini.NewFactory(f.cfg, f.logger, f.prompts).CreateScorer()
	case "bedrock":
		scorer, err = bedrock.NewFactory(f.cfg, f.logger, f.prompts).CreateScorer()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
	if err != nil {
		return nil, err
	}

	if llmConfig.RateLimit > 0 {
		f.logger.Info("Rate limiting remote scorer",
			zap.Float64("requests_per_second", llmConfig.RateLimit),
			zap.Int("burst", llmConfig.Burst))
		scorer = ratelimit.NewScorer(scorer, llmConfig.RateLimit, llmConfig.Burst, f.logger)
	}

	return scorer, nil
}
