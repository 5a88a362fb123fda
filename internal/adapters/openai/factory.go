package openai

import (
	"github.com/mikey/llm-phish-filter/internal/config"
	"github.com/mikey/llm-phish-filter/internal/core"
	"github.com/mikey/llm-phish-filter/internal/prompt"
	"go.uber.org/zap"
)

// Factory creates new instances of OpenAIScorer
type Factory struct {
	cfg     *config.Config
	logger  *zap.Logger
	prompts *prompt.Builder
}

// NewFactory creates a new factory for OpenAIScorer instances
func NewFactory(cfg *config.Config, logger *zap.Logger, prompts *prompt.Builder) *Factory {
	return &Factory{
		cfg:     cfg,
		logger:  logger,
		prompts: prompts,
	}
}

// CreateScorer creates a new OpenAIScorer. Endpoint, key and model come from
// the user settings of each request.
func (f *Factory) CreateScorer() (core.RemoteScorer, error) {
	openaiCfg := f.cfg.GetOpenAI()

	return NewOpenAIScorer(
		openaiCfg.MaxTokens,
		openaiCfg.Temperature,
		openaiCfg.Referer,
		openaiCfg.Title,
		f.prompts,
		f.logger,
	), nil
}
