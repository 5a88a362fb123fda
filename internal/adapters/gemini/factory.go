package gemini

import (
	"github.com/mikey/llm-phish-filter/internal/config"
	"github.com/mikey/llm-phish-filter/internal/core"
	"github.com/mikey/llm-phish-filter/internal/prompt"
	"go.uber.org/zap"
)

// Factory creates new instances of GeminiScorer
type Factory struct {
	cfg     *config.Config
	logger  *zap.Logger
	prompts *prompt.Builder
}

// NewFactory creates a new factory for GeminiScorer instances
func NewFactory(cfg *config.Config, logger *zap.Logger, prompts *prompt.Builder) *Factory {
	return &Factory{
		cfg:     cfg,
		logger:  logger,
		prompts: prompts,
	}
}

// CreateScorer creates a new GeminiScorer
func (f *Factory) CreateScorer() (core.RemoteScorer, error) {
	geminiCfg := f.cfg.GetGemini()
	return NewGeminiScorer(
		geminiCfg.APIKey,
		geminiCfg.ModelName,
		geminiCfg.MaxTokens,
		geminiCfg.Temperature,
		f.prompts,
		f.logger,
	), nil
}
