package factory

import (
	"github.com/mikey/llm-phish-filter/internal/config"
	"github.com/mikey/llm-phish-filter/internal/prompt"
	"github.com/mikey/llm-phish-filter/internal/utils"
	"go.uber.org/zap"
)

// TextProcessorFactory creates text processors and prompt builders
type TextProcessorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(cfg *config.Config, logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates a new TextProcessor
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	return utils.NewTextProcessor(f.logger)
}

// CreatePromptBuilder creates the prompt builder shared by every remote scorer
func (f *TextProcessorFactory) CreatePromptBuilder(tp *utils.TextProcessor) (*prompt.Builder, error) {
	llmConfig, err := f.cfg.GetLLM()
	if err != nil {
		return nil, err
	}
	return prompt.NewBuilder(tp, llmConfig.MaxBodyChars, llmConfig.MaxLinks), nil
}
