package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/llm-phish-filter/internal/core"
	"github.com/mikey/llm-phish-filter/internal/prompt"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

const providerName = "gemini"

// GeminiScorer is an implementation of the RemoteScorer interface using Google Gemini
type GeminiScorer struct {
	apiKey      string
	modelName   string
	maxTokens   int
	temperature float32
	prompts     *prompt.Builder
	logger      *zap.Logger

	mu      sync.Mutex
	clients map[string]*genai.Client
}

// NewGeminiScorer creates a new Gemini scorer. apiKey and modelName override the
// user settings when set.
func NewGeminiScorer(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	prompts *prompt.Builder,
	logger *zap.Logger,
) *GeminiScorer {
	return &GeminiScorer{
		apiKey:      apiKey,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		prompts:     prompts,
		logger:      logger,
		clients:     make(map[string]*genai.Client),
	}
}

// Close closes the Gemini clients
func (s *GeminiScorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for key, c := range s.clients {
		errs = append(errs, c.Close())
		delete(s.clients, key)
	}
	return errors.Join(errs...)
}

func (s *GeminiScorer) resolve(settings core.Settings) (apiKey, modelName string) {
	apiKey, modelName = s.apiKey, s.modelName
	if apiKey == "" {
		apiKey = settings.APIKey
	}
	if modelName == "" {
		modelName = settings.Model
	}
	return apiKey, modelName
}

func (s *GeminiScorer) client(ctx context.Context, apiKey string) (*genai.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[apiKey]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	s.clients[apiKey] = c
	return c, nil
}

// Score sends the email to Gemini and returns its raw answer
func (s *GeminiScorer) Score(ctx context.Context, email *core.EmailData, settings core.Settings) (string, error) {
	apiKey, modelName := s.resolve(settings)

	c, err := s.client(ctx, apiKey)
	if err != nil {
		return "", &core.TransportError{Provider: providerName, Err: err}
	}

	model := c.GenerativeModel(modelName)
	model.SetTemperature(s.temperature)
	model.SetMaxOutputTokens(int32(s.maxTokens))
	model.SystemInstruction = genai.NewUserContent(genai.Text(prompt.SystemMessage))

	resp, err := model.GenerateContent(ctx, genai.Text(s.prompts.Build(email)))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", &core.TransportError{Provider: providerName, Err: err}
	}

	text := responseText(resp)
	if text == "" {
		return "", &core.TransportError{Provider: providerName, Err: errors.New("empty response from Gemini")}
	}

	s.logger.Debug("Received model response", zap.String("model", modelName))
	return text, nil
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
