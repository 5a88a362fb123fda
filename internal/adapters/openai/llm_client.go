package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/mikey/llm-phish-filter/internal/core"
	"github.com/mikey/llm-phish-filter/internal/prompt"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const providerName = "openai"

// OpenAIScorer is an implementation of the RemoteScorer interface for
// OpenAI-compatible chat completion endpoints such as OpenRouter
type OpenAIScorer struct {
	httpClient  *http.Client
	maxTokens   int
	temperature float32
	referer     string
	title       string
	prompts     *prompt.Builder
	logger      *zap.Logger

	mu      sync.Mutex
	clients map[string]*openai.Client
}

// NewOpenAIScorer creates a new OpenAI-compatible scorer
func NewOpenAIScorer(
	maxTokens int,
	temperature float32,
	referer string,
	title string,
	prompts *prompt.Builder,
	logger *zap.Logger,
) *OpenAIScorer {
	return &OpenAIScorer{
		httpClient: &http.Client{
			Transport: &headerTransport{
				base:    http.DefaultTransport,
				referer: referer,
				title:   title,
			},
		},
		maxTokens:   maxTokens,
		temperature: temperature,
		referer:     referer,
		title:       title,
		prompts:     prompts,
		logger:      logger,
		clients:     make(map[string]*openai.Client),
	}
}

// BaseURL derives the client base URL from a full chat completions endpoint
func BaseURL(endpoint string) string {
	endpoint = strings.TrimRight(endpoint, "/")
	return strings.TrimSuffix(endpoint, "/chat/completions")
}

// client returns a cached client for the endpoint and key of the settings
func (s *OpenAIScorer) client(settings core.Settings) *openai.Client {
	key := settings.Endpoint + "\x00" + settings.APIKey

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[key]; ok {
		return c
	}

	clientConfig := openai.DefaultConfig(settings.APIKey)
	if settings.Endpoint != "" {
		clientConfig.BaseURL = BaseURL(settings.Endpoint)
	}
	clientConfig.HTTPClient = s.httpClient

	c := openai.NewClientWithConfig(clientConfig)
	s.clients[key] = c
	return c
}

// Score sends the email to the configured model and returns its raw answer
func (s *OpenAIScorer) Score(ctx context.Context, email *core.EmailData, settings core.Settings) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: settings.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: prompt.SystemMessage,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: s.prompts.Build(email),
			},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}

	resp, err := s.client(settings).CreateChatCompletion(ctx, req)
	if err != nil {
		return "", transportError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &core.TransportError{Provider: providerName, Err: errors.New("no response from API")}
	}

	s.logger.Debug("Received model response",
		zap.String("model", settings.Model),
		zap.String("response_id", resp.ID),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return resp.Choices[0].Message.Content, nil
}

// transportError keeps the HTTP status of API errors
func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("chat completion aborted: %w", err)
	}

	te := &core.TransportError{Provider: providerName, Err: err}
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		te.StatusCode = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		te.StatusCode = reqErr.HTTPStatusCode
	}
	return te
}

// headerTransport adds the attribution headers OpenRouter expects
type headerTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if t.referer != "" {
		req.Header.Set("HTTP-Referer", t.referer)
	}
	if t.title != "" {
		req.Header.Set("X-Title", t.title)
	}
	return t.base.RoundTrip(req)
}
