package config

import (
	"fmt"
	"time"
)

// LLMConfig represents the configuration shared by all remote scorers
type LLMConfig struct {
	Provider     string
	Timeout      time.Duration
	MaxBodyChars int
	MaxLinks     int
	RateLimit    float64
	Burst        int
}

// OpenAIConfig represents the configuration for OpenAI-compatible endpoints
type OpenAIConfig struct {
	MaxTokens   int
	Temperature float32
	Referer     string
	Title       string
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// HeuristicsConfig represents the configuration of the local scanner
type HeuristicsConfig struct {
	Threshold int
}

// HistoryConfig represents the configuration of the analysis history
type HistoryConfig struct {
	Type             string
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
	SQLitePath       string
	MySQLDSN         string
}

// TelemetryConfig represents the configuration of the dashboard sink
type TelemetryConfig struct {
	Type            string
	ProjectID       string
	Collection      string
	Endpoint        string
	CredentialsFile string
	Timeout         time.Duration
}

// ServerConfig represents the configuration of the front doors
type ServerConfig struct {
	FilterType         string
	ListenAddress      string
	HTTPAddress        string
	BlockPhishing      bool
	ModifySubject      bool
	SubjectPrefix      string
	StatusHeader       string
	ScoreHeader        string
	ReasonHeader       string
	PostfixEnabled     bool
	PostfixAddress     string
	PostfixPort        int
	WhitelistedDomains []string
}

// SourceConfig represents the configuration of the webmail source
type SourceConfig struct {
	Service      string
	BrowserURL   string
	PollInterval time.Duration
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() (LLMConfig, error) {
	timeout, err := c.GetDuration("llm.timeout")
	if err != nil {
		return LLMConfig{}, fmt.Errorf("invalid llm timeout: %w", err)
	}
	return LLMConfig{
		Provider:     c.GetString("llm.provider"),
		Timeout:      timeout,
		MaxBodyChars: c.GetInt("llm.max_body_chars"),
		MaxLinks:     c.GetInt("llm.max_links"),
		RateLimit:    c.GetFloat64("llm.rate_limit"),
		Burst:        c.GetInt("llm.burst"),
	}, nil
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		Referer:     c.GetString("openai.referer"),
		Title:       c.GetString("openai.title"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetHeuristics returns the local scanner configuration
func (c *Config) GetHeuristics() HeuristicsConfig {
	return HeuristicsConfig{
		Threshold: c.GetInt("heuristics.threshold"),
	}
}

// GetHistory returns the history configuration
func (c *Config) GetHistory() (HistoryConfig, error) {
	ttl, err := c.GetDuration("history.ttl")
	if err != nil {
		return HistoryConfig{}, fmt.Errorf("invalid history ttl: %w", err)
	}
	cleanup, err := c.GetDuration("history.cleanup_frequency")
	if err != nil {
		return HistoryConfig{}, fmt.Errorf("invalid history cleanup frequency: %w", err)
	}
	return HistoryConfig{
		Type:             c.GetString("history.type"),
		Enabled:          c.GetBool("history.enabled"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
		SQLitePath:       c.GetString("history.sqlite_path"),
		MySQLDSN:         c.GetString("history.mysql_dsn"),
	}, nil
}

// GetTelemetry returns the telemetry configuration
func (c *Config) GetTelemetry() (TelemetryConfig, error) {
	timeout, err := c.GetDuration("telemetry.timeout")
	if err != nil {
		return TelemetryConfig{}, fmt.Errorf("invalid telemetry timeout: %w", err)
	}
	return TelemetryConfig{
		Type:            c.GetString("telemetry.type"),
		ProjectID:       c.GetString("telemetry.project_id"),
		Collection:      c.GetString("telemetry.collection"),
		Endpoint:        c.GetString("telemetry.endpoint"),
		CredentialsFile: c.GetString("telemetry.credentials_file"),
		Timeout:         timeout,
	}, nil
}

// GetServer returns the front door configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		FilterType:         c.GetString("server.filter_type"),
		ListenAddress:      c.GetString("server.listen_address"),
		HTTPAddress:        c.GetString("server.http_address"),
		BlockPhishing:      c.GetBool("server.block_phishing"),
		ModifySubject:      c.GetBool("server.modify_subject"),
		SubjectPrefix:      c.GetString("server.subject_prefix"),
		StatusHeader:       c.GetString("server.headers.status"),
		ScoreHeader:        c.GetString("server.headers.score"),
		ReasonHeader:       c.GetString("server.headers.reason"),
		PostfixEnabled:     c.GetBool("server.postfix.enabled"),
		PostfixAddress:     c.GetString("server.postfix.address"),
		PostfixPort:        c.GetInt("server.postfix.port"),
		WhitelistedDomains: c.GetStringSlice("server.whitelisted_domains"),
	}
}

// GetSource returns the webmail source configuration
func (c *Config) GetSource() (SourceConfig, error) {
	interval, err := c.GetDuration("source.poll_interval")
	if err != nil {
		return SourceConfig{}, fmt.Errorf("invalid source poll interval: %w", err)
	}
	return SourceConfig{
		Service:      c.GetString("source.service"),
		BrowserURL:   c.GetString("source.browser_url"),
		PollInterval: interval,
	}, nil
}
