package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	return NewWithFile("")
}

// NewWithFile creates a new configuration instance, reading configFile when set
// instead of searching the default locations
func NewWithFile(configFile string) (*Config, error) {
	// A missing .env is fine outside development
	_ = godotenv.Load()

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/llm-phish-filter/")
		v.AddConfigPath("$HOME/.llm-phish-filter")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("PHISH_FILTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Remote scorer defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout", "30s")
	v.SetDefault("llm.max_body_chars", 2000)
	v.SetDefault("llm.max_links", 10)
	v.SetDefault("llm.rate_limit", 0)
	v.SetDefault("llm.burst", 1)

	// OpenAI-compatible defaults
	v.SetDefault("openai.max_tokens", 800)
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("openai.referer", "https://github.com/mikey/llm-phish-filter")
	v.SetDefault("openai.title", "Phishing Detector Extension")

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "")
	v.SetDefault("gemini.max_tokens", 800)
	v.SetDefault("gemini.temperature", 0.3)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 800)
	v.SetDefault("bedrock.temperature", 0.3)
	v.SetDefault("bedrock.top_p", 0.9)

	// Local heuristics defaults
	v.SetDefault("heuristics.threshold", 45)

	// User settings defaults
	v.SetDefault("settings.path", "$HOME/.llm-phish-filter/settings.yaml")

	// History defaults
	v.SetDefault("history.type", "memory")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.ttl", "24h")
	v.SetDefault("history.cleanup_frequency", "1h")
	v.SetDefault("history.sqlite_path", "/data/phish_history.db")
	v.SetDefault("history.mysql_dsn", "user:password@tcp(localhost:3306)/phish_filter")

	// Telemetry defaults
	v.SetDefault("telemetry.type", "none")
	v.SetDefault("telemetry.project_id", "")
	v.SetDefault("telemetry.collection", "emailEvents")
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.credentials_file", "")
	v.SetDefault("telemetry.timeout", "10s")

	// Server defaults
	v.SetDefault("server.filter_type", "postfix")
	v.SetDefault("server.listen_address", "0.0.0.0:10025")
	v.SetDefault("server.http_address", "0.0.0.0:8080")
	v.SetDefault("server.block_phishing", false)
	v.SetDefault("server.modify_subject", false)
	v.SetDefault("server.subject_prefix", "[PHISHING] ")
	v.SetDefault("server.headers.status", "X-Phish-Status")
	v.SetDefault("server.headers.score", "X-Phish-Score")
	v.SetDefault("server.headers.reason", "X-Phish-Reason")
	v.SetDefault("server.postfix.enabled", true)
	v.SetDefault("server.postfix.address", "localhost")
	v.SetDefault("server.postfix.port", 10026)
	v.SetDefault("server.whitelisted_domains", []string{})

	// Webmail source defaults
	v.SetDefault("source.service", "gmail")
	v.SetDefault("source.browser_url", "")
	v.SetDefault("source.poll_interval", "2s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
