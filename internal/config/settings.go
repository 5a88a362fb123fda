package config

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"sync"

	"github.com/mikey/llm-phish-filter/internal/core"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	// DefaultEndpoint is the chat completions endpoint used when none is configured
	DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"
	// DefaultModel is the remote model used when none is configured
	DefaultModel = "meta-llama/llama-3.2-3b-instruct:free"
	// DefaultThreshold is the default remote confidence threshold
	DefaultThreshold = core.DefaultUserThreshold
)

// ErrInvalidSettings is returned when settings fail validation
var ErrInvalidSettings = errors.New("invalid settings")

// DefaultSettings returns the settings of a fresh install
func DefaultSettings() core.Settings {
	return core.Settings{
		Endpoint:  DefaultEndpoint,
		Model:     DefaultModel,
		Threshold: DefaultThreshold,
	}
}

// NormalizeSettings fills empty fields with defaults and clamps the threshold to [1,100]
func NormalizeSettings(s core.Settings) core.Settings {
	if s.Endpoint == "" {
		s.Endpoint = DefaultEndpoint
	}
	if s.Model == "" {
		s.Model = DefaultModel
	}
	s.Threshold = s.EffectiveThreshold()
	return s
}

// ValidateSettings checks settings before they are persisted
func ValidateSettings(s core.Settings) error {
	if s.DashboardEnabled {
		if s.UserEmail == "" {
			return fmt.Errorf("%w: userEmail is required when the dashboard is enabled", ErrInvalidSettings)
		}
		if _, err := mail.ParseAddress(s.UserEmail); err != nil {
			return fmt.Errorf("%w: userEmail %q is not a valid address", ErrInvalidSettings, s.UserEmail)
		}
	}
	return nil
}

// FileSettingsStore persists user settings in a YAML file through viper
type FileSettingsStore struct {
	mu     sync.Mutex
	v      *viper.Viper
	path   string
	logger *zap.Logger
}

// NewFileSettingsStore creates a settings store backed by path. Values can be
// overridden with PHISH_FILTER_ environment variables, e.g. PHISH_FILTER_OR_API_KEY.
func NewFileSettingsStore(path string, logger *zap.Logger) *FileSettingsStore {
	path = os.ExpandEnv(path)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	defaults := DefaultSettings()
	v.SetDefault("or_api_key", "")
	v.SetDefault("or_endpoint", defaults.Endpoint)
	v.SetDefault("or_model", defaults.Model)
	v.SetDefault("user_threshold", defaults.Threshold)
	v.SetDefault("firebaseEnabled", false)
	v.SetDefault("userEmail", "")
	bindEnv(v)

	return &FileSettingsStore{
		v:      v,
		path:   path,
		logger: logger,
	}
}

// Load reads the settings file, returning defaults when it does not exist
func (s *FileSettingsStore) Load(ctx context.Context) (core.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		if err := s.v.ReadInConfig(); err != nil {
			return core.Settings{}, fmt.Errorf("failed to read settings file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return core.Settings{}, fmt.Errorf("failed to stat settings file: %w", err)
	}

	return NormalizeSettings(core.Settings{
		APIKey:           s.v.GetString("or_api_key"),
		Endpoint:         s.v.GetString("or_endpoint"),
		Model:            s.v.GetString("or_model"),
		Threshold:        s.v.GetInt("user_threshold"),
		DashboardEnabled: s.v.GetBool("firebaseEnabled"),
		UserEmail:        s.v.GetString("userEmail"),
	}), nil
}

// Save validates and writes the settings file
func (s *FileSettingsStore) Save(ctx context.Context, settings core.Settings) error {
	settings = NormalizeSettings(settings)
	if err := ValidateSettings(settings); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set("or_api_key", settings.APIKey)
	s.v.Set("or_endpoint", settings.Endpoint)
	s.v.Set("or_model", settings.Model)
	s.v.Set("user_threshold", settings.Threshold)
	s.v.Set("firebaseEnabled", settings.DashboardEnabled)
	s.v.Set("userEmail", settings.UserEmail)

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	s.logger.Info("Saved settings",
		zap.String("path", s.path),
		zap.String("model", settings.Model),
		zap.Int("threshold", settings.Threshold),
		zap.Bool("dashboard_enabled", settings.DashboardEnabled))
	return nil
}

// MemorySettingsStore keeps settings in memory, for one-shot runs
type MemorySettingsStore struct {
	mu       sync.RWMutex
	settings core.Settings
}

// NewMemorySettingsStore creates a settings store holding settings
func NewMemorySettingsStore(settings core.Settings) *MemorySettingsStore {
	return &MemorySettingsStore{settings: NormalizeSettings(settings)}
}

// Load returns the held settings
func (s *MemorySettingsStore) Load(ctx context.Context) (core.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

// Save validates and replaces the held settings
func (s *MemorySettingsStore) Save(ctx context.Context, settings core.Settings) error {
	settings = NormalizeSettings(settings)
	if err := ValidateSettings(settings); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}
