package config

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mikey/llm-phish-filter/internal/core"
	"go.uber.org/zap/zaptest"
)

func TestNormalizeSettings(t *testing.T) {
	tests := []struct {
		name      string
		in        core.Settings
		threshold int
	}{
		{"zero uses default", core.Settings{}, DefaultThreshold},
		{"negative clamps to 1", core.Settings{Threshold: -5}, 1},
		{"above 100 clamps", core.Settings{Threshold: 150}, 100},
		{"in range kept", core.Settings{Threshold: 70}, 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeSettings(tt.in)
			if got.Threshold != tt.threshold {
				t.Errorf("Threshold = %d, want %d", got.Threshold, tt.threshold)
			}
			if got.Endpoint != DefaultEndpoint || got.Model != DefaultModel {
				t.Errorf("defaults not applied: %+v", got)
			}
		})
	}
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name    string
		in      core.Settings
		wantErr bool
	}{
		{"dashboard off", core.Settings{}, false},
		{"dashboard on with address", core.Settings{DashboardEnabled: true, UserEmail: "me@example.com"}, false},
		{"dashboard on without address", core.Settings{DashboardEnabled: true}, true},
		{"dashboard on with bad address", core.Settings{DashboardEnabled: true, UserEmail: "not-an-email"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSettings(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSettings) {
				t.Errorf("error should wrap ErrInvalidSettings: %v", err)
			}
		})
	}
}

func TestFileSettingsStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
	store := NewFileSettingsStore(path, zaptest.NewLogger(t))

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() on missing file: %v", err)
	}
	if got != DefaultSettings() {
		t.Errorf("Load() = %+v, want defaults", got)
	}

	want := core.Settings{
		APIKey:           "sk-test",
		Endpoint:         "https://example.com/v1/chat/completions",
		Model:            "some/model",
		Threshold:        70,
		DashboardEnabled: true,
		UserEmail:        "me@example.com",
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	reopened := NewFileSettingsStore(path, zaptest.NewLogger(t))
	got, err = reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestFileSettingsStore_RejectsInvalid(t *testing.T) {
	store := NewFileSettingsStore(filepath.Join(t.TempDir(), "settings.yaml"), zaptest.NewLogger(t))
	err := store.Save(context.Background(), core.Settings{DashboardEnabled: true, UserEmail: "nope"})
	if !errors.Is(err, ErrInvalidSettings) {
		t.Errorf("Save() error = %v, want ErrInvalidSettings", err)
	}
}

func TestMemorySettingsStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySettingsStore(core.Settings{APIKey: "k", Threshold: 300})

	got, _ := store.Load(ctx)
	if got.Threshold != 100 || got.APIKey != "k" {
		t.Errorf("Load() = %+v", got)
	}
	if err := store.Save(ctx, core.Settings{Threshold: 20}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, _ = store.Load(ctx)
	if got.Threshold != 20 {
		t.Errorf("Threshold = %d, want 20", got.Threshold)
	}
}
