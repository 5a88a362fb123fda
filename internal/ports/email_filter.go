package ports

import (
	"context"

	"github.com/mikey/llm-phish-filter/internal/core"
)

// EmailFilter defines the interface for the front doors that feed emails to the engine
type EmailFilter interface {
	// ProcessEmail analyzes an email and returns the verdict
	ProcessEmail(ctx context.Context, email *core.EmailData) (*core.ScanResult, error)

	// Start starts the email filter service
	Start() error

	// Stop stops the email filter service
	Stop() error
}
