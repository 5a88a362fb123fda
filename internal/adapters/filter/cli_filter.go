package filter

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mikey/llm-phish-filter/internal/core"
	"go.uber.org/zap"
)

// CliFilter implements a command-line interface for phishing detection
type CliFilter struct {
	analyzer
	out     io.Writer
	verbose bool
}

// NewCliFilter creates a new CLI filter. Output goes to stdout when out is nil.
func NewCliFilter(service *core.PhishingAnalysisService, settings core.SettingsStore, logger *zap.Logger, out io.Writer, verbose bool) (*CliFilter, error) {
	if out == nil {
		out = os.Stdout
	}
	return &CliFilter{
		analyzer: analyzer{service: service, settings: settings, logger: logger},
		out:      out,
		verbose:  verbose,
	}, nil
}

// ProcessEmail analyzes an email and prints a summary of the verdict
func (f *CliFilter) ProcessEmail(ctx context.Context, email *core.EmailData) (*core.ScanResult, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.From))

	fmt.Fprintf(f.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(f.out, "From: %s\n", email.From)
	fmt.Fprintf(f.out, "Subject: %s\n", email.Subject)
	fmt.Fprintf(f.out, "Body length: %d chars\n", len([]rune(email.Body)))
	fmt.Fprintf(f.out, "Links: %d\n", len(email.Links))

	if f.verbose {
		preview := []rune(email.Body)
		if len(preview) > 500 {
			preview = append(preview[:500], []rune("...")...)
		}
		fmt.Fprintf(f.out, "\nBody preview:\n%s\n", string(preview))
		for _, link := range email.Links {
			fmt.Fprintf(f.out, "  - %s\n", link)
		}
	}

	startTime := time.Now()
	result := f.analyze(ctx, email)
	duration := time.Since(startTime)

	fmt.Fprintf(f.out, "\n=== Results ===\n")
	fmt.Fprintf(f.out, "Is phishing: %t\n", result.IsPhishing)
	fmt.Fprintf(f.out, "Confidence: %d%%\n", result.Confidence)
	fmt.Fprintf(f.out, "Source: %s\n", result.Source)
	fmt.Fprintf(f.out, "Recommendation: %s\n", result.Recommendation)
	if len(result.Indicators) > 0 {
		fmt.Fprintf(f.out, "Indicators:\n  - %s\n", strings.Join(result.Indicators, "\n  - "))
	}
	fmt.Fprintf(f.out, "Processing time: %v\n", duration)

	return &result, nil
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
