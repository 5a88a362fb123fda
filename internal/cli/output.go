package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mikey/llm-phish-filter/internal/core"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

func validateFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (want text, json or yaml)", format)
	}
}

// writeResult renders a result in the given format
func writeResult(w io.Writer, format string, result *core.ScanResult) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	default:
		verdict := "SAFE"
		if result.IsPhishing {
			verdict = "PHISHING"
		}
		fmt.Fprintf(w, "%s (%d%%, %s)\n", verdict, result.Confidence, result.Source)
		fmt.Fprintf(w, "%s\n", result.Recommendation)
		for _, indicator := range result.Indicators {
			fmt.Fprintf(w, "  - %s\n", indicator)
		}
		return nil
	}
}

// redact hides all but the last four characters of a secret
func redact(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}
