package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/llm-phish-filter/internal/core"
	"github.com/mikey/llm-phish-filter/internal/di"
	"github.com/mikey/llm-phish-filter/internal/factory"
)

// ErrPhishingDetected is returned by scan when --fail-on-phishing is set and
// the email is flagged
var ErrPhishingDetected = errors.New("phishing detected")

var (
	scanOutput         string
	scanFailOnPhishing bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Score a raw RFC 5322 message",
	Long: `Scan parses a raw email message and scores it for phishing.

The message is read from the given file, or from stdin when the file is
omitted or "-".

Example:
  phish-detector scan message.eml
  phish-detector scan --output json < message.eml
  phish-detector scan message.eml --api-key sk-... --model openai/gpt-4o`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", FormatText, "output format (text, json, yaml)")
	scanCmd.Flags().BoolVar(&scanFailOnPhishing, "fail-on-phishing", false, "exit with an error when the email is flagged")
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := validateFormat(scanOutput); err != nil {
		return err
	}
	path := "-"
	if len(args) == 1 {
		path = args[0]
	}

	container, err := di.BuildCLIContainer(&flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	var result *core.ScanResult
	err = container.Invoke(func(
		logger *zap.Logger,
		sources *factory.SourceFactory,
		filters *factory.FilterFactory,
		service *core.PhishingAnalysisService,
		store core.SettingsStore,
		scorer core.RemoteScorer,
		history core.HistoryRepository,
	) error {
		defer logger.Sync()
		defer di.Shutdown(logger, service, scorer, history)

		source, err := sources.CreateFileSource(path)
		if err != nil {
			return err
		}
		email, err := source.ExtractCurrent(contextOf(cmd))
		if err != nil {
			return err
		}
		if email == nil {
			return fmt.Errorf("no message to scan in %s", path)
		}

		if scanOutput == FormatText {
			emailFilter, err := filters.CreateEmailFilterOfType("cli")
			if err != nil {
				return err
			}
			result, err = emailFilter.ProcessEmail(contextOf(cmd), email)
			return err
		}

		settings, err := store.Load(contextOf(cmd))
		if err != nil {
			return fmt.Errorf("failed to load settings: %w", err)
		}
		routed := service.Route(contextOf(cmd), *email, settings)
		result = &routed
		return writeResult(cmd.OutOrStdout(), scanOutput, result)
	})
	if err != nil {
		return err
	}

	if scanFailOnPhishing && result != nil && result.IsPhishing {
		return ErrPhishingDetected
	}
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
