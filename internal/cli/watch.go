package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mikey/llm-phish-filter/internal/core"
	"github.com/mikey/llm-phish-filter/internal/di"
	"github.com/mikey/llm-phish-filter/internal/factory"
)

var watchOutput string

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Score the email open in a Gmail or Outlook browser tab",
	Long: `Watch drives a Chrome tab on Gmail or Outlook and scores each email as
it is opened. An email is scored once until another one is opened.

Chrome is launched with a visible window unless --browser-url points to the
DevTools endpoint of a running browser.

Example:
  phish-detector watch --service gmail
  phish-detector watch --service outlook --browser-url ws://127.0.0.1:9222/devtools/browser/...`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVar(&flags.Service, "service", "", "webmail service (gmail, outlook)")
	watchCmd.Flags().StringVar(&flags.BrowserURL, "browser-url", "", "DevTools websocket URL of a running browser")
	watchCmd.Flags().DurationVar(&flags.PollInterval, "interval", 0, "how often the open email is checked")
	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", FormatText, "output format (text, json, yaml)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := validateFormat(watchOutput); err != nil {
		return err
	}

	container, err := di.BuildCLIContainer(&flags)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}

	return container.Invoke(func(
		logger *zap.Logger,
		sources *factory.SourceFactory,
		service *core.PhishingAnalysisService,
		store core.SettingsStore,
		scorer core.RemoteScorer,
		history core.HistoryRepository,
	) error {
		defer logger.Sync()
		defer di.Shutdown(logger, service, scorer, history)

		ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		source, err := sources.CreateWebmailSource(ctx)
		if err != nil {
			return err
		}
		defer source.Close()

		if err := source.Open(); err != nil {
			return err
		}

		interval := flags.PollInterval
		if interval <= 0 {
			interval = 2 * time.Second
		}

		session := core.NewScanSession(source, store, service, logger)
		return watchLoop(ctx, session, interval, func(result *core.ScanResult) error {
			return writeResult(cmd.OutOrStdout(), watchOutput, result)
		}, logger)
	})
}

// watchLoop refreshes the session every interval and reports each new result
// until ctx is done
func watchLoop(ctx context.Context, session *core.ScanSession, interval time.Duration, report func(*core.ScanResult) error, logger *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last *core.ScanResult
	for {
		result, err := session.Refresh(ctx)
		switch {
		case err != nil:
			logger.Warn("Failed to scan open email", zap.Error(err))
		case result != nil && result != last:
			if err := report(result); err != nil {
				return err
			}
		}
		last = result

		select {
		case <-ctx.Done():
			logger.Info("Stopped watching")
			return nil
		case <-ticker.C:
		}
	}
}
