package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mikey/llm-phish-filter/internal/di"
)

// Version is set at build time
var Version = "dev"

var flags di.CLIFlags

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "phish-detector",
	Short: "Score emails for phishing with local heuristics and an optional LLM",
	Long: `phish-detector scores emails for phishing.

Without an API key every email is scored by the local heuristic scanner.
With an API key the email is sent to an OpenAI-compatible chat completions
endpoint, and any remote failure falls back to the local scanner.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "phish-detector %s\n", Version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()

	// Global flags
	pf.StringVar(&flags.ConfigFile, "config", "", "config file (default: search /etc/llm-phish-filter, $HOME/.llm-phish-filter, ./configs)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "verbose output")
	pf.BoolVar(&flags.JSONLog, "json-log", false, "output logs in JSON format")

	// LLM flags
	pf.StringVar(&flags.Provider, "provider", "", "remote scorer provider (openai, gemini, bedrock)")
	pf.StringVar(&flags.APIKey, "api-key", "", "API key of the remote scorer, overrides saved settings")
	pf.StringVar(&flags.Endpoint, "endpoint", "", "chat completions endpoint, overrides saved settings")
	pf.StringVar(&flags.Model, "model", "", "model name, overrides saved settings")
	pf.IntVar(&flags.Threshold, "threshold", 0, "remote confidence threshold 1-100, overrides saved settings")
	pf.Float64Var(&flags.RateLimit, "rate-limit", 0, "max remote requests per second per API key (0 disables)")

	// Local scanner flags
	pf.IntVar(&flags.LocalThreshold, "local-threshold", 0, "local scanner phishing threshold")

	// History flags
	pf.BoolVar(&flags.History, "history", false, "record analyses in the configured history store")

	rootCmd.AddCommand(versionCmd)
}
