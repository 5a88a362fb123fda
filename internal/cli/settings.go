package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mikey/llm-phish-filter/internal/di"
	"github.com/mikey/llm-phish-filter/internal/factory"
)

var (
	settingsDashboard bool
	settingsUserEmail string
)

// settingsCmd represents the settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the saved scanner settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the saved settings with the API key redacted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettingsStore(func(sources *factory.SourceFactory) error {
			settings, err := sources.CreateSettingsStore().Load(contextOf(cmd))
			if err != nil {
				return err
			}
			settings.APIKey = redact(settings.APIKey)

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			defer enc.Close()
			return enc.Encode(settings)
		})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the saved settings",
	Long: `Set updates the saved settings with the flags that are given. Unset
flags keep their saved value.

Example:
  phish-detector settings set --api-key sk-... --model openai/gpt-4o --threshold 70
  phish-detector settings set --dashboard --user-email me@example.com`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettingsStore(func(sources *factory.SourceFactory) error {
			store := sources.CreateSettingsStore()
			settings, err := store.Load(contextOf(cmd))
			if err != nil {
				return err
			}

			changed := cmd.Flags().Changed
			if changed("api-key") {
				settings.APIKey = flags.APIKey
			}
			if changed("endpoint") {
				settings.Endpoint = flags.Endpoint
			}
			if changed("model") {
				settings.Model = flags.Model
			}
			if changed("threshold") {
				settings.Threshold = flags.Threshold
			}
			if changed("dashboard") {
				settings.DashboardEnabled = settingsDashboard
			}
			if changed("user-email") {
				settings.UserEmail = settingsUserEmail
			}

			if err := store.Save(contextOf(cmd), settings); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings saved")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)

	settingsSetCmd.Flags().BoolVar(&settingsDashboard, "dashboard", false, "send scan results to the dashboard")
	settingsSetCmd.Flags().StringVar(&settingsUserEmail, "user-email", "", "email address the dashboard events are filed under")
}

// withSettingsStore runs fn against the saved settings, ignoring flag overrides
func withSettingsStore(fn func(*factory.SourceFactory) error) error {
	saved := flags
	saved.APIKey, saved.Endpoint, saved.Model, saved.Threshold = "", "", "", 0

	container, err := di.BuildCLIContainer(&saved)
	if err != nil {
		return fmt.Errorf("failed to build dependency container: %w", err)
	}
	return container.Invoke(func(logger *zap.Logger, sources *factory.SourceFactory) error {
		defer logger.Sync()
		return fn(sources)
	})
}
