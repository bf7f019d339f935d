package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satriahrh/fluenty/server/domain/entities"
	"github.com/satriahrh/fluenty/server/usecase"
)

var settingsClientID string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the selectable Gemini models",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, model := range entities.AvailableModels {
			marker := " "
			if model == entities.DefaultModel {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, model)
		}
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or change a client's saved settings",
	Long: `Inspect or change a client's saved settings.

The settings store is opened directly, so the server must not be running
against the same STORE_DIR.`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the masked API key and the selected model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(func(settings *usecase.SettingsService) error {
			current, err := settings.Load(cmd.Context(), settingsClientID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "configured: %t\n", current.IsConfigured())
			fmt.Fprintf(out, "api key:    %s\n", current.MaskedAPIKey())
			fmt.Fprintf(out, "model:      %s\n", current.Model)
			return nil
		})
	},
}

var settingsSetKeyCmd = &cobra.Command{
	Use:   "set-key <api-key>",
	Short: "Save the client's Gemini API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(func(settings *usecase.SettingsService) error {
			return settings.SaveAPIKey(cmd.Context(), settingsClientID, args[0])
		})
	},
}

var settingsSetModelCmd = &cobra.Command{
	Use:   "set-model <model>",
	Short: "Save the client's model selection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSettings(func(settings *usecase.SettingsService) error {
			return settings.SaveModel(cmd.Context(), settingsClientID, args[0])
		})
	},
}

func init() {
	settingsCmd.PersistentFlags().StringVar(&settingsClientID, "client", "", "client ID (required)")
	settingsCmd.MarkPersistentFlagRequired("client")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetKeyCmd)
	settingsCmd.AddCommand(settingsSetModelCmd)
}

func withSettings(fn func(settings *usecase.SettingsService) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, settings, err := newSettings(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(settings)
}
