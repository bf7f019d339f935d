package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fluenty",
	Short: "English speaking practice server",
	Long: `Fluenty serves the conversation and record-and-playback practice screens
over WebSocket, backed by Gemini, Google Cloud Speech and Eleven Labs.

Configuration is read from the environment (and .env when present).

Examples:
  # Run the server with mock speech and LLM adapters
  USE_MOCKS=true fluenty serve

  # Save a Gemini key for a registered client
  fluenty settings set-key --client 3f0c... AIza...

  # Synthesize a sentence to a PCM file
  fluenty say -o hello.pcm "Good morning! How are you?"

  # List Eleven Labs voices
  fluenty voices
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(sayCmd)
	rootCmd.AddCommand(voicesCmd)
}

// loadConfig reads the environment and builds the logger for it
func loadConfig() (*config.Config, *zap.Logger, error) {
	bootstrap, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(bootstrap)
	if err != nil {
		return nil, nil, err
	}

	logger, err := config.NewLogger(cfg.Environment)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
