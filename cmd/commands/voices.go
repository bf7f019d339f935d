package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/satriahrh/fluenty/server/adapters/tts"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the Eleven Labs voices available to the configured key",
	Long: `List the voices available to ELEVEN_LABS_API_KEY. The voice used for
synthesis is marked with "*"; change it with ELEVEN_LABS_VOICE_ID.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if cfg.UseMocks {
			return fmt.Errorf("voices needs the Eleven Labs adapter; unset USE_MOCKS")
		}

		speaker, err := tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
			APIKey:     cfg.ElevenLabs.APIKey,
			APIBaseURL: cfg.ElevenLabs.APIBaseURL,
			VoiceID:    cfg.ElevenLabs.VoiceID,
		}, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		voices, err := speaker.Voices(ctx)
		if err != nil {
			return fmt.Errorf("failed to list voices: %w", err)
		}

		for _, voice := range voices {
			marker := " "
			if voice.VoiceID == speaker.VoiceID() {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\t%s\n", marker, voice.VoiceID, voice.Name, voice.Category)
		}
		return nil
	},
}
