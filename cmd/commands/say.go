package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/fluenty/server/domain/repositories"
)

var (
	sayOutput  string
	sayTimeout time.Duration
)

var sayCmd = &cobra.Command{
	Use:   "say <text>",
	Short: "Synthesize text and save the audio",
	Long: `Synthesize text with the configured text-to-speech adapter and save the
raw audio. Word ranges are printed as they arrive.

Play the default pcm_24000 output with:
  play -t raw -r 24000 -e signed -b 16 -c 1 say_output.pcm`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		defer logger.Sync()

		speaker, err := newTextToSpeech(cfg, logger)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), sayTimeout)
		defer cancel()

		text := strings.Join(args, " ")
		logger.Info("Converting text to speech", zap.String("text", text))

		stream, err := speaker.Speak(ctx, text)
		if err != nil {
			return fmt.Errorf("failed to start synthesis: %w", err)
		}
		defer stream.Cancel()

		file, err := os.Create(sayOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()

		totalBytes := 0
		for event := range stream.Events() {
			switch event.Kind {
			case repositories.SpeechRange:
				fmt.Fprintf(cmd.OutOrStdout(), "[%d:%d] %s\n", event.Start, event.End, event.Text)
			case repositories.SpeechAudio:
				n, err := file.Write(event.Audio)
				if err != nil {
					return fmt.Errorf("failed to write audio: %w", err)
				}
				totalBytes += n
			case repositories.SpeechError:
				return fmt.Errorf("synthesis failed: %w", event.Err)
			case repositories.SpeechDone:
				fmt.Fprintf(cmd.OutOrStdout(), "Audio saved to %s (%d bytes)\n", sayOutput, totalBytes)
				return nil
			}
		}
		return fmt.Errorf("synthesis ended without completing")
	},
}

func init() {
	sayCmd.Flags().StringVarP(&sayOutput, "output", "o", "say_output.pcm", "output file")
	sayCmd.Flags().DurationVar(&sayTimeout, "timeout", 30*time.Second, "synthesis timeout")
}
