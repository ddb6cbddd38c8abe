package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gamecoach-ai/gamecoach/internal/audio"
	"github.com/gamecoach-ai/gamecoach/internal/wav"
	"github.com/gamecoach-ai/gamecoach/recorder"
)

// NewRecordCmd builds the record command, a microphone smoke test that
// writes the captured question to a file without talking to a server.
func NewRecordCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record <output.wav|output.ogg>",
		Short: "Record a single question to an audio file",
		Long: "Record one question from the microphone and save it locally.\n" +
			"A .wav output keeps raw PCM; a .ogg output writes a playable Ogg Opus file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := deps.Config
			rec := recorder.New(recorder.Config{
				SampleRate:       cfg.SampleRate,
				SilenceThreshold: cfg.SilenceThreshold,
				SilenceDuration:  seconds(cfg.SilenceSeconds),
				MinRecordingTime: seconds(cfg.MinRecordSeconds),
				MaxRecordingTime: seconds(cfg.MaxRecordSeconds),
			}, deps.Log)

			wavData, err := recordQuestion(rec, enterPresses())
			if err != nil {
				return err
			}

			out := wavData
			if strings.HasSuffix(strings.ToLower(args[0]), ".ogg") {
				samples, rate, err := wav.Decode(wavData)
				if err != nil {
					return fmt.Errorf("re-read recording: %w", err)
				}
				enc, err := audio.NewStreamEncoder(int(rate), opusBitrate)
				if err != nil {
					return fmt.Errorf("opus encoder: %w", err)
				}
				if err := enc.Write(samples); err != nil {
					return fmt.Errorf("opus encode: %w", err)
				}
				if err := enc.Flush(); err != nil {
					return fmt.Errorf("opus encode: %w", err)
				}
				out = enc.OggBytes()
			}

			if err := os.WriteFile(args[0], out, 0644); err != nil {
				return fmt.Errorf("write %s: %w", args[0], err)
			}
			fmt.Fprintf(os.Stderr, "Saved %dKB to %s\n", len(out)/1024, args[0])
			return nil
		},
	}
	return cmd
}
