package cli

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gamecoach-ai/gamecoach/client"
	"github.com/gamecoach-ai/gamecoach/internal/audio"
	"github.com/gamecoach-ai/gamecoach/internal/wav"
	"github.com/gamecoach-ai/gamecoach/recorder"
)

const opusBitrate = 32000

// NewAskCmd builds the ask command: capture the screen, record a spoken
// question and print the server's advice.
func NewAskCmd(deps *Dependencies) *cobra.Command {
	var (
		text       string
		model      string
		speak      bool
		copyResult bool
		sendOpus   bool
		saveWAV    string
		loop       bool
	)

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Capture the screen, ask a question, get advice",
		Long: "Capture the screen and record a question from the microphone.\n" +
			"Recording stops on its own after a silent pause, or press Enter to stop early.\n" +
			"Use --text to type the question instead of speaking it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := deps.Config
			if model == "" {
				model = cfg.Model
			}

			cli := client.New(cfg.ServerURL,
				client.WithToken(cfg.Token),
				client.WithModel(model),
				client.WithSpeak(speak),
			)

			rec := recorder.New(recorder.Config{
				SampleRate:       cfg.SampleRate,
				SilenceThreshold: cfg.SilenceThreshold,
				SilenceDuration:  seconds(cfg.SilenceSeconds),
				MinRecordingTime: seconds(cfg.MinRecordSeconds),
				MaxRecordingTime: seconds(cfg.MaxRecordSeconds),
			}, deps.Log)

			enter := enterPresses()
			for {
				if err := askOnce(deps, cli, rec, askOptions{
					text:       text,
					speak:      speak,
					copyResult: copyResult,
					sendOpus:   sendOpus,
					saveWAV:    saveWAV,
					sampleRate: cfg.SampleRate,
				}, enter); err != nil {
					return err
				}
				if !loop {
					return nil
				}
				fmt.Fprintln(os.Stderr, "\nPress Enter for another question, Ctrl+C to quit.")
				if _, ok := <-enter; !ok {
					return nil
				}
			}
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "type the question instead of recording it")
	cmd.Flags().StringVarP(&model, "model", "m", "", "model alias (see 'gamecoach models')")
	cmd.Flags().BoolVar(&speak, "speak", false, "play the answer as speech")
	cmd.Flags().BoolVar(&copyResult, "clipboard", false, "copy the answer to the clipboard")
	cmd.Flags().BoolVar(&sendOpus, "opus", false, "upload Opus instead of WAV")
	cmd.Flags().StringVar(&saveWAV, "save-wav", "", "also save the recorded question to this WAV file")
	cmd.Flags().BoolVar(&loop, "loop", false, "keep asking questions until interrupted")

	return cmd
}

type askOptions struct {
	text       string
	speak      bool
	copyResult bool
	sendOpus   bool
	saveWAV    string
	sampleRate int
}

func askOnce(deps *Dependencies, cli *client.Client, rec *recorder.Recorder, opts askOptions, enter <-chan struct{}) error {
	image, err := client.CaptureScreen()
	if err != nil {
		return fmt.Errorf("capture screen: %w", err)
	}

	var audioData []byte
	audioName := "question.wav"
	if opts.text == "" {
		wavData, err := recordQuestion(rec, enter)
		if err != nil {
			return err
		}
		if opts.saveWAV != "" {
			if err := os.WriteFile(opts.saveWAV, wavData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "failed to save WAV: %v\n", err)
			}
		}
		audioData = wavData
		if opts.sendOpus {
			samples, rate, err := wav.Decode(wavData)
			if err != nil {
				return fmt.Errorf("re-read recording: %w", err)
			}
			opusData, err := audio.EncodeOpus(samples, int(rate), opusBitrate)
			if err != nil {
				return fmt.Errorf("opus encode: %w", err)
			}
			deps.Log.Debug("opus upload",
				zap.Int("wav_bytes", len(wavData)), zap.Int("opus_bytes", len(opusData)))
			audioData = opusData
			audioName = "question.opus"
		}
	}

	fmt.Fprintln(os.Stderr, "Asking...")
	resp, err := cli.Analyze(image, audioData, audioName, opts.text)
	if err != nil {
		return err
	}

	if resp.Question != "" && opts.text == "" {
		fmt.Fprintf(os.Stderr, "You asked: %s\n\n", resp.Question)
	}
	fmt.Println(resp.Answer)
	fmt.Fprintf(os.Stderr, "\n[%s via %s, %dms]\n", resp.Model, resp.Provider, resp.ProcessingMs)

	if opts.copyResult {
		if err := clipboard.WriteAll(resp.Answer); err != nil {
			fmt.Fprintf(os.Stderr, "clipboard copy failed: %v\n", err)
		}
	}
	if opts.speak && len(resp.Speech) > 0 {
		if err := rec.PlayWAV(resp.Speech); err != nil {
			fmt.Fprintf(os.Stderr, "speech playback failed: %v\n", err)
		}
	}
	return nil
}

// recordQuestion runs one recording session: it returns when silence stops
// the recording or the user presses Enter.
func recordQuestion(rec *recorder.Recorder, enter <-chan struct{}) ([]byte, error) {
	if err := rec.Start(); err != nil {
		return nil, fmt.Errorf("start recording: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Listening... speak your question (Enter to stop early)")

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for rec.IsActive() && !rec.StopRequested() {
		select {
		case <-enter:
			goto stop
		case <-ticker.C:
		}
	}
stop:
	wavData, err := rec.Stop()
	if err != nil {
		return nil, fmt.Errorf("stop recording: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Got it.")
	return wavData, nil
}

// enterPresses emits a value each time the user presses Enter on stdin. The
// channel closes on EOF.
func enterPresses() <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			ch <- struct{}{}
		}
	}()
	return ch
}
