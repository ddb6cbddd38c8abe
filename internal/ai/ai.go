// Package ai holds the clients for the external AI collaborators: Claude and
// GPT-4 Vision for screenshot analysis, Whisper for speech-to-text, a Coqui
// TTS server for speech synthesis and a captioning service for bare image
// descriptions. Each client degrades to an unavailable state when its key or
// URL is missing; callers report that, they don't crash.
package ai

import (
	"context"
	"errors"
)

// ErrUnavailable means the service has no credentials or endpoint configured.
var ErrUnavailable = errors.New("ai service not configured")

// Analyzer answers a question about a screenshot.
type Analyzer interface {
	Analyze(ctx context.Context, imagePNG []byte, question, model string) (string, error)
}

// Transcriber converts recorded speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavAudio []byte) (string, error)
}

// Speaker synthesizes speech for a text answer, returning WAV bytes.
type Speaker interface {
	Speak(ctx context.Context, text string) ([]byte, error)
}

// Captioner produces a short description of an image.
type Captioner interface {
	Caption(ctx context.Context, imagePNG []byte) (string, error)
}
