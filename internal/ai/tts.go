package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// CoquiTTS talks to a Coqui TTS server's HTTP API and returns synthesized
// WAV audio.
type CoquiTTS struct {
	rest *resty.Client
	lang string
}

// TTSOption configures a CoquiTTS client.
type TTSOption func(*CoquiTTS)

// WithTTSLanguage sets the synthesis language (default "en").
func WithTTSLanguage(lang string) TTSOption {
	return func(c *CoquiTTS) { c.lang = lang }
}

// WithTTSTimeout bounds each synthesis request.
func WithTTSTimeout(d time.Duration) TTSOption {
	return func(c *CoquiTTS) {
		if c.rest != nil {
			c.rest.SetTimeout(d)
		}
	}
}

// NewCoquiTTS builds a TTS client for the given server URL. An empty URL
// yields a client whose calls fail with ErrUnavailable.
func NewCoquiTTS(serverURL string, opts ...TTSOption) *CoquiTTS {
	c := &CoquiTTS{lang: "en"}
	if serverURL != "" {
		c.rest = resty.New().
			SetBaseURL(serverURL).
			SetTimeout(30 * time.Second)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Speak synthesizes the text and returns WAV bytes.
func (c *CoquiTTS) Speak(ctx context.Context, text string) ([]byte, error) {
	if c.rest == nil {
		return nil, ErrUnavailable
	}

	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("text", text).
		SetQueryParam("language_id", c.lang).
		Get("/api/tts")
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("tts server returned %d: %s", resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}
