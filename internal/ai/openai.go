package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
)

// OpenAI serves two roles: GPT-4 Vision screenshot analysis and Whisper
// speech-to-text.
type OpenAI struct {
	client       openai.Client
	systemPrompt string
	available    bool
	logger       *zap.Logger
}

// NewOpenAI builds the OpenAI client. An empty API key yields a client whose
// calls fail with ErrUnavailable.
func NewOpenAI(apiKey, systemPrompt string, logger *zap.Logger) *OpenAI {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &OpenAI{systemPrompt: systemPrompt, logger: logger}
	if apiKey == "" {
		logger.Warn("OPENAI key missing, GPT analysis and Whisper STT disabled")
		return o
	}
	o.client = openai.NewClient(option.WithAPIKey(apiKey))
	o.available = true
	return o
}

// Analyze sends the screenshot and question to a GPT vision model via chat
// completions with an inline data-URL image part.
func (o *OpenAI) Analyze(ctx context.Context, imagePNG []byte, question, model string) (string, error) {
	if !o.available {
		return "", ErrUnavailable
	}

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imagePNG)
	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
		openai.TextContentPart(question),
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		MaxTokens:   openai.Int(analysisMaxTokens),
		Temperature: openai.Float(analysisTemperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(o.systemPrompt),
			openai.UserMessage(parts),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Transcribe runs Whisper over a WAV recording and returns the transcript.
func (o *OpenAI) Transcribe(ctx context.Context, wavAudio []byte) (string, error) {
	if !o.available {
		return "", ErrUnavailable
	}

	resp, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		Model: openai.AudioModelWhisper1,
		File:  openai.File(bytes.NewReader(wavAudio), "question.wav", "audio/wav"),
	})
	if err != nil {
		return "", fmt.Errorf("whisper transcription: %w", err)
	}
	return resp.Text, nil
}
