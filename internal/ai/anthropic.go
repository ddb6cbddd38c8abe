package ai

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const (
	analysisMaxTokens   = 1000
	analysisTemperature = 0.7
)

// Claude analyzes game screenshots through the Anthropic Messages API.
type Claude struct {
	client       anthropic.Client
	systemPrompt string
	available    bool
	logger       *zap.Logger
}

// NewClaude builds the Claude analyzer. An empty API key yields a client
// whose calls fail with ErrUnavailable.
func NewClaude(apiKey, systemPrompt string, logger *zap.Logger) *Claude {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Claude{systemPrompt: systemPrompt, logger: logger}
	if apiKey == "" {
		logger.Warn("ANTHROPIC key missing, Claude analysis disabled")
		return c
	}
	c.client = anthropic.NewClient(option.WithAPIKey(apiKey))
	c.available = true
	return c
}

// Analyze sends the screenshot and the transcribed question to the given
// Claude model and returns the answer text.
func (c *Claude) Analyze(ctx context.Context, imagePNG []byte, question, model string) (string, error) {
	if !c.available {
		return "", ErrUnavailable
	}

	encoded := base64.StdEncoding.EncodeToString(imagePNG)
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   analysisMaxTokens,
		Temperature: anthropic.Float(analysisTemperature),
		System: []anthropic.TextBlockParam{
			{Text: c.systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64("image/png", encoded),
				anthropic.NewTextBlock(question),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("claude messages: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("claude returned no text content")
}
