package ai

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// CaptionService asks a vision-captioning HTTP service to describe an image.
type CaptionService struct {
	rest *resty.Client
}

type captionResponse struct {
	Caption string `json:"caption"`
}

// NewCaptionService builds a captioning client for the given service URL. An
// empty URL yields a client whose calls fail with ErrUnavailable.
func NewCaptionService(serverURL string) *CaptionService {
	c := &CaptionService{}
	if serverURL != "" {
		c.rest = resty.New().
			SetBaseURL(serverURL).
			SetTimeout(30 * time.Second)
	}
	return c
}

// Caption uploads the image and returns the service's description.
func (c *CaptionService) Caption(ctx context.Context, imagePNG []byte) (string, error) {
	if c.rest == nil {
		return "", ErrUnavailable
	}

	var out captionResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetFileReader("image", "frame.png", bytes.NewReader(imagePNG)).
		SetResult(&out).
		Post("/api/caption")
	if err != nil {
		return "", fmt.Errorf("caption request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("caption server returned %d: %s", resp.StatusCode(), resp.String())
	}
	return out.Caption, nil
}
