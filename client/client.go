// Package client talks to a gamecoach analysis server.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// AnalysisResponse holds the server's answer to a captured situation.
type AnalysisResponse struct {
	RequestID     string  `json:"request_id"`
	Question      string  `json:"question"`
	Answer        string  `json:"answer"`
	Model         string  `json:"model"`
	Provider      string  `json:"provider"`
	Speech        []byte  `json:"speech,omitempty"` // base64 WAV when speak was requested
	AudioDuration float64 `json:"audio_duration,omitempty"`
	ProcessingMs  int64   `json:"processing_ms"`
}

// TranscriptResponse holds a bare speech-to-text result.
type TranscriptResponse struct {
	RequestID     string  `json:"request_id"`
	Text          string  `json:"text"`
	AudioDuration float64 `json:"audio_duration"`
	ProcessingMs  int64   `json:"processing_ms"`
}

// Client communicates with a gamecoach analysis server.
type Client struct {
	serverURL string
	token     string
	model     string
	speak     bool
	http      *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the Bearer token for server authentication.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithModel selects the analysis model alias (e.g. "claude-4-sonnet", "gpt-4o").
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithSpeak asks the server to synthesize the answer as speech.
func WithSpeak(speak bool) Option {
	return func(c *Client) { c.speak = speak }
}

// WithTimeout bounds each request (default 60s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// New creates a Client for the given server URL.
func New(serverURL string, opts ...Option) *Client {
	c := &Client{
		serverURL: strings.TrimRight(serverURL, "/"),
		http:      &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analyze sends a screenshot and/or voice question to the server. Either
// image or audio may be nil; audioName carries the upload extension the
// server uses to pick a decoder (".wav" or ".opus"). A non-empty query skips
// server-side transcription.
func (c *Client) Analyze(image, audio []byte, audioName, query string) (*AnalysisResponse, error) {
	if image == nil && audio == nil && query == "" {
		return nil, fmt.Errorf("nothing to analyze")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if image != nil {
		part, err := writer.CreateFormFile("image", "screenshot.png")
		if err != nil {
			return nil, fmt.Errorf("create image part: %w", err)
		}
		if _, err := part.Write(image); err != nil {
			return nil, fmt.Errorf("write image: %w", err)
		}
	}
	if audio != nil {
		if audioName == "" {
			audioName = "question.wav"
		}
		part, err := writer.CreateFormFile("audio", audioName)
		if err != nil {
			return nil, fmt.Errorf("create audio part: %w", err)
		}
		if _, err := part.Write(audio); err != nil {
			return nil, fmt.Errorf("write audio: %w", err)
		}
	}
	if query != "" {
		if err := writer.WriteField("query", query); err != nil {
			return nil, fmt.Errorf("write query: %w", err)
		}
	}
	writer.Close()

	var result AnalysisResponse
	if err := c.post(c.analyzeURL(), writer.FormDataContentType(), &body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Transcribe sends audio to the server's STT endpoint and returns the text.
func (c *Client) Transcribe(audio []byte, audioName string) (*TranscriptResponse, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio", audioName)
	if err != nil {
		return nil, fmt.Errorf("create audio part: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("write audio: %w", err)
	}
	writer.Close()

	var result TranscriptResponse
	if err := c.post(c.serverURL+"/api/v1/stt", writer.FormDataContentType(), &body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Models asks the server which model aliases it serves.
func (c *Client) Models() (map[string][]string, error) {
	req, err := http.NewRequest(http.MethodGet, c.serverURL+"/api/v1/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}

	var out struct {
		Models map[string][]string `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Models, nil
}

func (c *Client) post(url, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) analyzeURL() string {
	url := c.serverURL + "/api/v1/analyze"
	var params []string
	if c.model != "" {
		params = append(params, "model="+c.model)
	}
	if c.speak {
		params = append(params, "speak="+strconv.FormatBool(true))
	}
	if len(params) > 0 {
		url += "?" + strings.Join(params, "&")
	}
	return url
}
