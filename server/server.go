// Package server exposes the gamecoach HTTP API: screenshot analysis with a
// spoken or typed question, plus standalone speech-to-text, text-to-speech
// and image captioning endpoints.
package server

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gamecoach-ai/gamecoach/internal/ai"
	"github.com/gamecoach-ai/gamecoach/internal/audio"
	"github.com/gamecoach-ai/gamecoach/internal/models"
	"github.com/gamecoach-ai/gamecoach/internal/wav"
)

// maxUploadBytes caps multipart request bodies.
const maxUploadBytes = 50 << 20

// AnalysisResponse is the JSON body returned by the analyze endpoint.
type AnalysisResponse struct {
	RequestID     string  `json:"request_id"`
	Question      string  `json:"question"`
	Answer        string  `json:"answer"`
	Model         string  `json:"model"`
	Provider      string  `json:"provider"`
	Speech        []byte  `json:"speech,omitempty"`
	AudioDuration float64 `json:"audio_duration,omitempty"`
	ProcessingMs  int64   `json:"processing_ms"`
}

// TranscriptResponse is the JSON body returned by the stt endpoint.
type TranscriptResponse struct {
	RequestID     string  `json:"request_id"`
	Text          string  `json:"text"`
	AudioDuration float64 `json:"audio_duration"`
	ProcessingMs  int64   `json:"processing_ms"`
}

// Server wires the AI services behind the HTTP API.
type Server struct {
	cfg    *Config
	log    *zap.Logger
	engine *gin.Engine

	claude  ai.Analyzer
	openai  ai.Analyzer
	stt     ai.Transcriber
	tts     ai.Speaker
	caption ai.Captioner
}

// New builds a Server from its configuration. Services whose credentials or
// URLs are missing stay nil and their endpoints report unavailability.
func New(cfg *Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{cfg: cfg, log: logger}

	if cfg.AnthropicAPIKey != "" {
		s.claude = ai.NewClaude(cfg.AnthropicAPIKey, cfg.SystemPrompt, logger)
	} else {
		logger.Warn("ANTHROPIC_API_KEY not set, claude models disabled")
	}
	if cfg.OpenAIAPIKey != "" {
		oa := ai.NewOpenAI(cfg.OpenAIAPIKey, cfg.SystemPrompt, logger)
		s.openai = oa
		s.stt = oa
	} else {
		logger.Warn("OPENAI_API_KEY not set, openai models and transcription disabled")
	}
	if cfg.TTSURL != "" {
		s.tts = ai.NewCoquiTTS(cfg.TTSURL, ai.WithTTSLanguage(cfg.TTSLanguage))
	}
	if cfg.CaptionURL != "" {
		s.caption = ai.NewCaptionService(cfg.CaptionURL)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api/v1", s.auth())
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/stt", s.handleSTT)
	api.POST("/tts", s.handleTTS)
	api.POST("/caption", s.handleCaption)
	api.GET("/models", s.handleModels)

	s.engine = engine
	return s
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves the API until the listener fails.
func (s *Server) Run() error {
	s.log.Info("server listening", zap.String("addr", s.cfg.Addr))
	return s.engine.Run(s.cfg.Addr)
}

func (s *Server) auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.Token == "" {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+s.cfg.Token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("request_id", id)
		start := time.Now()
		c.Next()
		s.log.Info("request",
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.String("client", c.ClientIP()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func requestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// handleAnalyze answers a question about a screenshot. The question comes
// either from the "query" form field or from transcribing the "audio" upload.
func (s *Server) handleAnalyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	start := time.Now()

	image, err := formFileBytes(c, "image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read image: " + err.Error()})
		return
	}
	if image == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'image' form file"})
		return
	}

	question := c.PostForm("query")
	var audioDuration float64
	if question == "" {
		samples, sampleRate, err := formAudio(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		audioDuration = roundMs(float64(len(samples)) / float64(sampleRate))

		if s.stt == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "transcription not configured"})
			return
		}
		question, err = s.stt.Transcribe(c.Request.Context(), wav.Encode(samples, int(sampleRate)))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "transcription failed: " + err.Error()})
			return
		}
	}
	if strings.TrimSpace(question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty question"})
		return
	}

	res := models.Resolve(c.Query("model"), s.cfg.DefaultModel)
	if res.Fallback {
		s.log.Warn("unknown model alias, using default",
			zap.String("requested", c.Query("model")), zap.String("alias", res.Alias))
	}

	analyzer := s.analyzerFor(res.Provider)
	if analyzer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": fmt.Sprintf("provider %s not configured", res.Provider),
		})
		return
	}

	answer, err := analyzer.Analyze(c.Request.Context(), image, question, res.Model)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed: " + err.Error()})
		return
	}

	resp := AnalysisResponse{
		RequestID:     requestID(c),
		Question:      question,
		Answer:        answer,
		Model:         res.Alias,
		Provider:      string(res.Provider),
		AudioDuration: audioDuration,
	}

	if c.Query("speak") == "true" && s.tts != nil {
		speech, err := s.tts.Speak(c.Request.Context(), answer)
		if err != nil {
			s.log.Warn("speech synthesis failed", zap.Error(err))
		} else {
			resp.Speech = speech
		}
	}

	resp.ProcessingMs = time.Since(start).Milliseconds()
	c.JSON(http.StatusOK, resp)
}

// handleSTT transcribes an audio upload without analysis.
func (s *Server) handleSTT(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	start := time.Now()

	if s.stt == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "transcription not configured"})
		return
	}

	samples, sampleRate, err := formAudio(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	text, err := s.stt.Transcribe(c.Request.Context(), wav.Encode(samples, int(sampleRate)))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transcription failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, TranscriptResponse{
		RequestID:     requestID(c),
		Text:          text,
		AudioDuration: roundMs(float64(len(samples)) / float64(sampleRate)),
		ProcessingMs:  time.Since(start).Milliseconds(),
	})
}

// handleTTS synthesizes speech for a text form field and streams WAV back.
func (s *Server) handleTTS(c *gin.Context) {
	if s.tts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tts not configured"})
		return
	}
	text := c.PostForm("text")
	if strings.TrimSpace(text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'text' form field"})
		return
	}
	speech, err := s.tts.Speak(c.Request.Context(), text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "speech synthesis failed: " + err.Error()})
		return
	}
	c.Data(http.StatusOK, "audio/wav", speech)
}

// handleCaption describes an uploaded image.
func (s *Server) handleCaption(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	if s.caption == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "captioning not configured"})
		return
	}
	image, err := formFileBytes(c, "image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read image: " + err.Error()})
		return
	}
	if image == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'image' form file"})
		return
	}
	caption, err := s.caption.Caption(c.Request.Context(), image)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "captioning failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"request_id": requestID(c), "caption": caption})
}

// handleModels lists the model aliases each provider serves.
func (s *Server) handleModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"models":  models.Available(),
		"default": models.Resolve("", s.cfg.DefaultModel).Alias,
	})
}

func (s *Server) analyzerFor(p models.Provider) ai.Analyzer {
	switch p {
	case models.ProviderAnthropic:
		return s.claude
	case models.ProviderOpenAI:
		return s.openai
	}
	return nil
}

// formFileBytes reads an optional multipart file; nil means the field was
// absent.
func formFileBytes(c *gin.Context, field string) ([]byte, error) {
	file, err := c.FormFile(field)
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, err
	}
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// formAudio decodes the "audio" upload into mono samples, picking a decoder
// by filename extension.
func formAudio(c *gin.Context) ([]float32, int32, error) {
	file, err := c.FormFile("audio")
	if err != nil {
		return nil, 0, fmt.Errorf("missing 'audio' form file: %w", err)
	}
	f, err := file.Open()
	if err != nil {
		return nil, 0, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, 0, fmt.Errorf("read upload: %w", err)
	}

	name := strings.ToLower(file.Filename)
	var samples []float32
	var sampleRate int32
	switch {
	case strings.HasSuffix(name, ".wav"):
		samples, sampleRate, err = wav.Decode(data)
	case strings.HasSuffix(name, ".opus"):
		samples, sampleRate, err = audio.DecodeOpus(data, 16000)
	default:
		return nil, 0, fmt.Errorf("unsupported audio format, send .wav or .opus")
	}
	if err != nil {
		return nil, 0, fmt.Errorf("decode audio: %w", err)
	}
	if len(samples) == 0 {
		return nil, 0, fmt.Errorf("empty audio")
	}
	return samples, sampleRate, nil
}

func roundMs(seconds float64) float64 {
	return math.Round(seconds*1000) / 1000
}
