package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamecoach-ai/gamecoach/internal/wav"
)

type fakeAnalyzer struct {
	answer    string
	err       error
	gotModel  string
	gotPrompt string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ []byte, question, model string) (string, error) {
	f.gotPrompt = question
	f.gotModel = model
	return f.answer, f.err
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ []byte) (string, error) {
	return f.text, f.err
}

type fakeSpeaker struct {
	speech []byte
	err    error
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) ([]byte, error) {
	return f.speech, f.err
}

type fakeCaptioner struct{ caption string }

func (f *fakeCaptioner) Caption(_ context.Context, _ []byte) (string, error) {
	return f.caption, nil
}

func newTestServer(t *testing.T, mutate func(*Server)) *httptest.Server {
	t.Helper()
	s := New(&Config{Addr: ":0"}, nil)
	s.claude = &fakeAnalyzer{answer: "flank left"}
	s.openai = &fakeAnalyzer{answer: "push mid"}
	s.stt = &fakeTranscriber{text: "what should I do"}
	if mutate != nil {
		mutate(s)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type multipartBody struct {
	buf    bytes.Buffer
	writer *multipart.Writer
}

func newMultipart() *multipartBody {
	m := &multipartBody{}
	m.writer = multipart.NewWriter(&m.buf)
	return m
}

func (m *multipartBody) file(field, name string, data []byte) *multipartBody {
	part, _ := m.writer.CreateFormFile(field, name)
	part.Write(data)
	return m
}

func (m *multipartBody) field(name, value string) *multipartBody {
	m.writer.WriteField(name, value)
	return m
}

func (m *multipartBody) post(t *testing.T, url string) *http.Response {
	t.Helper()
	m.writer.Close()
	resp, err := http.Post(url, m.writer.FormDataContentType(), &m.buf)
	require.NoError(t, err)
	return resp
}

func pngStub() []byte {
	return []byte("\x89PNG\r\n\x1a\nfake")
}

func wavStub() []byte {
	return wav.Encode(make([]float32, 16000), 16000)
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAnalyzeWithTypedQuery(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := newMultipart().
		file("image", "screenshot.png", pngStub()).
		field("query", "which lane is open").
		post(t, ts.URL+"/api/v1/analyze")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[AnalysisResponse](t, resp)
	assert.Equal(t, "which lane is open", body.Question)
	assert.Equal(t, "flank left", body.Answer)
	assert.Equal(t, "claude-4-sonnet", body.Model)
	assert.Equal(t, "anthropic", body.Provider)
	assert.NotEmpty(t, body.RequestID)
	assert.Empty(t, body.Speech)
	assert.Zero(t, body.AudioDuration)
}

func TestAnalyzeWithSpokenQuestion(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := newMultipart().
		file("image", "screenshot.png", pngStub()).
		file("audio", "question.wav", wavStub()).
		post(t, ts.URL+"/api/v1/analyze")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[AnalysisResponse](t, resp)
	assert.Equal(t, "what should I do", body.Question)
	assert.Equal(t, "flank left", body.Answer)
	assert.Equal(t, 1.0, body.AudioDuration)
}

func TestAnalyzeRoutesOpenAI(t *testing.T) {
	fake := &fakeAnalyzer{answer: "push mid"}
	ts := newTestServer(t, func(s *Server) { s.openai = fake })

	resp := newMultipart().
		file("image", "s.png", pngStub()).
		field("query", "q").
		post(t, ts.URL+"/api/v1/analyze?model=gpt-4o")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[AnalysisResponse](t, resp)
	assert.Equal(t, "push mid", body.Answer)
	assert.Equal(t, "gpt-4o", body.Model)
	assert.Equal(t, "openai", body.Provider)
	assert.Equal(t, "gpt-4o", fake.gotModel)
}

func TestAnalyzeUnknownModelFallsBack(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := newMultipart().
		file("image", "s.png", pngStub()).
		field("query", "q").
		post(t, ts.URL+"/api/v1/analyze?model=claude-nonsense")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[AnalysisResponse](t, resp)
	assert.Equal(t, "claude-4-sonnet", body.Model)
}

func TestAnalyzeSpeak(t *testing.T) {
	ts := newTestServer(t, func(s *Server) {
		s.tts = &fakeSpeaker{speech: []byte("RIFFwav")}
	})

	resp := newMultipart().
		file("image", "s.png", pngStub()).
		field("query", "q").
		post(t, ts.URL+"/api/v1/analyze?speak=true")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[AnalysisResponse](t, resp)
	assert.Equal(t, []byte("RIFFwav"), body.Speech)
}

func TestAnalyzeSpeakFailureStillAnswers(t *testing.T) {
	ts := newTestServer(t, func(s *Server) {
		s.tts = &fakeSpeaker{err: errors.New("tts down")}
	})

	resp := newMultipart().
		file("image", "s.png", pngStub()).
		field("query", "q").
		post(t, ts.URL+"/api/v1/analyze?speak=true")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[AnalysisResponse](t, resp)
	assert.Equal(t, "flank left", body.Answer)
	assert.Empty(t, body.Speech)
}

func TestAnalyzeMissingImage(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := newMultipart().field("query", "q").post(t, ts.URL+"/api/v1/analyze")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeNoQuestionAtAll(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := newMultipart().
		file("image", "s.png", pngStub()).
		post(t, ts.URL+"/api/v1/analyze")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeProviderUnavailable(t *testing.T) {
	ts := newTestServer(t, func(s *Server) { s.claude = nil })

	resp := newMultipart().
		file("image", "s.png", pngStub()).
		field("query", "q").
		post(t, ts.URL+"/api/v1/analyze?model=claude-4-opus")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAnalyzeAnalysisError(t *testing.T) {
	ts := newTestServer(t, func(s *Server) {
		s.claude = &fakeAnalyzer{err: fmt.Errorf("api down")}
	})

	resp := newMultipart().
		file("image", "s.png", pngStub()).
		field("query", "q").
		post(t, ts.URL+"/api/v1/analyze")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestSTT(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := newMultipart().
		file("audio", "question.wav", wavStub()).
		post(t, ts.URL+"/api/v1/stt")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[TranscriptResponse](t, resp)
	assert.Equal(t, "what should I do", body.Text)
	assert.Equal(t, 1.0, body.AudioDuration)
}

func TestSTTUnsupportedFormat(t *testing.T) {
	ts := newTestServer(t, nil)

	resp := newMultipart().
		file("audio", "question.mp3", []byte("mp3data")).
		post(t, ts.URL+"/api/v1/stt")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSTTNotConfigured(t *testing.T) {
	ts := newTestServer(t, func(s *Server) { s.stt = nil })

	resp := newMultipart().
		file("audio", "question.wav", wavStub()).
		post(t, ts.URL+"/api/v1/stt")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestTTS(t *testing.T) {
	ts := newTestServer(t, func(s *Server) {
		s.tts = &fakeSpeaker{speech: []byte("RIFFwav")}
	})

	resp := newMultipart().field("text", "go left").post(t, ts.URL+"/api/v1/tts")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/wav", resp.Header.Get("Content-Type"))
}

func TestCaption(t *testing.T) {
	ts := newTestServer(t, func(s *Server) {
		s.caption = &fakeCaptioner{caption: "a battlefield at dusk"}
	})

	resp := newMultipart().
		file("image", "s.png", pngStub()).
		post(t, ts.URL+"/api/v1/caption")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[map[string]string](t, resp)
	assert.Equal(t, "a battlefield at dusk", body["caption"])
}

func TestModels(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/v1/models")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeJSON[struct {
		Models  map[string][]string `json:"models"`
		Default string              `json:"default"`
	}](t, resp)
	assert.Contains(t, body.Models["claude"], "claude-4-sonnet")
	assert.Contains(t, body.Models["openai"], "gpt-4o")
	assert.Equal(t, "claude-4-sonnet", body.Default)
}

func TestAuthRequired(t *testing.T) {
	s := New(&Config{Addr: ":0", Token: "secret"}, nil)
	s.claude = &fakeAnalyzer{answer: "ok"}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	// Health stays open.
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/v1/models")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/models", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
