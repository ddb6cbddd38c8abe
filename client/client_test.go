package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzeHandler(t *testing.T, check func(r *http.Request), resp AnalysisResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/analyze", r.URL.Path)
		if check != nil {
			check(r)
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func TestAnalyzeSendsMultipart(t *testing.T) {
	var gotImage, gotAudio []byte
	var gotQuery, gotAuth, gotAudioName string

	ts := httptest.NewServer(analyzeHandler(t, func(r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseMultipartForm(64<<20))

		img, _, err := r.FormFile("image")
		require.NoError(t, err)
		gotImage, _ = io.ReadAll(img)

		aud, header, err := r.FormFile("audio")
		require.NoError(t, err)
		gotAudio, _ = io.ReadAll(aud)
		gotAudioName = header.Filename

		gotQuery = r.FormValue("query")
	}, AnalysisResponse{Answer: "retreat", Model: "claude-4-sonnet"}))
	defer ts.Close()

	c := New(ts.URL, WithToken("tok"))
	resp, err := c.Analyze([]byte("png"), []byte("wav"), "question.wav", "help")
	require.NoError(t, err)

	assert.Equal(t, "retreat", resp.Answer)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, []byte("png"), gotImage)
	assert.Equal(t, []byte("wav"), gotAudio)
	assert.Equal(t, "question.wav", gotAudioName)
	assert.Equal(t, "help", gotQuery)
}

func TestAnalyzeQueryParams(t *testing.T) {
	ts := httptest.NewServer(analyzeHandler(t, func(r *http.Request) {
		assert.Equal(t, "gpt-4o", r.URL.Query().Get("model"))
		assert.Equal(t, "true", r.URL.Query().Get("speak"))
	}, AnalysisResponse{}))
	defer ts.Close()

	c := New(ts.URL, WithModel("gpt-4o"), WithSpeak(true))
	_, err := c.Analyze([]byte("png"), nil, "", "q")
	require.NoError(t, err)
}

func TestAnalyzeDefaultsAudioName(t *testing.T) {
	ts := httptest.NewServer(analyzeHandler(t, func(r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(64<<20))
		_, header, err := r.FormFile("audio")
		require.NoError(t, err)
		assert.Equal(t, "question.wav", header.Filename)
	}, AnalysisResponse{}))
	defer ts.Close()

	_, err := New(ts.URL).Analyze(nil, []byte("wav"), "", "")
	require.NoError(t, err)
}

func TestAnalyzeNothingToSend(t *testing.T) {
	_, err := New("http://unused").Analyze(nil, nil, "", "")
	assert.Error(t, err)
}

func TestAnalyzeServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := New(ts.URL).Analyze([]byte("png"), nil, "", "q")
	assert.ErrorContains(t, err, "500")
	assert.ErrorContains(t, err, "boom")
}

func TestTranscribe(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/stt", r.URL.Path)
		json.NewEncoder(w).Encode(TranscriptResponse{Text: "hello"})
	}))
	defer ts.Close()

	resp, err := New(ts.URL).Transcribe([]byte("wav"), "q.wav")
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
}

func TestModelsList(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/models", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode(map[string]any{
			"models": map[string][]string{"claude": {"claude-4-sonnet"}},
		})
	}))
	defer ts.Close()

	models, err := New(ts.URL).Models()
	require.NoError(t, err)
	assert.Equal(t, []string{"claude-4-sonnet"}, models["claude"])
}

func TestTrailingSlashTrimmed(t *testing.T) {
	ts := httptest.NewServer(analyzeHandler(t, nil, AnalysisResponse{}))
	defer ts.Close()

	_, err := New(ts.URL + "/").Analyze([]byte("png"), nil, "", "q")
	require.NoError(t, err)
}
