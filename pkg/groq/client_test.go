package groq

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return NewClient(Config{
		BaseURL:            url,
		APIKey:             "gsk-test",
		TranscriptionModel: "whisper-large-v3-turbo",
		ChatModel:          "llama-3.1-8b-instant",
		Timeout:            5 * time.Second,
	})
}

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "whisper-large-v3-turbo", r.FormValue("model"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		assert.Equal(t, "en", r.FormValue("language"))
		assert.Equal(t, []string{"word", "segment"}, r.MultipartForm.Value["timestamp_granularities[]"])

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "dream.webm", hdr.Filename)
		assert.Equal(t, []byte("audio-bytes"), data)

		_, _ = w.Write([]byte(`{"text":" I was flying","language":"english","duration":4.2,
			"segments":[{"id":0,"start":0,"end":4.2,"text":" I was flying"}],
			"words":[{"word":"I","start":0,"end":0.3}]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).Transcribe(context.Background(), "dream.webm", []byte("audio-bytes"))
	require.NoError(t, err)
	assert.Equal(t, " I was flying", out.Text)
	assert.Equal(t, 4.2, out.Duration)
	require.Len(t, out.Segments, 1)
	require.Len(t, out.Words, 1)
}

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama-3.1-8b-instant", req.Model)
		assert.Equal(t, 5, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, RoleSystem, req.Messages[0].Role)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  🕊️ \n"}}]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "sys"},
		{Role: RoleUser, Content: "hi"},
	}, ChatOptions{Temperature: 0.1, MaxTokens: 5})
	require.NoError(t, err)
	assert.Equal(t, "🕊️", out)
}

func TestChat_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(srv.URL).Chat(context.Background(), nil, ChatOptions{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit reached"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Chat(context.Background(), nil, ChatOptions{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "rate limit reached", apiErr.Message)
}

func TestLimiterHonoursContext(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, RequestsPerSecond: 0.001, Burst: 1})
	_, err := c.Chat(context.Background(), nil, ChatOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Chat(ctx, nil, ChatOptions{})
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
