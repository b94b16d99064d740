package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.m4a")
	require.NoError(t, os.WriteFile(path, []byte("fake audio bytes"), 0o644))
	return path
}

func TestTranscribeSendsMultipartRequest(t *testing.T) {
	audioPath := writeTempAudio(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/audio/transcriptions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "whisper-1", r.FormValue("model"))
		require.Equal(t, "zh", r.FormValue("language"))
		require.Equal(t, "text", r.FormValue("response_format"))
		require.NotEmpty(t, r.FormValue("prompt"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "audio.m4a", header.Filename)

		w.Write([]byte("這是逐字稿。\n"))
	}))
	defer srv.Close()

	c := NewClient("test-key", "whisper-1", WithBaseURL(srv.URL))
	got, err := c.Transcribe(context.Background(), audioPath)
	require.NoError(t, err)
	require.Equal(t, "這是逐字稿。", got)
}

func TestTranscribeMissingAPIKey(t *testing.T) {
	c := NewClient("", "whisper-1")
	_, err := c.Transcribe(context.Background(), writeTempAudio(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "API key")
}

func TestTranscribeMissingFile(t *testing.T) {
	c := NewClient("test-key", "whisper-1")
	_, err := c.Transcribe(context.Background(), "/nonexistent/audio.m4a")
	require.Error(t, err)
	require.Contains(t, err.Error(), "audio file not found")
}

func TestTranscribeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limit"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("test-key", "whisper-1", WithBaseURL(srv.URL))
	_, err := c.Transcribe(context.Background(), writeTempAudio(t))
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP 429")
	require.Contains(t, err.Error(), "rate limit")
}
