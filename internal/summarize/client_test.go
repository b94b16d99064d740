package summarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testRequest() Request {
	end := time.Date(2025, 3, 14, 11, 0, 0, 0, time.UTC)
	return Request{
		Transcript: "大家好，今天討論第二季的預算。",
		Room:       "A-101",
		StartTime:  time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
		EndTime:    &end,
		Attendees: []Attendee{
			{Email: "alice@example.com", Name: "Alice"},
			{Email: "bob@example.com", Name: "bob"},
		},
	}
}

func TestSummarizeSendsChatRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "gpt-4o", req.Model)
		require.InDelta(t, 0.3, req.Temperature, 0.001)
		require.Equal(t, 2000, req.MaxTokens)
		require.Len(t, req.Messages, 2)
		require.Equal(t, "system", req.Messages[0].Role)
		require.Equal(t, "user", req.Messages[1].Role)

		user := req.Messages[1].Content
		require.Contains(t, user, "A-101")
		require.Contains(t, user, "2025-03-14 10:00")
		require.Contains(t, user, "Alice (alice@example.com)")
		require.Contains(t, user, "大家好，今天討論第二季的預算。")
		require.Contains(t, user, SectionKeyPoints)
		require.Contains(t, user, SectionActionItems)

		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{
				{Message: chatMessage{Role: "assistant", Content: "# 會議摘要\n\n內容"}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient("test-key", "gpt-4o", WithBaseURL(srv.URL))
	got, err := c.Summarize(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, "# 會議摘要\n\n內容", got)
}

func TestSummarizeRejectsEmptyTranscript(t *testing.T) {
	c := NewClient("test-key", "gpt-4o")
	req := testRequest()
	req.Transcript = "   \n"
	_, err := c.Summarize(context.Background(), req)
	require.Error(t, err)
	require.Contains(t, err.Error(), "transcript is empty")
}

func TestSummarizeMissingAPIKey(t *testing.T) {
	c := NewClient("", "gpt-4o")
	_, err := c.Summarize(context.Background(), testRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "API key")
}

func TestSummarizeNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", "gpt-4o", WithBaseURL(srv.URL))
	_, err := c.Summarize(context.Background(), testRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no choices")
}

func TestSummarizeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "context length exceeded", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient("test-key", "gpt-4o", WithBaseURL(srv.URL))
	_, err := c.Summarize(context.Background(), testRequest())
	require.Error(t, err)
	require.Contains(t, err.Error(), "HTTP 400")
}

func TestBuildPromptWithoutEndTime(t *testing.T) {
	req := testRequest()
	req.EndTime = nil
	prompt := buildPrompt(req)
	require.Contains(t, prompt, "未知")
	require.Contains(t, prompt, SectionDecisions)
}
