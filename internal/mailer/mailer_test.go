package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Averytsai/meeting-ai-system/internal/models"
)

type fakeTransport struct {
	attempts []Attempt
	emails   []Email
	fail     map[string]error // keyed by mode
}

func (f *fakeTransport) Send(_ context.Context, a Attempt, email Email) error {
	f.attempts = append(f.attempts, a)
	f.emails = append(f.emails, email)
	if err, ok := f.fail[a.Mode]; ok {
		return err
	}
	return nil
}

func testMeeting() *models.Meeting {
	return &models.Meeting{
		ID:        uuid.New(),
		Room:      "A-101",
		StartTime: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
	}
}

func testAttendees() []models.Attendee {
	return []models.Attendee{
		{Email: "alice@example.com", Name: "Alice"},
		{Email: "bob@example.com"},
	}
}

func TestSendSummarySkipsWithoutCredentials(t *testing.T) {
	transport := &fakeTransport{}
	m := New(Config{Host: "smtp.example.com", Port: 587}, nil, WithTransport(transport))

	err := m.SendSummary(context.Background(), testMeeting(), testAttendees(), "# 會議摘要")
	require.NoError(t, err)
	require.Empty(t, transport.attempts)
}

func TestSendSummaryStartTLSSucceeds(t *testing.T) {
	transport := &fakeTransport{}
	m := New(Config{Host: "smtp.example.com", Port: 587, User: "bot@example.com", Password: "secret"}, nil, WithTransport(transport))

	err := m.SendSummary(context.Background(), testMeeting(), testAttendees(), "# 會議摘要\n\n重點")
	require.NoError(t, err)
	require.Len(t, transport.attempts, 1)
	require.Equal(t, ModeSTARTTLS, transport.attempts[0].Mode)
	require.Equal(t, 587, transport.attempts[0].Port)

	email := transport.emails[0]
	require.Equal(t, []string{"alice@example.com", "bob@example.com"}, email.To)
	require.Equal(t, "會議摘要 - A-101 (2025-03-14 10:00)", email.Subject)
	require.Contains(t, email.HTML, "<h1")
}

func TestSendSummaryFallsBackToImplicitTLS(t *testing.T) {
	transport := &fakeTransport{
		fail: map[string]error{ModeSTARTTLS: errors.New("connection reset")},
	}
	m := New(Config{Host: "smtp.example.com", Port: 587, User: "bot@example.com", Password: "secret"}, nil, WithTransport(transport))

	err := m.SendSummary(context.Background(), testMeeting(), testAttendees(), "summary")
	require.NoError(t, err)
	require.Len(t, transport.attempts, 2)
	require.Equal(t, ModeSSL, transport.attempts[1].Mode)
	require.Equal(t, 465, transport.attempts[1].Port)
}

func TestSendSummaryNoFallbackOnOtherPorts(t *testing.T) {
	transport := &fakeTransport{
		fail: map[string]error{ModeSSL: errors.New("auth failed")},
	}
	m := New(Config{Host: "smtp.example.com", Port: 2525, User: "bot@example.com", Password: "secret"}, nil, WithTransport(transport))

	err := m.SendSummary(context.Background(), testMeeting(), testAttendees(), "summary")
	require.Error(t, err)
	require.Len(t, transport.attempts, 1)
	require.Equal(t, 2525, transport.attempts[0].Port)
	require.Contains(t, err.Error(), "auth failed")
}

func TestSendSummaryAllAttemptsFail(t *testing.T) {
	transport := &fakeTransport{
		fail: map[string]error{
			ModeSTARTTLS: errors.New("timeout"),
			ModeSSL:      errors.New("refused"),
		},
	}
	m := New(Config{Host: "smtp.example.com", Port: 587, User: "bot@example.com", Password: "secret"}, nil, WithTransport(transport))

	err := m.SendSummary(context.Background(), testMeeting(), testAttendees(), "summary")
	require.Error(t, err)
	require.Contains(t, err.Error(), "timeout")
	require.Contains(t, err.Error(), "refused")
}

func TestNewStripsPasswordSpaces(t *testing.T) {
	m := New(Config{User: "bot@example.com", Password: "abcd efgh ijkl"}, nil)
	require.Equal(t, "abcdefghijkl", m.cfg.Password)
}

func TestRenderHTML(t *testing.T) {
	summary := "# 會議摘要\n\n日期：2025-03-14\n地點：A-101\n\n---\n\n## 會議重點\n第一點\n第二點"
	out := RenderHTML(summary)

	require.Contains(t, out, ">會議摘要</h1>")
	require.Contains(t, out, ">會議重點</h2>")
	require.Contains(t, out, "<hr")
	require.Contains(t, out, "日期：2025-03-14<br>地點：A-101")
	require.Contains(t, out, "第一點<br>第二點")
}

func TestRenderHTMLEscapesMarkup(t *testing.T) {
	out := RenderHTML("discussed <script>alert(1)</script>")
	require.NotContains(t, out, "<script>")
	require.Contains(t, out, "&lt;script&gt;")
}
