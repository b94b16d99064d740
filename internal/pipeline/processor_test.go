package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Averytsai/meeting-ai-system/internal/models"
	"github.com/Averytsai/meeting-ai-system/internal/summarize"
	"github.com/Averytsai/meeting-ai-system/pkg/queue"
)

type fakeStore struct {
	meeting   *models.Meeting
	attendees []models.Attendee

	transcriptPath string
	summaryPath    string
	emailedAt      *time.Time
	completed      bool
	failedMsg      string
	failed         bool

	// calls records mutation order for checkpoint assertions.
	calls []string
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Meeting, error) {
	if s.meeting == nil || s.meeting.ID != id {
		return nil, nil
	}
	return s.meeting, nil
}

func (s *fakeStore) ListAttendees(context.Context, uuid.UUID) ([]models.Attendee, error) {
	return s.attendees, nil
}

func (s *fakeStore) SetTranscriptPath(_ context.Context, _ uuid.UUID, path string) error {
	s.transcriptPath = path
	s.calls = append(s.calls, "transcript")
	return nil
}

func (s *fakeStore) SetSummaryPath(_ context.Context, _ uuid.UUID, path string) error {
	s.summaryPath = path
	s.calls = append(s.calls, "summary")
	return nil
}

func (s *fakeStore) MarkAttendeesEmailed(_ context.Context, _ uuid.UUID, at time.Time) error {
	s.emailedAt = &at
	s.calls = append(s.calls, "emailed")
	return nil
}

func (s *fakeStore) MarkCompleted(context.Context, uuid.UUID) error {
	s.completed = true
	s.calls = append(s.calls, "completed")
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, _ uuid.UUID, msg string) error {
	s.failed = true
	s.failedMsg = msg
	s.calls = append(s.calls, "failed")
	return nil
}

type fakeArtifacts struct {
	transcripts map[string]string
	summaries   map[string]string
}

func newFakeArtifacts() *fakeArtifacts {
	return &fakeArtifacts{transcripts: map[string]string{}, summaries: map[string]string{}}
}

func (a *fakeArtifacts) SaveTranscript(meetingID, text string) (string, error) {
	a.transcripts[meetingID] = text
	return "/data/" + meetingID + "/transcript.txt", nil
}

func (a *fakeArtifacts) SaveSummary(meetingID, text string) (string, error) {
	a.summaries[meetingID] = text
	return "/data/" + meetingID + "/summary.md", nil
}

type fakeTranscriber struct {
	transcript string
	err        error
	calls      int
}

func (t *fakeTranscriber) Transcribe(context.Context, string) (string, error) {
	t.calls++
	return t.transcript, t.err
}

type fakeSummarizer struct {
	summary string
	err     error
	gotReq  *summarize.Request
}

func (s *fakeSummarizer) Summarize(_ context.Context, req summarize.Request) (string, error) {
	s.gotReq = &req
	return s.summary, s.err
}

type fakeDispatcher struct {
	err        error
	gotSummary string
	calls      int
}

func (d *fakeDispatcher) SendSummary(_ context.Context, _ *models.Meeting, _ []models.Attendee, summary string) error {
	d.calls++
	d.gotSummary = summary
	return d.err
}

type fakeArchiver struct {
	payloads []queue.AudioArchivePayload
}

func (a *fakeArchiver) EnqueueAudioArchive(_ context.Context, p queue.AudioArchivePayload) error {
	a.payloads = append(a.payloads, p)
	return nil
}

func processingMeeting() *models.Meeting {
	return &models.Meeting{
		ID:        uuid.New(),
		Room:      "A-101",
		Status:    models.MeetingStatusProcessing,
		AudioPath: "/data/audio.m4a",
		StartTime: time.Now(),
	}
}

func newTestProcessor(store *fakeStore, t Transcriber, s Summarizer, d Dispatcher, archive ArchiveEnqueuer) *Processor {
	return NewProcessor(store, newFakeArtifacts(), t, s, d, archive, 0, nil)
}

func TestProcessHappyPath(t *testing.T) {
	store := &fakeStore{
		meeting:   processingMeeting(),
		attendees: []models.Attendee{{Email: "alice@example.com", Name: "Alice"}},
	}
	transcriber := &fakeTranscriber{transcript: "逐字稿內容"}
	summarizer := &fakeSummarizer{summary: "# 會議摘要"}
	dispatcher := &fakeDispatcher{}
	archiver := &fakeArchiver{}

	p := newTestProcessor(store, transcriber, summarizer, dispatcher, archiver)
	err := p.Process(context.Background(), store.meeting.ID)
	require.NoError(t, err)

	require.True(t, store.completed)
	require.False(t, store.failed)
	require.NotEmpty(t, store.transcriptPath)
	require.NotEmpty(t, store.summaryPath)
	require.NotNil(t, store.emailedAt)
	require.Equal(t, "# 會議摘要", dispatcher.gotSummary)

	// Checkpoints land in stage order, attendees before completion.
	require.Equal(t, []string{"transcript", "summary", "emailed", "completed"}, store.calls)

	require.Len(t, archiver.payloads, 1)
	require.Equal(t, store.meeting.ID, archiver.payloads[0].MeetingID)
	require.Equal(t, "/data/audio.m4a", archiver.payloads[0].AudioPath)
}

func TestProcessTranscriptionFailure(t *testing.T) {
	store := &fakeStore{meeting: processingMeeting()}
	transcriber := &fakeTranscriber{err: errors.New("transcription API error (HTTP 500): boom")}
	summarizer := &fakeSummarizer{summary: "unused"}
	dispatcher := &fakeDispatcher{}

	p := newTestProcessor(store, transcriber, summarizer, dispatcher, nil)
	err := p.Process(context.Background(), store.meeting.ID)
	require.Error(t, err)

	require.True(t, store.failed)
	require.Equal(t, "transcription API error (HTTP 500): boom", store.failedMsg)
	require.False(t, store.completed)
	require.Empty(t, store.transcriptPath)
	require.Empty(t, store.summaryPath)
	require.Nil(t, store.emailedAt)
	require.Nil(t, summarizer.gotReq)
	require.Zero(t, dispatcher.calls)
}

func TestProcessSummarizationFailureKeepsTranscript(t *testing.T) {
	store := &fakeStore{meeting: processingMeeting()}
	transcriber := &fakeTranscriber{transcript: "text"}
	summarizer := &fakeSummarizer{err: errors.New("no choices in text generation response")}
	dispatcher := &fakeDispatcher{}

	p := newTestProcessor(store, transcriber, summarizer, dispatcher, nil)
	err := p.Process(context.Background(), store.meeting.ID)
	require.Error(t, err)

	require.NotEmpty(t, store.transcriptPath)
	require.Empty(t, store.summaryPath)
	require.True(t, store.failed)
	require.Equal(t, "no choices in text generation response", store.failedMsg)
	require.Zero(t, dispatcher.calls)
}

func TestProcessDispatchFailureKeepsArtifacts(t *testing.T) {
	store := &fakeStore{
		meeting:   processingMeeting(),
		attendees: []models.Attendee{{Email: "a@example.com"}},
	}
	transcriber := &fakeTranscriber{transcript: "text"}
	summarizer := &fakeSummarizer{summary: "summary"}
	dispatcher := &fakeDispatcher{err: errors.New("all smtp delivery attempts failed")}
	archiver := &fakeArchiver{}

	p := newTestProcessor(store, transcriber, summarizer, dispatcher, archiver)
	err := p.Process(context.Background(), store.meeting.ID)
	require.Error(t, err)

	require.NotEmpty(t, store.transcriptPath)
	require.NotEmpty(t, store.summaryPath)
	require.True(t, store.failed)
	require.Nil(t, store.emailedAt)
	require.False(t, store.completed)
	require.Empty(t, archiver.payloads)
}

func TestProcessPassesMeetingMetadataToSummarizer(t *testing.T) {
	meeting := processingMeeting()
	end := meeting.StartTime.Add(time.Hour)
	meeting.EndTime = &end
	store := &fakeStore{
		meeting: meeting,
		attendees: []models.Attendee{
			{Email: "alice@example.com", Name: "Alice"},
			{Email: "bob@example.com"},
		},
	}
	transcriber := &fakeTranscriber{transcript: "text"}
	summarizer := &fakeSummarizer{summary: "summary"}

	p := newTestProcessor(store, transcriber, summarizer, &fakeDispatcher{}, nil)
	require.NoError(t, p.Process(context.Background(), meeting.ID))

	require.NotNil(t, summarizer.gotReq)
	require.Equal(t, "text", summarizer.gotReq.Transcript)
	require.Equal(t, "A-101", summarizer.gotReq.Room)
	require.Equal(t, []summarize.Attendee{
		{Email: "alice@example.com", Name: "Alice"},
		{Email: "bob@example.com", Name: "bob"},
	}, summarizer.gotReq.Attendees)
}

func TestProcessPreconditions(t *testing.T) {
	transcriber := &fakeTranscriber{transcript: "text"}

	t.Run("meeting not found", func(t *testing.T) {
		store := &fakeStore{}
		p := newTestProcessor(store, transcriber, &fakeSummarizer{}, &fakeDispatcher{}, nil)
		err := p.Process(context.Background(), uuid.New())
		require.ErrorIs(t, err, ErrMeetingNotFound)
		require.False(t, store.failed)
	})

	t.Run("not processing", func(t *testing.T) {
		m := processingMeeting()
		m.Status = models.MeetingStatusCompleted
		store := &fakeStore{meeting: m}
		p := newTestProcessor(store, transcriber, &fakeSummarizer{}, &fakeDispatcher{}, nil)
		err := p.Process(context.Background(), m.ID)
		require.ErrorIs(t, err, ErrNotProcessing)
		// Terminal states are left untouched so a duplicate job cannot
		// clobber a finished meeting.
		require.False(t, store.failed)
		require.False(t, store.completed)
		require.Zero(t, transcriber.calls)
	})

	t.Run("no audio", func(t *testing.T) {
		m := processingMeeting()
		m.AudioPath = ""
		store := &fakeStore{meeting: m}
		p := newTestProcessor(store, transcriber, &fakeSummarizer{}, &fakeDispatcher{}, nil)
		err := p.Process(context.Background(), m.ID)
		require.ErrorIs(t, err, ErrNoAudio)
		require.False(t, store.failed)
	})
}

func TestProcessNilArchiverSkipsArchival(t *testing.T) {
	store := &fakeStore{meeting: processingMeeting()}
	p := newTestProcessor(store, &fakeTranscriber{transcript: "t"}, &fakeSummarizer{summary: "s"}, &fakeDispatcher{}, nil)
	require.NoError(t, p.Process(context.Background(), store.meeting.ID))
	require.True(t, store.completed)
}
