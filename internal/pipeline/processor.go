// Package pipeline runs the three-stage meeting processing workflow:
// transcription, summarization and email dispatch, checkpointing progress on
// the meeting record after every stage.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Averytsai/meeting-ai-system/internal/models"
	"github.com/Averytsai/meeting-ai-system/internal/summarize"
	"github.com/Averytsai/meeting-ai-system/pkg/queue"
)

// Precondition errors. These are returned before any stage runs, leave the
// meeting record untouched and must not be retried.
var (
	ErrMeetingNotFound = errors.New("meeting not found")
	ErrNotProcessing   = errors.New("meeting is not in processing status")
	ErrNoAudio         = errors.New("meeting has no audio recording")
)

// MeetingStore is the durable record store the pipeline checkpoints into.
// Implemented by the meetings repository.
type MeetingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error)
	ListAttendees(ctx context.Context, meetingID uuid.UUID) ([]models.Attendee, error)
	SetTranscriptPath(ctx context.Context, id uuid.UUID, path string) error
	SetSummaryPath(ctx context.Context, id uuid.UUID, path string) error
	MarkAttendeesEmailed(ctx context.Context, meetingID uuid.UUID, at time.Time) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}

// ArtifactStore persists stage outputs and returns their paths.
type ArtifactStore interface {
	SaveTranscript(meetingID, text string) (string, error)
	SaveSummary(meetingID, text string) (string, error)
}

// Transcriber converts an audio recording into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Summarizer produces the summary document from a transcript and meeting metadata.
type Summarizer interface {
	Summarize(ctx context.Context, req summarize.Request) (string, error)
}

// Dispatcher delivers the summary to attendees. A nil error means the stage
// succeeded, which includes the deliberate no-op skip when mail transport is
// not configured.
type Dispatcher interface {
	SendSummary(ctx context.Context, meeting *models.Meeting, attendees []models.Attendee, summary string) error
}

// ArchiveEnqueuer schedules raw-audio archival after a successful run.
// Satisfied by *queue.Queue; nil disables archival.
type ArchiveEnqueuer interface {
	EnqueueAudioArchive(ctx context.Context, payload queue.AudioArchivePayload) error
}

// Processor orchestrates one pipeline run per meeting. It assumes at most one
// run per meeting id is active at a time; the end-meeting trigger enqueues
// exactly one job and completed/failed are terminal states, so a second run
// is rejected by the precondition check.
type Processor struct {
	store        MeetingStore
	artifacts    ArtifactStore
	transcriber  Transcriber
	summarizer   Summarizer
	dispatcher   Dispatcher
	archive      ArchiveEnqueuer
	logger       *zap.Logger
	stageTimeout time.Duration
}

// NewProcessor creates a pipeline processor. stageTimeout bounds each stage
// call; zero disables the bound.
func NewProcessor(store MeetingStore, artifacts ArtifactStore, t Transcriber, s Summarizer, d Dispatcher, archive ArchiveEnqueuer, stageTimeout time.Duration, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		store:        store,
		artifacts:    artifacts,
		transcriber:  t,
		summarizer:   s,
		dispatcher:   d,
		archive:      archive,
		logger:       logger,
		stageTimeout: stageTimeout,
	}
}

// Process runs the full pipeline for one meeting. Stage failures are
// persisted on the meeting record (status failed, verbatim error message)
// before the error is returned; precondition failures are returned without
// mutating the record. Either way the returned error is for logging only —
// the run must not be repeated.
func (p *Processor) Process(ctx context.Context, meetingID uuid.UUID) error {
	m, err := p.store.GetByID(ctx, meetingID)
	if err != nil {
		return fmt.Errorf("load meeting: %w", err)
	}
	if m == nil {
		return ErrMeetingNotFound
	}
	if m.Status != models.MeetingStatusProcessing {
		return fmt.Errorf("%w: status is %s", ErrNotProcessing, m.Status)
	}
	if m.AudioPath == "" {
		return ErrNoAudio
	}

	logger := p.logger.With(zap.String("meeting_id", meetingID.String()))
	logger.Info("pipeline started", zap.String("audio_path", m.AudioPath))

	// Stage 1/3: transcription.
	transcript, err := p.runTranscription(ctx, m)
	if err != nil {
		return p.fail(ctx, meetingID, logger, "transcription", err)
	}
	logger.Info("transcription completed", zap.Int("transcript_chars", len(transcript)))

	// Stage 2/3: summarization.
	summary, err := p.runSummarization(ctx, m, transcript)
	if err != nil {
		return p.fail(ctx, meetingID, logger, "summarization", err)
	}
	logger.Info("summary generated", zap.Int("summary_chars", len(summary)))

	// Stage 3/3: email dispatch.
	if err := p.runDispatch(ctx, m, summary); err != nil {
		return p.fail(ctx, meetingID, logger, "email dispatch", err)
	}

	if err := p.store.MarkCompleted(ctx, meetingID); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	logger.Info("pipeline completed")

	if p.archive != nil {
		if err := p.archive.EnqueueAudioArchive(ctx, queue.AudioArchivePayload{
			MeetingID: meetingID,
			AudioPath: m.AudioPath,
		}); err != nil {
			logger.Warn("enqueue audio archive failed", zap.Error(err))
		}
	}
	return nil
}

func (p *Processor) runTranscription(ctx context.Context, m *models.Meeting) (string, error) {
	stageCtx, cancel := p.stageContext(ctx)
	defer cancel()

	transcript, err := p.transcriber.Transcribe(stageCtx, m.AudioPath)
	if err != nil {
		return "", err
	}
	path, err := p.artifacts.SaveTranscript(m.ID.String(), transcript)
	if err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}
	// Checkpoint: the transcript path is visible to status queries before
	// summarization starts.
	if err := p.store.SetTranscriptPath(ctx, m.ID, path); err != nil {
		return "", fmt.Errorf("persist transcript path: %w", err)
	}
	m.TranscriptPath = path
	return transcript, nil
}

func (p *Processor) runSummarization(ctx context.Context, m *models.Meeting, transcript string) (string, error) {
	attendees, err := p.store.ListAttendees(ctx, m.ID)
	if err != nil {
		return "", fmt.Errorf("load attendees: %w", err)
	}

	req := summarize.Request{
		Transcript: transcript,
		Room:       m.Room,
		StartTime:  m.StartTime,
		EndTime:    m.EndTime,
	}
	for _, a := range attendees {
		req.Attendees = append(req.Attendees, summarize.Attendee{Email: a.Email, Name: a.DisplayName()})
	}

	stageCtx, cancel := p.stageContext(ctx)
	defer cancel()
	summary, err := p.summarizer.Summarize(stageCtx, req)
	if err != nil {
		return "", err
	}

	path, err := p.artifacts.SaveSummary(m.ID.String(), summary)
	if err != nil {
		return "", fmt.Errorf("save summary: %w", err)
	}
	if err := p.store.SetSummaryPath(ctx, m.ID, path); err != nil {
		return "", fmt.Errorf("persist summary path: %w", err)
	}
	m.SummaryPath = path
	return summary, nil
}

func (p *Processor) runDispatch(ctx context.Context, m *models.Meeting, summary string) error {
	attendees, err := p.store.ListAttendees(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("load attendees: %w", err)
	}

	stageCtx, cancel := p.stageContext(ctx)
	defer cancel()
	if err := p.dispatcher.SendSummary(stageCtx, m, attendees, summary); err != nil {
		return err
	}

	// Dispatch postcondition: every attendee is marked email-sent once the
	// stage reports success, including the development-mode skip.
	if err := p.store.MarkAttendeesEmailed(ctx, m.ID, time.Now()); err != nil {
		return fmt.Errorf("mark attendees emailed: %w", err)
	}
	return nil
}

func (p *Processor) fail(ctx context.Context, meetingID uuid.UUID, logger *zap.Logger, stage string, stageErr error) error {
	logger.Error("pipeline stage failed", zap.String("stage", stage), zap.Error(stageErr))
	if err := p.store.MarkFailed(ctx, meetingID, stageErr.Error()); err != nil {
		logger.Error("mark failed did not persist", zap.Error(err))
	}
	return fmt.Errorf("%s: %w", stage, stageErr)
}

func (p *Processor) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.stageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.stageTimeout)
}
