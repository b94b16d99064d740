package meetings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Averytsai/meeting-ai-system/internal/models"
)

const meetingColumns = `id, created_by, room, COALESCE(topic,''), start_time, end_time, status,
	COALESCE(audio_path,''), COALESCE(transcript_path,''), COALESCE(summary_path,''), COALESCE(error_message,''),
	created_at, updated_at`

// Repository handles meeting and attendee persistence. Every stage-transition
// update is a single atomic statement (or one transaction for the end-meeting
// transition) so a concurrent status reader never observes a half-updated
// record.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a meetings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanMeeting(row pgx.Row) (*models.Meeting, error) {
	var m models.Meeting
	err := row.Scan(&m.ID, &m.CreatedBy, &m.Room, &m.Topic, &m.StartTime, &m.EndTime, &m.Status,
		&m.AudioPath, &m.TranscriptPath, &m.SummaryPath, &m.ErrorMessage, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a meeting in recording state together with its initial
// attendee list, in one transaction.
func (r *Repository) Create(ctx context.Context, m *models.Meeting, attendees []models.AttendeeCreate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO meetings (created_by, room, topic, start_time, status)
		VALUES ($1, $2, NULLIF($3,''), $4, $5)
		RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, q, m.CreatedBy, m.Room, m.Topic, m.StartTime, models.MeetingStatusRecording).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return err
	}
	m.Status = models.MeetingStatusRecording

	for _, a := range attendees {
		const aq = `INSERT INTO attendees (meeting_id, email, name)
			VALUES ($1, $2, NULLIF($3,'')) ON CONFLICT (meeting_id, email) DO NOTHING`
		if _, err := tx.Exec(ctx, aq, m.ID, a.Email, a.Name); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetByID returns a meeting by ID, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	m, err := scanMeeting(r.pool.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// ListByUser returns a user's meetings, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Meeting, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE created_by = $1 ORDER BY start_time DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMeetings(rows)
}

// ListCompletedByUserAndDate returns a user's completed meetings whose start
// time falls on the given UTC date, oldest first. Used by the admin overview.
func (r *Repository) ListCompletedByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]models.Meeting, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	rows, err := r.pool.Query(ctx,
		`SELECT `+meetingColumns+` FROM meetings
		WHERE created_by = $1 AND status = $2 AND start_time >= $3 AND start_time < $4
		ORDER BY start_time`,
		userID, models.MeetingStatusCompleted, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMeetings(rows)
}

// ListByUserAndDate returns a user's meetings on the given UTC date regardless
// of status, newest first.
func (r *Repository) ListByUserAndDate(ctx context.Context, userID uuid.UUID, date time.Time) ([]models.Meeting, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	rows, err := r.pool.Query(ctx,
		`SELECT `+meetingColumns+` FROM meetings
		WHERE created_by = $1 AND start_time >= $2 AND start_time < $3
		ORDER BY start_time DESC`,
		userID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMeetings(rows)
}

func collectMeetings(rows pgx.Rows) ([]models.Meeting, error) {
	var list []models.Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

// ListAttendees returns a meeting's attendees.
func (r *Repository) ListAttendees(ctx context.Context, meetingID uuid.UUID) ([]models.Attendee, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, meeting_id, email, COALESCE(name,''), email_sent, email_sent_at
		FROM attendees WHERE meeting_id = $1 ORDER BY id`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Attendee
	for rows.Next() {
		var a models.Attendee
		if err := rows.Scan(&a.ID, &a.MeetingID, &a.Email, &a.Name, &a.EmailSent, &a.EmailSentAt); err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// FinishRecording performs the end-of-meeting transition in one transaction:
// status recording -> processing, end time, audio path, and optionally the
// replaced attendee list. This is the trigger boundary that guarantees the
// pipeline is started at most once per meeting.
func (r *Repository) FinishRecording(ctx context.Context, id uuid.UUID, endTime time.Time, audioPath string, attendees []models.AttendeeCreate, replaceAttendees bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const q = `UPDATE meetings SET status = $1, end_time = $2, audio_path = $3, updated_at = NOW() WHERE id = $4`
	if _, err := tx.Exec(ctx, q, models.MeetingStatusProcessing, endTime, audioPath, id); err != nil {
		return err
	}

	if replaceAttendees {
		if _, err := tx.Exec(ctx, `DELETE FROM attendees WHERE meeting_id = $1`, id); err != nil {
			return err
		}
		for _, a := range attendees {
			const aq = `INSERT INTO attendees (meeting_id, email, name)
				VALUES ($1, $2, NULLIF($3,'')) ON CONFLICT (meeting_id, email) DO NOTHING`
			if _, err := tx.Exec(ctx, aq, id, a.Email, a.Name); err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

// SetTranscriptPath checkpoints the transcription stage.
func (r *Repository) SetTranscriptPath(ctx context.Context, id uuid.UUID, path string) error {
	const q = `UPDATE meetings SET transcript_path = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, path, id)
	return err
}

// SetSummaryPath checkpoints the summarization stage.
func (r *Repository) SetSummaryPath(ctx context.Context, id uuid.UUID, path string) error {
	const q = `UPDATE meetings SET summary_path = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, path, id)
	return err
}

// MarkAttendeesEmailed flags every attendee of the meeting as email-sent.
// Called as the dispatch stage postcondition.
func (r *Repository) MarkAttendeesEmailed(ctx context.Context, meetingID uuid.UUID, at time.Time) error {
	const q = `UPDATE attendees SET email_sent = TRUE, email_sent_at = $1 WHERE meeting_id = $2`
	_, err := r.pool.Exec(ctx, q, at, meetingID)
	return err
}

// MarkCompleted finalizes a successful pipeline run.
func (r *Repository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE meetings SET status = $1, error_message = NULL, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, models.MeetingStatusCompleted, id)
	return err
}

// MarkFailed records a stage failure verbatim and halts the lifecycle.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	const q = `UPDATE meetings SET status = $1, error_message = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, models.MeetingStatusFailed, errMsg, id)
	return err
}
