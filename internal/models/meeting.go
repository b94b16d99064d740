package models

import (
	"time"

	"github.com/google/uuid"
)

// MeetingStatus represents the meeting lifecycle.
type MeetingStatus string

const (
	MeetingStatusRecording  MeetingStatus = "recording"
	MeetingStatusUploading  MeetingStatus = "uploading"
	MeetingStatusProcessing MeetingStatus = "processing"
	MeetingStatusCompleted  MeetingStatus = "completed"
	MeetingStatusFailed     MeetingStatus = "failed"
)

// StepState is the state of one processing step in the status view.
type StepState string

const (
	StepPending    StepState = "pending"
	StepInProgress StepState = "in_progress"
	StepCompleted  StepState = "completed"
	StepFailed     StepState = "failed"
)

// ProcessingSteps is the four-slot step view derived from persisted fields.
type ProcessingSteps struct {
	Upload        StepState `json:"upload"`
	Transcription StepState `json:"transcription"`
	Summary       StepState `json:"summary"`
	Email         StepState `json:"email"`
}

// Meeting is one recorded session with a lifecycle from creation to
// completed/failed processing. Artifact paths are set stage by stage;
// summary_path is only ever set after transcript_path.
type Meeting struct {
	ID             uuid.UUID     `json:"id"`
	CreatedBy      uuid.UUID     `json:"created_by,omitempty"`
	Room           string        `json:"room"`
	Topic          string        `json:"topic,omitempty"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        *time.Time    `json:"end_time,omitempty"`
	Status         MeetingStatus `json:"status"`
	AudioPath      string        `json:"audio_path,omitempty"`
	TranscriptPath string        `json:"transcript_path,omitempty"`
	SummaryPath    string        `json:"summary_path,omitempty"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Attendee is a meeting participant. Owned by exactly one meeting and
// cascade-deleted with it. The email-sent flag is set only by the dispatch
// stage postcondition.
type Attendee struct {
	ID          int64      `json:"id"`
	MeetingID   uuid.UUID  `json:"meeting_id"`
	Email       string     `json:"email"`
	Name        string     `json:"name,omitempty"`
	EmailSent   bool       `json:"email_sent"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`
}

// DisplayName returns the attendee name, defaulting to the local part of the
// email when no name was provided.
func (a Attendee) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	for i := 0; i < len(a.Email); i++ {
		if a.Email[i] == '@' {
			return a.Email[:i]
		}
	}
	return a.Email
}

// AttendeeCreate is the input shape for adding or replacing attendees.
type AttendeeCreate struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
}
