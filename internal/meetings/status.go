package meetings

import (
	"github.com/Averytsai/meeting-ai-system/internal/models"
)

// DeriveSteps projects the four-slot step view from persisted meeting fields.
// It is a pure function: progress is re-derived from status and the artifact
// paths on every call, there is no separately stored step state.
//
// In the failed projection, stages after the failed one keep their pending
// state rather than being marked failed themselves; only the stage that
// actually errored is failed.
func DeriveSteps(status models.MeetingStatus, transcriptPath, summaryPath string) models.ProcessingSteps {
	steps := models.ProcessingSteps{
		Upload:        models.StepPending,
		Transcription: models.StepPending,
		Summary:       models.StepPending,
		Email:         models.StepPending,
	}

	switch status {
	case models.MeetingStatusCompleted:
		steps.Upload = models.StepCompleted
		steps.Transcription = models.StepCompleted
		steps.Summary = models.StepCompleted
		steps.Email = models.StepCompleted

	case models.MeetingStatusProcessing:
		steps.Upload = models.StepCompleted
		if transcriptPath != "" {
			steps.Transcription = models.StepCompleted
			if summaryPath != "" {
				steps.Summary = models.StepCompleted
				steps.Email = models.StepInProgress
			} else {
				steps.Summary = models.StepInProgress
			}
		} else {
			steps.Transcription = models.StepInProgress
		}

	case models.MeetingStatusFailed:
		steps.Upload = models.StepCompleted
		if transcriptPath != "" {
			steps.Transcription = models.StepCompleted
			if summaryPath != "" {
				steps.Summary = models.StepCompleted
				steps.Email = models.StepFailed
			} else {
				steps.Summary = models.StepFailed
			}
		} else {
			steps.Transcription = models.StepFailed
		}
	}

	return steps
}
