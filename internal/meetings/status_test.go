package meetings

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Averytsai/meeting-ai-system/internal/models"
)

func TestDeriveStepsRecording(t *testing.T) {
	steps := DeriveSteps(models.MeetingStatusRecording, "", "")
	require.Equal(t, models.ProcessingSteps{
		Upload:        models.StepPending,
		Transcription: models.StepPending,
		Summary:       models.StepPending,
		Email:         models.StepPending,
	}, steps)
}

func TestDeriveStepsCompleted(t *testing.T) {
	steps := DeriveSteps(models.MeetingStatusCompleted, "/m/transcript.txt", "/m/summary.md")
	require.Equal(t, models.ProcessingSteps{
		Upload:        models.StepCompleted,
		Transcription: models.StepCompleted,
		Summary:       models.StepCompleted,
		Email:         models.StepCompleted,
	}, steps)
}

func TestDeriveStepsProcessing(t *testing.T) {
	tests := []struct {
		name           string
		transcriptPath string
		summaryPath    string
		want           models.ProcessingSteps
	}{
		{
			name: "transcription running",
			want: models.ProcessingSteps{
				Upload:        models.StepCompleted,
				Transcription: models.StepInProgress,
				Summary:       models.StepPending,
				Email:         models.StepPending,
			},
		},
		{
			name:           "transcript present, summary running",
			transcriptPath: "/m/transcript.txt",
			want: models.ProcessingSteps{
				Upload:        models.StepCompleted,
				Transcription: models.StepCompleted,
				Summary:       models.StepInProgress,
				Email:         models.StepPending,
			},
		},
		{
			name:           "both artifacts present, dispatch running",
			transcriptPath: "/m/transcript.txt",
			summaryPath:    "/m/summary.md",
			want: models.ProcessingSteps{
				Upload:        models.StepCompleted,
				Transcription: models.StepCompleted,
				Summary:       models.StepCompleted,
				Email:         models.StepInProgress,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveSteps(models.MeetingStatusProcessing, tt.transcriptPath, tt.summaryPath)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveStepsFailed(t *testing.T) {
	// Only the stage that actually errored is failed; its successors keep
	// their pending state.
	tests := []struct {
		name           string
		transcriptPath string
		summaryPath    string
		want           models.ProcessingSteps
	}{
		{
			name: "transcription failed, later stages stay pending",
			want: models.ProcessingSteps{
				Upload:        models.StepCompleted,
				Transcription: models.StepFailed,
				Summary:       models.StepPending,
				Email:         models.StepPending,
			},
		},
		{
			name:           "summarization failed",
			transcriptPath: "/m/transcript.txt",
			want: models.ProcessingSteps{
				Upload:        models.StepCompleted,
				Transcription: models.StepCompleted,
				Summary:       models.StepFailed,
				Email:         models.StepPending,
			},
		},
		{
			name:           "dispatch failed",
			transcriptPath: "/m/transcript.txt",
			summaryPath:    "/m/summary.md",
			want: models.ProcessingSteps{
				Upload:        models.StepCompleted,
				Transcription: models.StepCompleted,
				Summary:       models.StepCompleted,
				Email:         models.StepFailed,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveSteps(models.MeetingStatusFailed, tt.transcriptPath, tt.summaryPath)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveStepsIsPure(t *testing.T) {
	first := DeriveSteps(models.MeetingStatusProcessing, "/m/transcript.txt", "")
	second := DeriveSteps(models.MeetingStatusProcessing, "/m/transcript.txt", "")
	require.Equal(t, first, second)
}
