package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueMeetings is the Redis list key for meeting processing jobs.
	QueueMeetings = "worker:meetings"
	// QueueArchive is the Redis list key for audio archive jobs.
	QueueArchive = "worker:archive"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a retriable job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	// JobTypeMeetingProcess runs the transcribe/summarize/dispatch pipeline
	// for one meeting. Enqueued exactly once, at the end-of-meeting
	// transition; never re-enqueued (stage failures are persisted on the
	// meeting record instead).
	JobTypeMeetingProcess JobType = "meeting_process"
	// JobTypeAudioArchive uploads the raw audio of a completed meeting to S3.
	JobTypeAudioArchive JobType = "audio_archive"
)

// MeetingProcessPayload is the payload for pipeline jobs.
type MeetingProcessPayload struct {
	MeetingID uuid.UUID `json:"meeting_id"`
}

// AudioArchivePayload is the payload for audio archive jobs.
type AudioArchivePayload struct {
	MeetingID uuid.UUID `json:"meeting_id"`
	AudioPath string    `json:"audio_path"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueMeetingProcess enqueues a pipeline job for one meeting.
func (q *Queue) EnqueueMeetingProcess(ctx context.Context, payload MeetingProcessPayload) error {
	job, raw, err := newJob(JobTypeMeetingProcess, payload)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, QueueMeetings, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued meeting process job", zap.String("job_id", job.ID), zap.String("meeting_id", payload.MeetingID.String()))
	return nil
}

// EnqueueAudioArchive enqueues an audio archive job.
func (q *Queue) EnqueueAudioArchive(ctx context.Context, payload AudioArchivePayload) error {
	job, raw, err := newJob(JobTypeAudioArchive, payload)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, QueueArchive, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued audio archive job", zap.String("job_id", job.ID), zap.String("meeting_id", payload.MeetingID.String()))
	return nil
}

func newJob(jobType JobType, payload interface{}) (*Job, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal job: %w", err)
	}
	return job, raw, nil
}

// Dequeue blocks until a job is available on either queue or ctx is done.
// Returns the job and the queue key it was popped from.
func (q *Queue) Dequeue(ctx context.Context) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, 0, QueueMeetings, QueueArchive).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues an archive job with incremented attempt. If attempt >=
// MaxRetries, pushes to DLQ instead. Meeting process jobs are never retried
// through this path; they are rejected to the DLQ so the single-run contract
// of the pipeline holds.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Type == JobTypeMeetingProcess || job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, QueueArchive, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
