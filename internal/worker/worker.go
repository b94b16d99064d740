// Package worker drains the Redis job queues: pipeline runs for ended
// meetings and S3 archival of their raw audio.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Averytsai/meeting-ai-system/internal/pipeline"
	"github.com/Averytsai/meeting-ai-system/pkg/queue"
	"github.com/Averytsai/meeting-ai-system/pkg/storage"
)

// Worker consumes jobs from the queue. The s3 client may be nil, in which
// case archive jobs are dropped with a warning.
type Worker struct {
	processor *pipeline.Processor
	s3        *storage.S3
	queue     *queue.Queue
	logger    *zap.Logger
}

// New creates a queue worker.
func New(processor *pipeline.Processor, s3 *storage.S3, q *queue.Queue, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{processor: processor, s3: s3, queue: q, logger: logger}
}

// Process executes one job.
func (w *Worker) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeMeetingProcess:
		return w.processMeeting(ctx, job)
	case queue.JobTypeAudioArchive:
		return w.processArchive(ctx, job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

func (w *Worker) processMeeting(ctx context.Context, job *queue.Job) error {
	var payload queue.MeetingProcessPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	return w.processor.Process(ctx, payload.MeetingID)
}

func (w *Worker) processArchive(ctx context.Context, job *queue.Job) error {
	var payload queue.AudioArchivePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if w.s3 == nil {
		w.logger.Warn("archive bucket not configured, dropping archive job",
			zap.String("meeting_id", payload.MeetingID.String()))
		return nil
	}
	_, err := w.s3.ArchiveAudioFile(ctx, payload.MeetingID.String(), payload.AudioPath)
	return err
}

// Run starts the worker loop: dequeue, process, retry on error. Pipeline
// failures are already persisted on the meeting record, so a failed meeting
// job goes straight to the DLQ for inspection and is never re-run.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return
		default:
		}

		job, _, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				continue
			}
			w.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		w.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := w.Process(ctx, job); err != nil {
			w.logger.Error("job failed", zap.String("job_id", job.ID), zap.String("type", string(job.Type)), zap.Error(err))
			if reErr := w.queue.Retry(ctx, job); reErr != nil {
				w.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			if job.Type == queue.JobTypeAudioArchive {
				time.Sleep(queue.RetryBackoff)
			}
		}
	}
}
