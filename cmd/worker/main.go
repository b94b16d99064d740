// Package main runs the background job worker (pipeline runs and audio
// archival) as a standalone process, for deployments that scale processing
// separately from the HTTP server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Averytsai/meeting-ai-system/config"
	"github.com/Averytsai/meeting-ai-system/internal/mailer"
	"github.com/Averytsai/meeting-ai-system/internal/meetings"
	"github.com/Averytsai/meeting-ai-system/internal/pipeline"
	"github.com/Averytsai/meeting-ai-system/internal/summarize"
	"github.com/Averytsai/meeting-ai-system/internal/transcribe"
	"github.com/Averytsai/meeting-ai-system/internal/worker"
	"github.com/Averytsai/meeting-ai-system/pkg/database"
	"github.com/Averytsai/meeting-ai-system/pkg/queue"
	"github.com/Averytsai/meeting-ai-system/pkg/redis"
	"github.com/Averytsai/meeting-ai-system/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.ArchiveBucket != "" {
		s3Cfg := storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			ArchiveBucket:   cfg.AWS.ArchiveBucket,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("audio archival disabled", zap.Error(err))
		}
	}

	artifacts, err := storage.NewArtifacts(cfg.Storage.Root)
	if err != nil {
		logger.Fatal("artifact storage", zap.Error(err))
	}

	meetingRepo := meetings.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	transcriber := transcribe.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.WhisperModel,
		transcribe.WithBaseURL(cfg.OpenAI.BaseURL))
	summarizer := summarize.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.GPTModel,
		summarize.WithBaseURL(cfg.OpenAI.BaseURL))
	dispatcher := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Password: cfg.SMTP.Password,
		FromName: cfg.SMTP.FromName,
	}, logger)

	var archiveEnqueuer pipeline.ArchiveEnqueuer
	if s3Client != nil {
		archiveEnqueuer = jobQueue
	}
	processor := pipeline.NewProcessor(meetingRepo, artifacts, transcriber, summarizer, dispatcher,
		archiveEnqueuer, time.Duration(cfg.Pipeline.StageTimeoutSec)*time.Second, logger)
	jobWorker := worker.New(processor, s3Client, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go jobWorker.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
