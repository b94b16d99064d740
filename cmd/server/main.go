// Package main runs the meeting assistant HTTP server with the embedded
// pipeline worker and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Averytsai/meeting-ai-system/config"
	"github.com/Averytsai/meeting-ai-system/internal/admin"
	"github.com/Averytsai/meeting-ai-system/internal/auth"
	"github.com/Averytsai/meeting-ai-system/internal/mailer"
	"github.com/Averytsai/meeting-ai-system/internal/meetings"
	"github.com/Averytsai/meeting-ai-system/internal/middleware"
	"github.com/Averytsai/meeting-ai-system/internal/pipeline"
	"github.com/Averytsai/meeting-ai-system/internal/summarize"
	"github.com/Averytsai/meeting-ai-system/internal/transcribe"
	"github.com/Averytsai/meeting-ai-system/internal/worker"
	"github.com/Averytsai/meeting-ai-system/pkg/database"
	"github.com/Averytsai/meeting-ai-system/pkg/queue"
	"github.com/Averytsai/meeting-ai-system/pkg/redis"
	"github.com/Averytsai/meeting-ai-system/pkg/response"
	"github.com/Averytsai/meeting-ai-system/pkg/storage"
	"github.com/Averytsai/meeting-ai-system/pkg/utils"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

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

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, cfg.Auth.AllowedDomains, logger)
	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		hash, err := utils.HashPassword(cfg.Admin.Password)
		if err != nil {
			logger.Fatal("hash admin password", zap.Error(err))
		}
		if err := authRepo.EnsureAdmin(ctx, cfg.Admin.Email, hash); err != nil {
			logger.Fatal("seed admin account", zap.Error(err))
		}
	}

	// Meetings
	meetingRepo := meetings.NewRepository(pool)
	meetingHandler := meetings.NewHandler(meetingRepo, artifacts, jobQueue, logger)

	// Admin
	adminHandler := admin.NewHandler(authRepo, meetingRepo, jwtService, logger)

	// Pipeline
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
	if !dispatcher.Configured() {
		logger.Warn("smtp credentials not set, summary emails will be skipped")
	}

	var archiveEnqueuer pipeline.ArchiveEnqueuer
	if s3Client != nil {
		archiveEnqueuer = jobQueue
	}
	processor := pipeline.NewProcessor(meetingRepo, artifacts, transcriber, summarizer, dispatcher,
		archiveEnqueuer, time.Duration(cfg.Pipeline.StageTimeoutSec)*time.Second, logger)
	jobWorker := worker.New(processor, s3Client, jobQueue, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/login", authHandler.Login)
	}
	router.POST("/api/admin/login", adminHandler.Login)

	// Protected API (JWT required)
	api := router.Group("/api")
	api.Use(middleware.JWT(jwtService))
	{
		api.GET("/auth/me", authHandler.Me)
		api.POST("/auth/logout", authHandler.Logout)

		api.POST("/meetings/start", meetingHandler.Start)
		api.GET("/meetings", meetingHandler.List)
		api.POST("/meetings/:id/end", meetingHandler.End)
		api.GET("/meetings/:id/status", meetingHandler.Status)
		api.GET("/meetings/:id/summary", meetingHandler.Summary)

		adminGroup := api.Group("/admin", middleware.RequireRole("admin"))
		{
			adminGroup.GET("/users", adminHandler.Users)
			adminGroup.GET("/daily-overview", adminHandler.Overview)
			adminGroup.GET("/users/:id/meetings", adminHandler.UserMeetings)
		}
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background worker (pipeline runs and audio archival)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go jobWorker.Run(workerCtx)
	logger.Info("pipeline worker started")

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
