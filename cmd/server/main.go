package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tlees/content-curator/app/api"
	"github.com/tlees/content-curator/app/blob"
	"github.com/tlees/content-curator/app/cfg"
	"github.com/tlees/content-curator/app/content"
	"github.com/tlees/content-curator/app/database"
	"github.com/tlees/content-curator/app/feeds"
	"github.com/tlees/content-curator/app/llm"
	"github.com/tlees/content-curator/app/scheduler"
	"github.com/tlees/content-curator/app/stages"
	"github.com/tlees/content-curator/app/transport"
)

func main() {
	_ = godotenv.Load()

	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// help was shown
		return
	}

	setupLogger(appCfg.Debug)
	slog.Info("Starting content curator server", "version", appCfg.Version)

	ctx := context.Background()

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	blobs, err := blob.NewS3Store(ctx, blob.S3Config{
		Bucket:    appCfg.S3Bucket,
		Region:    appCfg.S3Region,
		Endpoint:  appCfg.S3Endpoint,
		AccessKey: appCfg.S3AccessKey,
		SecretKey: appCfg.S3SecretKey,
	})
	if err != nil {
		slog.Error("Failed to initialize blob store", "error", err)
		os.Exit(1)
	}
	if err := blobs.CheckBucket(ctx); err != nil {
		slog.Error("Blob store bucket check failed", "bucket", appCfg.S3Bucket, "error", err)
		os.Exit(1)
	}

	feedList, err := feeds.Load(appCfg.FeedsFile, appCfg.FetchMaxItems)
	if err != nil {
		slog.Error("Failed to load feeds", "file", appCfg.FeedsFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Feeds loaded", "count", len(feedList))

	items := database.NewItemRepository(db)
	digests := database.NewDigestRepository(db)

	summarizer := llm.NewClient(appCfg.LLMAPIKey, appCfg.LLMModel, time.Duration(appCfg.LLMTimeout)*time.Second)
	converter := content.NewConverter(appCfg.MinWords)
	source := stages.NewRSSSource(appCfg.UserAgent)

	var transports []stages.Transport
	if appCfg.SenderEmail != "" && appCfg.Recipient != "" {
		transports = append(transports, transport.NewEmailTransport(
			appCfg.SMTPHost, appCfg.SMTPPort, appCfg.SenderEmail, appCfg.SenderPassword, appCfg.Recipient))
	}
	if appCfg.SlackWebhook != "" {
		transports = append(transports, transport.NewSlackTransport(appCfg.SlackWebhook))
	}

	summarize := stages.NewSummarizeStage(items, blobs, summarizer)
	runner := &stages.Runner{
		Fetch:      stages.NewFetchStage(feedList, source, items, blobs, appCfg.UserAgent),
		Process:    stages.NewProcessStage(items, blobs, converter),
		Summarize:  summarize,
		Curate:     stages.NewCurateStage(items, digests, blobs, summarize, appCfg.CuratorItems, appCfg.CuratorSkip),
		Distribute: stages.NewDistributeStage(digests, blobs, transports, appCfg.SubjectPrefix),
	}

	sched := scheduler.NewScheduler(runner,
		time.Duration(appCfg.PipelineInterval)*time.Second,
		time.Duration(appCfg.CurateInterval)*time.Second,
		len(transports) > 0)
	sched.Start()
	defer sched.Stop()

	handler := api.NewHandler(items, digests, blobs, runner)
	router := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
