package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tlees/content-curator/app/blob"
	"github.com/tlees/content-curator/app/cfg"
	"github.com/tlees/content-curator/app/content"
	"github.com/tlees/content-curator/app/database"
	"github.com/tlees/content-curator/app/feeds"
	"github.com/tlees/content-curator/app/llm"
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if _, _, err := database.RunMigrations(db); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	runner, err := buildRunner(ctx, appCfg, db)
	if err != nil {
		slog.Error("Startup failed", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, appCfg, runner); err != nil {
		slog.Error("Pipeline run failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg *cfg.Cfg, runner *stages.Runner) error {
	sel := stages.Selection{
		GUID:      appCfg.GUID,
		Overwrite: appCfg.Overwrite,
		Limit:     appCfg.BatchLimit,
	}
	types := summaryTypes(appCfg.SummaryTypes)

	ran := false

	if appCfg.RunAll {
		if err := runner.RunPipeline(ctx, sel, types); err != nil {
			return err
		}
		ran = true
	} else {
		for _, stage := range []struct {
			name     string
			selected bool
		}{
			{"fetch", appCfg.RunFetch},
			{"process", appCfg.RunProcess},
			{"summarize", appCfg.RunSummarize},
		} {
			if !stage.selected {
				continue
			}
			if _, err := runner.Run(ctx, stage.name, sel, types); err != nil {
				return err
			}
			ran = true
		}
	}

	if appCfg.RunCurate {
		if _, _, err := runner.Curate.Run(ctx); err != nil {
			return err
		}
		ran = true
	}

	if appCfg.RunDistribute {
		if _, err := runner.Distribute.Run(ctx, appCfg.DigestID); err != nil {
			return err
		}
		ran = true
	}

	if !ran {
		slog.Error("No stage selected, use --fetch, --process, --summarize, --curate, --distribute or --all")
		os.Exit(2)
	}

	return nil
}

func buildRunner(ctx context.Context, appCfg *cfg.Cfg, db *database.DB) (*stages.Runner, error) {
	blobs, err := blob.NewS3Store(ctx, blob.S3Config{
		Bucket:    appCfg.S3Bucket,
		Region:    appCfg.S3Region,
		Endpoint:  appCfg.S3Endpoint,
		AccessKey: appCfg.S3AccessKey,
		SecretKey: appCfg.S3SecretKey,
	})
	if err != nil {
		return nil, err
	}
	if err := blobs.CheckBucket(ctx); err != nil {
		return nil, err
	}

	feedList, err := feeds.Load(appCfg.FeedsFile, appCfg.FetchMaxItems)
	if err != nil {
		return nil, err
	}

	items := database.NewItemRepository(db)
	digests := database.NewDigestRepository(db)

	summarizer := llm.NewClient(appCfg.LLMAPIKey, appCfg.LLMModel, time.Duration(appCfg.LLMTimeout)*time.Second)
	converter := content.NewConverter(appCfg.MinWords)
	source := stages.NewRSSSource(appCfg.UserAgent)

	summarize := stages.NewSummarizeStage(items, blobs, summarizer)

	return &stages.Runner{
		Fetch:      stages.NewFetchStage(feedList, source, items, blobs, appCfg.UserAgent),
		Process:    stages.NewProcessStage(items, blobs, converter),
		Summarize:  summarize,
		Curate:     stages.NewCurateStage(items, digests, blobs, summarize, appCfg.CuratorItems, appCfg.CuratorSkip),
		Distribute: stages.NewDistributeStage(digests, blobs, buildTransports(appCfg), appCfg.SubjectPrefix),
	}, nil
}

func buildTransports(appCfg *cfg.Cfg) []stages.Transport {
	var transports []stages.Transport

	if appCfg.SenderEmail != "" && appCfg.Recipient != "" {
		transports = append(transports, transport.NewEmailTransport(
			appCfg.SMTPHost, appCfg.SMTPPort, appCfg.SenderEmail, appCfg.SenderPassword, appCfg.Recipient))
	}
	if appCfg.SlackWebhook != "" {
		transports = append(transports, transport.NewSlackTransport(appCfg.SlackWebhook))
	}

	if len(transports) == 0 {
		slog.Warn("No distribution transports configured")
	}

	return transports
}

func summaryTypes(raw []string) []database.SummaryType {
	types := make([]database.SummaryType, 0, len(raw))
	for _, t := range raw {
		types = append(types, database.SummaryType(t))
	}
	return types
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
