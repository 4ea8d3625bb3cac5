package cfg

import (
	"cmp"
	"fmt"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Metadata store
	DBPath string `long:"db-path" env:"DB_PATH" default:"./data/curator.db" description:"Path to the sqlite metadata database"`

	// Blob store
	S3Bucket    string `long:"s3-bucket" env:"S3_BUCKET" default:"content-curator" description:"S3 bucket for content blobs"`
	S3Region    string `long:"s3-region" env:"S3_REGION" default:"us-east-1" description:"AWS region of the S3 bucket"`
	S3Endpoint  string `long:"s3-endpoint" env:"S3_ENDPOINT" description:"Custom S3 endpoint (for S3-compatible stores)"`
	S3AccessKey string `long:"s3-access-key" env:"S3_ACCESS_KEY" description:"Static S3 access key (optional)"`
	S3SecretKey string `long:"s3-secret-key" env:"S3_SECRET_KEY" description:"Static S3 secret key (optional)"`

	// Feed sources
	FeedsFile     string `long:"feeds-file" env:"FEEDS_FILE" default:"./feeds.yaml" description:"YAML file listing RSS feed sources"`
	FetchMaxItems int    `long:"fetch-max-items" env:"FETCH_MAX_ITEMS" default:"5" description:"Default max entries fetched per feed (0 = no limit)"`
	UserAgent     string `long:"user-agent" env:"USER_AGENT" default:"Content Curator/1.0" description:"User agent string for HTTP requests"`

	// Summarization
	LLMAPIKey  string `long:"llm-api-key" env:"LLM_API_KEY" description:"API key for the summarization service"`
	LLMModel   string `long:"llm-model" env:"LLM_MODEL" default:"gemini-1.5-flash" description:"Model used for summarization"`
	LLMTimeout int    `long:"llm-timeout" env:"LLM_TIMEOUT" default:"60" description:"Summarization request timeout in seconds"`

	// Pipeline
	BatchLimit   int `long:"batch-limit" env:"BATCH_LIMIT" default:"100" description:"Max items per stage invocation when scanning the store"`
	MinWords     int `long:"min-words" env:"MIN_WORDS" default:"80" description:"Minimum word count for content to be summarization-worthy"`
	CuratorItems int `long:"curator-items" env:"CURATOR_ITEMS" default:"10" description:"Number of items per digest"`
	CuratorSkip  int `long:"curator-skip" env:"CURATOR_SKIP" default:"3" description:"Number of recent digests an item must not repeat across"`

	// Distribution
	SMTPHost       string `long:"smtp-host" env:"SMTP_HOST" default:"smtp.gmail.com" description:"SMTP server host"`
	SMTPPort       int    `long:"smtp-port" env:"SMTP_PORT" default:"587" description:"SMTP server port"`
	SenderEmail    string `long:"sender-email" env:"SENDER_EMAIL" description:"Email address digests are sent from"`
	SenderPassword string `long:"sender-password" env:"SENDER_PASSWORD" description:"Password for the sender email account"`
	Recipient      string `long:"recipient" env:"RECIPIENT" description:"Default digest recipient email"`
	SubjectPrefix  string `long:"subject-prefix" env:"SUBJECT_PREFIX" default:"[Content Curator] " description:"Email subject prefix"`
	SlackWebhook   string `long:"slack-webhook" env:"SLACK_WEBHOOK" description:"Slack incoming webhook URL (optional)"`

	// Server
	Port             string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	PipelineInterval int    `long:"pipeline-interval" env:"PIPELINE_INTERVAL" default:"3600" description:"Seconds between fetch/process/summarize runs"`
	CurateInterval   int    `long:"curate-interval" env:"CURATE_INTERVAL" default:"86400" description:"Seconds between curation runs"`
	APIAccessKey     string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for admin endpoints (optional)"`

	// Stage selection, used by the pipeline CLI
	RunFetch      bool     `long:"fetch" description:"Run the fetch stage"`
	RunProcess    bool     `long:"process" description:"Run the process stage"`
	RunSummarize  bool     `long:"summarize" description:"Run the summarize stage"`
	RunCurate     bool     `long:"curate" description:"Run the curate stage"`
	RunDistribute bool     `long:"distribute" description:"Distribute a digest"`
	RunAll        bool     `long:"all" description:"Run fetch, process and summarize"`
	GUID          string   `long:"guid" description:"Restrict the run to a single item"`
	Overwrite     bool     `long:"overwrite" description:"Redo work whose output already exists"`
	SummaryTypes  []string `long:"summary-type" description:"Summary type to generate (repeatable: short, standard)"`
	DigestID      string   `long:"digest-id" description:"Digest to distribute (defaults to the most recent)"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:           raw.DBPath,
		S3Bucket:         raw.S3Bucket,
		S3Region:         raw.S3Region,
		S3Endpoint:       raw.S3Endpoint,
		S3AccessKey:      raw.S3AccessKey,
		S3SecretKey:      raw.S3SecretKey,
		FeedsFile:        raw.FeedsFile,
		FetchMaxItems:    raw.FetchMaxItems,
		UserAgent:        raw.UserAgent,
		LLMAPIKey:        raw.LLMAPIKey,
		LLMModel:         raw.LLMModel,
		LLMTimeout:       raw.LLMTimeout,
		BatchLimit:       raw.BatchLimit,
		MinWords:         raw.MinWords,
		CuratorItems:     raw.CuratorItems,
		CuratorSkip:      raw.CuratorSkip,
		SMTPHost:         raw.SMTPHost,
		SMTPPort:         raw.SMTPPort,
		SenderEmail:      raw.SenderEmail,
		SenderPassword:   raw.SenderPassword,
		Recipient:        raw.Recipient,
		SubjectPrefix:    raw.SubjectPrefix,
		SlackWebhook:     raw.SlackWebhook,
		Port:             raw.Port,
		PipelineInterval: raw.PipelineInterval,
		CurateInterval:   raw.CurateInterval,
		APIAccessKey:     raw.APIAccessKey,
		RunFetch:         raw.RunFetch,
		RunProcess:       raw.RunProcess,
		RunSummarize:     raw.RunSummarize,
		RunCurate:        raw.RunCurate,
		RunDistribute:    raw.RunDistribute,
		RunAll:           raw.RunAll,
		GUID:             raw.GUID,
		Overwrite:        raw.Overwrite,
		SummaryTypes:     raw.SummaryTypes,
		DigestID:         raw.DigestID,
		Debug:            raw.Debug,
		Version:          GetVersion(),
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}
