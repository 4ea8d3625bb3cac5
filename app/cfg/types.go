package cfg

type Cfg struct {
	// Metadata store
	DBPath string

	// Blob store
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	// Feed sources
	FeedsFile     string
	FetchMaxItems int
	UserAgent     string

	// Summarization
	LLMAPIKey  string
	LLMModel   string
	LLMTimeout int // seconds

	// Pipeline
	BatchLimit   int
	MinWords     int
	CuratorItems int
	CuratorSkip  int // number of recent digests an item must not appear in

	// Distribution
	SMTPHost       string
	SMTPPort       int
	SenderEmail    string
	SenderPassword string
	Recipient      string
	SubjectPrefix  string
	SlackWebhook   string

	// Server
	Port             string
	PipelineInterval int // seconds
	CurateInterval   int // seconds
	APIAccessKey     string

	// Stage selection (CLI runs only, ignored by the server)
	RunFetch      bool
	RunProcess    bool
	RunSummarize  bool
	RunCurate     bool
	RunDistribute bool
	RunAll        bool
	GUID          string
	Overwrite     bool
	SummaryTypes  []string
	DigestID      string

	// Application metadata
	Debug   bool
	Version string
}
