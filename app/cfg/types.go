package cfg

import "time"

type Cfg struct {
	// Database configuration
	DBPath        string
	RunMigrations bool

	// Application configuration
	SectorsDir      string
	Port            string
	BaseURL         string
	WorkerCount     int
	QueueSize       int
	ProviderTimeout time.Duration
	APIAccessKey    string

	// Scheduled ingestion
	IngestSchedule string
	IngestSectors  []string

	// Headline source
	NewsAPIKey      string
	NewsAPIBaseURL  string
	NewsAPIPageSize int

	// Reverse image search
	TinEyeAPIKey  string
	TinEyeBaseURL string

	// Reasoning model
	ReasoningProvider string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	GeminiAPIKey      string
	GeminiModel       string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

// HasCredential reports whether a credential is usable. Empty values and the
// "demo-key" placeholder count as absent.
func HasCredential(key string) bool {
	return key != "" && key != PlaceholderCredential
}

const PlaceholderCredential = "demo-key"
