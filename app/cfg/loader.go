package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath         string `long:"db-path" env:"DB_PATH" default:"./data/veritas.db" description:"SQLite database file"`
	SkipMigrations bool   `long:"skip-migrations" env:"SKIP_MIGRATIONS" description:"Do not apply embedded migrations on startup"`

	// Application configuration
	SectorsDir      string `long:"sectors-dir" env:"SECTORS_DIR" default:"./sectors" description:"Directory containing sector source files"`
	Port            string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseURL         string `long:"base-url" env:"BASE_URL" description:"Public base URL used in generated feed links"`
	WorkerCount     int    `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Number of background workers for verification checks"`
	QueueSize       int    `long:"queue-size" env:"QUEUE_SIZE" default:"300" description:"Capacity of the check task queue"`
	ProviderTimeout int    `long:"provider-timeout" env:"PROVIDER_TIMEOUT" default:"30" description:"Timeout for a single provider call in seconds"`
	APIAccessKey    string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for mutating endpoints (optional)"`

	// Scheduled ingestion
	IngestSchedule string `long:"ingest-schedule" env:"INGEST_SCHEDULE" description:"Cron expression for scheduled ingestion (disabled when empty)"`
	IngestSectors  string `long:"ingest-sectors" env:"INGEST_SECTORS" default:"general" description:"Comma separated sectors for scheduled ingestion"`

	// Headline source
	NewsAPIKey      string `long:"newsapi-key" env:"NEWSAPI_KEY" description:"NewsAPI key (mock articles when absent)"`
	NewsAPIBaseURL  string `long:"newsapi-url" env:"NEWSAPI_URL" default:"https://newsapi.org" description:"NewsAPI base URL"`
	NewsAPIPageSize int    `long:"newsapi-page-size" env:"NEWSAPI_PAGE_SIZE" default:"20" description:"Headlines requested per ingestion"`

	// Reverse image search
	TinEyeAPIKey  string `long:"tineye-key" env:"TINEYE_API_KEY" description:"TinEye API key (mock image checks when absent)"`
	TinEyeBaseURL string `long:"tineye-url" env:"TINEYE_URL" default:"https://api.tineye.com/rest" description:"TinEye REST base URL"`

	// Reasoning model
	ReasoningProvider string `long:"reasoning-provider" env:"REASONING_PROVIDER" default:"openai" choice:"openai" choice:"gemini" description:"Reasoning model backend"`
	OpenAIAPIKey      string `long:"openai-key" env:"OPENAI_API_KEY" description:"OpenAI API key"`
	OpenAIBaseURL     string `long:"openai-url" env:"OPENAI_BASE_URL" default:"https://api.openai.com/v1" description:"OpenAI compatible base URL"`
	OpenAIModel       string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4" description:"OpenAI model"`
	GeminiAPIKey      string `long:"gemini-key" env:"GEMINI_API_KEY" description:"Gemini API key"`
	GeminiModel       string `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-2.5-flash" description:"Gemini model"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Veritas/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses the given arguments; nil means os.Args.
func LoadArgs(args []string) (*Cfg, error) {
	// The env file must be applied before go-flags reads the environment,
	// so its location can only come from the environment itself.
	if err := loadEnvFile(); err != nil {
		fmt.Printf("Warning: %v\n", err)
	}

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := fromRaw(raw)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func fromRaw(raw rawCfg) *Cfg {
	return &Cfg{
		DBPath:            raw.DBPath,
		RunMigrations:     !raw.SkipMigrations,
		SectorsDir:        raw.SectorsDir,
		Port:              raw.Port,
		BaseURL:           strings.TrimRight(raw.BaseURL, "/"),
		WorkerCount:       raw.WorkerCount,
		QueueSize:         raw.QueueSize,
		ProviderTimeout:   time.Duration(raw.ProviderTimeout) * time.Second,
		APIAccessKey:      raw.APIAccessKey,
		IngestSchedule:    strings.TrimSpace(raw.IngestSchedule),
		IngestSectors:     splitList(raw.IngestSectors),
		NewsAPIKey:        raw.NewsAPIKey,
		NewsAPIBaseURL:    strings.TrimRight(raw.NewsAPIBaseURL, "/"),
		NewsAPIPageSize:   raw.NewsAPIPageSize,
		TinEyeAPIKey:      raw.TinEyeAPIKey,
		TinEyeBaseURL:     strings.TrimRight(raw.TinEyeBaseURL, "/"),
		ReasoningProvider: raw.ReasoningProvider,
		OpenAIAPIKey:      raw.OpenAIAPIKey,
		OpenAIBaseURL:     strings.TrimRight(raw.OpenAIBaseURL, "/"),
		OpenAIModel:       raw.OpenAIModel,
		GeminiAPIKey:      raw.GeminiAPIKey,
		GeminiModel:       raw.GeminiModel,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}
}

func validate(cfg *Cfg) error {
	nonNegative := map[string]int{
		"worker count":     cfg.WorkerCount,
		"queue size":       cfg.QueueSize,
		"provider timeout": int(cfg.ProviderTimeout / time.Second),
		"page size":        cfg.NewsAPIPageSize,
	}

	for name, value := range nonNegative {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	return nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func loadEnvFile() error {
	path := cmp.Or(lookupEnv("ENV_FILE"), ".env")
	if !fileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
