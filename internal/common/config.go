package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Clients     ClientsConfig    `toml:"clients"`
	Extraction  ExtractionConfig `toml:"extraction"`
	Insights    InsightsConfig   `toml:"insights"`
	Jobs        JobsConfig       `toml:"jobs"`
	Schedule    ScheduleConfig   `toml:"schedule"`
	Publish     PublishConfig    `toml:"publish"`
	Slack       SlackConfig      `toml:"slack"`
	Vision      VisionConfig     `toml:"vision"`
	Gemini      GeminiConfig     `toml:"gemini"`
	Claude      ClaudeConfig     `toml:"claude"`
	Logging     LoggingConfig    `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// ClientsConfig describes the client input/output directory layout.
// Each client directory holds Strategy_Deck/, Monthly_Data/<month>/,
// Processed_Data/ and Generated_Reports/.
type ClientsConfig struct {
	RootDir string `toml:"root_dir" validate:"required"`
}

// ExtractionConfig tunes document and image extraction.
type ExtractionConfig struct {
	// ConfidenceThreshold separates verified from unverified metrics.
	ConfidenceThreshold float64 `toml:"confidence_threshold" validate:"gte=0,lte=1"`
	// OCRTimeout bounds each vision call, e.g. "2m".
	OCRTimeout string `toml:"ocr_timeout"`
}

// InsightsConfig holds the comparison thresholds. Defaults are
/// illustrative, not tuned: met at 100% of target, missed below 80%,
// trend significance at a 15% month-over-month move.
type InsightsConfig struct {
	MetPercent       float64 `toml:"met_percent" validate:"gt=0"`
	MissedPercent    float64 `toml:"missed_percent" validate:"gt=0"`
	TrendThresholdPc float64 `toml:"trend_threshold_percent" validate:"gt=0"`
}

// JobsConfig bounds job execution.
type JobsConfig struct {
	StageTimeout string `toml:"stage_timeout"` // per-stage timeout, e.g. "5m"
	JobDeadline  string `toml:"job_deadline"`  // total deadline per job, e.g. "20m"
	MaxRetries   int    `toml:"max_retries" validate:"gte=0"`
	RetryBackoff string `toml:"retry_backoff"` // initial backoff, e.g. "2s"
}

// ScheduleConfig enables the batch sweep that submits all clients.
type ScheduleConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"` // cron expression, e.g. "0 9 1 * *"
}

// PublishConfig selects and configures the hosting target.
type PublishConfig struct {
	Target  string   `toml:"target" validate:"oneof=local s3"` // "local" or "s3"
	BaseURL string   `toml:"base_url"`                         // public URL prefix for reports
	Local   LocalCfg `toml:"local"`
	S3      S3Cfg    `toml:"s3"`
}

type LocalCfg struct {
	Dir string `toml:"dir"` // hosting directory for the local target
}

type S3Cfg struct {
	Bucket string `toml:"bucket"`
	Prefix string `toml:"prefix"`
	Region string `toml:"region"`
}

// SlackConfig configures the notification collaborator. An empty webhook
// URL disables notifications (no-op notifier).
type SlackConfig struct {
	WebhookURL string `toml:"webhook_url"`
	Channel    string `toml:"channel"`
}

// VisionConfig selects the OCR provider.
type VisionConfig struct {
	Provider  string `toml:"provider" validate:"oneof=gemini claude"` // "gemini" or "claude"
	RateLimit string `toml:"rate_limit"`                              // min interval between OCR calls, e.g. "4s"
}

type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Timeout     string  `toml:"timeout"`
	Temperature float32 `toml:"temperature"`
}

type ClaudeConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
	Timeout   string `toml:"timeout"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig returns the configuration defaults applied before any
// config file or environment override.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/reportd",
			},
		},
		Clients: ClientsConfig{
			RootDir: "./clients",
		},
		Extraction: ExtractionConfig{
			ConfidenceThreshold: 0.70,
			OCRTimeout:          "2m",
		},
		Insights: InsightsConfig{
			MetPercent:       100,
			MissedPercent:    80,
			TrendThresholdPc: 15,
		},
		Jobs: JobsConfig{
			StageTimeout: "5m",
			JobDeadline:  "20m",
			MaxRetries:   3,
			RetryBackoff: "2s",
		},
		Schedule: ScheduleConfig{
			Enabled: false,
			Cron:    "0 9 1 * *", // 09:00 on the first of the month
		},
		Publish: PublishConfig{
			Target:  "local",
			BaseURL: "http://localhost:8085/reports",
			Local: LocalCfg{
				Dir: "./public/reports",
			},
		},
		Vision: VisionConfig{
			Provider:  "gemini",
			RateLimit: "4s",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Timeout:     "5m",
			Temperature: 0.2,
		},
		Claude: ClaudeConfig{
			Model:     "claude-3-5-haiku-20241022",
			MaxTokens: 8192,
			Timeout:   "5m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
// An empty path loads defaults plus environment overrides only.
func LoadFromFile(path string) (*Config, error) {
	config := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration against the struct validation tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for name, d := range map[string]string{
		"extraction.ocr_timeout": c.Extraction.OCRTimeout,
		"jobs.stage_timeout":     c.Jobs.StageTimeout,
		"jobs.job_deadline":      c.Jobs.JobDeadline,
		"jobs.retry_backoff":     c.Jobs.RetryBackoff,
		"vision.rate_limit":      c.Vision.RateLimit,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("REPORTD_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("REPORTD_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("REPORTD_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if root := os.Getenv("REPORTD_CLIENTS_ROOT"); root != "" {
		config.Clients.RootDir = root
	}
	if path := os.Getenv("REPORTD_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if url := os.Getenv("REPORT_BASE_URL"); url != "" {
		config.Publish.BaseURL = url
	}
	if webhook := os.Getenv("SLACK_WEBHOOK_URL"); webhook != "" {
		config.Slack.WebhookURL = webhook
	}
	if channel := os.Getenv("SLACK_DEFAULT_CHANNEL"); channel != "" {
		config.Slack.Channel = channel
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if level := os.Getenv("REPORTD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
