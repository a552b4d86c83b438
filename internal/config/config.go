// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInputBucketRequired is returned when INPUT_BUCKET is not set.
	ErrInputBucketRequired = errors.New("config: INPUT_BUCKET is required")
	// ErrOutputBucketRequired is returned when OUTPUT_BUCKET is not set.
	ErrOutputBucketRequired = errors.New("config: OUTPUT_BUCKET is required")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings (intake API)
	Port int `env:"PORT, default=8080" json:"port"`

	// AWS settings
	AWSRegion          string `env:"AWS_REGION, default=us-east-1" json:"aws_region"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Blob storage settings
	InputBucket  string `env:"INPUT_BUCKET, required" json:"input_bucket"`
	OutputBucket string `env:"OUTPUT_BUCKET, required" json:"output_bucket"`
	S3Endpoint   string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"` // Optional: S3-compatible stores

	// Ledger settings. LedgerTable selects DynamoDB; otherwise DatabaseURL
	// selects Postgres; with neither set the in-memory ledger is used.
	LedgerTable string `env:"LEDGER_TABLE" json:"ledger_table,omitempty"`
	DatabaseURL string `env:"DATABASE_URL" json:"-"` // Masked in JSON

	// Queue settings
	QueueURL       string `env:"QUEUE_URL" json:"queue_url,omitempty"`
	NotifyTopicARN string `env:"NOTIFY_TOPIC_ARN" json:"notify_topic_arn,omitempty"`
	NotifyQueueURL string `env:"NOTIFY_QUEUE_URL" json:"notify_queue_url,omitempty"`

	// Processing settings
	FrameStride int    `env:"FRAME_STRIDE, default=30" json:"frame_stride"`
	TempDir     string `env:"TEMP_DIR, default=/tmp/framesnap" json:"temp_dir"`
	FFmpegPath  string `env:"FFMPEG_PATH" json:"ffmpeg_path,omitempty"`

	// Notification dispatch settings
	SenderEmail       string `env:"SENDER_EMAIL" json:"sender_email,omitempty"`
	CognitoUserPoolID string `env:"COGNITO_USER_POOL_ID" json:"cognito_user_pool_id,omitempty"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "INPUT_BUCKET") {
			return nil, ErrInputBucketRequired
		}
		if strings.Contains(err.Error(), "OUTPUT_BUCKET") {
			return nil, ErrOutputBucketRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs via tint.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, AWSRegion: %s, InputBucket: %s, OutputBucket: %s, LedgerTable: %s, QueueURL: %s, NotifyTopicARN: %s, FrameStride: %d, TempDir: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.AWSRegion,
		c.InputBucket,
		c.OutputBucket,
		c.LedgerTable,
		c.QueueURL,
		c.NotifyTopicARN,
		c.FrameStride,
		c.TempDir,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
