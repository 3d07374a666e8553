// Package config centralises configuration parsing for the LaborSync binaries.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config captures runtime configuration values.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"laborsync"`

	// Clock client
	APIURL           string        `env:"LABORSYNC_API_URL" envDefault:"http://localhost:8080"`
	APIToken         string        `env:"LABORSYNC_TOKEN"`
	Username         string        `env:"LABORSYNC_USERNAME" envDefault:"worker"` // used to mint a token against the dev API when LABORSYNC_TOKEN is empty
	RemoteTimeout    time.Duration `env:"REMOTE_TIMEOUT" envDefault:"10s"`
	BreakDuration    time.Duration `env:"BREAK_DURATION" envDefault:"5m"`
	IdleTimeout      time.Duration `env:"IDLE_TIMEOUT" envDefault:"5m"`
	TickInterval     time.Duration `env:"TICK_INTERVAL" envDefault:"1s"`
	NotificationTTL  time.Duration `env:"NOTIFICATION_TTL" envDefault:"5s"`
	MetricsAddress   string        `env:"METRICS_ADDRESS" envDefault:":9102"`
	KafkaBrokers     []string      `env:"KAFKA_BROKERS" envSeparator:","`
	EventsTopic      string        `env:"EVENTS_TOPIC" envDefault:"attendance_events"`
	OutboxFlush      time.Duration `env:"OUTBOX_FLUSH_INTERVAL" envDefault:"1s"`
	OutboxBatchSize  int           `env:"OUTBOX_BATCH_SIZE" envDefault:"50"`
	OutboxCapacity   int           `env:"OUTBOX_CAPACITY" envDefault:"1000"`
	OTLPEndpoint     string        `env:"OTLP_ENDPOINT"`
	TraceSampleRatio float64       `env:"TRACE_SAMPLE_RATIO" envDefault:"0.1"`

	// Attendance log consumer
	ConsumerGroupID string `env:"CONSUMER_GROUP_ID" envDefault:"laborsync-attendance-log"`
	LedgerAddress   string `env:"LEDGER_ADDRESS" envDefault:":8090"`

	// Development API
	HTTPAddress string `env:"HTTP_ADDRESS" envDefault:":8080"`
	JWTSecret   string `env:"JWT_SECRET" envDefault:"dev-secret-change-me"`
	JWTIssuer   string `env:"JWT_ISSUER" envDefault:"laborsync.dev"`

	// Logging
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stderr"`
}

// Load reads an optional .env file, then the environment, and validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.KafkaBrokers = trimAll(cfg.KafkaBrokers)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the clock client cannot run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.APIURL) == "" {
		errs = append(errs, errors.New("LABORSYNC_API_URL is required"))
	}
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"REMOTE_TIMEOUT", c.RemoteTimeout},
		{"BREAK_DURATION", c.BreakDuration},
		{"IDLE_TIMEOUT", c.IdleTimeout},
		{"TICK_INTERVAL", c.TickInterval},
		{"NOTIFICATION_TTL", c.NotificationTTL},
		{"OUTBOX_FLUSH_INTERVAL", c.OutboxFlush},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", d.name))
		}
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		errs = append(errs, errors.New("TRACE_SAMPLE_RATIO must be within [0, 1]"))
	}
	if len(c.KafkaBrokers) > 0 && strings.TrimSpace(c.EventsTopic) == "" {
		errs = append(errs, errors.New("EVENTS_TOPIC is required when KAFKA_BROKERS is set"))
	}
	return errors.Join(errs...)
}

// PublishEvents reports whether attendance events should be sent to Kafka.
func (c Config) PublishEvents() bool {
	return len(c.KafkaBrokers) > 0
}

// IsDevelopment reports whether the process runs in the development environment.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
