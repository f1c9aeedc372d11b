// Package config loads runtime settings from defaults, an optional .env
// file, an optional YAML or JSON file and ASSISTANT_* environment variables,
// in that order of precedence (later wins).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	assistant "github.com/goliatone/go-assistant"
)

const EnvPrefix = "ASSISTANT_"

type Config struct {
	Server      ServerConfig      `yaml:"server" json:"server"`
	Database    DatabaseConfig    `yaml:"database" json:"database"`
	Watson      WatsonConfig      `yaml:"watson" json:"watson"`
	Fulfillment FulfillmentConfig `yaml:"fulfillment" json:"fulfillment"`
	Publish     PublishConfig     `yaml:"publish" json:"publish"`
	Sync        SyncConfig        `yaml:"sync" json:"sync"`
	Log         LogConfig         `yaml:"log" json:"log"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

type DatabaseConfig struct {
	DSN     string `yaml:"dsn" json:"dsn"`
	Migrate bool   `yaml:"migrate" json:"migrate"`
}

// WatsonConfig holds the default service instance, used when a project has
// no service provider credentials of its own.
type WatsonConfig struct {
	URL     string        `yaml:"url" json:"url"`
	APIKey  string        `yaml:"apikey" json:"apikey"`
	Version string        `yaml:"version" json:"version"`
	IAMURL  string        `yaml:"iam_url" json:"iam_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type FulfillmentConfig struct {
	URL     string        `yaml:"url" json:"url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

type PublishConfig struct {
	FailureMode string        `yaml:"failure_mode" json:"failure_mode"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	PoolSize    int           `yaml:"pool_size" json:"pool_size"`
}

type SyncConfig struct {
	Schedule string        `yaml:"schedule" json:"schedule"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{Addr: ":8080"},
		Watson: WatsonConfig{
			Version: "2020-04-01",
			IAMURL:  "https://iam.cloud.ibm.com",
			Timeout: time.Minute,
		},
		Fulfillment: FulfillmentConfig{Timeout: 30 * time.Second},
		Publish: PublishConfig{
			FailureMode: "report",
			Timeout:     2 * time.Minute,
			PoolSize:    4,
		},
		Sync: SyncConfig{Timeout: 5 * time.Minute},
		Log:  LogConfig{Level: "info", Format: "console"},
	}
}

type loader struct {
	envFile string
	file    string
	lookup  func(string) (string, bool)
}

type Option func(*loader)

// WithEnvFile reads dotenv values from path. Missing files are ignored.
func WithEnvFile(path string) Option {
	return func(l *loader) {
		l.envFile = path
	}
}

// WithFile reads a YAML or JSON configuration file.
func WithFile(path string) Option {
	return func(l *loader) {
		l.file = path
	}
}

// WithLookup replaces os.LookupEnv.
func WithLookup(fn func(string) (string, bool)) Option {
	return func(l *loader) {
		l.lookup = fn
	}
}

// Load builds the configuration and validates it.
func Load(opts ...Option) (Config, error) {
	l := &loader{lookup: os.LookupEnv}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	cfg := Defaults()

	dotenv := map[string]string{}
	if l.envFile != "" {
		values, err := godotenv.Read(l.envFile)
		switch {
		case err == nil:
			dotenv = values
		case os.IsNotExist(err):
		default:
			return cfg, fmt.Errorf("read env file %s: %w", l.envFile, err)
		}
	}

	if l.file != "" {
		raw, err := os.ReadFile(l.file)
		if err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", l.file, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", l.file, err)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := l.lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SERVER_ADDR":          &cfg.Server.Addr,
		"DATABASE_DSN":         &cfg.Database.DSN,
		"WATSON_URL":           &cfg.Watson.URL,
		"WATSON_APIKEY":        &cfg.Watson.APIKey,
		"WATSON_VERSION":       &cfg.Watson.Version,
		"WATSON_IAM_URL":       &cfg.Watson.IAMURL,
		"FULFILLMENT_URL":      &cfg.Fulfillment.URL,
		"PUBLISH_FAILURE_MODE": &cfg.Publish.FailureMode,
		"SYNC_SCHEDULE":        &cfg.Sync.Schedule,
		"LOG_LEVEL":            &cfg.Log.Level,
		"LOG_FORMAT":           &cfg.Log.Format,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	durations := map[string]*time.Duration{
		"WATSON_TIMEOUT":      &cfg.Watson.Timeout,
		"FULFILLMENT_TIMEOUT": &cfg.Fulfillment.Timeout,
		"PUBLISH_TIMEOUT":     &cfg.Publish.Timeout,
		"SYNC_TIMEOUT":        &cfg.Sync.Timeout,
	}
	for key, dst := range durations {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return envError(key, v, err)
		}
		*dst = d
	}

	if v, ok := lookup(EnvPrefix + "PUBLISH_POOL_SIZE"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return envError("PUBLISH_POOL_SIZE", v, err)
		}
		cfg.Publish.PoolSize = n
	}
	if v, ok := lookup(EnvPrefix + "DATABASE_MIGRATE"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return envError("DATABASE_MIGRATE", v, err)
		}
		cfg.Database.Migrate = b
	}
	return nil
}

func envError(key, value string, err error) error {
	return assistant.CloneError(assistant.ErrValidation, fmt.Sprintf("invalid value for %s%s", EnvPrefix, key), err, map[string]any{
		"key":   EnvPrefix + key,
		"value": value,
	})
}

// Validate checks values the commands cannot recover from.
func (c Config) Validate() error {
	var fields []errors.FieldError
	switch strings.ToLower(c.Publish.FailureMode) {
	case "", "report", "return":
	default:
		fields = append(fields, errors.FieldError{
			Field:   "publish.failure_mode",
			Message: "must be report or return",
			Value:   c.Publish.FailureMode,
		})
	}
	if c.Publish.PoolSize < 1 {
		fields = append(fields, errors.FieldError{Field: "publish.pool_size", Message: "must be at least 1", Value: c.Publish.PoolSize})
	}
	if c.Publish.Timeout < 0 {
		fields = append(fields, errors.FieldError{Field: "publish.timeout", Message: "must not be negative"})
	}
	if len(fields) == 0 {
		return nil
	}
	return errors.NewValidation("invalid configuration", fields...).
		WithTextCode(assistant.CodeValidationFailed)
}
