package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	EnvHTTPAddr           = "WELLBOT_HTTP_ADDR"
	EnvDBDriver           = "WELLBOT_DB_DRIVER"
	EnvDBDSN              = "WELLBOT_DB_DSN"
	EnvTimezone           = "WELLBOT_TIMEZONE"
	EnvLogLevel           = "WELLBOT_LOG_LEVEL"
	EnvLogPretty          = "WELLBOT_LOG_PRETTY"
	EnvSchedulerEnabled   = "WELLBOT_SCHEDULER_ENABLED"
	EnvEmitterConcurrency = "WELLBOT_EMITTER_CONCURRENCY"
	EnvNotifyWebhookURLs  = "WELLBOT_NOTIFY_WEBHOOK_URLS"
	EnvNotifyRetryCount   = "WELLBOT_NOTIFY_RETRY_COUNT"
	EnvNotifyRetryBackoff = "WELLBOT_NOTIFY_RETRY_BACKOFF"
)

const (
	DefaultHTTPAddr           = ":8080"
	DefaultDBDriver           = "sqlite"
	DefaultDBDSN              = "wellbot.db"
	DefaultTimezone           = "UTC"
	DefaultLogLevel           = "info"
	DefaultSchedulerEnabled   = true
	DefaultEmitterConcurrency = 1
	DefaultNotifyRetryCount   = 3
	DefaultNotifyRetryBackoff = 150 * time.Millisecond
)

type Config struct {
	HTTPAddr           string
	DBDriver           string
	DBDSN              string
	Timezone           string
	LogLevel           string
	LogPretty          bool
	SchedulerEnabled   bool
	EmitterConcurrency int
	NotifyWebhookURLs  []string
	NotifyRetryCount   int
	NotifyRetryBackoff time.Duration
}

// FromEnv ignores any config file.
func FromEnv() (Config, error) {
	cfg := defaultConfig()
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load layers defaults, the YAML file (if any) and then the environment.
func Load() (Config, error) {
	cfg := defaultConfig()

	fileCfg, err := loadFileConfig()
	if err != nil {
		return Config{}, err
	}
	if err := applyYAML(&cfg, fileCfg); err != nil {
		return Config{}, err
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaultConfig() Config {
	return Config{
		HTTPAddr:           DefaultHTTPAddr,
		DBDriver:           DefaultDBDriver,
		DBDSN:              DefaultDBDSN,
		Timezone:           DefaultTimezone,
		LogLevel:           DefaultLogLevel,
		SchedulerEnabled:   DefaultSchedulerEnabled,
		EmitterConcurrency: DefaultEmitterConcurrency,
		NotifyRetryCount:   DefaultNotifyRetryCount,
		NotifyRetryBackoff: DefaultNotifyRetryBackoff,
	}
}

func applyYAML(cfg *Config, source fileConfig) error {
	if value := strings.TrimSpace(source.HTTPAddr); value != "" {
		cfg.HTTPAddr = value
	}
	if value := strings.TrimSpace(source.DBDriver); value != "" {
		cfg.DBDriver = strings.ToLower(value)
	}
	if value := strings.TrimSpace(source.DBDSN); value != "" {
		dsn, err := expandPath(value)
		if err != nil {
			return fmt.Errorf("resolve db_dsn: %w", err)
		}
		cfg.DBDSN = dsn
	}
	if value := strings.TrimSpace(source.Timezone); value != "" {
		cfg.Timezone = value
	}
	if value := strings.TrimSpace(source.LogLevel); value != "" {
		cfg.LogLevel = strings.ToLower(value)
	}
	if source.LogPretty != nil {
		cfg.LogPretty = *source.LogPretty
	}
	if source.SchedulerEnabled != nil {
		cfg.SchedulerEnabled = *source.SchedulerEnabled
	}
	if source.EmitterConcurrency != nil {
		cfg.EmitterConcurrency = *source.EmitterConcurrency
	}
	if len(source.NotifyWebhookURLs) > 0 {
		cfg.NotifyWebhookURLs = cleanList(source.NotifyWebhookURLs)
	}
	if source.NotifyRetryCount != nil {
		cfg.NotifyRetryCount = *source.NotifyRetryCount
	}

	backoff, err := parseOptionalDuration(source.NotifyRetryBackoff, cfg.NotifyRetryBackoff, "notify_retry_backoff")
	if err != nil {
		return err
	}
	cfg.NotifyRetryBackoff = backoff
	return nil
}

func applyEnv(cfg *Config) error {
	if value := EnvString(EnvHTTPAddr); value != "" {
		cfg.HTTPAddr = value
	}
	if value := EnvString(EnvDBDriver); value != "" {
		cfg.DBDriver = strings.ToLower(value)
	}
	if value := EnvString(EnvDBDSN); value != "" {
		cfg.DBDSN = value
	}
	if value := EnvString(EnvTimezone); value != "" {
		cfg.Timezone = value
	}
	if value := EnvString(EnvLogLevel); value != "" {
		cfg.LogLevel = strings.ToLower(value)
	}
	cfg.LogPretty = parseBoolEnv(EnvLogPretty, cfg.LogPretty)
	cfg.SchedulerEnabled = parseBoolEnv(EnvSchedulerEnabled, cfg.SchedulerEnabled)

	concurrency, err := parseIntEnv(EnvEmitterConcurrency, cfg.EmitterConcurrency)
	if err != nil {
		return err
	}
	cfg.EmitterConcurrency = concurrency

	if value := EnvString(EnvNotifyWebhookURLs); value != "" {
		cfg.NotifyWebhookURLs = cleanList(strings.Split(value, ","))
	}

	retries, err := parseIntEnv(EnvNotifyRetryCount, cfg.NotifyRetryCount)
	if err != nil {
		return err
	}
	cfg.NotifyRetryCount = retries

	backoff, err := parseOptionalDuration(EnvString(EnvNotifyRetryBackoff), cfg.NotifyRetryBackoff, EnvNotifyRetryBackoff)
	if err != nil {
		return err
	}
	cfg.NotifyRetryBackoff = backoff
	return nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.HTTPAddr) == "" {
		return fmt.Errorf("%s must not be empty", EnvHTTPAddr)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%s must be sqlite or postgres, got %q", EnvDBDriver, c.DBDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return fmt.Errorf("%s must not be empty", EnvDBDSN)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%s is invalid: %w", EnvTimezone, err)
	}
	if c.EmitterConcurrency < 1 {
		return fmt.Errorf("%s must be >= 1", EnvEmitterConcurrency)
	}
	if c.NotifyRetryCount < 1 {
		return fmt.Errorf("%s must be >= 1", EnvNotifyRetryCount)
	}
	for _, raw := range c.NotifyWebhookURLs {
		parsed, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s entry %q is invalid: %w", EnvNotifyWebhookURLs, raw, err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s entry %q must include scheme and host", EnvNotifyWebhookURLs, raw)
		}
	}
	return nil
}

// Location resolves the scheduler timezone.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
