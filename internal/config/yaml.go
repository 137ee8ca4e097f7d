package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigFile           = "WELLBOT_CONFIG_FILE"
	defaultConfigFileName   = "wellbot.yaml"
	alternateConfigFileName = "wellbot.yml"
)

type fileConfig struct {
	HTTPAddr           string   `yaml:"http_addr"`
	DBDriver           string   `yaml:"db_driver"`
	DBDSN              string   `yaml:"db_dsn"`
	Timezone           string   `yaml:"timezone"`
	LogLevel           string   `yaml:"log_level"`
	LogPretty          *bool    `yaml:"log_pretty"`
	SchedulerEnabled   *bool    `yaml:"scheduler_enabled"`
	EmitterConcurrency *int     `yaml:"emitter_concurrency"`
	NotifyWebhookURLs  []string `yaml:"notify_webhook_urls"`
	NotifyRetryCount   *int     `yaml:"notify_retry_count"`
	NotifyRetryBackoff string   `yaml:"notify_retry_backoff"`
}

func loadFileConfig() (fileConfig, error) {
	path, ok, err := resolveConfigFilePath()
	if err != nil {
		return fileConfig{}, err
	}
	if !ok {
		return fileConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("decode config file %s: %w", path, err)
	}
	return cfg, nil
}

// resolveConfigFilePath prefers WELLBOT_CONFIG_FILE, then wellbot.yaml and
// wellbot.yml in the working directory. A missing file is not an error.
func resolveConfigFilePath() (string, bool, error) {
	if explicit := EnvString(EnvConfigFile); explicit != "" {
		resolved, err := expandPath(explicit)
		if err != nil {
			return "", false, fmt.Errorf("resolve %s: %w", EnvConfigFile, err)
		}
		info, err := os.Stat(resolved)
		if err != nil {
			return "", false, fmt.Errorf("config file %s: %w", resolved, err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config file %s is a directory", resolved)
		}
		return resolved, true, nil
	}

	for _, candidate := range []string{defaultConfigFileName, alternateConfigFileName} {
		info, err := os.Stat(candidate)
		if err == nil {
			if info.IsDir() {
				return "", false, fmt.Errorf("config path %s is a directory", candidate)
			}
			return candidate, true, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("stat config file %s: %w", candidate, err)
		}
	}
	return "", false, nil
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(trimmed, "~")), nil
	}
	return trimmed, nil
}
