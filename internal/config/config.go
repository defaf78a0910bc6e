// Package config loads scanlink settings from an optional YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Shop is one pickup location offered in the wizard's shop step.
type Shop struct {
	ID   int64  `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// Config carries the settings for every scanlink subcommand. Unused fields
// are simply ignored by commands that do not need them.
type Config struct {
	// RelayURL is the websocket endpoint clients dial.
	RelayURL string `yaml:"relay_url"`
	// APIBaseURL is the product store HTTP API.
	APIBaseURL string `yaml:"api_base_url"`
	// ListenAddr is where `scanlink serve` binds.
	ListenAddr string `yaml:"listen_addr"`
	// ImageDir is the relay's photo directory.
	ImageDir string `yaml:"image_dir"`
	// TimeoutMinutes is the operator session timeout; 0 disables it.
	TimeoutMinutes int `yaml:"timeout_minutes"`
	// PollInterval is the login-state poll fallback cadence.
	PollInterval time.Duration `yaml:"poll_interval"`
	// HistoryPath is the companion's capture log (JSONL).
	HistoryPath string `yaml:"history_path"`
	// Shops seeds the relay's shop list.
	Shops []Shop `yaml:"shops"`
}

// Default returns the configuration used when no file and no env vars are
// present. The relay serves the websocket endpoint and the HTTP API on the
// same port.
func Default() Config {
	return Config{
		RelayURL:       "ws://127.0.0.1:8000/ws",
		APIBaseURL:     "http://127.0.0.1:8000",
		ListenAddr:     ":8000",
		ImageDir:       "images",
		TimeoutMinutes: 30,
		PollInterval:   5 * time.Second,
		HistoryPath:    "history.jsonl",
	}
}

// Load reads path (when non-empty and existing) over the defaults, then
// applies SCANLINK_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			slog.Info("Config file not found, using defaults", "path", path)
		case err != nil:
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	cfg.RelayURL = getEnv("SCANLINK_RELAY_URL", cfg.RelayURL)
	cfg.APIBaseURL = getEnv("SCANLINK_API_BASE_URL", cfg.APIBaseURL)
	cfg.ListenAddr = getEnv("SCANLINK_LISTEN_ADDR", cfg.ListenAddr)
	cfg.ImageDir = getEnv("SCANLINK_IMAGE_DIR", cfg.ImageDir)
	cfg.HistoryPath = getEnv("SCANLINK_HISTORY_PATH", cfg.HistoryPath)
	cfg.TimeoutMinutes = getEnvInt("SCANLINK_TIMEOUT_MINUTES", cfg.TimeoutMinutes)

	if cfg.TimeoutMinutes < 0 {
		cfg.TimeoutMinutes = 0
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Ignoring non-numeric env var", "key", key, "value", value)
		return fallback
	}
	return n
}
