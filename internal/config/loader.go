package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Load loads config from the default path (~/.salesbot/config.json).
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return LoadFromFile(filepath.Join(home, ".salesbot", "config.json"))
}

// LoadFromFile loads config from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader loads config from an io.Reader, applying defaults and env overrides.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	if err := json.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies SALESBOT_-prefixed environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	envMap := map[string]*string{
		"SALESBOT_API_BASEURL":             &cfg.API.BaseURL,
		"SALESBOT_CHANNELS_TELEGRAM_TOKEN": &cfg.Channels.Telegram.Token,
		"SALESBOT_CHANNELS_SLACK_BOTTOKEN": &cfg.Channels.Slack.BotToken,
		"SALESBOT_CHANNELS_SLACK_APPTOKEN": &cfg.Channels.Slack.AppToken,
		"SALESBOT_CHANNELS_DISCORD_TOKEN":  &cfg.Channels.Discord.Token,
	}

	for env, ptr := range envMap {
		if val := os.Getenv(env); val != "" {
			*ptr = val
		}
	}
}
