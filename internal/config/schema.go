package config

// Config is the top-level configuration
type Config struct {
	API      APIConfig      `json:"api"`
	Session  SessionConfig  `json:"session"`
	Channels ChannelsConfig `json:"channels"`
}

// APIConfig points at the remote sales-reporting API.
type APIConfig struct {
	BaseURL        string `json:"baseUrl"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

// SessionConfig controls the access-token lifecycle.
type SessionConfig struct {
	TokenTTLHours int `json:"tokenTtlHours"`
}

type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Slack    SlackConfig    `json:"slack"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Token        string   `json:"token"`
	AllowedUsers []string `json:"allowedUsers"`
}

type SlackConfig struct {
	BotToken     string   `json:"botToken"`
	AppToken     string   `json:"appToken"`
	AllowedUsers []string `json:"allowedUsers"`
}

type DiscordConfig struct {
	Token        string   `json:"token"`
	AllowedUsers []string `json:"allowedUsers"`
}

// DefaultConfig returns a Config with sensible defaults applied.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			TimeoutSeconds: 30,
		},
		Session: SessionConfig{
			TokenTTLHours: 24,
		},
	}
}
