package notify

import (
	"strings"
	"time"
)

const (
	ChannelLog      = "log"
	ChannelTelegram = "telegram"
	ChannelNats     = "nats"
)

// Config holds configuration for event delivery.
type Config struct {
	// Channels is a comma-separated list of log, telegram and nats.
	Channels string `mapstructure:"channels" default:"log"`
	// Timeout bounds a single delivery.
	Timeout time.Duration `mapstructure:"timeout" default:"10s"`
	// MissingListLimit caps the missing entities listed in a daily report.
	MissingListLimit int `mapstructure:"missing_list_limit" default:"10"`
	// Telegram configures the Telegram bot channel.
	Telegram TelegramConfig `mapstructure:"telegram"`
	// Nats configures the JetStream CloudEvents channel.
	Nats NatsConfig `mapstructure:"nats"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token  string `mapstructure:"token" default:""`
	ChatID string `mapstructure:"chat_id" default:""`
	APIURL string `mapstructure:"api_url" default:"https://api.telegram.org"`
}

// NatsConfig holds JetStream publishing settings.
type NatsConfig struct {
	URL           string `mapstructure:"url" default:"nats://localhost:4222"`
	Stream        string `mapstructure:"stream" default:"INVENTORY_EVENTS"`
	SubjectPrefix string `mapstructure:"subject_prefix" default:"inventory.events"`
	Source        string `mapstructure:"source" default:"inventory-sync"`
}

// ChannelNames returns the configured channels, lower-cased and de-duplicated.
func (c Config) ChannelNames() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, ch := range strings.Split(c.Channels, ",") {
		ch = strings.ToLower(strings.TrimSpace(ch))
		if ch == "" {
			continue
		}
		if _, ok := seen[ch]; ok {
			continue
		}
		seen[ch] = struct{}{}
		out = append(out, ch)
	}
	return out
}

// Configured reports whether a bot token and chat id are set.
func (c TelegramConfig) Configured() bool {
	return c.Token != "" && c.ChatID != ""
}
