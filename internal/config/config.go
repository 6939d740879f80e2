// Package config holds the bot configuration: a JSON5 file overlaid with
// WABOT_* environment variables. Secrets (gateway token, Postgres DSN) come
// from the environment only and are never written to the config file.
package config

import (
	"fmt"
)

// Config is the root configuration.
type Config struct {
	Gateway  GatewayConfig  `json:"gateway"`
	Channels ChannelsConfig `json:"channels"`
	Limits   LimitsConfig   `json:"limits,omitempty"`
	Spam     SpamConfig     `json:"spam,omitempty"`
	Pipeline PipelineConfig `json:"pipeline,omitempty"`
	Database DatabaseConfig `json:"database,omitempty"`
}

// GatewayConfig configures the HTTP admin API.
type GatewayConfig struct {
	Host  string `json:"host"`
	Port  int    `json:"port"`
	Token string `json:"-"` // from env WABOT_GATEWAY_TOKEN only
}

// ChannelsConfig configures the transport channels.
type ChannelsConfig struct {
	WhatsApp WhatsAppConfig `json:"whatsapp"`
}

// WhatsAppConfig configures the WebSocket bridge connection.
type WhatsAppConfig struct {
	BridgeURL string `json:"bridge_url"`
	// SendRate caps outbound messages per second toward the bridge
	// (0 = unlimited).
	SendRate float64 `json:"send_rate,omitempty"`
}

// CategoryLimits is one rate-limit category's window ceilings.
type CategoryLimits struct {
	PerMinute    int     `json:"per_minute"`
	PerHour      int     `json:"per_hour"`
	PerDay       int     `json:"per_day"`
	WarnFraction float64 `json:"warn_fraction"`
}

// LimitsConfig configures per-category rate limits.
type LimitsConfig struct {
	Messages CategoryLimits `json:"messages"`
	Media    CategoryLimits `json:"media"`
	Commands CategoryLimits `json:"commands"`
	// WarningCooldownMinutes is the minimum gap between usage warnings
	// per sender.
	WarningCooldownMinutes int `json:"warning_cooldown_minutes"`
	// SweepIntervalMinutes is the cadence of the expired-block sweep.
	SweepIntervalMinutes int `json:"sweep_interval_minutes"`
}

// SpamConfig configures the coarse spam-escalation check.
type SpamConfig struct {
	Threshold     int `json:"threshold"`
	WindowMinutes int `json:"window_minutes"`
}

// PipelineConfig tunes event processing.
type PipelineConfig struct {
	CommandPrefix string `json:"command_prefix,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
}

// DatabaseConfig selects the storage backend.
// PostgresDSN is a secret and is never read from the config file, only from
// env WABOT_POSTGRES_DSN.
type DatabaseConfig struct {
	Mode        string `json:"mode,omitempty"` // "standalone" (default) or "managed"
	SQLitePath  string `json:"sqlite_path,omitempty"`
	PostgresDSN string `json:"-"`
}

// IsManagedMode reports whether the Postgres backend is in use.
func (c *Config) IsManagedMode() bool {
	return c.Database.Mode == "managed" && c.Database.PostgresDSN != ""
}

// Validate rejects configurations the bot cannot run with.
func (c *Config) Validate() error {
	if c.Channels.WhatsApp.BridgeURL == "" {
		return fmt.Errorf("channels.whatsapp.bridge_url is required")
	}
	if c.Database.Mode == "managed" && c.Database.PostgresDSN == "" {
		return fmt.Errorf("database.mode is managed but WABOT_POSTGRES_DSN is not set")
	}
	return nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 18890,
		},
		Channels: ChannelsConfig{
			WhatsApp: WhatsAppConfig{
				BridgeURL: "ws://127.0.0.1:3000/ws",
				SendRate:  1,
			},
		},
		Limits: LimitsConfig{
			Messages:               CategoryLimits{PerMinute: 20, PerHour: 100, PerDay: 500, WarnFraction: 0.8},
			Media:                  CategoryLimits{PerMinute: 5, PerHour: 30, PerDay: 100, WarnFraction: 0.7},
			Commands:               CategoryLimits{PerMinute: 10, PerHour: 50, PerDay: 200, WarnFraction: 0.9},
			WarningCooldownMinutes: 5,
			SweepIntervalMinutes:   10,
		},
		Spam: SpamConfig{
			Threshold:     5,
			WindowMinutes: 5,
		},
		Pipeline: PipelineConfig{
			CommandPrefix: "!",
			QueueSize:     256,
		},
		Database: DatabaseConfig{
			Mode:       "standalone",
			SQLitePath: "whatsapp-bot.db",
		},
	}
}
