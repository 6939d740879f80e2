package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Channels.WhatsApp.BridgeURL != "ws://127.0.0.1:3000/ws" {
		t.Errorf("bridge_url = %q", cfg.Channels.WhatsApp.BridgeURL)
	}
	if cfg.Limits.Messages.PerMinute != 20 {
		t.Errorf("messages.per_minute = %d", cfg.Limits.Messages.PerMinute)
	}
	if cfg.Pipeline.CommandPrefix != "!" {
		t.Errorf("command_prefix = %q", cfg.Pipeline.CommandPrefix)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	// JSON5: comments and trailing commas are allowed.
	raw := `{
		// local bridge
		channels: {whatsapp: {bridge_url: "ws://bridge:9000/ws", send_rate: 2}},
		limits: {messages: {per_minute: 5, per_hour: 50, per_day: 100, warn_fraction: 0.5}},
		pipeline: {command_prefix: "/",},
	}`
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Channels.WhatsApp.BridgeURL != "ws://bridge:9000/ws" {
		t.Errorf("bridge_url = %q", cfg.Channels.WhatsApp.BridgeURL)
	}
	if cfg.Limits.Messages.PerMinute != 5 {
		t.Errorf("messages.per_minute = %d", cfg.Limits.Messages.PerMinute)
	}
	if cfg.Pipeline.CommandPrefix != "/" {
		t.Errorf("command_prefix = %q", cfg.Pipeline.CommandPrefix)
	}
	// Untouched sections keep their defaults.
	if cfg.Spam.Threshold != 5 {
		t.Errorf("spam.threshold = %d", cfg.Spam.Threshold)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	raw := `{channels: {whatsapp: {bridge_url: "ws://from-file/ws"}}}`
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("WABOT_BRIDGE_URL", "ws://from-env/ws")
	t.Setenv("WABOT_GATEWAY_TOKEN", "sekrit")
	t.Setenv("WABOT_POSTGRES_DSN", "postgres://env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Channels.WhatsApp.BridgeURL != "ws://from-env/ws" {
		t.Errorf("bridge_url = %q, env must win", cfg.Channels.WhatsApp.BridgeURL)
	}
	if cfg.Gateway.Token != "sekrit" {
		t.Errorf("gateway token = %q", cfg.Gateway.Token)
	}
	if cfg.Database.PostgresDSN != "postgres://env" {
		t.Errorf("postgres dsn = %q", cfg.Database.PostgresDSN)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	cfg.Channels.WhatsApp.BridgeURL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing bridge_url accepted")
	}

	cfg = Default()
	cfg.Database.Mode = "managed"
	if err := cfg.Validate(); err == nil {
		t.Error("managed mode without DSN accepted")
	}
	cfg.Database.PostgresDSN = "postgres://x"
	if err := cfg.Validate(); err != nil {
		t.Errorf("managed mode with DSN rejected: %v", err)
	}
	if !cfg.IsManagedMode() {
		t.Error("IsManagedMode = false with mode and DSN set")
	}
}
