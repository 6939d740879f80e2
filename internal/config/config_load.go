package config

import (
	"fmt"
	"os"

	"github.com/titanous/json5"
)

// Load reads config from a JSON5 file, then overlays env vars. A missing
// file is not an error: defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config. Env vars take
// precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("WABOT_GATEWAY_TOKEN", &c.Gateway.Token)
	envStr("WABOT_BRIDGE_URL", &c.Channels.WhatsApp.BridgeURL)
	envStr("WABOT_DB_PATH", &c.Database.SQLitePath)
	envStr("WABOT_DB_MODE", &c.Database.Mode)
	envStr("WABOT_POSTGRES_DSN", &c.Database.PostgresDSN)
}
