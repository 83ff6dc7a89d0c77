package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// LoadConfig reads mcp-config.json. A missing file yields disabled
// defaults rather than an error; a malformed file is an error.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{Enabled: false}, nil
		}
		return nil, fmt.Errorf("read mcp config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse mcp config: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes mcp-config.json, stamping LastUpdated.
func SaveConfig(path string, cfg *Config) error {
	cfg.LastUpdated = time.Now().UTC()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
