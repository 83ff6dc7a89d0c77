// Package config loads and persists the Stride configuration.
// Settings live in <data_dir>/config.yaml; provider API keys may come
// from the config file, the environment, or the OS keychain.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// keyringService is the service name under which API keys are stored
// in the OS keychain.
const keyringService = "stride"

// Config holds the application configuration.
type Config struct {
	// DataDir is the root of all user state (profiles, skills, prompts, MCP config)
	DataDir string `yaml:"data_dir"`

	// Port for the HTTP API server
	Port int `yaml:"port"`

	// Agents lists the coach agent ids selectable in the UI.
	// The special id "unified" always means "all skills".
	Agents []string `yaml:"agents"`

	// Providers configures LLM backends in priority order
	Providers []ProviderConfig `yaml:"providers"`

	// Cache holds TTLs for the in-memory pipeline caches
	Cache CacheConfig `yaml:"cache"`
}

// ProviderConfig holds configuration for a single LLM provider.
type ProviderConfig struct {
	Name    string `yaml:"name"`               // "openai", "anthropic", "ollama"
	APIKey  string `yaml:"api_key,omitempty"`  // supports ${ENV} expansion
	Model   string `yaml:"model,omitempty"`    // model id to use
	BaseURL string `yaml:"base_url,omitempty"` // for ollama (default http://localhost:11434)
}

// CacheConfig holds TTLs for the pipeline caches.
type CacheConfig struct {
	SkillTTL      time.Duration `yaml:"skill_ttl"`      // skills + commands (default 60s)
	PromptTTL     time.Duration `yaml:"prompt_ttl"`     // prompt index (default 120s)
	CapabilityTTL time.Duration `yaml:"capability_ttl"` // agent capabilities (default 60s)
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataDir: defaultDataDir(),
		Port:    27710,
		Agents:  []string{"unified"},
		Cache: CacheConfig{
			SkillTTL:      60 * time.Second,
			PromptTTL:     120 * time.Second,
			CapabilityTTL: 60 * time.Second,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stride"
	}
	return filepath.Join(home, ".stride")
}

// Load loads config from the data directory's config.yaml.
// A missing file yields the defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	return loadInto(cfg, filepath.Join(cfg.DataDir, "config.yaml"), true)
}

// LoadFrom loads config from a specific path.
func LoadFrom(path string) (*Config, error) {
	return loadInto(DefaultConfig(), path, false)
}

func loadInto(cfg *Config, path string, missingOK bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && missingOK {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Config file may use a tilde path
	if strings.HasPrefix(cfg.DataDir, "~/") {
		home, _ := os.UserHomeDir()
		cfg.DataDir = filepath.Join(home, cfg.DataDir[2:])
	}

	if cfg.Cache.SkillTTL <= 0 {
		cfg.Cache.SkillTTL = 60 * time.Second
	}
	if cfg.Cache.PromptTTL <= 0 {
		cfg.Cache.PromptTTL = 120 * time.Second
	}
	if cfg.Cache.CapabilityTTL <= 0 {
		cfg.Cache.CapabilityTTL = 60 * time.Second
	}

	for i := range cfg.Providers {
		cfg.Providers[i].APIKey = os.ExpandEnv(cfg.Providers[i].APIKey)
		cfg.Providers[i].BaseURL = os.ExpandEnv(cfg.Providers[i].BaseURL)
	}

	return cfg, nil
}

// Save writes the config to the data directory's config.yaml.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.DataDir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.DataDir, "config.yaml"), data, 0o600)
}

// ResolveAPIKey returns the API key for a provider, falling back to the
// OS keychain when the config and environment provide none.
func (c *Config) ResolveAPIKey(provider string) string {
	for _, p := range c.Providers {
		if p.Name == provider && p.APIKey != "" {
			return p.APIKey
		}
	}
	if key, err := keyring.Get(keyringService, provider); err == nil {
		return key
	}
	return ""
}

// GetProvider returns the provider config by name, or nil if not found.
func (c *Config) GetProvider(name string) *ProviderConfig {
	for i := range c.Providers {
		if c.Providers[i].Name == name {
			return &c.Providers[i]
		}
	}
	return nil
}

// Path helpers for the on-disk layout consumed by the pipeline.

// ProfilesDir returns the directory holding per-user profile state.
func (c *Config) ProfilesDir() string {
	return filepath.Join(c.DataDir, "profiles")
}

// ProfileDir returns the state directory for one profile.
func (c *Config) ProfileDir(profileID string) string {
	return filepath.Join(c.ProfilesDir(), profileID)
}

// SkillsDir returns the folder-based skill definitions directory.
func (c *Config) SkillsDir() string {
	return filepath.Join(c.DataDir, "skills")
}

// CommandsDir returns the file-based slash-command definitions directory.
func (c *Config) CommandsDir() string {
	return filepath.Join(c.DataDir, "commands")
}

// PromptsDir returns the prompt template directory.
func (c *Config) PromptsDir() string {
	return filepath.Join(c.DataDir, "prompts")
}

// SharedScheduleDir returns the shared (non-profile) schedule directory.
func (c *Config) SharedScheduleDir() string {
	return filepath.Join(c.DataDir, "schedule")
}

// MCPConfigPath returns the path of mcp-config.json.
func (c *Config) MCPConfigPath() string {
	return filepath.Join(c.DataDir, "mcp-config.json")
}

// CapabilitiesPath returns the path of agent-capabilities.json.
func (c *Config) CapabilitiesPath() string {
	return filepath.Join(c.DataDir, "agent-capabilities.json")
}
