package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Common errors.
var (
	ErrNotFound = fmt.Errorf("no configuration file found")
)

// Config is the root configuration.
type Config struct {
	// Engine holds orchestrator knobs.
	Engine EngineConfig `toml:"engine"`

	// Agents is the fleet to register at startup.
	Agents []AgentConfig `toml:"agents"`

	// Providers maps profile names to LLM provider settings.
	Providers map[string]ProviderConfig `toml:"providers"`
}

// EngineConfig holds orchestrator knobs.
type EngineConfig struct {
	// PollInterval caps how long the dispatcher sleeps between cycles
	// when no wake signal arrives. Default: 100ms.
	PollInterval duration `toml:"poll_interval"`

	// MaxRetries is the retry budget per task. Default: 3.
	MaxRetries int `toml:"max_retries"`

	// RetryDelay is the base backoff between attempts; the actual delay
	// scales with the attempt number. Default: 1s.
	RetryDelay duration `toml:"retry_delay"`

	// ExecTimeout bounds a single execution attempt. Zero means no
	// per-attempt deadline.
	ExecTimeout duration `toml:"exec_timeout"`

	// ShutdownTimeout bounds graceful shutdown. Default: 30s.
	ShutdownTimeout duration `toml:"shutdown_timeout"`

	// DispatchRate caps dispatches per second. Zero disables the cap.
	DispatchRate int `toml:"dispatch_rate"`
}

// AgentConfig describes one agent to register.
type AgentConfig struct {
	// ID uniquely identifies the agent. Generated if empty.
	ID string `toml:"id"`

	// Type is the capability class (research, coding, ...).
	Type string `toml:"type"`

	// Capabilities lists supported operation tags.
	Capabilities []string `toml:"capabilities"`

	// Provider names the provider profile backing this agent.
	Provider string `toml:"provider"`

	// SystemPrompt frames the agent's role for LLM-backed capabilities.
	SystemPrompt string `toml:"system_prompt"`
}

// ProviderConfig holds LLM provider settings for one profile.
type ProviderConfig struct {
	// Provider is the backend name (anthropic, openai, google).
	// Inferred from Model if empty.
	Provider string `toml:"provider"`

	// Model is the model identifier.
	Model string `toml:"model"`

	// APIKey is the credential. Falls back to the provider's
	// conventional environment variable if empty.
	APIKey string `toml:"api_key"`

	// MaxTokens caps response length.
	MaxTokens int `toml:"max_tokens"`

	// BaseURL overrides the API endpoint.
	BaseURL string `toml:"base_url"`
}

// duration wraps time.Duration for TOML decoding of strings like "5s".
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Default returns configuration with engine defaults applied.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			PollInterval:    duration{100 * time.Millisecond},
			MaxRetries:      3,
			RetryDelay:      duration{time.Second},
			ShutdownTimeout: duration{30 * time.Second},
		},
	}
}

// StandardPaths returns the configuration file locations in priority order.
func StandardPaths() []string {
	paths := []string{"conductor.toml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "conductor", "conductor.toml"))
	}

	return paths
}

// Load loads configuration from the first available standard location.
// Returns ErrNotFound if no file exists.
func Load() (*Config, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			cfg, err := LoadFile(path)
			if err != nil {
				return nil, path, err
			}
			return cfg, path, nil
		}
	}
	return nil, "", ErrNotFound
}

// LoadFile loads configuration from a specific file.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate %s: %w", path, err)
	}
	return cfg, nil
}

// Parse loads configuration from TOML source text.
func Parse(data string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero values with engine defaults.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Engine.PollInterval.Duration == 0 {
		c.Engine.PollInterval = def.Engine.PollInterval
	}
	if c.Engine.MaxRetries == 0 {
		c.Engine.MaxRetries = def.Engine.MaxRetries
	}
	if c.Engine.RetryDelay.Duration == 0 {
		c.Engine.RetryDelay = def.Engine.RetryDelay
	}
	if c.Engine.ShutdownTimeout.Duration == 0 {
		c.Engine.ShutdownTimeout = def.Engine.ShutdownTimeout
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if c.Engine.DispatchRate < 0 {
		return fmt.Errorf("dispatch_rate must not be negative")
	}

	for i, a := range c.Agents {
		if a.Type == "" {
			return fmt.Errorf("agent %d: type is required", i)
		}
		if a.Provider != "" {
			if _, ok := c.Providers[a.Provider]; !ok {
				return fmt.Errorf("agent %d: unknown provider profile %q", i, a.Provider)
			}
		}
	}

	return nil
}

// ResolveAPIKey returns the API key for a provider profile, falling
// back to the backend's conventional environment variable.
func (c *Config) ResolveAPIKey(profile string) string {
	p, ok := c.Providers[profile]
	if !ok {
		return ""
	}
	if p.APIKey != "" {
		return p.APIKey
	}
	return os.Getenv(EnvVarForProvider(p.Provider))
}

// EnvVarForProvider returns the environment variable name for a provider.
func EnvVarForProvider(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	default:
		// Generic: PROVIDER_API_KEY
		return strings.ToUpper(strings.ReplaceAll(provider, "-", "_")) + "_API_KEY"
	}
}
