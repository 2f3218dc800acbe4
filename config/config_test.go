package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
[engine]
poll_interval = "250ms"
max_retries = 5
retry_delay = "2s"
shutdown_timeout = "10s"
dispatch_rate = 20

[[agents]]
id = "research-1"
type = "research"
capabilities = ["search", "summarize"]
provider = "fast"
system_prompt = "You are a research agent."

[[agents]]
type = "coding"

[providers.fast]
provider = "anthropic"
model = "claude-sonnet-4-20250514"
api_key = "sk-test"
max_tokens = 4096
`

func TestParse(t *testing.T) {
	cfg, err := Parse(sampleConfig)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Engine.PollInterval.Duration != 250*time.Millisecond {
		t.Errorf("Expected poll_interval 250ms, got %v", cfg.Engine.PollInterval.Duration)
	}
	if cfg.Engine.MaxRetries != 5 {
		t.Errorf("Expected max_retries 5, got %d", cfg.Engine.MaxRetries)
	}
	if cfg.Engine.RetryDelay.Duration != 2*time.Second {
		t.Errorf("Expected retry_delay 2s, got %v", cfg.Engine.RetryDelay.Duration)
	}
	if cfg.Engine.DispatchRate != 20 {
		t.Errorf("Expected dispatch_rate 20, got %d", cfg.Engine.DispatchRate)
	}

	if len(cfg.Agents) != 2 {
		t.Fatalf("Expected 2 agents, got %d", len(cfg.Agents))
	}
	if cfg.Agents[0].ID != "research-1" || cfg.Agents[0].Type != "research" {
		t.Errorf("Unexpected first agent: %+v", cfg.Agents[0])
	}
	if len(cfg.Agents[0].Capabilities) != 2 {
		t.Errorf("Expected 2 capabilities, got %v", cfg.Agents[0].Capabilities)
	}

	p, ok := cfg.Providers["fast"]
	if !ok {
		t.Fatal("Expected provider profile 'fast'")
	}
	if p.Model != "claude-sonnet-4-20250514" || p.MaxTokens != 4096 {
		t.Errorf("Unexpected provider profile: %+v", p)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse("")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Engine.PollInterval.Duration != 100*time.Millisecond {
		t.Errorf("Expected default poll_interval, got %v", cfg.Engine.PollInterval.Duration)
	}
	if cfg.Engine.MaxRetries != 3 {
		t.Errorf("Expected default max_retries 3, got %d", cfg.Engine.MaxRetries)
	}
	if cfg.Engine.RetryDelay.Duration != time.Second {
		t.Errorf("Expected default retry_delay 1s, got %v", cfg.Engine.RetryDelay.Duration)
	}
	if cfg.Engine.ShutdownTimeout.Duration != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Engine.ShutdownTimeout.Duration)
	}
}

func TestParseInvalidDuration(t *testing.T) {
	_, err := Parse(`
[engine]
poll_interval = "soon"
`)
	if err == nil {
		t.Error("Expected error for unparseable duration")
	}
}

func TestValidateAgentWithoutType(t *testing.T) {
	_, err := Parse(`
[[agents]]
id = "nameless"
`)
	if err == nil || !strings.Contains(err.Error(), "type is required") {
		t.Errorf("Expected missing type error, got %v", err)
	}
}

func TestValidateUnknownProviderProfile(t *testing.T) {
	_, err := Parse(`
[[agents]]
type = "research"
provider = "missing"
`)
	if err == nil || !strings.Contains(err.Error(), "unknown provider profile") {
		t.Errorf("Expected unknown profile error, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conductor.toml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(cfg.Agents) != 2 {
		t.Errorf("Expected 2 agents, got %d", len(cfg.Agents))
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/conductor.toml"); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestResolveAPIKeyFromFile(t *testing.T) {
	cfg, err := Parse(sampleConfig)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if key := cfg.ResolveAPIKey("fast"); key != "sk-test" {
		t.Errorf("Expected key from file, got %q", key)
	}
	if key := cfg.ResolveAPIKey("absent"); key != "" {
		t.Errorf("Expected empty key for unknown profile, got %q", key)
	}
}

func TestResolveAPIKeyFromEnv(t *testing.T) {
	cfg, err := Parse(`
[providers.env-backed]
provider = "anthropic"
model = "claude-sonnet-4-20250514"
`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	t.Setenv("ANTHROPIC_API_KEY", "sk-from-env")
	if key := cfg.ResolveAPIKey("env-backed"); key != "sk-from-env" {
		t.Errorf("Expected key from environment, got %q", key)
	}
}

func TestEnvVarForProvider(t *testing.T) {
	cases := []struct {
		provider string
		want     string
	}{
		{"anthropic", "ANTHROPIC_API_KEY"},
		{"openai", "OPENAI_API_KEY"},
		{"google", "GOOGLE_API_KEY"},
		{"my-provider", "MY_PROVIDER_API_KEY"},
	}
	for _, c := range cases {
		if got := EnvVarForProvider(c.provider); got != c.want {
			t.Errorf("Provider %s: expected %s, got %s", c.provider, c.want, got)
		}
	}
}

func TestStandardPaths(t *testing.T) {
	paths := StandardPaths()
	if len(paths) == 0 {
		t.Fatal("Expected at least one standard path")
	}
	if paths[0] != "conductor.toml" {
		t.Errorf("Expected working directory first, got %s", paths[0])
	}
}
