package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func clearEnvOverrides(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LLM_API_KEY", "LLM_BASE_URL", "LLM_MODEL",
		"LLM_TEMPERATURE", "LLM_MAX_TOKENS", "MCP2SKILLS_OUTPUT_DIR",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	clearEnvOverrides(t)

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.SkillPrefix != "skill-" {
		t.Fatalf("SkillPrefix = %q, want %q", cfg.SkillPrefix, "skill-")
	}
	if cfg.PortBase != 17300 {
		t.Fatalf("PortBase = %d, want 17300", cfg.PortBase)
	}
	if cfg.LLM.Enabled() {
		t.Fatal("LLM.Enabled() = true with no api key")
	}
}

func TestLoadFromParsesFile(t *testing.T) {
	clearEnvOverrides(t)

	path := writeConfig(t, `
output_dir = "/srv/skills"
idle_timeout = 600

[llm]
api_key = "sk-test"
model = "gpt-4o"
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.OutputDir != "/srv/skills" {
		t.Fatalf("OutputDir = %q, want /srv/skills", cfg.OutputDir)
	}
	if cfg.IdleTimeout != 600 {
		t.Fatalf("IdleTimeout = %d, want 600", cfg.IdleTimeout)
	}
	if !cfg.LLM.Enabled() || cfg.LLM.Model != "gpt-4o" {
		t.Fatalf("LLM = %+v, want enabled gpt-4o", cfg.LLM)
	}
}

func TestEnvOverridesBeatFileValues(t *testing.T) {
	clearEnvOverrides(t)
	t.Setenv("LLM_API_KEY", "sk-env")
	t.Setenv("LLM_MAX_TOKENS", "512")

	path := writeConfig(t, `
[llm]
api_key = "sk-file"
max_tokens = 4096
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Fatalf("APIKey = %q, want env override", cfg.LLM.APIKey)
	}
	if cfg.LLM.MaxTokens != 512 {
		t.Fatalf("MaxTokens = %d, want 512", cfg.LLM.MaxTokens)
	}
}

func TestLoadFromRejectsBadPortRange(t *testing.T) {
	clearEnvOverrides(t)

	path := writeConfig(t, `port_base = 65000
port_span = 2000`)

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("LoadFrom() error = nil, want port range error")
	}
}

func TestLoadFromRejectsNegativeIdleTimeout(t *testing.T) {
	clearEnvOverrides(t)

	path := writeConfig(t, `idle_timeout = -1`)

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("LoadFrom() error = nil, want idle_timeout error")
	}
}
