// Package config holds the mcp2skills application settings: where skills are
// written, how daemon ports are assigned, and how the optional LLM
// enhancement endpoint is reached. Per-skill server descriptors live in
// package skillcfg, not here.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"

	"github.com/junerver/MCP2Skills/internal/paths"
)

// Settings is the top-level mcp2skills configuration.
type Settings struct {
	// OutputDir is where converted skills are written.
	OutputDir string `toml:"output_dir"`
	// SkillPrefix is prepended to generated skill directory names.
	SkillPrefix string `toml:"skill_prefix"`
	// ServersDir is where batch conversion writes split descriptors.
	ServersDir string `toml:"servers_dir"`

	// PortBase is the start of the daemon port range; each skill gets a
	// deterministic port within [PortBase, PortBase+PortSpan).
	PortBase int `toml:"port_base"`
	PortSpan int `toml:"port_span"`

	// IdleTimeout is the default daemon idle shutdown threshold in
	// seconds baked into converted skills. Zero disables the idle check.
	IdleTimeout int `toml:"idle_timeout"`

	LLM LLMSettings `toml:"llm"`
}

// LLMSettings configures the OpenAI-compatible enhancement endpoint.
type LLMSettings struct {
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
}

// Enabled reports whether the enhancement endpoint is usable.
func (l LLMSettings) Enabled() bool {
	return l.APIKey != ""
}

// Default returns settings matching the documented defaults.
func Default() *Settings {
	return &Settings{
		OutputDir:   "skills",
		SkillPrefix: "skill-",
		ServersDir:  "servers",
		PortBase:    17300,
		PortSpan:    1000,
		IdleTimeout: 0,
		LLM: LLMSettings{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
	}
}

// Load reads config.toml and applies environment overrides.
// A missing config file is not an error; defaults are returned.
func Load() (*Settings, error) {
	return LoadFrom(paths.ConfigFile())
}

// LoadFrom reads and parses a settings file at the given path.
func LoadFrom(path string) (*Settings, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	} else if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Environment variables override file values so CI and one-off runs do not
// need a config file at all.
func applyEnvOverrides(cfg *Settings) {
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.Temperature = f
		}
	}
	if v := os.Getenv("LLM_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LLM.MaxTokens = n
		}
	}
	if v := os.Getenv("MCP2SKILLS_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
}

func validate(cfg *Settings) error {
	if cfg.PortBase < 1024 || cfg.PortBase > 65535 {
		return fmt.Errorf("port_base %d out of range", cfg.PortBase)
	}
	if cfg.PortSpan <= 0 || cfg.PortBase+cfg.PortSpan > 65536 {
		return fmt.Errorf("port_span %d out of range for base %d", cfg.PortSpan, cfg.PortBase)
	}
	if cfg.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout must not be negative")
	}
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature %v out of range [0, 2]", cfg.LLM.Temperature)
	}
	return nil
}
