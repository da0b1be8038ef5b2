package paths

import (
	"os"
	"path/filepath"
)

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	h, _ := os.UserHomeDir()
	return h
}

func xdgDir(envVar, fallbackSuffix string) string {
	if v := os.Getenv(envVar); v != "" {
		return filepath.Join(v, "mcp2skills")
	}
	return filepath.Join(homeDir(), fallbackSuffix, "mcp2skills")
}

// ConfigDir returns the mcp2skills config directory ($XDG_CONFIG_HOME/mcp2skills).
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the mcp2skills state directory ($XDG_STATE_HOME/mcp2skills).
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// ConfigFile returns the path to config.toml.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// SkillsDir returns the default Claude Code skills directory.
func SkillsDir() string {
	return filepath.Join(homeDir(), ".claude", "skills")
}

// EnsureDir creates a directory and parents if needed.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0700)
}

// Per-skill files. Every generated skill directory carries its own server
// descriptor, PID marker, spawn lock, and daemon log.

// DescriptorFile returns the server descriptor path inside a skill directory.
func DescriptorFile(skillDir string) string {
	return filepath.Join(skillDir, "mcp-config.json")
}

// PIDFile returns the daemon PID marker path inside a skill directory.
func PIDFile(skillDir string) string {
	return filepath.Join(skillDir, ".daemon.pid")
}

// LockFile returns the daemon spawn lock path inside a skill directory.
func LockFile(skillDir string) string {
	return filepath.Join(skillDir, ".daemon.lock")
}

// LogFile returns the daemon log path inside a skill directory.
func LogFile(skillDir string) string {
	return filepath.Join(skillDir, "daemon.log")
}

// SkillFile returns the SKILL.md path inside a skill directory.
func SkillFile(skillDir string) string {
	return filepath.Join(skillDir, "SKILL.md")
}

// ReferencesFile returns the compact-mode tool reference path.
func ReferencesFile(skillDir string) string {
	return filepath.Join(skillDir, "references", "tools.md")
}
