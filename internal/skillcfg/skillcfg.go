// Package skillcfg loads and writes the per-skill server descriptor
// (mcp-config.json). The descriptor is the immutable launch spec for the
// child MCP server process; a daemon reads it exactly once at startup.
package skillcfg

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

var envVarRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Descriptor describes how to launch and connect to a single MCP server.
type Descriptor struct {
	Name string `json:"name,omitempty"`

	// Stdio transport
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`

	// Streamable HTTP transport
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	// Daemon holds lifecycle settings for the skill's background daemon.
	Daemon DaemonConfig `json:"daemon,omitzero"`

	// Disabled marks an entry in a combined mcpservers.json as skipped.
	Disabled bool `json:"disabled,omitempty"`
}

// DaemonConfig holds the daemon lifecycle settings baked into a skill.
type DaemonConfig struct {
	// Port is the localhost TCP port the daemon binds.
	Port int `json:"port,omitempty"`
	// IdleTimeout is the inactivity shutdown threshold in seconds.
	// Zero disables the idle check entirely.
	IdleTimeout int `json:"idle_timeout,omitempty"`
}

// IsStdio returns true if the server uses stdio transport.
func (d Descriptor) IsStdio() bool {
	return d.Command != ""
}

// IsHTTP returns true if the server uses streamable HTTP transport.
func (d Descriptor) IsHTTP() bool {
	return d.URL != ""
}

// Validate checks that the descriptor names exactly one usable transport.
func (d Descriptor) Validate() error {
	if !d.IsStdio() && !d.IsHTTP() {
		return fmt.Errorf("descriptor has no command or url")
	}
	return nil
}

// Load reads and parses a descriptor file, expanding ${ENV_VAR} placeholders
// from the current process environment and normalizing the command for the
// host platform.
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}

	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing descriptor %s: %w", path, err)
	}
	if d.Name == "" {
		d.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	expandDescriptor(&d)
	d.Command = normalizeCommand(d.Command)
	return &d, nil
}

// Save writes a descriptor as indented JSON.
func Save(path string, d *Descriptor) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// ServersFile is the combined multi-server configuration format
// ({"mcpServers": {"name": {...}}}) that batch conversion splits.
type ServersFile struct {
	MCPServers map[string]Descriptor `json:"mcpServers"`
}

// LoadServersFile reads a combined mcpservers.json. No env expansion is
// performed; split files keep their raw placeholders so writes do not bake
// secrets.
func LoadServersFile(path string) (*ServersFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading servers file: %w", err)
	}

	var sf ServersFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing servers file %s: %w", path, err)
	}
	return &sf, nil
}

func expandDescriptor(d *Descriptor) {
	d.Command = expandEnvVars(d.Command)
	d.URL = expandEnvVars(d.URL)
	for i := range d.Args {
		d.Args[i] = expandEnvVars(d.Args[i])
	}
	for k, v := range d.Env {
		d.Env[k] = expandEnvVars(v)
	}
	for k, v := range d.Headers {
		d.Headers[k] = expandEnvVars(v)
	}
}

// expandEnvVars replaces ${VAR_NAME} with the value of the environment variable.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarRe.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match // leave unresolved vars as-is
	})
}

// normalizeCommand fixes cross-platform command names: descriptors written on
// Windows often reference npx.cmd, which does not exist on other systems.
func normalizeCommand(command string) string {
	if command == "" || runtime.GOOS == "windows" {
		return command
	}
	if strings.HasSuffix(command, ".cmd") {
		base := strings.TrimSuffix(filepath.Base(command), ".cmd")
		switch base {
		case "npx", "node", "npm":
			return base
		}
	}
	return command
}
