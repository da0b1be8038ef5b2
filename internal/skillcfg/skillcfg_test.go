package skillcfg

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeDescriptor(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mcp-config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing descriptor: %v", err)
	}
	return path
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "secret-token")

	path := writeDescriptor(t, `{
  "name": "github",
  "command": "server-github",
  "env": {"GITHUB_PERSONAL_ACCESS_TOKEN": "${GITHUB_TOKEN}"},
  "daemon": {"port": 17310, "idle_timeout": 300}
}`)

	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.Env["GITHUB_PERSONAL_ACCESS_TOKEN"] != "secret-token" {
		t.Fatalf("env = %q, want expanded token", d.Env["GITHUB_PERSONAL_ACCESS_TOKEN"])
	}
	if d.Daemon.Port != 17310 {
		t.Fatalf("Daemon.Port = %d, want 17310", d.Daemon.Port)
	}
	if d.Daemon.IdleTimeout != 300 {
		t.Fatalf("Daemon.IdleTimeout = %d, want 300", d.Daemon.IdleTimeout)
	}
}

func TestLoadLeavesUnresolvedPlaceholders(t *testing.T) {
	path := writeDescriptor(t, `{"command": "run", "args": ["${MCP2SKILLS_UNSET_VAR}"]}`)

	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.Args[0] != "${MCP2SKILLS_UNSET_VAR}" {
		t.Fatalf("args[0] = %q, want placeholder preserved", d.Args[0])
	}
}

func TestLoadNameDefaultsToFileStem(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chrome-devtools.json")
	if err := os.WriteFile(path, []byte(`{"command": "npx"}`), 0o644); err != nil {
		t.Fatalf("writing descriptor: %v", err)
	}

	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.Name != "chrome-devtools" {
		t.Fatalf("Name = %q, want %q", d.Name, "chrome-devtools")
	}
}

func TestLoadNormalizesWindowsCommands(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("normalization only rewrites on non-windows hosts")
	}

	path := writeDescriptor(t, `{"command": "C:\\tools\\npx.cmd"}`)

	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d.Command != "npx" {
		t.Fatalf("Command = %q, want %q", d.Command, "npx")
	}
}

func TestValidateRejectsEmptyTransport(t *testing.T) {
	if err := (Descriptor{}).Validate(); err == nil {
		t.Fatal("Validate() error = nil, want transport error")
	}
	if err := (Descriptor{Command: "x"}).Validate(); err != nil {
		t.Fatalf("Validate(stdio) error = %v, want nil", err)
	}
	if err := (Descriptor{URL: "http://localhost"}).Validate(); err != nil {
		t.Fatalf("Validate(http) error = %v, want nil", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcp-config.json")
	in := &Descriptor{
		Name:    "echo",
		Command: "echo-server",
		Args:    []string{"--stdio"},
		Daemon:  DaemonConfig{Port: 17301},
	}
	if err := Save(path, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out.Name != in.Name || out.Command != in.Command || out.Daemon.Port != in.Daemon.Port {
		t.Fatalf("round trip = %+v, want %+v", out, in)
	}
}

func TestLoadServersFile(t *testing.T) {
	path := writeDescriptor(t, `{
  "mcpServers": {
    "github": {"command": "server-github"},
    "legacy": {"command": "old", "disabled": true}
  }
}`)

	sf, err := LoadServersFile(path)
	if err != nil {
		t.Fatalf("LoadServersFile() error = %v", err)
	}
	if len(sf.MCPServers) != 2 {
		t.Fatalf("len(MCPServers) = %d, want 2", len(sf.MCPServers))
	}
	if !sf.MCPServers["legacy"].Disabled {
		t.Fatal("legacy server should be marked disabled")
	}
}
