package paths

import (
	"path/filepath"
	"testing"
)

func TestConfigDirUsesXDGConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/config-home")
	t.Setenv("HOME", "/tmp/home")

	got := ConfigDir()
	want := filepath.Join("/tmp/config-home", "mcp2skills")
	if got != want {
		t.Fatalf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestConfigDirFallsBackToHomeDotConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/tmp/home")

	got := ConfigDir()
	want := filepath.Join("/tmp/home", ".config", "mcp2skills")
	if got != want {
		t.Fatalf("ConfigDir() = %q, want %q", got, want)
	}
}

func TestStateDirFallsBackToHomeLocalState(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", "/tmp/home")

	got := StateDir()
	want := filepath.Join("/tmp/home", ".local", "state", "mcp2skills")
	if got != want {
		t.Fatalf("StateDir() = %q, want %q", got, want)
	}
}

func TestSkillDirFiles(t *testing.T) {
	dir := "/tmp/skills/skill-github"

	if got, want := DescriptorFile(dir), filepath.Join(dir, "mcp-config.json"); got != want {
		t.Fatalf("DescriptorFile() = %q, want %q", got, want)
	}
	if got, want := PIDFile(dir), filepath.Join(dir, ".daemon.pid"); got != want {
		t.Fatalf("PIDFile() = %q, want %q", got, want)
	}
	if got, want := LockFile(dir), filepath.Join(dir, ".daemon.lock"); got != want {
		t.Fatalf("LockFile() = %q, want %q", got, want)
	}
	if got, want := LogFile(dir), filepath.Join(dir, "daemon.log"); got != want {
		t.Fatalf("LogFile() = %q, want %q", got, want)
	}
}
