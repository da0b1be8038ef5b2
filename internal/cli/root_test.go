package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCommand("test")

	want := map[string]bool{
		"init":      false,
		"convert":   false,
		"batch":     false,
		"run":       false,
		"uninstall": false,
		"__daemon":  true,
	}
	for _, cmd := range root.Commands() {
		name := cmd.Name()
		hidden, ok := want[name]
		if !ok {
			continue
		}
		if cmd.Hidden != hidden {
			t.Errorf("command %s hidden = %v, want %v", name, cmd.Hidden, hidden)
		}
		delete(want, name)
	}
	for name := range want {
		t.Errorf("missing command %s", name)
	}
}

func TestRunRequiresExactlyOneAction(t *testing.T) {
	cases := []struct {
		name  string
		flags runFlags
		want  int
	}{
		{"none", runFlags{}, 0},
		{"list only", runFlags{list: true}, 1},
		{"describe only", runFlags{describe: "echo"}, 1},
		{"list and call", runFlags{list: true, call: "{}"}, 2},
		{"status and stop", runFlags{status: true, stop: true}, 2},
	}

	for _, tc := range cases {
		if got := tc.flags.actionCount(); got != tc.want {
			t.Errorf("%s: actionCount = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestInitWritesStarterFiles(t *testing.T) {
	dir := t.TempDir()

	if err := runInit(dir); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	servers, err := os.ReadFile(filepath.Join(dir, "mcpservers.json"))
	if err != nil {
		t.Fatalf("mcpservers.json not written: %v", err)
	}
	if !strings.Contains(string(servers), "mcpServers") {
		t.Errorf("example servers file missing mcpServers key:\n%s", servers)
	}

	cfg, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	if err != nil {
		t.Fatalf("config.toml not written: %v", err)
	}
	if !strings.Contains(string(cfg), "port_base") {
		t.Errorf("config.toml missing defaults:\n%s", cfg)
	}
}

func TestInitKeepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "mcpservers.json")
	if err := os.WriteFile(existing, []byte(`{"mcpServers":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := runInit(dir); err != nil {
		t.Fatalf("runInit: %v", err)
	}

	data, err := os.ReadFile(existing)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"mcpServers":{}}` {
		t.Errorf("existing file was overwritten:\n%s", data)
	}
}

func TestConvertCommandFlags(t *testing.T) {
	root := NewRootCommand("test")
	convertCmd, _, err := root.Find([]string{"convert"})
	if err != nil {
		t.Fatalf("finding convert: %v", err)
	}

	for _, name := range []string{"output", "daemon", "compact", "port", "idle-timeout", "install"} {
		if convertCmd.Flags().Lookup(name) == nil {
			t.Errorf("convert missing --%s", name)
		}
	}

	daemonFlag := convertCmd.Flags().Lookup("daemon")
	if daemonFlag.DefValue != "true" {
		t.Errorf("--daemon default = %s, want true", daemonFlag.DefValue)
	}
}

func TestRunCommandFlags(t *testing.T) {
	root := NewRootCommand("test")
	runCmd, _, err := root.Find([]string{"run"})
	if err != nil {
		t.Fatalf("finding run: %v", err)
	}

	for _, name := range []string{"list", "describe", "call", "status", "start", "stop"} {
		if runCmd.Flags().Lookup(name) == nil {
			t.Errorf("run missing --%s", name)
		}
	}
}
