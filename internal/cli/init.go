package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/junerver/MCP2Skills/internal/config"
	"github.com/junerver/MCP2Skills/internal/paths"
)

const exampleServersJSON = `{
  "mcpServers": {
    "github": {
      "command": "npx",
      "args": ["-y", "@modelcontextprotocol/server-github"],
      "env": {
        "GITHUB_PERSONAL_ACCESS_TOKEN": "your-token-here"
      }
    }
  }
}
`

func newInitCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Write starter config files for a new project",
		Long: `Write an example mcpservers.json and a config.toml with the default
settings into the given directory (default: the current directory).
Existing files are left untouched.

After editing mcpservers.json, run:
  mcp2skills batch mcpservers.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(dir)
		},
	}
}

func runInit(dir string) error {
	if err := paths.EnsureDir(dir); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config.Default()); err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}

	for _, f := range []struct {
		name string
		data []byte
	}{
		{"mcpservers.json", []byte(exampleServersJSON)},
		{"config.toml", buf.Bytes()},
	} {
		path := filepath.Join(dir, f.name)
		wrote, err := writeIfAbsent(path, f.data)
		if err != nil {
			return err
		}
		if wrote {
			fmt.Printf("Created %s\n", path)
		} else {
			fmt.Printf("Skipped %s (already exists)\n", path)
		}
	}
	return nil
}

func writeIfAbsent(path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("checking %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}
