package convert

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/junerver/MCP2Skills/internal/paths"
	"github.com/junerver/MCP2Skills/internal/skillcfg"
)

// SplitServers explodes a combined mcpServers file into one descriptor per
// server under serversDir. Disabled servers are skipped. Returns the number
// of descriptors written.
func (c *Converter) SplitServers(configFile, serversDir string) (int, error) {
	servers, err := skillcfg.LoadServersFile(configFile)
	if err != nil {
		return 0, fmt.Errorf("loading %s: %w", configFile, err)
	}
	if len(servers.MCPServers) == 0 {
		return 0, fmt.Errorf("no mcpServers found in %s", configFile)
	}

	if err := paths.EnsureDir(serversDir); err != nil {
		return 0, fmt.Errorf("creating servers directory: %w", err)
	}

	names := make([]string, 0, len(servers.MCPServers))
	for name := range servers.MCPServers {
		names = append(names, name)
	}
	sort.Strings(names)

	count := 0
	for _, name := range names {
		desc := servers.MCPServers[name]
		if desc.Disabled {
			c.logger.Info("skipping disabled server", slog.String("server", name))
			continue
		}
		desc.Name = name

		out := filepath.Join(serversDir, name+".json")
		if err := skillcfg.Save(out, &desc); err != nil {
			return count, fmt.Errorf("writing %s: %w", out, err)
		}
		count++
	}

	c.logger.Info("split server configs",
		slog.Int("count", count),
		slog.String("dir", serversDir))
	return count, nil
}

// ConvertAll converts every descriptor under serversDir. A failing server
// does not stop the batch; failures are logged and the successes returned.
func (c *Converter) ConvertAll(ctx context.Context, serversDir string, opts Options) ([]Result, error) {
	configs, err := filepath.Glob(filepath.Join(serversDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", serversDir, err)
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("no server configs found in %s", serversDir)
	}
	sort.Strings(configs)

	var results []Result
	for _, cfgPath := range configs {
		res, err := c.Convert(ctx, cfgPath, opts)
		if err != nil {
			c.logger.Error("conversion failed",
				slog.String("config", cfgPath),
				slog.String("error", err.Error()))
			continue
		}
		results = append(results, *res)
	}

	c.logger.Info("batch conversion complete",
		slog.Int("converted", len(results)),
		slog.Int("total", len(configs)))
	return results, nil
}
