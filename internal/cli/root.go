// Package cli wires the mcp2skills command tree.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/junerver/MCP2Skills/internal/config"
	"github.com/junerver/MCP2Skills/internal/log"
)

type app struct {
	cfg    *config.Settings
	logger *slog.Logger

	configPath string
	debug      bool
}

// NewRootCommand builds the mcp2skills command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "mcp2skills",
		Short:         "Convert MCP servers into Claude skills",
		Long:          "mcp2skills converts MCP server configurations into Claude skill directories\nand runs the per-skill daemons that keep server connections warm.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/mcp2skills/config.toml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newInitCommand(a),
		newConvertCommand(a),
		newBatchCommand(a),
		newRunCommand(a),
		newUninstallCommand(a),
		newDaemonCommand(a),
	)
	return root
}

func (a *app) setup() error {
	var (
		cfg *config.Settings
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFrom(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	a.cfg = cfg

	logCfg := log.FromEnv()
	if a.debug {
		logCfg.Level = "debug"
	}
	a.logger = log.New(logCfg)
	slog.SetDefault(a.logger)
	return nil
}
