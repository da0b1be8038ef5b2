package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/junerver/MCP2Skills/internal/convert"
)

type batchFlags struct {
	serversDir  string
	output      string
	skipSplit   bool
	daemon      bool
	compact     bool
	idleTimeout int
}

func newBatchCommand(a *app) *cobra.Command {
	flags := &batchFlags{}

	cmd := &cobra.Command{
		Use:   "batch <mcpservers.json>",
		Short: "Convert every server in a combined MCP config",
		Long: `Split a combined mcpServers configuration into per-server descriptors and
convert each one into a Claude skill. Disabled servers are skipped; a
server that fails to convert does not stop the rest.

Examples:
  mcp2skills batch ~/.claude/mcpservers.json
  mcp2skills batch mcpservers.json --skip-split --output ./skills`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(a, args[0], flags)
		},
	}

	cmd.Flags().StringVar(&flags.serversDir, "servers-dir", "", "directory for split server configs")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output directory for generated skills")
	cmd.Flags().BoolVar(&flags.skipSplit, "skip-split", false, "reuse existing split configs instead of splitting")
	cmd.Flags().BoolVar(&flags.daemon, "daemon", true, "generate daemon-mode skills")
	cmd.Flags().BoolVar(&flags.compact, "compact", false, "compact SKILL.md with separate tools references")
	cmd.Flags().IntVar(&flags.idleTimeout, "idle-timeout", 0, "daemon idle shutdown in seconds (0 disables)")
	return cmd
}

func runBatch(a *app, configFile string, flags *batchFlags) error {
	conv := convert.New(a.cfg, nil, a.logger)

	serversDir := flags.serversDir
	if serversDir == "" {
		serversDir = a.cfg.ServersDir
	}
	if !filepath.IsAbs(serversDir) {
		serversDir = filepath.Join(filepath.Dir(configFile), serversDir)
	}

	if !flags.skipSplit {
		count, err := conv.SplitServers(configFile, serversDir)
		if err != nil {
			return err
		}
		fmt.Printf("Split %d server configs to %s\n", count, serversDir)
	}

	results, err := conv.ConvertAll(cmdContext(), serversDir, convert.Options{
		OutputDir:   flags.output,
		Daemon:      flags.daemon,
		Compact:     flags.compact,
		IdleTimeout: flags.idleTimeout,
	})
	if err != nil {
		return err
	}

	for _, res := range results {
		fmt.Printf("  %s (%d tools)\n", res.SkillDir, res.ToolCount)
	}
	fmt.Printf("Converted %d servers\n", len(results))
	return nil
}
