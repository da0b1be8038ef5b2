package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/junerver/MCP2Skills/internal/convert"
	"github.com/junerver/MCP2Skills/internal/skill"
)

type convertFlags struct {
	output      string
	daemon      bool
	compact     bool
	port        int
	idleTimeout int
	install     bool
}

func newConvertCommand(a *app) *cobra.Command {
	flags := &convertFlags{}

	cmd := &cobra.Command{
		Use:   "convert <server-config.json>",
		Short: "Convert one MCP server config into a Claude skill",
		Long: `Convert a single MCP server configuration into a Claude skill directory.

The generated skill contains a SKILL.md, the server descriptor, and an
executor shim. In daemon mode the skill keeps a persistent connection to
the server through a background service.

Examples:
  mcp2skills convert servers/github.json
  mcp2skills convert servers/github.json --compact --idle-timeout 1800
  mcp2skills convert servers/github.json --install`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(a, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "output directory for generated skills")
	cmd.Flags().BoolVar(&flags.daemon, "daemon", true, "generate a daemon-mode skill")
	cmd.Flags().BoolVar(&flags.compact, "compact", false, "compact SKILL.md with a separate tools reference")
	cmd.Flags().IntVar(&flags.port, "port", 0, "daemon port (default: derived from server name)")
	cmd.Flags().IntVar(&flags.idleTimeout, "idle-timeout", 0, "daemon idle shutdown in seconds (0 disables)")
	cmd.Flags().BoolVar(&flags.install, "install", false, "link the skill into Claude's skills directory")
	return cmd
}

func runConvert(a *app, configPath string, flags *convertFlags) error {
	conv := convert.New(a.cfg, nil, a.logger)
	res, err := conv.Convert(cmdContext(), configPath, convert.Options{
		OutputDir:   flags.output,
		Daemon:      flags.daemon,
		Compact:     flags.compact,
		Port:        flags.port,
		IdleTimeout: flags.idleTimeout,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created skill: %s (%d tools)\n", res.SkillDir, res.ToolCount)
	if res.Port != 0 {
		fmt.Printf("Daemon port: %d\n", res.Port)
	}

	if flags.install {
		installed, err := skill.Install(res.SkillDir, res.SkillName)
		if err != nil {
			return err
		}
		fmt.Printf("Installed: %s -> %s\n", installed.Link, installed.LinkTarget)
	}
	return nil
}
