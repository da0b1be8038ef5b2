package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/junerver/MCP2Skills/internal/daemon"
)

// newDaemonCommand is the hidden entry point the launcher spawns; users
// never run it directly.
func newDaemonCommand(a *app) *cobra.Command {
	var (
		port        int
		idleTimeout int
	)

	cmd := &cobra.Command{
		Use:    "__daemon <skill-dir>",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return daemon.Run(daemon.Options{
				SkillDir:    args[0],
				Port:        port,
				IdleTimeout: time.Duration(idleTimeout) * time.Second,
			})
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override the descriptor's daemon port")
	cmd.Flags().IntVar(&idleTimeout, "idle-timeout", 0, "override the descriptor's idle timeout in seconds")
	return cmd
}
