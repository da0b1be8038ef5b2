package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/junerver/MCP2Skills/internal/skill"
)

func newUninstallCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <skill-name>",
		Short: "Remove a skill link from Claude's skills directory",
		Long: `Remove the symlink that "convert --install" created for a skill.

The generated skill directory itself is left in place; only the link in
Claude's skills directory is removed. Uninstalling a skill that was never
installed is a no-op.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := skill.Uninstall(args[0]); err != nil {
				return err
			}
			fmt.Printf("Uninstalled: %s\n", args[0])
			return nil
		},
	}
}
