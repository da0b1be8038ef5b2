package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/junerver/MCP2Skills/internal/launcher"
)

// ErrInterrupted marks a run cut short by Ctrl-C; main turns it into
// exit code 130.
var ErrInterrupted = errors.New("interrupted")

type runFlags struct {
	list     bool
	describe string
	call     string
	status   bool
	start    bool
	stop     bool
}

func (f *runFlags) actionCount() int {
	n := 0
	for _, set := range []bool{f.list, f.describe != "", f.call != "", f.status, f.start, f.stop} {
		if set {
			n++
		}
	}
	return n
}

func newRunCommand(a *app) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <skill-dir>",
		Short: "Execute tools through a skill's daemon",
		Long: `Interact with a generated skill's daemon. The daemon is started
automatically when a query needs it.

Examples:
  mcp2skills run ./skill-github --list
  mcp2skills run ./skill-github --describe create_issue
  mcp2skills run ./skill-github --call '{"tool": "create_issue", "arguments": {"title": "Bug"}}'
  mcp2skills run ./skill-github --status
  mcp2skills run ./skill-github --stop`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.actionCount() != 1 {
				return fmt.Errorf("exactly one of --list, --describe, --call, --status, --start, --stop is required")
			}
			return runSkill(a, args[0], flags)
		},
	}

	cmd.Flags().BoolVar(&flags.list, "list", false, "list the server's tools")
	cmd.Flags().StringVar(&flags.describe, "describe", "", "show one tool's full schema")
	cmd.Flags().StringVar(&flags.call, "call", "", `execute a tool: '{"tool": "...", "arguments": {...}}'`)
	cmd.Flags().BoolVar(&flags.status, "status", false, "report daemon status")
	cmd.Flags().BoolVar(&flags.start, "start", false, "start the daemon")
	cmd.Flags().BoolVar(&flags.stop, "stop", false, "stop the daemon")
	return cmd
}

func runSkill(a *app, skillDir string, flags *runFlags) error {
	client, err := launcher.New(skillDir, a.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = dispatchRun(ctx, client, flags)
	if err != nil && ctx.Err() != nil {
		return ErrInterrupted
	}
	return err
}

func dispatchRun(ctx context.Context, client *launcher.Client, flags *runFlags) error {
	switch {
	case flags.status:
		return printStatus(ctx, client)
	case flags.stop:
		if err := client.StopDaemon(ctx); err != nil {
			return err
		}
		fmt.Printf("Stopped daemon for %s\n", client.ServerName())
		return nil
	case flags.start:
		if err := client.EnsureStarted(ctx); err != nil {
			return err
		}
		fmt.Printf("Daemon running for %s\n", client.ServerName())
		return nil
	}

	// The query actions start the daemon on demand.
	if err := client.EnsureStarted(ctx); err != nil {
		return err
	}

	switch {
	case flags.list:
		return printToolList(ctx, client)
	case flags.describe != "":
		return printToolSchema(ctx, client, flags.describe)
	case flags.call != "":
		return callTool(ctx, client, flags.call)
	}
	return nil
}

func printStatus(ctx context.Context, client *launcher.Client) error {
	st, err := client.Status(ctx)
	if err != nil {
		fmt.Println("Daemon not running")
		return nil
	}

	fmt.Printf("Daemon running (pid %d)\n", st.PID)
	if st.Connected {
		fmt.Println("Server: connected")
		if st.UptimeSeconds != nil {
			fmt.Printf("Connection uptime: %.0fs\n", *st.UptimeSeconds)
		}
	} else {
		fmt.Println("Server: disconnected")
		if st.LastError != "" {
			fmt.Printf("Last error: %s\n", st.LastError)
		}
	}
	return nil
}

func printToolList(ctx context.Context, client *launcher.Client) error {
	tools, err := client.ListTools(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Available tools (%d):\n", len(tools))
	for _, t := range tools {
		if t.Description != "" {
			fmt.Printf("  - %s: %s\n", t.Name, t.Description)
		} else {
			fmt.Printf("  - %s\n", t.Name)
		}
	}
	return nil
}

func printToolSchema(ctx context.Context, client *launcher.Client, name string) error {
	tool, err := client.DescribeTool(ctx, name)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(tool, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding tool: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func callTool(ctx context.Context, client *launcher.Client, payload string) error {
	var req struct {
		Tool      string         `json:"tool"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return fmt.Errorf("invalid --call payload: %w", err)
	}
	if req.Tool == "" {
		return fmt.Errorf("--call payload needs a \"tool\" field")
	}

	items, err := client.CallTool(ctx, req.Tool, req.Arguments)
	if err != nil {
		return err
	}
	for _, item := range items {
		fmt.Println(item.Render())
	}
	return nil
}

func cmdContext() context.Context {
	return context.Background()
}
