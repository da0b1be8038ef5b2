// Package convert turns MCP server descriptors into Claude skill
// directories: a SKILL.md, the server descriptor, and an executor shim
// that routes tool calls through the mcp2skills binary.
package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/junerver/MCP2Skills/internal/config"
	"github.com/junerver/MCP2Skills/internal/enhance"
	"github.com/junerver/MCP2Skills/internal/paths"
	"github.com/junerver/MCP2Skills/internal/session"
	"github.com/junerver/MCP2Skills/internal/skillcfg"
)

const introspectTimeout = 60 * time.Second

var introspectFn = introspect

// Options tune a single conversion.
type Options struct {
	// OutputDir is the base directory for generated skills; empty uses the
	// configured default. The skill itself lands in a subdirectory.
	OutputDir string
	// Daemon generates a daemon-mode skill with a persistent background
	// service instead of one-shot execution.
	Daemon bool
	// Compact keeps SKILL.md short and moves full parameter docs to
	// references/tools.md.
	Compact bool
	// Port pins the daemon port; 0 derives one from the server name.
	Port int
	// IdleTimeout is the daemon auto-shutdown in seconds; 0 uses the
	// configured default.
	IdleTimeout int
}

// Result describes one generated skill.
type Result struct {
	SkillDir   string
	SkillName  string
	ServerName string
	ToolCount  int
	Port       int
}

// Converter generates skills from server descriptors.
type Converter struct {
	cfg      *config.Settings
	enhancer *enhance.Client
	logger   *slog.Logger
}

func New(cfg *config.Settings, enhancer *enhance.Client, logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	if enhancer == nil {
		enhancer = enhance.New(cfg.LLM, logger)
	}
	return &Converter{cfg: cfg, enhancer: enhancer, logger: logger}
}

// Convert generates a skill directory from the descriptor at configPath.
func (c *Converter) Convert(ctx context.Context, configPath string, opts Options) (*Result, error) {
	desc, err := skillcfg.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading server config: %w", err)
	}
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server config %s: %w", configPath, err)
	}
	if err := skillcfg.CheckPrerequisites(desc); err != nil {
		c.logger.Warn("prerequisite check failed",
			slog.String("server", desc.Name),
			slog.String("error", err.Error()))
	}

	skillName := c.cfg.SkillPrefix + desc.Name
	outBase := opts.OutputDir
	if outBase == "" {
		outBase = c.cfg.OutputDir
	}
	skillDir := filepath.Join(outBase, skillName)
	if err := paths.EnsureDir(skillDir); err != nil {
		return nil, fmt.Errorf("creating skill directory: %w", err)
	}

	c.logger.Info("converting server", slog.String("server", desc.Name))

	// Introspection failure is not fatal: the skill is still generated,
	// just without a tool list, matching what a broken-but-configured
	// server would produce.
	tools, err := introspectFn(ctx, desc, c.logger)
	if err != nil {
		c.logger.Warn("could not introspect server",
			slog.String("server", desc.Name),
			slog.String("error", err.Error()))
	}
	c.logger.Info("introspection complete",
		slog.String("server", desc.Name),
		slog.Int("tools", len(tools)))

	tools = c.enhancer.EnhanceTools(ctx, desc.Name, tools)

	port := 0
	idle := 0
	if opts.Daemon {
		port = opts.Port
		if port == 0 {
			port = desc.Daemon.Port
		}
		if port == 0 {
			port = DerivePort(desc.Name, c.cfg.PortBase, c.cfg.PortSpan)
		}
		idle = opts.IdleTimeout
		if idle == 0 {
			idle = c.cfg.IdleTimeout
		}
		desc.Daemon = skillcfg.DaemonConfig{Port: port, IdleTimeout: idle}
	}

	doc := skillDoc{
		ServerName:  desc.Name,
		Description: c.enhancer.Description(ctx, desc.Name, tools),
		Tools:       tools,
		Examples:    renderExamples(tools),
		Daemon:      opts.Daemon,
		Compact:     opts.Compact,
		IdleTimeout: idle,
	}

	if err := os.WriteFile(paths.SkillFile(skillDir), []byte(renderSkillMD(doc)), 0o644); err != nil {
		return nil, fmt.Errorf("writing SKILL.md: %w", err)
	}

	if opts.Compact {
		refPath := paths.ReferencesFile(skillDir)
		if err := paths.EnsureDir(filepath.Dir(refPath)); err != nil {
			return nil, fmt.Errorf("creating references directory: %w", err)
		}
		ref := renderToolsReference(desc.Name, tools)
		if err := os.WriteFile(refPath, []byte(ref), 0o644); err != nil {
			return nil, fmt.Errorf("writing tools reference: %w", err)
		}
	}

	if err := skillcfg.Save(paths.DescriptorFile(skillDir), desc); err != nil {
		return nil, fmt.Errorf("writing descriptor: %w", err)
	}

	if err := writeExecutor(skillDir, desc.Name); err != nil {
		return nil, err
	}

	c.logger.Info("skill created", slog.String("dir", skillDir))
	return &Result{
		SkillDir:   skillDir,
		SkillName:  skillName,
		ServerName: desc.Name,
		ToolCount:  len(tools),
		Port:       port,
	}, nil
}

// introspect connects to the server once, lists its tools, and disconnects.
func introspect(ctx context.Context, desc *skillcfg.Descriptor, logger *slog.Logger) ([]session.Tool, error) {
	ctx, cancel := context.WithTimeout(ctx, introspectTimeout)
	defer cancel()

	s := session.New(desc, logger)
	defer s.Close()
	return s.ListTools(ctx)
}

// renderExamples builds deterministic usage examples from the first few
// tools.
func renderExamples(tools []session.Tool) string {
	var b []byte
	b = append(b, "```bash\n# List available tools\n./executor --list\n"...)

	const maxExamples = 3
	for i, t := range tools {
		if i >= maxExamples {
			break
		}
		args := "{}"
		schema := parseSchema(t.InputSchema)
		if required, _ := splitParams(schema); len(required) > 0 {
			args = fmt.Sprintf(`{%q: "..."}`, required[0])
		}
		b = append(b, fmt.Sprintf("\n# %s\n./executor --call '{\"tool\": %q, \"arguments\": %s}'\n",
			exampleTitle(t), t.Name, args)...)
	}
	b = append(b, "```"...)
	return string(b)
}

func exampleTitle(t session.Tool) string {
	if t.Description != "" {
		return t.Description
	}
	return "Call " + t.Name
}

const executorMarker = "# mcp2skills-executor:server="

// writeExecutor drops a small shell shim into the skill directory. The shim
// resolves its own location so the skill works from any working directory,
// and carries a marker line identifying the server it was generated for.
// The write goes through a temp file so a half-written executor is never
// left behind.
func writeExecutor(skillDir, server string) error {
	script := fmt.Sprintf("#!/bin/sh\n%s%s\nexec mcp2skills run \"$(CDPATH= cd -- \"$(dirname -- \"$0\")\" && pwd)\" \"$@\"\n",
		executorMarker, server)

	tmp, err := os.CreateTemp(skillDir, ".executor-*")
	if err != nil {
		return fmt.Errorf("creating executor temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanupTmp := true
	defer func() {
		if cleanupTmp {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.WriteString(tmp, script); err != nil {
		tmp.Close()
		return fmt.Errorf("writing executor: %w", err)
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		return fmt.Errorf("setting executor mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing executor temp file: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(skillDir, "executor")); err != nil {
		return fmt.Errorf("installing executor: %w", err)
	}
	cleanupTmp = false
	return nil
}
