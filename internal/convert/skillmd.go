package convert

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/junerver/MCP2Skills/internal/session"
)

// skillDoc carries everything the SKILL.md renderer needs.
type skillDoc struct {
	ServerName  string
	Description string
	Tools       []session.Tool
	Examples    string
	Daemon      bool
	Compact     bool
	IdleTimeout int // seconds, 0 means no auto-shutdown
}

type paramSchema struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default"`
}

type toolSchema struct {
	Properties map[string]paramSchema `json:"properties"`
	Required   []string               `json:"required"`
}

func parseSchema(raw json.RawMessage) toolSchema {
	var s toolSchema
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &s)
	}
	return s
}

func renderSkillMD(doc skillDoc) string {
	var b strings.Builder

	desc := strings.Join(strings.Fields(doc.Description), " ")
	fmt.Fprintf(&b, "---\nname: %s\ndescription: >-\n  %s\n---\n\n", doc.ServerName, desc)
	fmt.Fprintf(&b, "# %s\n\n", doc.ServerName)
	b.WriteString(renderIntro(doc))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "## Available Tools (%d)\n\n", len(doc.Tools))
	b.WriteString(renderToolDocs(doc.Tools, doc.Compact))
	b.WriteString("\n")
	b.WriteString(renderReferenceNote(doc))

	b.WriteString("## Instructions\n\n")
	if doc.Daemon {
		b.WriteString(renderDaemonExecution(doc.IdleTimeout))
	} else {
		b.WriteString(renderStandardExecution())
	}
	b.WriteString("\n\n## Examples\n\n")
	b.WriteString(doc.Examples)
	b.WriteString("\n")

	return b.String()
}

func renderIntro(doc skillDoc) string {
	mode := ""
	if doc.Daemon {
		mode = " (daemon mode - persistent connection)"
	}
	if len(doc.Tools) == 1 {
		return fmt.Sprintf("MCP server providing 1 tool for %s operations%s.", doc.ServerName, mode)
	}
	return fmt.Sprintf("MCP server providing %d tools for %s operations%s.", len(doc.Tools), doc.ServerName, mode)
}

func renderStandardExecution() string {
	return `### Execution

Use the executor to interact with tools.

` + "```bash" + `
# List all available tools
./executor --list

# Get detailed info about a specific tool
./executor --describe <tool_name>

# Execute a tool
./executor --call '{"tool": "<tool_name>", "arguments": {...}}'
` + "```" + `

### Error Handling

If execution fails:
1. Verify tool name with ` + "`--list`" + `
2. Check parameter format with ` + "`--describe <tool_name>`" + `
3. Ensure MCP server dependencies are installed`
}

func renderDaemonExecution(idleTimeout int) string {
	timeoutNote := ""
	if idleTimeout > 0 {
		hours := idleTimeout / 3600
		minutes := (idleTimeout % 3600) / 60
		if hours > 0 {
			timeoutNote = fmt.Sprintf("\n- **Auto-shutdown**: Daemon will automatically stop after %dh %dm of inactivity", hours, minutes)
		} else {
			timeoutNote = fmt.Sprintf("\n- **Auto-shutdown**: Daemon will automatically stop after %d minutes of inactivity", minutes)
		}
	}

	return `### Execution (Daemon Mode)

This skill uses a persistent daemon for faster tool execution. The daemon maintains a long-lived connection to the MCP server, eliminating connection overhead between calls.

` + "```bash" + `
# List all available tools (auto-starts daemon if needed)
./executor --list

# Get detailed info about a specific tool
./executor --describe <tool_name>

# Execute a tool
./executor --call '{"tool": "<tool_name>", "arguments": {...}}'

# Check daemon status
./executor --status

# Manually start/stop daemon
./executor --start
./executor --stop
` + "```" + `

### Daemon Management

- The daemon starts automatically on first tool call
- It runs in the background and persists across multiple calls
- Use ` + "`--status`" + ` to check if daemon is running
- Use ` + "`--stop`" + ` to gracefully shutdown the daemon` + timeoutNote + `

### Daemon Lifecycle

**Important**: When you finish using this skill, stop the daemon to release system resources:

` + "```bash" + `
./executor --stop
` + "```" + `

The daemon will automatically restart when needed for future tool calls.

### Error Handling

If execution fails:
1. Check daemon status with ` + "`--status`" + `
2. Verify tool name with ` + "`--list`" + `
3. Check parameter format with ` + "`--describe <tool_name>`" + `
4. If daemon is unresponsive, stop and restart: ` + "`--stop`" + ` then retry
5. Check ` + "`daemon.log`" + ` for detailed error messages`
}

func renderReferenceNote(doc skillDoc) string {
	if !doc.Compact || len(doc.Tools) <= 5 {
		return ""
	}
	return "> **Note**: For detailed parameter documentation, run `./executor --describe <tool_name>`\n" +
		"> or see `references/tools.md` for the complete API reference.\n\n"
}

func renderToolDocs(tools []session.Tool, compact bool) string {
	if len(tools) == 0 {
		return "(No tools available)\n"
	}

	groups := groupTools(tools)
	var b strings.Builder
	for _, g := range groups {
		if g.name != "" && len(groups) > 1 {
			fmt.Fprintf(&b, "### %s\n\n", g.name)
		}
		for _, t := range g.tools {
			b.WriteString(formatTool(t, compact))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

type toolGroup struct {
	name  string
	tools []session.Tool
}

var actionPrefixes = []string{
	"create", "get", "list", "update", "delete", "search",
	"add", "remove", "set", "read", "write", "edit",
	"push", "pull", "merge", "fork", "close", "open",
}

// groupTools buckets tools by action prefix so long lists stay scannable.
// Small lists stay flat; singleton groups collapse into "Other".
func groupTools(tools []session.Tool) []toolGroup {
	if len(tools) <= 5 {
		return []toolGroup{{tools: tools}}
	}

	buckets := map[string][]session.Tool{}
	for _, t := range tools {
		name := strings.ToLower(t.Name)
		group := ""
		for _, prefix := range actionPrefixes {
			if strings.HasPrefix(name, prefix) {
				group = capitalize(prefix) + " Operations"
				break
			}
		}
		if group == "" {
			parts := strings.Split(strings.ReplaceAll(name, "-", "_"), "_")
			if len(parts) > 1 {
				group = capitalize(parts[0])
			} else {
				group = "Other"
			}
		}
		buckets[group] = append(buckets[group], t)
	}

	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	var groups []toolGroup
	var other []session.Tool
	for _, name := range names {
		if len(buckets[name]) >= 2 {
			groups = append(groups, toolGroup{name: name, tools: buckets[name]})
		} else {
			other = append(other, buckets[name]...)
		}
	}
	if len(other) > 0 {
		groups = append(groups, toolGroup{name: "Other", tools: other})
	}
	return groups
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatTool(t session.Tool, compact bool) string {
	var b strings.Builder

	desc := t.Description
	if compact && desc != "" {
		first, _, _ := strings.Cut(desc, ". ")
		if len(first) > 100 {
			desc = first[:97] + "..."
		} else if strings.HasSuffix(first, ".") {
			desc = first
		} else {
			desc = first + "."
		}
	}

	if desc != "" {
		fmt.Fprintf(&b, "- `%s` - %s\n", t.Name, desc)
	} else {
		fmt.Fprintf(&b, "- `%s`\n", t.Name)
	}
	if compact {
		return b.String()
	}

	schema := parseSchema(t.InputSchema)
	required, optional := splitParams(schema)
	if len(required) > 0 {
		b.WriteString("    - **Required parameters**:\n")
		for _, p := range required {
			b.WriteString(formatParam(p, schema.Properties[p], 6))
		}
	}
	if len(optional) > 0 {
		b.WriteString("    - **Optional parameters**:\n")
		for _, p := range optional {
			b.WriteString(formatParam(p, schema.Properties[p], 6))
		}
	}
	return b.String()
}

func splitParams(schema toolSchema) (required, optional []string) {
	reqSet := map[string]bool{}
	for _, r := range schema.Required {
		reqSet[r] = true
	}
	for name := range schema.Properties {
		if reqSet[name] {
			required = append(required, name)
		} else {
			optional = append(optional, name)
		}
	}
	sort.Strings(required)
	sort.Strings(optional)
	return required, optional
}

func formatParam(name string, p paramSchema, indent int) string {
	typ := p.Type
	if typ == "" {
		typ = "any"
	}
	pad := strings.Repeat(" ", indent)
	if p.Description != "" {
		return fmt.Sprintf("%s- `%s` (%s): %s\n", pad, name, typ, p.Description)
	}
	return fmt.Sprintf("%s- `%s` (%s)\n", pad, name, typ)
}

// renderToolsReference produces the references/tools.md companion used in
// compact mode: the complete parameter documentation for every tool.
func renderToolsReference(serverName string, tools []session.Tool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s - Tools Reference\n\n", serverName)
	b.WriteString("Complete API documentation for all available tools.\n\n## Tools\n\n")

	for _, t := range tools {
		fmt.Fprintf(&b, "### `%s`\n\n", t.Name)
		if t.Description != "" {
			b.WriteString(t.Description)
			b.WriteString("\n\n")
		}

		schema := parseSchema(t.InputSchema)
		required, optional := splitParams(schema)
		if len(required) == 0 && len(optional) == 0 {
			b.WriteString("*No parameters required.*\n\n")
		}
		if len(required) > 0 {
			b.WriteString("**Required Parameters:**\n\n")
			for _, name := range required {
				b.WriteString(formatRefParam(name, schema.Properties[name]))
			}
			b.WriteString("\n")
		}
		if len(optional) > 0 {
			b.WriteString("**Optional Parameters:**\n\n")
			for _, name := range optional {
				b.WriteString(formatRefParam(name, schema.Properties[name]))
			}
			b.WriteString("\n")
		}
		b.WriteString("---\n\n")
	}
	return b.String()
}

func formatRefParam(name string, p paramSchema) string {
	typ := p.Type
	if typ == "" {
		typ = "any"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "- `%s` (%s)\n", name, typ)
	if p.Description != "" {
		fmt.Fprintf(&b, "  - %s\n", p.Description)
	}
	if p.Default != nil {
		fmt.Fprintf(&b, "  - Default: `%v`\n", p.Default)
	}
	return b.String()
}
