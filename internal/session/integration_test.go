package session

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/junerver/MCP2Skills/internal/skillcfg"
)

const stdioHelperEnv = "GO_WANT_MCP2SKILLS_STDIO_HELPER"

func helperDescriptor() *skillcfg.Descriptor {
	return &skillcfg.Descriptor{
		Name:    "stdio-helper",
		Command: os.Args[0],
		Args:    []string{"-test.run=TestStdioHelperProcess", "--", "stdio-helper"},
		Env: map[string]string{
			stdioHelperEnv: "1",
		},
	}
}

func TestSessionStdioIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s := New(helperDescriptor(), nil)
	defer s.Close()

	tools, err := s.ListTools(ctx)
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "echo" {
		t.Fatalf("tools = %+v, want one echo tool", tools)
	}
	if len(tools[0].InputSchema) == 0 {
		t.Fatal("InputSchema is empty, want declared schema")
	}

	result, err := s.CallTool(ctx, "echo", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if len(result.Content) != 1 {
		t.Fatalf("len(result.Content) = %d, want 1", len(result.Content))
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok || tc.Text != "hi" {
		t.Fatalf("result content = %#v, want text %q", result.Content[0], "hi")
	}

	snap := s.Snapshot()
	if !snap.Connected || !snap.ToolsCached {
		t.Fatalf("snapshot = %+v, want connected with cache", snap)
	}
}

func TestSessionStdioIntegrationInvalidCommandFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s := New(&skillcfg.Descriptor{Name: "broken", Command: "mcp2skills-no-such-command"}, nil)
	defer s.Close()

	if _, err := s.ListTools(ctx); err == nil {
		t.Fatal("ListTools() error = nil, want non-nil for invalid command")
	}
	if s.Snapshot().State != StateFailed {
		t.Fatalf("state = %v, want failed", s.Snapshot().State)
	}
}

func TestStdioHelperProcess(t *testing.T) {
	if os.Getenv(stdioHelperEnv) != "1" {
		return
	}

	s := server.NewMCPServer("mcp2skills-stdio-helper", "1.0.0")
	s.AddTool(mcp.Tool{
		Name:        "echo",
		Description: "Echoes text back",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"text": map[string]any{"type": "string"},
			},
			Required: []string{"text"},
		},
	}, func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("text")
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(text), nil
	})

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "serve stdio helper: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}
