package session

import (
	"context"
	"fmt"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/junerver/MCP2Skills/internal/skillcfg"
)

const protocolVersion = "2025-03-26"

func dialDescriptor(ctx context.Context, desc *skillcfg.Descriptor) (*conn, error) {
	switch {
	case desc.IsStdio():
		return dialStdio(ctx, desc)
	case desc.IsHTTP():
		return dialHTTP(ctx, desc)
	default:
		return nil, fmt.Errorf("descriptor %s: no command or url configured", desc.Name)
	}
}

func dialStdio(ctx context.Context, desc *skillcfg.Descriptor) (*conn, error) {
	env := make([]string, 0, len(desc.Env))
	for k, v := range desc.Env {
		env = append(env, k+"="+v)
	}

	c, err := mcpclient.NewStdioMCPClient(desc.Command, env, desc.Args...)
	if err != nil {
		return nil, fmt.Errorf("creating stdio client: %w", err)
	}

	if err := initialize(ctx, c); err != nil {
		c.Close()
		return nil, err
	}
	return wrapClient(c), nil
}

func dialHTTP(ctx context.Context, desc *skillcfg.Descriptor) (*conn, error) {
	headers := mergeHeaders(defaultHeaders(), desc.Headers, true)
	opts := []transport.StreamableHTTPCOption{
		transport.WithHTTPHeaders(headers),
	}

	c, err := mcpclient.NewStreamableHttpClient(desc.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP client: %w", err)
	}

	if err := c.Start(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("starting HTTP client: %w", err)
	}

	if err := initialize(ctx, c); err != nil {
		c.Close()
		return nil, err
	}
	return wrapClient(c), nil
}

func initialize(ctx context.Context, c *mcpclient.Client) error {
	if _, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: protocolVersion,
			ClientInfo: mcp.Implementation{
				Name:    "mcp2skills",
				Version: "1.0.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	}); err != nil {
		return fmt.Errorf("initializing: %w", err)
	}
	return nil
}

func wrapClient(c *mcpclient.Client) *conn {
	return &conn{
		listTools: func(ctx context.Context) ([]mcp.Tool, error) {
			result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
			if err != nil {
				return nil, err
			}
			return result.Tools, nil
		},
		callTool: func(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
			return c.CallTool(ctx, mcp.CallToolRequest{
				Params: mcp.CallToolParams{
					Name:      name,
					Arguments: args,
				},
			})
		},
		close: func() error {
			return c.Close()
		},
	}
}
