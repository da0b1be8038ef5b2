// Package enhance polishes generated skill text with an OpenAI-compatible
// chat API. Every entry point has a deterministic fallback so conversion
// works without an API key.
package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/junerver/MCP2Skills/internal/config"
	"github.com/junerver/MCP2Skills/internal/session"
)

const requestTimeout = 60 * time.Second

// Client calls a chat-completions endpoint.
type Client struct {
	cfg    config.LLMSettings
	httpc  *http.Client
	logger *slog.Logger
}

func New(cfg config.LLMSettings, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		httpc:  &http.Client{Timeout: requestTimeout},
		logger: logger,
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.cfg.Enabled()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decoding response (HTTP %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("chat API error: %s", parsed.Error.Message)
		}
		return "", fmt.Errorf("chat API returned HTTP %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat API returned no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

// Description produces a one-paragraph skill description for the server.
// Falls back to a generated summary when the API is unavailable.
func (c *Client) Description(ctx context.Context, serverName string, tools []session.Tool) string {
	if !c.Enabled() {
		return FallbackDescription(serverName, tools)
	}

	var sb strings.Builder
	for _, t := range tools {
		fmt.Fprintf(&sb, "- %s: %s\n", t.Name, t.Description)
	}

	out, err := c.complete(ctx,
		"You write concise skill descriptions for developer tools. Answer with a single paragraph, no markdown.",
		fmt.Sprintf("Describe what the %q MCP server does, based on its tools:\n%s", serverName, sb.String()))
	if err != nil {
		c.logger.Warn("description enhancement failed, using fallback",
			slog.String("server", serverName),
			slog.String("error", err.Error()))
		return FallbackDescription(serverName, tools)
	}
	return out
}

// UsageNotes produces short usage guidance for one tool, or "" when
// enhancement is off or fails. EnhanceTools uses it to replace descriptions
// too sparse to render; callers treat an empty string as "keep what's there".
func (c *Client) UsageNotes(ctx context.Context, serverName string, tool session.Tool) string {
	if !c.Enabled() {
		return ""
	}

	schema := "{}"
	if len(tool.InputSchema) > 0 {
		schema = string(tool.InputSchema)
	}

	out, err := c.complete(ctx,
		"You write terse usage notes for developer tools. Answer with at most three sentences, no markdown headings.",
		fmt.Sprintf("Tool %q from the %q MCP server.\nDescription: %s\nInput schema: %s\nWhen and how should this tool be used?",
			tool.Name, serverName, tool.Description, schema))
	if err != nil {
		c.logger.Warn("usage note enhancement failed",
			slog.String("tool", tool.Name),
			slog.String("error", err.Error()))
		return ""
	}
	return out
}

// A tool description this short says nothing useful; generate one.
const sparseDescriptionLen = 10

// EnhanceTools fills in missing or near-empty tool descriptions before the
// skill is rendered. Tools with a usable description pass through untouched,
// and a failed generation leaves the original text in place, so the result
// is always safe to render.
func (c *Client) EnhanceTools(ctx context.Context, serverName string, tools []session.Tool) []session.Tool {
	if !c.Enabled() {
		return tools
	}

	out := make([]session.Tool, len(tools))
	copy(out, tools)
	for i := range out {
		if len(strings.TrimSpace(out[i].Description)) >= sparseDescriptionLen {
			continue
		}
		if notes := c.UsageNotes(ctx, serverName, out[i]); notes != "" {
			out[i].Description = notes
		}
	}
	return out
}

// FallbackDescription builds a deterministic description from the tool list.
func FallbackDescription(serverName string, tools []session.Tool) string {
	if len(tools) == 0 {
		return fmt.Sprintf("Tools provided by the %s MCP server.", serverName)
	}

	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	const maxListed = 5
	if len(names) <= maxListed {
		return fmt.Sprintf("Provides %d tools from the %s MCP server: %s.",
			len(tools), serverName, strings.Join(names, ", "))
	}
	return fmt.Sprintf("Provides %d tools from the %s MCP server, including %s.",
		len(tools), serverName, strings.Join(names[:maxListed], ", "))
}
