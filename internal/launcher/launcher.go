// Package launcher is the thin client side of the daemon: it probes,
// starts, queries, and stops the per-skill background service over its
// local HTTP API.
package launcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/junerver/MCP2Skills/internal/paths"
	"github.com/junerver/MCP2Skills/internal/result"
	"github.com/junerver/MCP2Skills/internal/session"
	"github.com/junerver/MCP2Skills/internal/skillcfg"
)

const (
	healthTimeout  = 2 * time.Second
	startupTimeout = 15 * time.Second
	startupPoll    = 500 * time.Millisecond
	listTimeout    = 30 * time.Second
	callTimeout    = 120 * time.Second
	stopTimeout    = 5 * time.Second
)

// APIError is a non-2xx answer from the daemon, with the error text the
// daemon put in the body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// HealthStatus mirrors the daemon's /health payload.
type HealthStatus struct {
	Running       bool     `json:"running"`
	Connected     bool     `json:"connected"`
	UptimeSeconds *float64 `json:"uptime_seconds"`
	LastError     string   `json:"last_error,omitempty"`
	ToolsCached   bool     `json:"tools_cached"`
	PID           int      `json:"pid"`
}

// Client talks to one skill's daemon.
type Client struct {
	skillDir string
	desc     *skillcfg.Descriptor
	baseURL  string
	httpc    *http.Client
	logger   *slog.Logger
}

// New builds a client for the skill at skillDir. The descriptor must carry a
// daemon port.
func New(skillDir string, logger *slog.Logger) (*Client, error) {
	desc, err := skillcfg.Load(paths.DescriptorFile(skillDir))
	if err != nil {
		return nil, fmt.Errorf("loading descriptor: %w", err)
	}
	if desc.Daemon.Port == 0 {
		return nil, fmt.Errorf("skill %s has no daemon port configured", desc.Name)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		skillDir: skillDir,
		desc:     desc,
		baseURL:  fmt.Sprintf("http://127.0.0.1:%d", desc.Daemon.Port),
		httpc:    &http.Client{},
		logger:   logger,
	}, nil
}

// ServerName returns the MCP server name the skill wraps.
func (c *Client) ServerName() string {
	return c.desc.Name
}

// IsRunning probes the daemon with a short health check.
func (c *Client) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var st HealthStatus
	err := c.getJSON(ctx, "/health", &st)
	return err == nil && st.Running
}

// Status fetches the daemon's health report.
func (c *Client) Status(ctx context.Context) (*HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	var st HealthStatus
	if err := c.getJSON(ctx, "/health", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ListTools asks the daemon for the full tool list.
func (c *Client) ListTools(ctx context.Context) ([]session.Tool, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var resp struct {
		Tools []session.Tool `json:"tools"`
	}
	if err := c.getJSON(ctx, "/tools", &resp); err != nil {
		return nil, err
	}
	return resp.Tools, nil
}

// DescribeTool fetches one tool's full schema.
func (c *Client) DescribeTool(ctx context.Context, name string) (*session.Tool, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	var resp struct {
		Tool session.Tool `json:"tool"`
	}
	if err := c.getJSON(ctx, "/tools/"+name, &resp); err != nil {
		return nil, err
	}
	return &resp.Tool, nil
}

// CallTool invokes a tool through the daemon and returns the normalized
// result items.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) ([]result.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]any{
		"tool":      name,
		"arguments": args,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding call: %w", err)
	}

	var resp struct {
		Result json.RawMessage `json:"result"`
	}
	if err := c.postJSON(ctx, "/call", body, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, err
		}
		return nil, fmt.Errorf("tool call failed: %w", err)
	}
	return result.ParseItems(resp.Result)
}

// StopDaemon asks the daemon to shut down and waits for it to go away.
// When the HTTP API is unreachable it falls back to the PID marker.
func (c *Client) StopDaemon(ctx context.Context) error {
	if !c.IsRunning(ctx) {
		return c.stopByPID()
	}

	var resp struct {
		Message string `json:"message"`
	}
	if err := c.postJSON(ctx, "/shutdown", nil, &resp); err != nil {
		return fmt.Errorf("requesting shutdown: %w", err)
	}
	c.logger.Info("shutdown requested", slog.String("server", c.desc.Name))

	deadline := time.Now().Add(stopTimeout)
	for time.Now().Before(deadline) {
		if !c.IsRunning(ctx) {
			return nil
		}
		time.Sleep(startupPoll)
	}
	return fmt.Errorf("daemon for %s did not stop within %s", c.desc.Name, stopTimeout)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: extractError(data, resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// extractError pulls the daemon's error text out of a failure body. When the
// body is not the expected JSON shape the raw text is surfaced as-is; only an
// empty body collapses to a generic message.
func extractError(data []byte, status int) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	if text := strings.TrimSpace(string(data)); text != "" {
		return text
	}
	return fmt.Sprintf("daemon returned HTTP %d", status)
}
