// Package session owns the live connection to a child MCP server process.
//
// A Session moves between disconnected, connecting, connected, and failed.
// Exactly one Session exists per daemon; reconnecting replaces the previous
// connection wholesale and never reuses substreams. All connection-touching
// operations are serialized behind one mutex because the stdio transport
// does not tolerate interleaved requests.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/junerver/MCP2Skills/internal/skillcfg"
)

// State is the connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateFailed       State = "failed"
)

// ErrToolNotFound is returned when a named tool is absent from the server's
// tool set.
var ErrToolNotFound = errors.New("tool not found")

// Tool is the descriptor for one invocable tool as reported by the server.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema,omitempty"`
}

// conn wraps an MCP client with its transport.
type conn struct {
	listTools func(ctx context.Context) ([]mcp.Tool, error)
	callTool  func(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
	close     func() error
}

type dialer func(ctx context.Context, desc *skillcfg.Descriptor) (*conn, error)

// Status is a read-only snapshot of the session.
type Status struct {
	State       State
	Connected   bool
	LastError   string
	ToolsCached bool
	ConnectedAt time.Time
}

// Session is the daemon's handle to the child MCP server.
//
// mu serializes everything that touches the connection. The status fields
// live behind their own mutex so Snapshot returns immediately even while a
// tool call or handshake holds mu; health probes must never queue behind
// session I/O.
type Session struct {
	desc   *skillcfg.Descriptor
	logger *slog.Logger
	dial   dialer

	mu    sync.Mutex
	conn  *conn
	tools []Tool

	statusMu    sync.Mutex
	state       State
	lastError   string
	connectedAt time.Time
	toolsCached bool
}

// New creates a disconnected session for the given descriptor.
func New(desc *skillcfg.Descriptor, logger *slog.Logger) *Session {
	return newWithDialer(desc, logger, dialDescriptor)
}

func newWithDialer(desc *skillcfg.Descriptor, logger *slog.Logger, dial dialer) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		desc:   desc,
		logger: logger,
		dial:   dial,
		state:  StateDisconnected,
	}
}

// Connect establishes the connection if it is not already up.
// Safe for concurrent use; racing callers produce exactly one handshake.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked(ctx)
}

func (s *Session) connectLocked(ctx context.Context) error {
	if s.conn != nil && s.currentState() == StateConnected {
		return nil
	}

	s.setStatus(func() { s.state = StateConnecting })

	// Replace any prior connection wholesale.
	if s.conn != nil {
		_ = s.conn.close()
		s.conn = nil
	}
	s.tools = nil
	s.setStatus(func() { s.toolsCached = false })

	c, err := s.dial(ctx, s.desc)
	if err != nil {
		s.setStatus(func() {
			s.state = StateFailed
			s.lastError = err.Error()
		})
		s.logger.Error("connection failed", slog.String("error", err.Error()))
		return fmt.Errorf("connecting to MCP server: %w", err)
	}

	s.conn = c
	s.setStatus(func() {
		s.state = StateConnected
		s.lastError = ""
		s.connectedAt = time.Now()
	})
	s.logger.Info("connected to MCP server", slog.String("server", s.desc.Name))
	return nil
}

func (s *Session) currentState() State {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.state
}

func (s *Session) setStatus(update func()) {
	s.statusMu.Lock()
	update()
	s.statusMu.Unlock()
}

// markBrokenLocked tears down the connection after a protocol error.
// The tool cache is only valid while connected, so it is cleared here.
func (s *Session) markBrokenLocked(err error) {
	if s.conn != nil {
		_ = s.conn.close()
		s.conn = nil
	}
	s.tools = nil
	s.setStatus(func() {
		s.state = StateDisconnected
		s.toolsCached = false
		s.lastError = err.Error()
	})
}

// ListTools returns the cached tool set, fetching it from the server when
// the cache is empty. The connection is established on demand.
func (s *Session) ListTools(ctx context.Context) ([]Tool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connectLocked(ctx); err != nil {
		return nil, err
	}

	if s.tools != nil {
		out := make([]Tool, len(s.tools))
		copy(out, s.tools)
		return out, nil
	}

	raw, err := s.conn.listTools(ctx)
	if err != nil {
		s.markBrokenLocked(err)
		return nil, fmt.Errorf("listing tools: %w", err)
	}

	tools := make([]Tool, len(raw))
	for i, t := range raw {
		schema := t.RawInputSchema
		if len(schema) == 0 {
			if b, merr := json.Marshal(t.InputSchema); merr == nil {
				schema = b
			}
		}
		tools[i] = Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		}
	}
	s.tools = tools
	s.setStatus(func() { s.toolsCached = true })

	out := make([]Tool, len(tools))
	copy(out, tools)
	return out, nil
}

// DescribeTool returns the descriptor for one tool, or ErrToolNotFound.
func (s *Session) DescribeTool(ctx context.Context, name string) (*Tool, error) {
	tools, err := s.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	for i := range tools {
		if tools[i].Name == name {
			return &tools[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
}

// CallTool forwards one tool invocation to the server.
// Any downstream error marks the session disconnected and clears the cache;
// the next call reconnects transparently.
func (s *Session) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connectLocked(ctx); err != nil {
		return nil, err
	}

	if args == nil {
		args = map[string]any{}
	}

	s.logger.Info("calling tool", slog.String("tool", name))
	result, err := s.conn.callTool(ctx, name, args)
	if err != nil {
		s.markBrokenLocked(err)
		return nil, fmt.Errorf("tool call failed: %w", err)
	}
	return result, nil
}

// Close tears down the connection and clears all session state.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.conn != nil {
		err = s.conn.close()
		s.conn = nil
	}
	s.tools = nil
	s.setStatus(func() {
		s.state = StateDisconnected
		s.toolsCached = false
	})
	return err
}

// Snapshot returns the current session status. It never waits on an
// in-flight connect or tool call.
func (s *Session) Snapshot() Status {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	return Status{
		State:       s.state,
		Connected:   s.state == StateConnected,
		LastError:   s.lastError,
		ToolsCached: s.toolsCached,
		ConnectedAt: s.connectedAt,
	}
}
