package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/junerver/MCP2Skills/internal/skillcfg"
)

type fakeConn struct {
	listToolsFn func(ctx context.Context) ([]mcp.Tool, error)
	callToolFn  func(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
	closed      atomic.Bool
}

func newFakeSession(t *testing.T, dials *atomic.Int32, fc *fakeConn, dialErr error) *Session {
	t.Helper()
	desc := &skillcfg.Descriptor{Name: "test", Command: "test-server"}
	return newWithDialer(desc, nil, func(ctx context.Context, _ *skillcfg.Descriptor) (*conn, error) {
		dials.Add(1)
		if dialErr != nil {
			return nil, dialErr
		}
		return &conn{
			listTools: fc.listToolsFn,
			callTool:  fc.callToolFn,
			close: func() error {
				fc.closed.Store(true)
				return nil
			},
		}, nil
	})
}

func echoTools() []mcp.Tool {
	return []mcp.Tool{{
		Name:           "echo",
		Description:    "Echoes the input text",
		RawInputSchema: []byte(`{"type":"object","properties":{"text":{"type":"string"}},"required":["text"]}`),
	}}
}

func TestConnectTransitionsToConnected(t *testing.T) {
	var dials atomic.Int32
	s := newFakeSession(t, &dials, &fakeConn{}, nil)

	if got := s.Snapshot().State; got != StateDisconnected {
		t.Fatalf("initial state = %v, want disconnected", got)
	}
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	snap := s.Snapshot()
	if snap.State != StateConnected || !snap.Connected {
		t.Fatalf("state after connect = %+v, want connected", snap)
	}
	if snap.ConnectedAt.IsZero() {
		t.Fatal("ConnectedAt not recorded")
	}
}

func TestConnectFailureIsTransient(t *testing.T) {
	var dials atomic.Int32
	desc := &skillcfg.Descriptor{Name: "test", Command: "test-server"}
	s := newWithDialer(desc, nil, func(ctx context.Context, _ *skillcfg.Descriptor) (*conn, error) {
		if dials.Add(1) == 1 {
			return nil, errors.New("spawn failed")
		}
		return &conn{
			listTools: func(context.Context) ([]mcp.Tool, error) { return echoTools(), nil },
			close:     func() error { return nil },
		}, nil
	})

	if err := s.Connect(context.Background()); err == nil {
		t.Fatal("Connect() error = nil, want spawn failure")
	}
	snap := s.Snapshot()
	if snap.State != StateFailed {
		t.Fatalf("state = %v, want failed", snap.State)
	}
	if snap.LastError == "" {
		t.Fatal("LastError not recorded")
	}

	// failed is transient: the next demand retries with constant effort.
	tools, err := s.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools() after failed connect error = %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "echo" {
		t.Fatalf("tools = %+v, want echo", tools)
	}
	if s.Snapshot().LastError != "" {
		t.Fatal("LastError should be cleared on successful reconnect")
	}
}

func TestListToolsCachesUntilError(t *testing.T) {
	var dials atomic.Int32
	var lists atomic.Int32
	fc := &fakeConn{
		listToolsFn: func(context.Context) ([]mcp.Tool, error) {
			lists.Add(1)
			return echoTools(), nil
		},
	}
	s := newFakeSession(t, &dials, fc, nil)

	for i := 0; i < 3; i++ {
		if _, err := s.ListTools(context.Background()); err != nil {
			t.Fatalf("ListTools() #%d error = %v", i, err)
		}
	}
	if lists.Load() != 1 {
		t.Fatalf("upstream list calls = %d, want 1 (cache)", lists.Load())
	}
	if dials.Load() != 1 {
		t.Fatalf("dials = %d, want 1", dials.Load())
	}
}

func TestCallErrorInvalidatesCacheAndReconnects(t *testing.T) {
	var dials atomic.Int32
	var lists atomic.Int32
	fc := &fakeConn{}
	fc.listToolsFn = func(context.Context) ([]mcp.Tool, error) {
		lists.Add(1)
		return echoTools(), nil
	}
	fc.callToolFn = func(context.Context, string, map[string]any) (*mcp.CallToolResult, error) {
		return nil, errors.New("pipe closed")
	}
	s := newFakeSession(t, &dials, fc, nil)

	if _, err := s.ListTools(context.Background()); err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}

	if _, err := s.CallTool(context.Background(), "echo", map[string]any{"text": "hi"}); err == nil {
		t.Fatal("CallTool() error = nil, want pipe error")
	}

	snap := s.Snapshot()
	if snap.Connected {
		t.Fatal("session still connected after downstream error")
	}
	if snap.ToolsCached {
		t.Fatal("tool cache survived a downstream error")
	}
	if !fc.closed.Load() {
		t.Fatal("broken connection was not closed")
	}

	// The next list must rebuild the cache over a fresh connection, never
	// serve the first call's data.
	if _, err := s.ListTools(context.Background()); err != nil {
		t.Fatalf("ListTools() after error = %v", err)
	}
	if lists.Load() != 2 {
		t.Fatalf("upstream list calls = %d, want 2 (rebuild)", lists.Load())
	}
	if dials.Load() != 2 {
		t.Fatalf("dials = %d, want 2 (reconnect)", dials.Load())
	}
}

func TestConcurrentColdCallsHandshakeOnce(t *testing.T) {
	var dials atomic.Int32
	fc := &fakeConn{
		listToolsFn: func(context.Context) ([]mcp.Tool, error) { return echoTools(), nil },
	}
	s := newFakeSession(t, &dials, fc, nil)

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ListTools(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent ListTools() error = %v", err)
		}
	}
	if dials.Load() != 1 {
		t.Fatalf("dials = %d, want exactly 1 handshake", dials.Load())
	}
}

func TestDescribeToolNotFound(t *testing.T) {
	var dials atomic.Int32
	fc := &fakeConn{
		listToolsFn: func(context.Context) ([]mcp.Tool, error) { return echoTools(), nil },
	}
	s := newFakeSession(t, &dials, fc, nil)

	if _, err := s.DescribeTool(context.Background(), "nonexistent"); !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("DescribeTool() error = %v, want ErrToolNotFound", err)
	}

	tool, err := s.DescribeTool(context.Background(), "echo")
	if err != nil {
		t.Fatalf("DescribeTool(echo) error = %v", err)
	}
	if tool.Description != "Echoes the input text" {
		t.Fatalf("Description = %q", tool.Description)
	}
}

func TestCloseClearsState(t *testing.T) {
	var dials atomic.Int32
	fc := &fakeConn{
		listToolsFn: func(context.Context) ([]mcp.Tool, error) { return echoTools(), nil },
	}
	s := newFakeSession(t, &dials, fc, nil)

	if _, err := s.ListTools(context.Background()); err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	snap := s.Snapshot()
	if snap.Connected || snap.ToolsCached {
		t.Fatalf("state after close = %+v, want disconnected and uncached", snap)
	}
	if !fc.closed.Load() {
		t.Fatal("underlying connection not closed")
	}
}

func TestSnapshotDoesNotWaitForInFlightCall(t *testing.T) {
	var dials atomic.Int32
	release := make(chan struct{})
	entered := make(chan struct{})
	fc := &fakeConn{
		callToolFn: func(context.Context, string, map[string]any) (*mcp.CallToolResult, error) {
			close(entered)
			<-release
			return &mcp.CallToolResult{}, nil
		},
	}
	s := newFakeSession(t, &dials, fc, nil)
	defer close(release)

	go func() {
		_, _ = s.CallTool(context.Background(), "echo", nil)
	}()
	<-entered

	done := make(chan Status, 1)
	go func() { done <- s.Snapshot() }()

	select {
	case snap := <-done:
		if !snap.Connected {
			t.Fatalf("snapshot during call = %+v, want connected", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Snapshot() blocked behind an in-flight tool call")
	}
}

func TestCallToolForwardsResult(t *testing.T) {
	var dials atomic.Int32
	fc := &fakeConn{
		callToolFn: func(_ context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
			text, _ := args["text"].(string)
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.TextContent{Type: "text", Text: fmt.Sprintf("%s:%s", name, text)}},
			}, nil
		},
	}
	s := newFakeSession(t, &dials, fc, nil)

	result, err := s.CallTool(context.Background(), "echo", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok || tc.Text != "echo:hi" {
		t.Fatalf("result content = %#v, want echo:hi", result.Content[0])
	}
}
