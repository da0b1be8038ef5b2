// Package daemon runs the per-skill background service: it owns the
// persistent session to the child MCP server, serves it over a local HTTP
// API, and manages its own lifecycle (PID marker, idle timeout, graceful
// shutdown).
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/junerver/MCP2Skills/internal/log"
	"github.com/junerver/MCP2Skills/internal/paths"
	"github.com/junerver/MCP2Skills/internal/session"
	"github.com/junerver/MCP2Skills/internal/skillcfg"
)

// idleCheckInterval is how often the idle checker wakes up.
// A variable so lifecycle tests can shrink it.
var idleCheckInterval = 60 * time.Second

// shutdownGrace is the delay between acknowledging /shutdown and tearing
// down, so the HTTP response reaches the caller first.
var shutdownGrace = 500 * time.Millisecond

// toolSession is the slice of session.Session the daemon depends on.
type toolSession interface {
	Connect(ctx context.Context) error
	ListTools(ctx context.Context) ([]session.Tool, error)
	DescribeTool(ctx context.Context, name string) (*session.Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error)
	Close() error
	Snapshot() session.Status
}

// Options configures a daemon run.
type Options struct {
	// SkillDir is the skill directory holding mcp-config.json.
	SkillDir string
	// Port overrides the descriptor's daemon port when non-zero.
	Port int
	// IdleTimeout overrides the descriptor's idle timeout when non-zero.
	IdleTimeout time.Duration
}

// Daemon is the running service instance.
type Daemon struct {
	desc        *skillcfg.Descriptor
	sess        toolSession
	logger      *slog.Logger
	logCloser   io.Closer
	pidPath     string
	idleTimeout time.Duration

	listener net.Listener
	httpSrv  *http.Server

	lastActivity atomic.Int64 // unix nanos

	shutdownOnce sync.Once
	done         chan struct{}
}

// Run loads the skill descriptor, binds the HTTP API, and blocks until the
// daemon shuts down. Configuration problems are fatal before the port is
// bound; connection problems are not.
func Run(opts Options) error {
	desc, err := skillcfg.Load(paths.DescriptorFile(opts.SkillDir))
	if err != nil {
		return fmt.Errorf("loading descriptor: %w", err)
	}
	if err := desc.Validate(); err != nil {
		return fmt.Errorf("invalid descriptor: %w", err)
	}

	logger, closer, err := log.OpenDaemonLog(paths.LogFile(opts.SkillDir))
	if err != nil {
		return err
	}

	port := opts.Port
	if port == 0 {
		port = desc.Daemon.Port
	}
	if port == 0 {
		closer.Close()
		return fmt.Errorf("no daemon port configured for %s", desc.Name)
	}

	idle := opts.IdleTimeout
	if idle == 0 && desc.Daemon.IdleTimeout > 0 {
		idle = time.Duration(desc.Daemon.IdleTimeout) * time.Second
	}

	d := newDaemon(desc, session.New(desc, logger), logger, paths.PIDFile(opts.SkillDir), idle)
	d.logCloser = closer
	return d.run(fmt.Sprintf("127.0.0.1:%d", port))
}

func newDaemon(desc *skillcfg.Descriptor, sess toolSession, logger *slog.Logger, pidPath string, idleTimeout time.Duration) *Daemon {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Daemon{
		desc:        desc,
		sess:        sess,
		logger:      logger,
		pidPath:     pidPath,
		idleTimeout: idleTimeout,
		done:        make(chan struct{}),
	}
	d.touch()
	return d
}

func (d *Daemon) run(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if d.logCloser != nil {
			d.logCloser.Close()
		}
		return fmt.Errorf("binding %s: %w", addr, err)
	}
	return d.serve(ln)
}

func (d *Daemon) serve(ln net.Listener) error {
	d.listener = ln

	if err := writePIDFile(d.pidPath); err != nil {
		ln.Close()
		if d.logCloser != nil {
			d.logCloser.Close()
		}
		return err
	}

	// Best-effort initial connect; failures are recorded and retried on
	// the next demand.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := d.sess.Connect(ctx); err != nil {
		d.logger.Error("initial connection failed", slog.String("error", err.Error()))
	}
	cancel()
	d.touch()

	d.httpSrv = &http.Server{
		Handler:           d.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if serr := d.httpSrv.Serve(ln); serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			d.logger.Error("http server error", slog.String("error", serr.Error()))
		}
	}()

	idleCtx, idleCancel := context.WithCancel(context.Background())
	defer idleCancel()
	if d.idleTimeout > 0 {
		go d.idleLoop(idleCtx)
		d.logger.Info("idle timeout enabled", slog.Duration("timeout", d.idleTimeout))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	d.logger.Info("daemon running",
		slog.String("server", d.desc.Name),
		slog.String("addr", ln.Addr().String()),
		slog.Int("pid", os.Getpid()))

	select {
	case sig := <-sigCh:
		d.logger.Info("received signal", slog.String("signal", sig.String()))
		d.Shutdown("signal")
	case <-d.done:
	}

	<-d.done
	return nil
}

// Addr returns the bound listen address, for tests that use port 0.
func (d *Daemon) Addr() string {
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// Shutdown tears the daemon down: session closed, PID marker removed,
// listener stopped. Idempotent; every trigger (HTTP, signal, idle timeout)
// converges here and a second call is a no-op.
func (d *Daemon) Shutdown(reason string) {
	d.shutdownOnce.Do(func() {
		d.logger.Info("shutting down", slog.String("reason", reason))

		if d.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := d.httpSrv.Shutdown(ctx); err != nil {
				d.logger.Warn("http shutdown", slog.String("error", err.Error()))
			}
			cancel()
		}

		if err := d.sess.Close(); err != nil {
			d.logger.Warn("closing session", slog.String("error", err.Error()))
		}

		removePIDFile(d.pidPath)
		d.logger.Info("daemon shutdown complete")

		if d.logCloser != nil {
			d.logCloser.Close()
		}
		close(d.done)
	})
}

// Done is closed once shutdown completes.
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

func (d *Daemon) touch() {
	d.lastActivity.Store(time.Now().UnixNano())
}

func (d *Daemon) idleFor() time.Duration {
	return time.Since(time.Unix(0, d.lastActivity.Load()))
}

func (d *Daemon) idleLoop(ctx context.Context) {
	ticker := time.NewTicker(idleCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case <-ticker.C:
			if idle := d.idleFor(); idle > d.idleTimeout {
				d.logger.Info("idle timeout exceeded",
					slog.Duration("idle", idle),
					slog.Duration("timeout", d.idleTimeout))
				go d.Shutdown("idle timeout")
				return
			}
		}
	}
}
