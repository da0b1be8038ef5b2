package launcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"

	"github.com/junerver/MCP2Skills/internal/daemon"
	"github.com/junerver/MCP2Skills/internal/paths"
)

var (
	spawnDaemonFn      = spawnDaemon
	acquireSpawnLockFn = acquireSpawnLock
	execCommandFn      = exec.Command
)

// EnsureStarted makes sure the skill's daemon is up, spawning it when
// needed. Concurrent callers serialize on a file lock so only one of them
// spawns; the rest find the daemon already running after the lock is
// released.
func (c *Client) EnsureStarted(ctx context.Context) error {
	if c.IsRunning(ctx) {
		return nil
	}

	release, err := acquireSpawnLockFn(paths.LockFile(c.skillDir))
	if err != nil {
		return fmt.Errorf("acquiring spawn lock: %w", err)
	}
	defer release() //nolint:errcheck

	// Someone else may have spawned while we waited for the lock.
	if c.IsRunning(ctx) {
		return nil
	}

	c.logger.Info("starting daemon", slog.String("server", c.desc.Name))
	if err := spawnDaemonFn(c.skillDir); err != nil {
		return err
	}
	return c.waitForDaemon(ctx)
}

func (c *Client) waitForDaemon(ctx context.Context) error {
	deadline := time.Now().Add(startupTimeout)
	for time.Now().Before(deadline) {
		if c.IsRunning(ctx) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(startupPoll):
		}
	}
	return fmt.Errorf("daemon for %s did not start within %s (check %s)",
		c.desc.Name, startupTimeout, paths.LogFile(c.skillDir))
}

func acquireSpawnLock(path string) (func() error, error) {
	lockFile, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	return func() error {
		unlockErr := unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)
		closeErr := lockFile.Close()
		if unlockErr != nil {
			return unlockErr
		}
		return closeErr
	}, nil
}

func spawnDaemon(skillDir string) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("finding executable: %w", err)
	}

	cmd, cleanup, err := newDaemonCommand(exe, skillDir)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawning daemon: %w", err)
	}

	// Detach: don't wait for the daemon process
	go cmd.Wait() //nolint:errcheck
	return nil
}

func newDaemonCommand(exe, skillDir string) (*exec.Cmd, func(), error) {
	cmd := execCommandFn(exe, "__daemon", skillDir)
	devNull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", os.DevNull, err)
	}

	cmd.Stdin = devNull
	cmd.Stdout = devNull
	cmd.Stderr = devNull
	// New session: a Ctrl-C aimed at the launcher's terminal must not
	// reach the daemon.
	cmd.SysProcAttr = &unix.SysProcAttr{Setsid: true}
	return cmd, func() {
		_ = devNull.Close()
	}, nil
}

// stopByPID handles the daemon that still has a PID marker but no
// reachable HTTP API.
func (c *Client) stopByPID() error {
	pidPath := paths.PIDFile(c.skillDir)
	pid := daemon.ReadPIDFile(pidPath)
	if pid == 0 {
		// No marker (or a garbled one), nothing running.
		os.Remove(pidPath)
		return nil
	}

	// kill -0: probe whether the process is still alive.
	if err := unix.Kill(pid, 0); err != nil {
		os.Remove(pidPath)
		return nil
	}

	c.logger.Info("terminating unresponsive daemon", slog.Int("pid", pid))
	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("terminating pid %d: %w", pid, err)
	}
	os.Remove(pidPath)
	return nil
}
