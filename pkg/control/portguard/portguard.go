// Package portguard probes fixed local ports and reclaims them from stale
// worker processes. Reclamation is best-effort by design: every failure is
// logged and swallowed, because a conflicting holder may disappear on its own
// before the next spawn.
package portguard

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// InUse reports whether something is listening on the port, by attempting a
// local connection and immediately closing it.
func InUse(port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort("localhost", strconv.Itoa(port)), 500*time.Millisecond)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Free reports whether the port can be bound locally. Used by health checks
// on the fixed control and session endpoints.
func Free(port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort("localhost", strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}

// OwnerLookup resolves the processes currently holding a port. Platform
// lookups vary; absence of a working lookup must degrade to a no-op, not to a
// broad kill.
type OwnerLookup interface {
	Owners(ctx context.Context, port int) ([]int, error)
}

// LsofLookup finds port holders with lsof -ti :PORT.
type LsofLookup struct{}

func (LsofLookup) Owners(ctx context.Context, port int) ([]int, error) {
	out, err := exec.CommandContext(ctx, "lsof", "-ti", fmt.Sprintf(":%d", port)).Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) == 0 {
			// lsof exits 1 when nothing holds the port.
			return nil, nil
		}
		return nil, fmt.Errorf("lsof lookup for port %d: %w", port, err)
	}

	var pids []int
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// Killer signals a process by pid. Swapped out in tests.
type Killer func(pid int, sig syscall.Signal) error

// Reclaimer frees a port held by a previous worker.
type Reclaimer struct {
	Lookup OwnerLookup
	Logger *slog.Logger

	// Aggressive enables the kill-by-executable-name fallback used when no
	// owner lookup is available. It can terminate unrelated processes and is
	// off unless explicitly requested.
	Aggressive bool
	// WorkerName is the executable name targeted by the aggressive fallback.
	WorkerName string

	// Settle is how long to wait after signalling so the kernel releases the
	// port before the next bind attempt.
	Settle time.Duration

	Kill    Killer
	RunPkill func(ctx context.Context, name string) error
}

// Reclaim kills whatever holds the port. It never returns an error: the
// caller proceeds regardless, since the conflict may have been transient.
// It reports whether the port was in use when the call began.
func (r *Reclaimer) Reclaim(ctx context.Context, port int) bool {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if !InUse(port) {
		return false
	}
	logger.Warn("session port in use, attempting reclamation", "port", port)

	kill := r.Kill
	if kill == nil {
		kill = func(pid int, sig syscall.Signal) error {
			return syscall.Kill(pid, sig)
		}
	}

	reclaimed := false
	if r.Lookup != nil {
		pids, err := r.Lookup.Owners(ctx, port)
		switch {
		case err != nil:
			logger.Warn("port owner lookup failed", "port", port, "error", err)
		default:
			for _, pid := range pids {
				if err := kill(pid, syscall.SIGKILL); err != nil {
					logger.Warn("failed to kill port holder", "port", port, "pid", pid, "error", err)
					continue
				}
				logger.Info("killed port holder", "port", port, "pid", pid)
				reclaimed = true
			}
			if len(pids) > 0 {
				r.settle(ctx)
				return true
			}
		}
	}

	if !reclaimed && r.Aggressive && r.WorkerName != "" {
		logger.Warn("falling back to aggressive reclaim by executable name", "name", r.WorkerName)
		runPkill := r.RunPkill
		if runPkill == nil {
			runPkill = func(ctx context.Context, name string) error {
				return exec.CommandContext(ctx, "pkill", "-f", name).Run()
			}
		}
		if err := runPkill(ctx, r.WorkerName); err != nil {
			logger.Warn("aggressive reclaim failed", "name", r.WorkerName, "error", err)
		}
	}

	r.settle(ctx)
	return true
}

func (r *Reclaimer) settle(ctx context.Context) {
	if r.Settle <= 0 {
		return
	}
	select {
	case <-time.After(r.Settle):
	case <-ctx.Done():
	}
}
