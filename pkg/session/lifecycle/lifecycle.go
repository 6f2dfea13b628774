// Package lifecycle winds a session down after the caller goes idle. On an
// idle timeout the controller injects an interrupt, waits a short grace
// period for in-flight output to settle, then injects the end signal. The
// phase only ever moves forward.
package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lingostream/lingostream/pkg/session/frames"
)

// Phase is the session's wind-down state. Transitions are monotonic:
// Active -> Interrupting -> Ending -> Ended, with shortcuts straight to
// Ended on disconnect or confirmation.
type Phase int

const (
	Active Phase = iota
	Interrupting
	Ending
	Ended
)

func (p Phase) String() string {
	switch p {
	case Active:
		return "active"
	case Interrupting:
		return "interrupting"
	case Ending:
		return "ending"
	case Ended:
		return "ended"
	}
	return "unknown"
}

// FrameInjector queues control frames into the session's pipeline.
type FrameInjector interface {
	QueueFrames(ctx context.Context, fs ...frames.Frame) error
}

// DefaultGracePeriod is the pause between the interrupt and the end signal.
const DefaultGracePeriod = 3 * time.Second

// Controller drives one session through its wind-down. All methods are safe
// for concurrent use.
type Controller struct {
	injector FrameInjector
	grace    time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	phase Phase
	timer *time.Timer
	lost  bool
}

// New builds a controller in the Active phase. grace <= 0 selects
// DefaultGracePeriod.
func New(injector FrameInjector, grace time.Duration, logger *slog.Logger) *Controller {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{injector: injector, grace: grace, logger: logger}
}

// Phase returns the current wind-down phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// OnIdleTimeout begins the wind-down. Repeat calls and calls after the
// session left the Active phase are ignored, so at most one grace timer
// ever runs. If the interrupt cannot be queued the session is considered
// lost: the failure is logged and no retry is attempted.
func (c *Controller) OnIdleTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Active || c.lost {
		return
	}
	if err := c.injector.QueueFrames(context.Background(), frames.InterruptFrame{}); err != nil {
		c.lost = true
		c.logger.Error("session lost: interrupt injection failed", "error", err)
		return
	}
	c.phase = Interrupting
	c.logger.Info("idle timeout, interrupting session", "grace", c.grace)
	c.timer = time.AfterFunc(c.grace, c.endSession)
}

func (c *Controller) endSession() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != Interrupting || c.lost {
		return
	}
	if err := c.injector.QueueFrames(context.Background(), frames.EndFrame{}); err != nil {
		c.lost = true
		c.logger.Error("session lost: end injection failed", "error", err)
		return
	}
	c.phase = Ending
	c.logger.Info("grace period elapsed, ending session")
}

// ConfirmEnded records that the pipeline has fully stopped. It cancels any
// pending grace timer, so reaching the end through another path (client
// disconnect, pipeline shutdown) never leaves a timer armed.
func (c *Controller) ConfirmEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Ended {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.phase = Ended
	c.logger.Info("session ended")
}

// Lost reports whether a control frame could not be injected.
func (c *Controller) Lost() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lost
}
