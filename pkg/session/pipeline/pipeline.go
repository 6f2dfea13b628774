// Package pipeline runs an ordered chain of stages over a single stream of
// frames. One goroutine drains the input queue and walks each frame through
// the stages in order, so frame order is preserved end to end.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lingostream/lingostream/pkg/session/frames"
)

// ErrTaskEnded is returned by QueueFrames once the task has processed an
// end frame or its context was canceled.
var ErrTaskEnded = errors.New("pipeline: task ended")

// Push hands a frame to the next stage in the chain.
type Push func(frames.Frame)

// Stage transforms or observes frames. Process receives one frame and pushes
// zero or more frames downstream. Control frames must be forwarded so later
// stages see them.
type Stage interface {
	Name() string
	Process(ctx context.Context, f frames.Frame, push Push) error
}

// Pipeline is an ordered chain of stages.
type Pipeline struct {
	stages []Stage
}

// New builds a pipeline from the given stages, first to last.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Task drives frames through a pipeline. Frames queued on the same call and
// across calls are processed in queue order by a single goroutine.
type Task struct {
	pipeline *Pipeline
	logger   *slog.Logger

	in   chan frames.Frame
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewTask wraps a pipeline in a runnable task. queueDepth bounds how many
// frames may wait in the input queue before QueueFrames blocks.
func NewTask(p *Pipeline, queueDepth int, logger *slog.Logger) *Task {
	if queueDepth <= 0 {
		queueDepth = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Task{
		pipeline: p,
		logger:   logger,
		in:       make(chan frames.Frame, queueDepth),
		done:     make(chan struct{}),
	}
}

// QueueFrames appends frames to the input queue in the order given. It fails
// once the task has ended; a batch is queued atomically with respect to
// other QueueFrames calls.
func (t *Task) QueueFrames(ctx context.Context, fs ...frames.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTaskEnded
	}
	for _, f := range fs {
		select {
		case t.in <- f:
		case <-t.done:
			return ErrTaskEnded
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Run processes queued frames until an end frame has passed through every
// stage or ctx is canceled. It closes Done on return.
func (t *Task) Run(ctx context.Context) {
	// done must close before markClosed: a QueueFrames caller blocked on a
	// full queue holds the mutex and only the done channel releases it.
	defer t.markClosed()
	defer close(t.done)
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-t.in:
			t.process(ctx, f, 0)
			if _, end := f.(frames.EndFrame); end {
				return
			}
		}
	}
}

// Done is closed when the task has stopped processing frames.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) markClosed() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

func (t *Task) process(ctx context.Context, f frames.Frame, idx int) {
	if idx >= len(t.pipeline.stages) {
		return
	}
	stage := t.pipeline.stages[idx]
	err := stage.Process(ctx, f, func(out frames.Frame) {
		t.process(ctx, out, idx+1)
	})
	if err != nil {
		t.logger.Error("stage failed",
			"stage", stage.Name(),
			"frame", f.Kind(),
			"error", err)
	}
}

// Passthrough forwards f downstream unchanged. Stages call it for frames
// they do not handle.
func Passthrough(f frames.Frame, push Push) {
	push(f)
}
