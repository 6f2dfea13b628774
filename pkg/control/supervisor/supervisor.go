// Package supervisor owns the worker process lifecycle: preflight, port
// reclamation, spawn, asynchronous log capture, crash detection, and
// deterministic termination.
package supervisor

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/lingostream/lingostream/pkg/control/apierror"
	"github.com/lingostream/lingostream/pkg/control/config"
	"github.com/lingostream/lingostream/pkg/control/portguard"
	"github.com/lingostream/lingostream/pkg/control/preflight"
)

// WorkerState is the lifecycle state of a spawned worker.
type WorkerState string

const (
	StateStarting WorkerState = "starting"
	StateRunning  WorkerState = "running"
	StateExited   WorkerState = "exited"
	StateUnknown  WorkerState = "unknown"
)

// failureTailLines bounds how much captured output a spawn failure carries.
const failureTailLines = 50

type workerLogs struct {
	stdout *ringLog
	stderr *ringLog
}

// WorkerRecord tracks one spawned worker process.
type WorkerRecord struct {
	PID int

	cmd  *exec.Cmd
	logs *workerLogs

	mu    sync.Mutex
	state WorkerState

	// done is closed once the process has been reaped; exitCode is valid
	// after that.
	done     chan struct{}
	exitCode int
}

// State returns the record's current lifecycle state.
func (w *WorkerRecord) State() WorkerState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *WorkerRecord) setState(s WorkerState) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// LogsResult is the payload of a successful Logs call.
type LogsResult struct {
	PID    int
	Stdout []string
	Stderr []string
}

// Supervisor manages at most one active worker slot. The active-process
// table is the only cross-call shared state; log buffers are retained after
// exit until the supervisor process itself restarts.
type Supervisor struct {
	cfg       config.Config
	logger    *slog.Logger
	reclaimer *portguard.Reclaimer

	mu      sync.Mutex
	active  map[int]*WorkerRecord
	logs    map[int]*workerLogs
	startMu sync.Mutex
}

// New creates a supervisor for the given configuration.
func New(cfg config.Config, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		cfg:    cfg,
		logger: logger,
		reclaimer: &portguard.Reclaimer{
			Lookup:     portguard.LsofLookup{},
			Logger:     logger,
			Aggressive: cfg.AggressiveReclaim,
			WorkerName: cfg.WorkerCommand,
			Settle:     cfg.ReclaimSettle,
		},
		active: make(map[int]*WorkerRecord),
		logs:   make(map[int]*workerLogs),
	}
}

// Start spawns the worker and confirms it survives the liveness window.
// On success exactly one Running record exists and its log readers are
// active. On failure no Running record exists and the error is structured.
func (s *Supervisor) Start(ctx context.Context) (int, *apierror.Error) {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	// Reclaim the previous slot before anything else; the table holds at
	// most one record in {Starting, Running}.
	if prev := s.activeRecord(); prev != nil {
		s.logger.Warn("superseding active worker", "pid", prev.PID)
		s.terminate(prev, true)
	}

	if s.reclaimer.Reclaim(ctx, s.cfg.SessionPort) {
		s.logger.Warn("session port conflict before spawn", "port", s.cfg.SessionPort)
	}

	if err := preflight.CheckCredentials(s.cfg.CredentialsPath); err != nil {
		s.logger.Error("preflight failed", "error", err)
		return 0, err
	}
	if err := preflight.CheckEnvArtifact(s.cfg.EnvPath, s.cfg.LLMKeyName); err != nil {
		s.logger.Error("preflight failed", "error", err)
		return 0, err
	}

	rec, err := s.spawn(ctx)
	if err != nil {
		s.logger.Error("worker spawn failed", "error", err)
		return 0, err
	}

	select {
	case <-time.After(s.cfg.LivenessWindow):
	case <-rec.done:
	}

	select {
	case <-rec.done:
		rec.setState(StateExited)
		s.mu.Lock()
		delete(s.active, rec.PID)
		s.mu.Unlock()
		aerr := apierror.NewSpawnFailed(rec.PID, rec.exitCode,
			rec.logs.stdout.Tail(failureTailLines), rec.logs.stderr.Tail(failureTailLines))
		s.logger.Error("worker exited during liveness window",
			"pid", rec.PID, "exit_code", rec.exitCode)
		return 0, aerr
	default:
	}

	rec.setState(StateRunning)
	s.logger.Info("worker running", "pid", rec.PID)
	return rec.PID, nil
}

func (s *Supervisor) spawn(ctx context.Context) (*WorkerRecord, *apierror.Error) {
	cmd := exec.Command(s.cfg.WorkerCommand, s.cfg.WorkerArgs...)
	cmd.Dir = s.cfg.WorkerDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, apierror.NewInternal(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, apierror.NewInternal(err)
	}

	if err := cmd.Start(); err != nil {
		return nil, &apierror.Error{
			Type:    apierror.ErrSpawnFailed,
			Message: "failed to start worker: " + err.Error(),
		}
	}

	logs := &workerLogs{
		stdout: newRingLog(s.cfg.LogMaxLines),
		stderr: newRingLog(s.cfg.LogMaxLines),
	}
	rec := &WorkerRecord{
		PID:   cmd.Process.Pid,
		cmd:   cmd,
		logs:  logs,
		state: StateStarting,
		done:  make(chan struct{}),
	}

	s.mu.Lock()
	s.active[rec.PID] = rec
	s.logs[rec.PID] = logs
	s.mu.Unlock()

	// The readers out-live Start: they are pure producers appending decoded
	// lines until the pipes close on process exit. exec.Cmd requires all
	// pipe reads to finish before Wait, hence the WaitGroup.
	var readers sync.WaitGroup
	readers.Add(2)
	go s.captureLines(stdout, logs.stdout, &readers)
	go s.captureLines(stderr, logs.stderr, &readers)

	go func() {
		readers.Wait()
		err := cmd.Wait()
		rec.mu.Lock()
		rec.exitCode = cmd.ProcessState.ExitCode()
		rec.mu.Unlock()
		if err != nil {
			s.logger.Debug("worker wait", "pid", rec.PID, "error", err)
		}
		close(rec.done)
	}()

	s.logger.Info("worker spawned", "pid", rec.PID, "cmd", s.cfg.WorkerCommand)
	return rec, nil
}

func (s *Supervisor) captureLines(r io.Reader, dst *ringLog, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		dst.Append(scanner.Text())
	}
	// A scanner error here means the pipe broke mid-read (worker died);
	// the lines captured so far are kept.
}

// Stop terminates a worker. Modes, mutually exclusive:
//   - forcePort != 0: reclaim whatever holds that port; always succeeds.
//   - force: immediate hard kill of the tracked worker.
//   - default: graceful signal, bounded wait, then escalation.
//
// The active table never points at an exited process after Stop returns;
// log buffers are retained for later retrieval.
func (s *Supervisor) Stop(ctx context.Context, pid int, force bool, forcePort int) *apierror.Error {
	if forcePort != 0 {
		s.reclaimer.Reclaim(ctx, forcePort)
		return nil
	}

	s.mu.Lock()
	rec, ok := s.active[pid]
	s.mu.Unlock()
	if pid == 0 || !ok {
		return apierror.NewNotFound(pid)
	}

	s.terminate(rec, force)
	return nil
}

// terminate signals the worker and synchronously removes it from the active
// table once its exit is confirmed (or escalation has been issued).
func (s *Supervisor) terminate(rec *WorkerRecord, force bool) {
	if force {
		if err := rec.cmd.Process.Signal(syscall.SIGKILL); err != nil {
			s.logger.Warn("hard kill failed", "pid", rec.PID, "error", err)
		} else {
			s.logger.Info("worker force killed", "pid", rec.PID)
		}
	} else {
		if err := rec.cmd.Process.Signal(syscall.SIGTERM); err != nil {
			s.logger.Warn("graceful signal failed", "pid", rec.PID, "error", err)
		}
		select {
		case <-rec.done:
			s.logger.Info("worker terminated gracefully", "pid", rec.PID)
		case <-time.After(s.cfg.StopGracePeriod):
			s.logger.Warn("graceful stop timed out, escalating", "pid", rec.PID)
			if err := rec.cmd.Process.Signal(syscall.SIGKILL); err != nil {
				s.logger.Warn("escalated kill failed", "pid", rec.PID, "error", err)
			}
		}
	}

	// Bounded wait for the reaper; SIGKILL cannot be ignored, so this only
	// guards against a wedged pipe reader.
	select {
	case <-rec.done:
	case <-time.After(s.cfg.StopGracePeriod):
		s.logger.Warn("worker exit not confirmed", "pid", rec.PID)
	}

	rec.setState(StateExited)
	s.mu.Lock()
	delete(s.active, rec.PID)
	s.mu.Unlock()
}

// Logs returns the captured output for the given worker, or for the most
// recently started worker when pid is 0. Never blocks on worker liveness.
func (s *Supervisor) Logs(pid int) (LogsResult, *apierror.Error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pid == 0 {
		for p := range s.logs {
			if p > pid {
				pid = p
			}
		}
	}
	logs, ok := s.logs[pid]
	if !ok {
		return LogsResult{}, apierror.NewNoLogs()
	}
	return LogsResult{
		PID:    pid,
		Stdout: logs.stdout.Lines(),
		Stderr: logs.stderr.Lines(),
	}, nil
}

// ActivePID returns the pid of the tracked worker still in the active table,
// or 0 if the slot is empty.
func (s *Supervisor) ActivePID() int {
	if rec := s.activeRecord(); rec != nil {
		return rec.PID
	}
	return 0
}

func (s *Supervisor) activeRecord() *WorkerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.active {
		return rec
	}
	return nil
}

// Shutdown hard-kills every tracked worker. Best-effort: one unkillable
// entry does not prevent attempting the rest.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	records := make([]*WorkerRecord, 0, len(s.active))
	for _, rec := range s.active {
		records = append(records, rec)
	}
	s.active = make(map[int]*WorkerRecord)
	s.mu.Unlock()

	for _, rec := range records {
		if err := rec.cmd.Process.Signal(syscall.SIGKILL); err != nil {
			s.logger.Warn("cleanup kill failed", "pid", rec.PID, "error", err)
			continue
		}
		s.logger.Info("killed worker during cleanup", "pid", rec.PID)
	}
}
