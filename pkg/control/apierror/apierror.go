// Package apierror defines the structured errors surfaced by the
// supervisor's control surface.
package apierror

import (
	"fmt"
	"net/http"
)

// ErrorType categorizes control-surface errors.
type ErrorType string

const (
	// ErrMissingArtifact: a required credential/config artifact is absent or
	// holds a placeholder value. Fatal to Start, reported before any spawn.
	ErrMissingArtifact ErrorType = "missing_artifact"
	// ErrSpawnFailed: the worker exited within the liveness window.
	ErrSpawnFailed ErrorType = "spawn_failed"
	// ErrNotFound: a stop or logs request referenced an unknown worker.
	ErrNotFound ErrorType = "not_found"
	// ErrNoLogs: no log buffers exist for any worker.
	ErrNoLogs ErrorType = "no_logs"
	// ErrPortConflict: the session port was occupied when Start began.
	// Advisory; reclamation is attempted and Start proceeds.
	ErrPortConflict ErrorType = "port_conflict"
	// ErrReclamationFailed: best-effort port reclamation could not find or
	// terminate a holder. Logged, never returned to callers.
	ErrReclamationFailed ErrorType = "reclamation_failed"
	// ErrInternal: anything else.
	ErrInternal ErrorType = "internal_error"
)

// Error is the wire-visible error for the control surface.
type Error struct {
	Type     ErrorType `json:"type"`
	Message  string    `json:"message"`
	Path     string    `json:"path,omitempty"`
	PID      int       `json:"pid,omitempty"`
	ExitCode int       `json:"exit_code,omitempty"`
	Stdout   []string  `json:"stdout,omitempty"`
	Stderr   []string  `json:"stderr,omitempty"`
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s (path: %s)", e.Type, e.Message, e.Path)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatus maps an error type to the status code the control surface uses.
func (e *Error) HTTPStatus() int {
	switch e.Type {
	case ErrMissingArtifact, ErrNotFound, ErrNoLogs:
		// Reported as JSON failures with a 200, not as HTTP errors; the
		// browser client keys off the success field.
		return http.StatusOK
	case ErrSpawnFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewMissingArtifact creates a missing-artifact error naming the file.
func NewMissingArtifact(path, message string) *Error {
	return &Error{Type: ErrMissingArtifact, Message: message, Path: path}
}

// NewSpawnFailed creates a spawn-failed error carrying the early exit detail.
func NewSpawnFailed(pid, exitCode int, stdout, stderr []string) *Error {
	return &Error{
		Type:     ErrSpawnFailed,
		Message:  fmt.Sprintf("worker exited during startup with code %d", exitCode),
		PID:      pid,
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
	}
}

// NewNotFound creates a not-found error for an unknown worker id.
func NewNotFound(pid int) *Error {
	return &Error{Type: ErrNotFound, Message: "process not found", PID: pid}
}

// NewNoLogs creates the structured "no logs available" result.
func NewNoLogs() *Error {
	return &Error{Type: ErrNoLogs, Message: "no worker logs available"}
}

// NewInternal wraps an unexpected failure.
func NewInternal(err error) *Error {
	return &Error{Type: ErrInternal, Message: err.Error()}
}
