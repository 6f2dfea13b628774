// Package server exposes the supervisor's control surface over HTTP and
// serves the browser client for everything else.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lingostream/lingostream/pkg/control/apierror"
	"github.com/lingostream/lingostream/pkg/control/config"
	"github.com/lingostream/lingostream/pkg/control/mw"
	"github.com/lingostream/lingostream/pkg/control/portguard"
	"github.com/lingostream/lingostream/pkg/control/preflight"
	"github.com/lingostream/lingostream/pkg/control/static"
	"github.com/lingostream/lingostream/pkg/control/supervisor"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	sup    *supervisor.Supervisor
	mux    *http.ServeMux
}

func New(cfg config.Config, sup *supervisor.Supervisor, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger,
		sup:    sup,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /start-bot", s.handleStart)
	s.mux.HandleFunc("POST /stop-bot", s.handleStop)
	s.mux.HandleFunc("POST /bot-logs", s.handleLogs)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("/", static.Handler{Root: s.cfg.StaticRoot})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.CORS(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

type startResponse struct {
	Success bool `json:"success"`
	PID     int  `json:"pid,omitempty"`
}

type stopRequest struct {
	PID       int  `json:"pid"`
	Force     bool `json:"force"`
	ForcePort int  `json:"force_port"`
}

type okResponse struct {
	Success bool `json:"success"`
}

type logsRequest struct {
	PID int `json:"pid"`
}

type logsResponse struct {
	Success bool     `json:"success"`
	PID     int      `json:"pid"`
	Stdout  []string `json:"stdout"`
	Stderr  []string `json:"stderr"`
}

type healthResponse struct {
	Success            bool `json:"success"`
	WorkerPID          int  `json:"worker_pid,omitempty"`
	SessionPortInUse   bool `json:"session_port_in_use"`
	SessionPortFree    bool `json:"session_port_free"`
	CredentialsPresent bool `json:"credentials_present"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	pid, err := s.sup.Start(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startResponse{Success: true, PID: pid})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if r.Body != nil {
		// An empty or malformed body behaves like an empty request; the
		// supervisor rejects the zero pid as not found.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := s.sup.Stop(r.Context(), req.PID, req.Force, req.ForcePort); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	var req logsRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	res, err := s.sup.Logs(req.PID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logsResponse{
		Success: true,
		PID:     res.PID,
		Stdout:  res.Stdout,
		Stderr:  res.Stderr,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	credsErr := preflight.CheckCredentials(s.cfg.CredentialsPath)
	writeJSON(w, http.StatusOK, healthResponse{
		Success:            true,
		WorkerPID:          s.sup.ActivePID(),
		SessionPortInUse:   portguard.InUse(s.cfg.SessionPort),
		SessionPortFree:    portguard.Free(s.cfg.SessionPort),
		CredentialsPresent: credsErr == nil,
	})
}

type errorEnvelope struct {
	Success bool            `json:"success"`
	Error   *apierror.Error `json:"error"`
}

func writeError(w http.ResponseWriter, err *apierror.Error) {
	writeJSON(w, err.HTTPStatus(), errorEnvelope{Success: false, Error: err})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
