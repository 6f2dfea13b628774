// Package transport serves the worker's websocket endpoint. It accepts one
// caller at a time, forwards inbound binary audio to a sink, and raises
// typed notifications (connected, disconnected, idle timeout) to whoever
// has subscribed. Idle timeout is measured as read inactivity.
package transport

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultIdleTimeout applies when Config.IdleTimeout is zero.
const DefaultIdleTimeout = 3 * time.Minute

// Config controls the websocket server.
type Config struct {
	Addr            string
	IdleTimeout     time.Duration
	MaxMessageBytes int64
	WriteTimeout    time.Duration
}

// Handlers receives session notifications. Nil fields are skipped. Handlers
// are invoked from the transport's read goroutine and must not block.
type Handlers struct {
	Connected    func(sessionID string)
	Disconnected func(sessionID string)
	IdleTimeout  func(sessionID string)
}

// AudioSink consumes one inbound binary audio payload.
type AudioSink func(ctx context.Context, data []byte)

// Server is a single-session websocket transport.
type Server struct {
	cfg    Config
	sink   AudioSink
	logger *slog.Logger

	subMu   sync.Mutex
	subs    map[int]Handlers
	nextSub int

	connMu    sync.Mutex
	conn      *websocket.Conn
	sessionID string

	writeMu sync.Mutex
}

// New builds a server. sink receives every inbound binary message.
func New(cfg Config, sink AudioSink, logger *slog.Logger) *Server {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		subs:   make(map[int]Handlers),
	}
}

// Subscribe registers notification handlers and returns the function that
// releases them. Subscriptions are released at session end by the caller.
func (s *Server) Subscribe(h Handlers) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = h
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Server) notify(pick func(Handlers) func(string), sessionID string) {
	s.subMu.Lock()
	fns := make([]func(string), 0, len(s.subs))
	for _, h := range s.subs {
		if fn := pick(h); fn != nil {
			fns = append(fns, fn)
		}
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(sessionID)
	}
}

// ServeHTTP upgrades the request and runs the session's read loop until the
// peer disconnects or goes idle. A second concurrent connection is refused.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sessionID := "s_" + randHex(8)
	s.connMu.Lock()
	if s.conn != nil {
		s.connMu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session in use"),
			time.Now().Add(2*time.Second))
		conn.Close()
		return
	}
	s.conn = conn
	s.sessionID = sessionID
	s.connMu.Unlock()

	if s.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(s.cfg.MaxMessageBytes)
	}

	s.logger.Info("client connected", "session_id", sessionID, "remote", conn.RemoteAddr().String())
	s.notify(func(h Handlers) func(string) { return h.Connected }, sessionID)

	s.readLoop(r.Context(), conn, sessionID)
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, sessionID string) {
	for {
		_ = conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				// Reads are finished but the connection stays open so the
				// pipeline can flush its remaining output.
				s.logger.Info("session idle", "session_id", sessionID, "idle_timeout", s.cfg.IdleTimeout)
				s.notify(func(h Handlers) func(string) { return h.IdleTimeout }, sessionID)
				return
			}
			s.logger.Info("client disconnected", "session_id", sessionID, "error", err)
			s.dropConn(conn)
			s.notify(func(h Handlers) func(string) { return h.Disconnected }, sessionID)
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		if s.sink != nil {
			s.sink(ctx, data)
		}
	}
}

// SendAudio writes one binary audio payload to the connected peer.
func (s *Server) SendAudio(data []byte) error {
	s.connMu.Lock()
	conn := s.conn
	s.connMu.Unlock()
	if conn == nil {
		return errors.New("transport: no active connection")
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

// CloseSession closes the active connection, if any. Safe to call when no
// peer is connected.
func (s *Server) CloseSession() {
	s.connMu.Lock()
	conn := s.conn
	sessionID := s.sessionID
	s.conn = nil
	s.sessionID = ""
	s.connMu.Unlock()
	if conn == nil {
		return
	}
	s.logger.Info("closing session", "session_id", sessionID)
	s.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"),
		time.Now().Add(2*time.Second))
	s.writeMu.Unlock()
	conn.Close()
}

func (s *Server) dropConn(conn *websocket.Conn) {
	s.connMu.Lock()
	if s.conn == conn {
		s.conn = nil
		s.sessionID = ""
	}
	s.connMu.Unlock()
	conn.Close()
}

// ListenAndServe runs an http server for the websocket endpoint until ctx
// is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/", s)
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return fmt.Errorf("transport: serve: %w", err)
	case <-ctx.Done():
	}
	s.CloseSession()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func randHex(nbytes int) string {
	b := make([]byte, nbytes)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
