package transport

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

type sinkRecorder struct {
	mu   sync.Mutex
	data [][]byte
}

func (r *sinkRecorder) sink(_ context.Context, data []byte) {
	r.mu.Lock()
	r.data = append(r.data, append([]byte(nil), data...))
	r.mu.Unlock()
}

func (r *sinkRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConnectAndForwardAudio(t *testing.T) {
	rec := &sinkRecorder{}
	s := New(Config{IdleTimeout: time.Minute}, rec.sink, discardLogger())

	connected := make(chan string, 1)
	unsub := s.Subscribe(Handlers{Connected: func(id string) { connected <- id }})
	defer unsub()

	ts := httptest.NewServer(s)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	select {
	case id := <-connected:
		if id == "" {
			t.Fatal("empty session id")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no connected notification")
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, "audio sink", func() bool { return rec.count() == 1 })
}

func TestIdleTimeoutNotification(t *testing.T) {
	s := New(Config{IdleTimeout: 50 * time.Millisecond}, nil, discardLogger())

	idle := make(chan string, 1)
	unsub := s.Subscribe(Handlers{IdleTimeout: func(id string) { idle <- id }})
	defer unsub()

	ts := httptest.NewServer(s)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	select {
	case <-idle:
	case <-time.After(2 * time.Second):
		t.Fatal("no idle-timeout notification")
	}

	// The connection stays writable after the idle notification.
	if err := s.SendAudio([]byte{9}); err != nil {
		t.Fatalf("SendAudio after idle: %v", err)
	}
}

func TestDisconnectNotification(t *testing.T) {
	s := New(Config{IdleTimeout: time.Minute}, nil, discardLogger())

	disconnected := make(chan string, 1)
	unsub := s.Subscribe(Handlers{Disconnected: func(id string) { disconnected <- id }})
	defer unsub()

	ts := httptest.NewServer(s)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()

	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("no disconnected notification")
	}
	if err := s.SendAudio([]byte{1}); err == nil {
		t.Fatal("SendAudio succeeded with no connection")
	}
}

func TestSecondConnectionRefused(t *testing.T) {
	s := New(Config{IdleTimeout: time.Minute}, nil, discardLogger())
	ts := httptest.NewServer(s)
	defer ts.Close()

	first, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer first.Close()

	second, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close()

	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = second.ReadMessage()
	if err == nil {
		t.Fatal("second connection was not closed")
	}
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("second connection close = %v, want policy violation", err)
	}
}

func TestSendAudioReachesPeer(t *testing.T) {
	s := New(Config{IdleTimeout: time.Minute}, nil, discardLogger())

	connected := make(chan string, 1)
	unsub := s.Subscribe(Handlers{Connected: func(id string) { connected <- id }})
	defer unsub()

	ts := httptest.NewServer(s)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	<-connected

	if err := s.SendAudio([]byte{7, 8}); err != nil {
		t.Fatalf("SendAudio: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if mt != websocket.BinaryMessage || len(data) != 2 {
		t.Fatalf("got message type %d with %d bytes", mt, len(data))
	}
}
