package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/lingostream/lingostream/pkg/session/backend"
	"github.com/lingostream/lingostream/pkg/session/config"
	"github.com/lingostream/lingostream/pkg/session/llm"
	"github.com/lingostream/lingostream/pkg/session/transcript"
)

type staticTranslator struct{}

func (staticTranslator) Translate(_ context.Context, _, text string) (string, error) {
	return "translated: " + text, nil
}

func testConfig() config.Config {
	return config.Config{
		Addr:           "127.0.0.1:0",
		SourceLanguage: "Bengali",
		TargetLanguage: "English",
		Model:          "gemini-2.0-flash",
		IdleTimeout:    time.Minute,
		SampleRate:     16000,
		GracePeriod:    time.Second,
		QueueDepth:     16,
	}
}

func testDeps(cfg config.Config) sessionDeps {
	return sessionDeps{
		loadConfig: func() (config.Config, error) { return cfg, nil },
		newTranslator: func(context.Context, config.Config) (llm.Translator, error) {
			return staticTranslator{}, nil
		},
		newRecognizer: func(config.Config) backend.Recognizer {
			return backend.NewScriptedRecognizer()
		},
		newSynthesizer: func(config.Config) backend.Synthesizer {
			return &backend.StaticSynthesizer{}
		},
		openStore: func(context.Context, string) (*transcript.Store, error) {
			return nil, errors.New("no database in tests")
		},
		signalNotify: func(chan<- os.Signal, ...os.Signal) {},
		signalStop:   func(chan<- os.Signal) {},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunSessionRejectsMissingDeps(t *testing.T) {
	err := runSession(context.Background(), discardLogger(), sessionDeps{})
	if err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}

func TestRunSessionReportsConfigFailure(t *testing.T) {
	deps := testDeps(testConfig())
	deps.loadConfig = func() (config.Config, error) {
		return config.Config{}, errors.New("bad env")
	}
	err := runSession(context.Background(), discardLogger(), deps)
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Fatalf("err = %v, want load config failure", err)
	}
}

func TestRunSessionReportsTranslatorFailure(t *testing.T) {
	deps := testDeps(testConfig())
	deps.newTranslator = func(context.Context, config.Config) (llm.Translator, error) {
		return nil, errors.New("no key")
	}
	err := runSession(context.Background(), discardLogger(), deps)
	if err == nil || !strings.Contains(err.Error(), "init translator") {
		t.Fatalf("err = %v, want translator failure", err)
	}
}

func TestRunSessionStopsOnSignal(t *testing.T) {
	notified := make(chan chan<- os.Signal, 1)
	deps := testDeps(testConfig())
	deps.signalNotify = func(c chan<- os.Signal, _ ...os.Signal) {
		notified <- c
	}

	done := make(chan error, 1)
	go func() {
		done <- runSession(context.Background(), discardLogger(), deps)
	}()

	select {
	case sigCh := <-notified:
		sigCh <- os.Interrupt
	case <-time.After(5 * time.Second):
		t.Fatal("signalNotify was never called")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runSession: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runSession did not stop after signal")
	}
}

func TestRunSessionContinuesWithoutStore(t *testing.T) {
	cfg := testConfig()
	cfg.TranscriptDSN = "postgres://nowhere/lingostream"
	notified := make(chan chan<- os.Signal, 1)
	deps := testDeps(cfg)
	deps.signalNotify = func(c chan<- os.Signal, _ ...os.Signal) {
		notified <- c
	}

	done := make(chan error, 1)
	go func() {
		done <- runSession(context.Background(), discardLogger(), deps)
	}()
	sigCh := <-notified
	sigCh <- os.Interrupt

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("runSession with unreachable store: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runSession did not stop")
	}
}

func TestRunMainReportsFailureExitCode(t *testing.T) {
	deps := testDeps(testConfig())
	deps.loadConfig = func() (config.Config, error) {
		return config.Config{}, errors.New("bad env")
	}

	var stderr bytes.Buffer
	if code := runMain(context.Background(), &stderr, deps); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "load config") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}
