// Command lingo-session runs one streaming translation session. It serves a
// websocket endpoint, pipes caller audio through recognition, translation,
// and synthesis, and winds the session down after the caller goes idle.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lingostream/lingostream/internal/dotenv"
	"github.com/lingostream/lingostream/pkg/session/backend"
	"github.com/lingostream/lingostream/pkg/session/config"
	"github.com/lingostream/lingostream/pkg/session/frames"
	"github.com/lingostream/lingostream/pkg/session/lifecycle"
	"github.com/lingostream/lingostream/pkg/session/llm"
	"github.com/lingostream/lingostream/pkg/session/pipeline"
	"github.com/lingostream/lingostream/pkg/session/transcript"
	"github.com/lingostream/lingostream/pkg/session/translate"
	"github.com/lingostream/lingostream/pkg/session/transport"
)

type sessionDeps struct {
	loadConfig     func() (config.Config, error)
	newTranslator  func(context.Context, config.Config) (llm.Translator, error)
	newRecognizer  func(config.Config) backend.Recognizer
	newSynthesizer func(config.Config) backend.Synthesizer
	openStore      func(context.Context, string) (*transcript.Store, error)
	signalNotify   func(chan<- os.Signal, ...os.Signal)
	signalStop     func(chan<- os.Signal)
}

func defaultSessionDeps() sessionDeps {
	return sessionDeps{
		loadConfig: config.LoadFromEnv,
		newTranslator: func(ctx context.Context, cfg config.Config) (llm.Translator, error) {
			return llm.NewGeminiTranslator(ctx, cfg.APIKey, cfg.Model)
		},
		newRecognizer: func(config.Config) backend.Recognizer {
			return backend.NewScriptedRecognizer()
		},
		newSynthesizer: func(config.Config) backend.Synthesizer {
			return &backend.StaticSynthesizer{}
		},
		openStore: transcript.OpenStore,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func buildPipeline(cfg config.Config, server *transport.Server, agg *transcript.Aggregator, translator llm.Translator, rec backend.Recognizer, syn backend.Synthesizer, logger *slog.Logger) *pipeline.Task {
	p := pipeline.New(
		backend.NewRecognizerStage(rec, logger),
		transcript.NewUserStage(agg),
		translate.NewStage(cfg.SourceLanguage, cfg.TargetLanguage),
		llm.NewStage(translator, logger),
		backend.NewSynthesizerStage(syn, cfg.SampleRate, logger),
		transcript.NewAssistantStage(agg),
		transport.NewOutStage(server, logger),
	)
	return pipeline.NewTask(p, cfg.QueueDepth, logger)
}

func runSession(ctx context.Context, logger *slog.Logger, deps sessionDeps) error {
	if deps.loadConfig == nil || deps.newTranslator == nil {
		return errors.New("missing config or translator dependency")
	}
	if deps.newRecognizer == nil || deps.newSynthesizer == nil {
		return errors.New("missing speech backend dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	translator, err := deps.newTranslator(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init translator: %w", err)
	}

	var store *transcript.Store
	if cfg.TranscriptDSN != "" && deps.openStore != nil {
		store, err = deps.openStore(ctx, cfg.TranscriptDSN)
		if err != nil {
			logger.Warn("transcript store unavailable, keeping transcript in memory", "error", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	sessionID := fmt.Sprintf("sess-%d", os.Getpid())
	agg := transcript.NewAggregator(sessionID, cfg.SourceLanguage, cfg.TargetLanguage, store, logger)

	var task *pipeline.Task
	server := transport.New(transport.Config{
		Addr:            cfg.Addr,
		IdleTimeout:     cfg.IdleTimeout,
		MaxMessageBytes: cfg.MaxMessageBytes,
	}, func(ctx context.Context, data []byte) {
		if err := task.QueueFrames(ctx, frames.AudioFrame{Data: data, SampleRate: cfg.SampleRate}); err != nil {
			logger.Warn("dropping audio frame", "error", err)
		}
	}, logger)

	task = buildPipeline(cfg, server, agg, translator, deps.newRecognizer(cfg), deps.newSynthesizer(cfg), logger)

	controller := lifecycle.New(task, cfg.GracePeriod, logger)
	unsubscribe := server.Subscribe(transport.Handlers{
		IdleTimeout: func(string) { controller.OnIdleTimeout() },
		Disconnected: func(string) {
			if err := task.QueueFrames(context.Background(), frames.EndFrame{}); err != nil && !errors.Is(err, pipeline.ErrTaskEnded) {
				logger.Error("end injection on disconnect failed", "error", err)
			}
		},
	})
	defer unsubscribe()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go task.Run(runCtx)

	transportErrCh := make(chan error, 1)
	go func() {
		transportErrCh <- server.ListenAndServe(runCtx)
	}()

	logger.Info("session worker listening",
		"addr", cfg.Addr,
		"source_language", cfg.SourceLanguage,
		"target_language", cfg.TargetLanguage)

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case <-task.Done():
	case err := <-transportErrCh:
		if err != nil {
			return fmt.Errorf("transport: %w", err)
		}
		return nil
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
		if err := task.QueueFrames(context.Background(), frames.InterruptFrame{}, frames.EndFrame{}); err != nil && !errors.Is(err, pipeline.ErrTaskEnded) {
			logger.Error("end injection on shutdown failed", "error", err)
		}
		<-task.Done()
	case <-ctx.Done():
		return ctx.Err()
	}

	controller.ConfirmEnded()
	server.CloseSession()
	cancel()
	<-transportErrCh

	turns := len(agg.Messages())
	logger.Info("session worker stopped", "transcript_turns", turns)
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps sessionDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := dotenv.LoadFile(".env"); err != nil {
		fmt.Fprintf(stderr, "lingo-session: %v\n", err)
		return 1
	}

	if err := runSession(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "lingo-session: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultSessionDeps()))
}
