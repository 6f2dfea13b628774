// Command lingo-control supervises the translation session worker. It
// exposes the start/stop/logs control surface over HTTP, serves the browser
// client, and tears down any tracked worker on shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lingostream/lingostream/internal/dotenv"
	"github.com/lingostream/lingostream/pkg/control/config"
	controlserver "github.com/lingostream/lingostream/pkg/control/server"
	"github.com/lingostream/lingostream/pkg/control/supervisor"
)

type controlDeps struct {
	loadConfig   func() (config.Config, error)
	newServer    func(config.Config, *supervisor.Supervisor, *slog.Logger) *controlserver.Server
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultControlDeps() controlDeps {
	return controlDeps{
		loadConfig: config.LoadFromEnv,
		newServer:  controlserver.New,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func runControl(ctx context.Context, logger *slog.Logger, deps controlDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.newServer == nil {
		return errors.New("missing newServer dependency")
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

	sup := supervisor.New(cfg, logger)
	defer sup.Shutdown()

	srv := deps.newServer(cfg, sup, logger)
	httpSrv := buildHTTPServer(cfg, srv.Handler())

	logger.Info("starting supervisor", "addr", cfg.Addr, "session_port", cfg.SessionPort)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	// Tracked workers first: a half-dead worker holding the session port is
	// worse than a dropped in-flight control request.
	sup.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("supervisor stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps controlDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := dotenv.LoadFile(".env"); err != nil {
		fmt.Fprintf(stderr, "lingo-control: %v\n", err)
		return 1
	}

	if err := runControl(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "lingo-control: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultControlDeps()))
}
