// ABOUTME: Main entry point for the frame extraction simulator
// ABOUTME: Loads config, runs every stream to EOF, serves optional status routes
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harper/frame-extractor/internal/application/config"
	"github.com/harper/frame-extractor/internal/application/logging"
	"github.com/harper/frame-extractor/internal/application/manager"
	"github.com/harper/frame-extractor/internal/infrastructure/http"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run() error {
	cfgPath := "config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Frames may go to stdout, so logs go to stderr
	logger, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		return err
	}

	mgr, err := manager.NewFromConfig(cfg, logger)
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start streams: %w", err)
	}

	var srv *nethttp.Server
	var serverErr <-chan error
	if cfg.Listen.Port > 0 {
		srv, serverErr = serveStatus(ctx, cfg.Listen, mgr, logger)
	}

	var shutdownErr error
	select {
	case <-mgr.Done():
		logger.Info("all sources exhausted")
	case <-ctx.Done():
		logger.Info("shutting down...")
	case err := <-serverErr:
		shutdownErr = fmt.Errorf("http server: %w", err)
	}

	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("http shutdown: %w", err))
		}
	}

	// A stream blocked on stdin cannot be interrupted; don't wait forever
	result := make(chan error, 1)
	go func() { result <- mgr.Shutdown() }()
	select {
	case err := <-result:
		if err != nil {
			shutdownErr = errors.Join(shutdownErr, fmt.Errorf("shutdown streams: %w", err))
		}
	case <-time.After(shutdownTimeout):
		shutdownErr = errors.Join(shutdownErr, errors.New("shutdown streams: timed out"))
	}

	if shutdownErr != nil {
		return shutdownErr
	}
	logger.Info("shutdown complete")
	return nil
}

// serveStatus starts the status server. The channel receives the error if
// the server stops for any reason other than Shutdown.
func serveStatus(ctx context.Context, listen config.ListenConfig, mgr *manager.Manager, logger logrus.FieldLogger) (*nethttp.Server, <-chan error) {
	addr := fmt.Sprintf("%s:%d", listen.Host, listen.Port)
	srv := &nethttp.Server{
		Addr:         addr,
		Handler:      http.NewRouter(mgr),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errc := make(chan error, 1)
	go func() {
		logger.WithField("addr", addr).Info("status server listening (try /streams)")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			logger.WithError(err).Error("status server failed")
			errc <- err
		}
	}()
	return srv, errc
}
