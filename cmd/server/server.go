package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sourcegraph/conc"
)

// adminReadHeaderTimeout bounds slow clients of the admin server.
const adminReadHeaderTimeout = 5 * time.Second

// Run starts the workers and the admin server and blocks until ctx is
// cancelled. Workers stop taking new jobs at once; jobs already running get
// up to the configured shutdown timeout to finish.
func (app *application) Run(ctx context.Context) error {
	app.probeCache(ctx)

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		app.cleanup()
		return fmt.Errorf("failed to listen on port %d: %w", app.config.Server.Port, err)
	}
	return app.serve(ctx, ln)
}

// serve runs everything against an already bound listener.
func (app *application) serve(ctx context.Context, ln net.Listener) error {
	defer app.cleanup()

	server := &http.Server{
		Handler:           app.admin,
		ReadHeaderTimeout: adminReadHeaderTimeout,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var workers conc.WaitGroup
	for _, w := range app.workers {
		w := w
		workers.Go(func() {
			app.logger.Info("worker started", "queue", w.Queue())
			if err := w.Run(ctx); err != nil {
				app.logger.Error("worker stopped", "queue", w.Queue(), "error", err)
				return
			}
			app.logger.Info("worker stopped", "queue", w.Queue())
		})
	}

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting admin server", "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("shutting down")
	case err, ok := <-serverErr:
		if ok {
			app.logger.Error("admin server failed", "error", err)
			runErr = fmt.Errorf("admin server failed: %w", err)
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), app.config.Worker.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("admin server shutdown failed", "error", err)
	}

	drained := make(chan struct{})
	go func() {
		workers.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		app.logger.Info("workers drained")
	case <-shutdownCtx.Done():
		app.logger.Warn("shutdown timeout reached with jobs still running; unsettled jobs will be redelivered")
	}

	return runErr
}
