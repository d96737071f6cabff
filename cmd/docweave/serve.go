package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/docweave/internal/api"
	"github.com/dgallion1/docweave/internal/app"
)

func runServe(ctx context.Context, a *app.App, log *slog.Logger) error {
	httpServer := &http.Server{
		Addr:         ":" + a.Config.Port,
		Handler:      api.NewServer(a.Orchestrator, a.Stats, a.Registry, log, a.Config),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: a.Config.RenderTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting docweave", "port", a.Config.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func runCacheStats(ctx context.Context, a *app.App, w io.Writer) error {
	location := a.Config.CachePath
	if a.Config.CacheBackend == "memory" {
		location = "-"
	}
	_, err := fmt.Fprintf(w, "backend: %s\nlocation: %s\nentries: %d\n",
		a.Config.CacheBackend, location, a.Cache.Len(ctx))
	return err
}
