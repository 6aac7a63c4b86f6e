// Package server is the thin HTTP transport over internal/core: it only
// marshals/unmarshals the three /v1/* contract operations and maps core
// errors to status codes per spec.md §7. All business logic lives in
// internal/core; this package owns no session state.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanmeadows/lit-critic/internal/core"
)

// RunServer starts the HTTP server bound to addr and blocks until ctx is
// cancelled.
func RunServer(ctx context.Context, addr string, svc *core.Service) error {
	mux := http.NewServeMux()
	registerRoutes(mux, svc)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down core service HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("starting core service HTTP server", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func registerRoutes(mux *http.ServeMux, svc *core.Service) {
	mux.HandleFunc("POST /v1/analyze", handleAnalyze(svc))
	mux.HandleFunc("POST /v1/discuss", handleDiscuss(svc))
	mux.HandleFunc("POST /v1/re-evaluate-finding", handleReEvaluate(svc))
}
