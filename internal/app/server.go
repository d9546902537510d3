package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sha1n/mcp-vaultcloud-server/internal/auth"
	"github.com/sha1n/mcp-vaultcloud-server/internal/config"
)

const shutdownTimeout = 5 * time.Second

// StartSSEServer serves the runtime over SSE until ctx is cancelled.
func StartSSEServer(ctx context.Context, rt *Runtime, settings *config.Settings) error {
	var gatherer prometheus.Gatherer
	if rt.Registry != nil {
		gatherer = rt.Registry
	}
	srv, err := NewSSEServer(rt.Server, settings, gatherer)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down HTTP server", "error", err)
		}
	}()

	slog.Info("Server listening (HTTP)", "addr", srv.Addr, "auth_type", settings.Auth.Type)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// NewSSEServer creates a new SSE server with authentication middleware.
// When gatherer is non-nil and metrics are enabled, /metrics serves it.
func NewSSEServer(s *mcp.Server, settings *config.Settings, gatherer prometheus.Gatherer) (*http.Server, error) {
	// Factory function returns the server instance for each request
	sseHandler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
		return s
	}, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/sse", sseHandler)
	if gatherer != nil && settings.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	authMiddleware, err := auth.NewMiddleware(settings.Auth, "/health")
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}

	handler := authMiddleware(mux)
	addr := fmt.Sprintf("%s:%d", settings.Host, settings.Port)

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}
