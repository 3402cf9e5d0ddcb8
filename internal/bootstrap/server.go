package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go-attendance/internal/config"

	"go.uber.org/zap"
)

// RunHTTPServer listens on cfg.Port and serves handler until ctx is done.
func RunHTTPServer(ctx context.Context, handler http.Handler, cfg config.Config, audit AuditLogger) error {
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", cfg.Port, err)
	}
	return ServeListener(ctx, ln, handler, cfg.HTTP, audit)
}

// ServeListener serves on ln until ctx is done, then lets in-flight requests
// finish within cfg.ShutdownTimeout. Start and shutdown both go to the audit log.
func ServeListener(ctx context.Context, ln net.Listener, handler http.Handler, cfg config.HTTPConfig, audit AuditLogger) error {
	log := zap.L().Named("http.server")
	addr := ln.Addr().String()

	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(ln)
	}()

	log.Info("HTTP server running", zap.String("addr", addr))
	audit.Log(ctx, AuditLog{
		Action:  "SERVER_START",
		Message: "Attendance API accepting requests",
		Meta:    map[string]any{"addr": addr},
	})

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	audit.Log(context.Background(), AuditLog{
		Action:  "SERVER_SHUTDOWN",
		Message: "Attendance API is shutting down",
		Meta: map[string]any{
			"addr":             addr,
			"reason":           ctx.Err().Error(),
			"shutdown_timeout": cfg.ShutdownTimeout.String(),
		},
	})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server exited gracefully")
	return nil
}
