// Package httpx provides the HTTP server wrapper, JSON helpers and middleware
// shared by the analyst service.
package httpx

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// DefaultShutdownTimeout bounds how long Run waits for in-flight requests.
const DefaultShutdownTimeout = 10 * time.Second

// Server runs an http.Server for the lifetime of a context.
type Server struct {
	srv    *http.Server
	logger *slog.Logger

	certFile string
	keyFile  string

	ShutdownTimeout time.Duration
}

// NewServer creates a server for addr. A nil logger uses slog.Default.
func NewServer(addr string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger:          logger,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// EnableTLS switches the server to HTTPS. cfg may require client
// certificates; certFile and keyFile hold the server's own pair.
func (s *Server) EnableTLS(cfg *tls.Config, certFile, keyFile string) {
	s.srv.TLSConfig = cfg
	s.certFile = certFile
	s.keyFile = keyFile
}

// Run listens on the configured address and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}
	return s.RunListener(ctx, ln)
}

// RunListener serves on ln until ctx is canceled, then drains in-flight
// requests for at most ShutdownTimeout. It returns nil after a clean drain.
func (s *Server) RunListener(ctx context.Context, ln net.Listener) error {
	tlsOn := s.certFile != ""
	s.logger.Info("http server listening", "addr", ln.Addr().String(), "tls", tlsOn)

	served := make(chan error, 1)
	go func() {
		var err error
		if tlsOn {
			err = s.srv.ServeTLS(ln, s.certFile, s.keyFile)
		} else {
			err = s.srv.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		served <- err
	}()

	select {
	case err := <-served:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	s.logger.Info("draining http server", "timeout", timeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-served
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteJSON encodes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		return fmt.Errorf("encode response: %w", err)
	}
	return nil
}

// WriteError replies with err's message.
func WriteError(w http.ResponseWriter, r *http.Request, status int, err error) {
	WriteErrorMessage(w, r, status, err.Error())
}

// WriteErrorMessage replies with message and the request's id, if any.
func WriteErrorMessage(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := ErrorResponse{Error: message, RequestID: RequestID(r.Context())}
	if err := WriteJSON(w, status, resp); err != nil {
		slog.Error("failed to write error response", "error", err, "message", message)
	}
}

// HealthHandlerWithCheck responds 200 {"status":"ok"} when check passes and
// 503 with the failure otherwise. check gets at most two seconds.
func HealthHandlerWithCheck(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := check(ctx); err != nil {
			WriteError(w, r, http.StatusServiceUnavailable, err)
			return
		}
		_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
