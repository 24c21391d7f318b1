// Package inbox receives messages posted by the dialog frame over HTTP and
// hands them to the event loop.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/jask/oslcbugs/internal/preview"
)

const (
	messagePath = "/message"
	maxBody     = 64 << 10
)

// Handler returns an http.Handler that forwards POST /message bodies,
// together with their Origin header, to deliver. It always answers 204 so a
// sender learns nothing about how its message was judged. Preflight requests
// are only answered for allowOrigin.
func Handler(allowOrigin string, deliver func(preview.FrameMessage)) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(messagePath, func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && origin == allowOrigin {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Vary", "Origin")
		}
		switch r.Method {
		case http.MethodOptions:
			if origin != allowOrigin {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Header().Set("Access-Control-Allow-Methods", "POST")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPost:
			data, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
			if err != nil || len(data) > maxBody {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			deliver(preview.FrameMessage{Origin: origin, Data: string(data)})
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Allow", "POST, OPTIONS")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	return mux
}

// Server listens for frame messages until its context ends.
type Server struct {
	addr    string
	handler http.Handler
	log     zerolog.Logger
}

// NewServer returns a server on addr.
func NewServer(addr, allowOrigin string, deliver func(preview.FrameMessage), log zerolog.Logger) *Server {
	return &Server{addr: addr, handler: Handler(allowOrigin, deliver), log: log}
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info().Str("addr", ln.Addr().String()).Msg("frame message listener started")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown listener: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}
