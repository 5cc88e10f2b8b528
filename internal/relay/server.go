package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"
)

// DefaultAddr is the relay's listen address.
const DefaultAddr = "0.0.0.0:8667"

// Server serves the relay over HTTP/1.1 (gin) and gRPC on one listener.
type Server struct {
	Store *Store
	token string
	reg   *prometheus.Registry
}

// NewServer returns a Server with a fresh Store whose metrics go to reg.
func NewServer(token string, reg *prometheus.Registry) *Server {
	var r prometheus.Registerer
	if reg != nil {
		r = reg
	}
	return &Server{Store: NewStore(r), token: token, reg: reg}
}

// Serve multiplexes ln between the gRPC service and the HTTP routes and
// blocks until ctx is cancelled or a listener fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	m := cmux.New(ln)
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := m.Match(cmux.Any())

	gs := grpc.NewServer()
	NewService(s.Store, s.token).Register(gs)

	hs := &http.Server{
		Handler:           NewRouter(s.Store, s.token, s.reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 3)
	go func() { errc <- gs.Serve(grpcL) }()
	go func() { errc <- hs.Serve(httpL) }()
	go func() { errc <- m.Serve() }()

	slog.Info("relay listening", "addr", ln.Addr(), "auth", s.token != "")

	var err error
	select {
	case <-ctx.Done():
	case err = <-errc:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = hs.Shutdown(shutdownCtx)
	gs.Stop()
	m.Close()

	if err != nil && !isClosed(err) {
		return fmt.Errorf("relay serve: %w", err)
	}
	return nil
}

func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, http.ErrServerClosed) ||
		errors.Is(err, grpc.ErrServerStopped) ||
		errors.Is(err, cmux.ErrListenerClosed) ||
		errors.Is(err, cmux.ErrServerClosed)
}
