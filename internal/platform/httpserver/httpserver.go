package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 120 * time.Second
	shutdownGrace     = 10 * time.Second
)

type Server struct {
	http *http.Server
	log  *zap.Logger
}

type Options struct {
	Addr        string
	ServiceName string
	Logger      *zap.Logger
	Router      chi.Router
}

func New(opts Options) *Server {
	if opts.Router == nil {
		opts.Router = chi.NewRouter()
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Server{
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           opts.Router,
			ReadHeaderTimeout: readHeaderTimeout,
			// Long-lived WebSocket connections hang off this server, so no
			// write timeout; idle keep-alives still get bounded.
			IdleTimeout: idleTimeout,
		},
		log: log.Named(opts.ServiceName),
	}
}

// Start serves until the listener fails or Shutdown is called. A clean
// shutdown reports nil.
func (s *Server) Start() error {
	s.log.Info("http server starting", zap.String("addr", s.http.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests, waiting at most shutdownGrace.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()
	return s.http.Shutdown(ctx)
}
