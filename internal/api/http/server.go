package http

import (
	"context"
	"errors"
	"net"
	"net/http"

	"swapstats/internal/config"

	"gitlab.com/nevasik7/alerting/logger"
)

type Server struct {
	log logger.Logger
	cfg *config.HTTPConfig
	srv *http.Server
}

func NewServer(log logger.Logger, cfg *config.HTTPConfig, h http.Handler) *Server {
	if cfg == nil {
		panic("http config cannot be nil")
	}

	return &Server{
		log: log,
		cfg: cfg,
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           h,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
	}
}

// Start blocks until the server stops; http.ErrServerClosed after Shutdown
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.log.Infof("HTTP server listening on %s", ln.Addr().String())

	return s.srv.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.log.Info("HTTP server stopped")
	return nil
}
