// Package service wires the journal, the backend client and the HTTP API
// into one process and owns their lifecycle.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/MJE43/stake-dice-config/internal/api"
	"github.com/MJE43/stake-dice-config/internal/config"
	"github.com/MJE43/stake-dice-config/internal/journal"
	"github.com/MJE43/stake-dice-config/internal/logger"
	"github.com/MJE43/stake-dice-config/internal/settle"
)

// Service owns the journal and the HTTP server.
type Service struct {
	cfg     config.Config
	log     *slog.Logger
	journal *journal.Store
	backend *settle.Client
	api     *api.Server

	httpServer *http.Server
	listener   net.Listener
	serveErr   chan error
}

// New opens the journal and builds the handlers. It does not listen; call
// Start.
func New(cfg config.Config, log *slog.Logger) (*Service, error) {
	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return nil, err
	}
	backend := settle.NewClient(settle.Config{
		URL:            cfg.Backend.URL,
		ConnectTimeout: cfg.Backend.ConnectTimeout,
		Timeout:        cfg.Backend.Timeout,
		MaxRetries:     cfg.Backend.MaxRetries,
		BaseRetryDelay: cfg.Backend.BaseRetryDelay,
		MaxRetryDelay:  cfg.Backend.MaxRetryDelay,
		MaxBetCents:    cfg.Backend.MaxBetCents,
		UserAgent:      "stake-dice-config/" + api.EngineVersion,
	})
	server := api.NewServer(backend, store, api.Options{
		Logger:          log,
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
		RequestTimeout:  cfg.HTTP.RequestTimeout,
		WidgetTTL:       cfg.Widgets.TTL,
		CleanupInterval: cfg.Widgets.CleanupInterval,
	})
	return &Service{
		cfg:     cfg,
		log:     log,
		journal: store,
		backend: backend,
		api:     server,
	}, nil
}

// Start begins listening in a goroutine. It returns when the socket is bound.
func (s *Service) Start() error {
	ln, err := net.Listen("tcp", s.cfg.HTTP.Address)
	if err != nil {
		return fmt.Errorf("service: listen %s: %w", s.cfg.HTTP.Address, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.api.Routes(),
		ReadTimeout:  s.cfg.HTTP.ReadTimeout,
		WriteTimeout: s.cfg.HTTP.WriteTimeout,
		IdleTimeout:  s.cfg.HTTP.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(s.log.Handler(), slog.LevelWarn),
	}
	s.serveErr = make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", logger.Err(err))
			s.serveErr <- err
		}
		close(s.serveErr)
	}()

	s.log.Info("listening",
		slog.String("address", ln.Addr().String()),
		slog.String("backend", s.backend.URL()),
		slog.String("journal", s.cfg.Journal.Path),
		slog.String("version", api.EngineVersion))

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Backend.ConnectTimeout)
	defer cancel()
	if err := s.backend.Ping(ctx); err != nil {
		s.log.Warn("backend not reachable yet", logger.Err(err))
	}
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Service) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Done is closed when the server stops serving. It carries the error if it
// stopped on its own.
func (s *Service) Done() <-chan error {
	return s.serveErr
}

// Shutdown stops the HTTP server and closes the journal.
func (s *Service) Shutdown(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("service: http shutdown: %w", err))
		}
	}
	if err := s.journal.Close(); err != nil {
		errs = append(errs, fmt.Errorf("service: close journal: %w", err))
	}
	return errors.Join(errs...)
}
