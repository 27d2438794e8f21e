package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/flowmon-io/flowmon/internal/config"
)

// Server is the dashboard data API.
type Server struct {
	cfg     *config.Config
	service *Service
	logger  *slog.Logger
}

// NewServer creates the API server. If logger is nil, a discard logger is
// used.
func NewServer(cfg *config.Config, service *Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{cfg: cfg, service: service, logger: logger}
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/runs", s.handleRuns)
		r.Get("/summary", s.handleSummary)
		r.Get("/matrix", s.handleMatrix)
		r.Get("/source", s.handleSource)
	})
	return r
}

// Serve starts the HTTP listener and the auto-refresher, blocking until the
// context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.logger.Info("starting api server", "addr", fmt.Sprintf("http://localhost:%d", s.cfg.Server.Port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Routes(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	refresher := NewRefresher(s.cfg, s.service, s.logger)
	eg.Go(func() error {
		return refresher.Run(egctx)
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})

	return eg.Wait()
}
