// Package server exposes a running solve over a read-only HTTP status API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/me/makespan/internal/config"
	"github.com/me/makespan/internal/problem"
	"github.com/me/makespan/internal/solution"
	"github.com/me/makespan/internal/store"
)

// Bounds is the view of the global bounds the server reads.
type Bounds interface {
	Get() (upper, lower uint32)
	KnownOptimum() uint32
}

// Solutions is the view of the solution repository the server reads.
type Solutions interface {
	Best() *solution.Solution
	BestN(n int) []*solution.Solution
	Count() int
	Capacity() int
}

// Server is the status API of one run.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	input     *problem.SortedInput
	bounds    Bounds
	solutions Solutions
	gatherer  prometheus.Gatherer
	store     store.Store // optional; enables /runs
	runID     string
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithStore exposes the persisted runs of st; runID names the current run.
func WithStore(st store.Store, runID string) Option {
	return func(s *Server) {
		s.store = st
		s.runID = runID
	}
}

// WithGatherer serves g on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// New creates a new Server with all routes registered. b and sols may be
// nil to serve only persisted runs.
func New(cfg config.ServerConfig, in *problem.SortedInput, b Bounds, sols Solutions, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		input:     in,
		bounds:    b,
		solutions: sols,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on the configured address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", "addr", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// live reports whether a run is being served.
func (s *Server) live() bool {
	return s.bounds != nil && s.solutions != nil
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(s.logRequests)

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)

		if s.live() {
			r.Get("/bounds", s.handleBounds)
			r.Route("/solutions", func(r chi.Router) {
				r.Get("/", s.handleListSolutions)
				r.Get("/best", s.handleBestSolution)
			})
		}

		if s.store != nil {
			r.Route("/runs", func(r chi.Router) {
				r.Get("/", s.handleListRuns)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetRun)
					r.Get("/solutions", s.handleListRunSolutions)
				})
			})
		}
	})
}
