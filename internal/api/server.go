// Package api serves the document pipeline over HTTP.
//
// Routes:
//
//	POST /v1/migrate              upgrade a document to the current schema
//	POST /v1/validate             validate a behavior tree document
//	POST /v1/layout[?all=true]    lay out a behavior tree document
//	GET  /v1/documents            list stored documents
//	GET  /v1/documents/{name}     load (and migrate) a stored document
//	PUT  /v1/documents/{name}     save a document, ?force=true accepts warnings
//	GET  /healthz                 liveness and build info
//	GET  /metrics                 Prometheus metrics, when configured
//
// Every response carries an X-Request-Id header; the id is also attached to
// the request's log lines.
package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/btgraph/pkg/pipeline"
	"github.com/matzehuels/btgraph/pkg/storage"
)

// DefaultMaxBodyBytes limits request bodies when Options.MaxBodyBytes is 0.
const DefaultMaxBodyBytes = 4 << 20

// Options configures a Server.
type Options struct {
	// MaxBodyBytes limits request bodies.
	MaxBodyBytes int64

	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler

	// Timeouts for the underlying http.Server. Zero means no timeout,
	// except ShutdownTimeout which defaults to 10s.
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server is the HTTP API.
type Server struct {
	runner *pipeline.Runner
	store  storage.Store
	logger *log.Logger
	opts   Options
}

// New creates a server. The store may be nil, in which case the document
// routes answer 503.
func New(runner *pipeline.Runner, store storage.Store, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	return &Server{runner: runner, store: store, logger: logger, opts: opts}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestID)
	r.Use(s.observe)
	r.Use(s.recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.limitBody)
		r.Post("/migrate", s.handleMigrate)
		r.Post("/validate", s.handleValidate)
		r.Post("/layout", s.handleLayout)

		r.Route("/documents", func(r chi.Router) {
			r.Use(s.requireStore)
			r.Get("/", s.handleList)
			r.Get("/*", s.handleLoad)
			r.Put("/*", s.handleSave)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.opts.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
