// Package server exposes the processing engine over HTTP: upload a
// workbook, preview it, turn a request into a plan, run the plan and
// download the result.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/javajack/xlaction"
	"github.com/javajack/xlaction/jobstore"
)

// Server routes API requests to the store and the processing engine.
type Server struct {
	router *chi.Mux
	store  jobstore.Store
	opts   *options
}

type options struct {
	logger         *zap.Logger
	interpreter    xlaction.Interpreter
	maxUpload      int64
	allowedOrigins []string
	now            func() time.Time
}

// Option configures a Server.
type Option func(*options)

// WithLogger sets the request and processing logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithInterpreter replaces xlaction.DefaultInterpreter.
func WithInterpreter(in xlaction.Interpreter) Option {
	return func(o *options) { o.interpreter = in }
}

// WithMaxUploadBytes sets the upload size limit (default 100MB).
func WithMaxUploadBytes(n int64) Option {
	return func(o *options) { o.maxUpload = n }
}

// WithAllowedOrigins sets the origins allowed by CORS.
func WithAllowedOrigins(origins ...string) Option {
	return func(o *options) { o.allowedOrigins = origins }
}

// WithClock sets the time source used for sweeps and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a Server backed by store.
func New(store jobstore.Store, opts ...Option) *Server {
	o := &options{
		logger:         zap.NewNop(),
		maxUpload:      100 << 20,
		allowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.interpreter == nil {
		o.interpreter = xlaction.DefaultInterpreter()
	}

	s := &Server{router: chi.NewRouter(), store: store, opts: o}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Sweep deletes expired uploads and outputs.
func (s *Server) Sweep(ctx context.Context) (int, error) {
	return s.store.Sweep(ctx, s.opts.now())
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(corsHandler(s.opts.allowedOrigins))
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleRoot)
	s.router.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Post("/preview", s.handlePreview)
		r.Post("/parse", s.handleParse)
		r.Post("/process", s.handleProcess)
		r.Get("/download/{jobID}", s.handleDownload)
		r.Delete("/cleanup", s.handleCleanup)
	})
}
