package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/kitchen/pkg/dashboard"
)

// DefaultRequestTimeout bounds a request when Options.RequestTimeout is unset.
const DefaultRequestTimeout = 30 * time.Second

// Options configures a Server.
type Options struct {
	Addr           string
	RequestTimeout time.Duration
	Metrics        http.Handler // served at /metrics when set
	SyncdateFile   string       // reported by /healthz when set
}

// Server serves a Dashboard over HTTP.
type Server struct {
	dash   *dashboard.Dashboard
	opts   Options
	logger *log.Logger
	router chi.Router
}

// New builds the router for d. A nil logger uses log.Default().
func New(d *dashboard.Dashboard, opts Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	s := &Server{dash: d, opts: opts, logger: logger}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(s.recoverer)
	r.Use(chimw.Timeout(s.opts.RequestTimeout))

	r.Get("/", s.handleList)
	getSlash(r, "/virt", s.handleVirt)
	getSlash(r, "/graph", s.handleGraph)
	r.Get("/graph/node_map.{format}", s.handleGraphImage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/nodes", s.handleNodes)
		r.Get("/nodes/{name}", s.handleNode)
		r.Get("/roles", s.handleRoles)
	})
	r.Get("/plugins/{name}", s.handlePlugin)

	static := http.StripPrefix("/static/", http.FileServer(http.Dir(s.dash.Config.Dashboard.StaticDir)))
	r.Handle("/static/*", static)

	if s.opts.Metrics != nil {
		r.Handle("/metrics", s.opts.Metrics)
	}
	r.Get("/healthz", s.handleHealth)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondStatus(w, r, http.StatusNotFound, "NOT_FOUND", "Page not found")
	})
	return r
}

// getSlash registers h for pattern with and without a trailing slash.
func getSlash(r chi.Router, pattern string, h http.HandlerFunc) {
	r.Get(pattern, h)
	r.Get(pattern+"/", h)
}

// ListenAndServe serves on opts.Addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.opts.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
