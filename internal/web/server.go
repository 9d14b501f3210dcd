package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/mkraev/freedom-calculator/internal/config"
	"github.com/mkraev/freedom-calculator/internal/model"
)

// Retain this many finished runs in memory.
const maxStoredRuns = 50

// Uploads are heavy (xlsx parsing, PDF text extraction), keep them to
// one per second with a small burst.
const uploadBurst = 3

// Server is the embedded web UI.
type Server struct {
	cfg       *config.Config
	store     *Store
	metrics   *metrics
	templates *template.Template
	router    *mux.Router
	uploads   *rate.Limiter
}

// NewServer builds the server with its routes registered.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg:       cfg,
		store:     NewStore(maxStoredRuns),
		metrics:   newMetrics(),
		templates: parseTemplates(),
		uploads:   rate.NewLimiter(rate.Every(time.Second), uploadBurst),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logging)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/reports", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/reports/{id}", s.handleRun).Methods(http.MethodGet)
	r.HandleFunc("/reports/{id}/details.csv", s.handleDetailsCSV).Methods(http.MethodGet)
	r.HandleFunc("/reports/{id}/summary.csv", s.handleSummaryCSV).Methods(http.MethodGet)
	r.HandleFunc("/reports/{id}/closed_summary.csv", s.handleClosedCSV).Methods(http.MethodGet)
	r.HandleFunc("/reports/{id}/closed.pdf", s.handleClosedPDF).Methods(http.MethodGet)

	r.HandleFunc("/api/reports", s.handleAPIList).Methods(http.MethodGet)
	r.HandleFunc("/api/reports/{id}", s.handleAPIRun).Methods(http.MethodGet)

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve blocks until the context is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("web server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return model.WrapCLIError(model.ExitServerError, "shutdown failed", err)
		}
		log.Info().Msg("web server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return model.WrapCLIError(model.ExitServerError, "web server failed", err)
	}
}

// statusRecorder captures the response code for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		s.metrics.requests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
