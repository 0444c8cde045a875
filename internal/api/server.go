// Package api serves predictions and index values over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/metaculusindex/internal/config"
	"github.com/lox/metaculusindex/internal/index"
	"github.com/lox/metaculusindex/internal/metrics"
)

// FetcherFor returns the question source for a Metaculus domain. An empty
// domain selects the server's default.
type FetcherFor func(domain string) index.Fetcher

type Server struct {
	fetchers FetcherFor
	indices  *config.File
	port     string
	logger   *slog.Logger
	now      func() time.Time
}

// NewServer creates a server. indices may be nil, in which case no index
// routes resolve.
func NewServer(fetchers FetcherFor, indices *config.File, port string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if indices == nil {
		indices = &config.File{}
	}
	return &Server{
		fetchers: fetchers,
		indices:  indices,
		port:     port,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.countRequests)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/questions/{id}", s.handleAPIQuestion).Methods(http.MethodGet)
	api.HandleFunc("/indices", s.handleAPIIndices).Methods(http.MethodGet)
	api.HandleFunc("/indices/{name}", s.handleAPIIndex).Methods(http.MethodGet)
	return r
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api listening", "port", s.port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"indices": len(s.indices.Indices),
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// countRequests labels requests by route template so question ids do not
// become label values.
func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	})
}
