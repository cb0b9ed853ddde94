// Package dashboard exposes the analysis engine over a small HTTP JSON API:
// run an analysis, read the latest report, and check engine health.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/wheelhouse/internal/analyzer"
)

// maxRequestBody caps inbound analyze payloads.
const maxRequestBody = 4 << 20

// Server serves the analysis API.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	analyzer  *analyzer.Analyzer
	logger    *logrus.Logger
	port      int
	authToken string

	mu         sync.RWMutex
	lastReport *analyzer.Report
}

// Config configures the server.
type Config struct {
	Port      int
	AuthToken string
}

// NewServer creates the API server.
func NewServer(cfg Config, a *analyzer.Analyzer, logger *logrus.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		analyzer:  a,
		logger:    logger,
		port:      cfg.Port,
		authToken: cfg.AuthToken,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(120 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/report", s.handleGetReport)
	s.router.Post("/api/analyze", s.handleAnalyze)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.authToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("Starting dashboard server on port %d", s.port)
	return s.server.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// SetReport stores the report served by /api/report.
func (s *Server) SetReport(report *analyzer.Report) {
	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	report := s.lastReport
	s.mu.RUnlock()

	if report == nil {
		http.Error(w, "no report yet", http.StatusNotFound)
		return
	}
	s.writeJSON(w, report)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var input analyzer.Input
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&input); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	report, err := s.analyzer.Run(r.Context(), input)
	if err != nil {
		s.logger.WithError(err).Error("analysis run failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.SetReport(report)
	s.writeJSON(w, report)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}
