// Package api exposes a read-only HTTP surface over the run store:
// health, run listing and run detail. Processing itself stays in the
// CLI; the server only serves what previous runs recorded.
package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/ditchline/internal/ditchdb"
	"github.com/banshee-data/ditchline/internal/httputil"
	"github.com/banshee-data/ditchline/internal/monitoring"
	"github.com/banshee-data/ditchline/internal/version"
)

// ANSI escape codes for request log coloring.
const (
	colorCyan      = "\033[36m"
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Server serves the runs API.
type Server struct {
	store *ditchdb.RunStore
}

// NewServer creates a Server over the given run store.
func NewServer(store *ditchdb.RunStore) *Server {
	return &Server{store: store}
}

// ServeMux returns the route table.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/runs", s.handleListRuns)
	mux.HandleFunc("/api/runs/", s.handleGetRun)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.BadRequest(w, "invalid 'limit' parameter")
			return
		}
		limit = parsed
	}

	runs, err := s.store.ListRuns(limit)
	if err != nil {
		httputil.InternalServerError(w, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*ditchdb.Run{}
	}
	httputil.WriteJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	runID := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if runID == "" || strings.Contains(runID, "/") {
		httputil.BadRequest(w, "invalid run id")
		return
	}

	run, err := s.store.GetRun(runID)
	if err != nil {
		httputil.NotFound(w, "run not found: "+runID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, run)
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	code := strconv.Itoa(statusCode)
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + code + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + code + colorReset
	default:
		return colorBoldRed + code + colorReset
	}
}

// LoggingMiddleware logs method, path, status and duration for every
// request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf("[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}
