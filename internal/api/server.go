package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/trajectory/internal/db"
	"github.com/banshee-data/trajectory/internal/httputil"
	"github.com/banshee-data/trajectory/internal/pipeline"
	"github.com/banshee-data/trajectory/internal/units"
	"github.com/banshee-data/trajectory/internal/version"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

// maxBodyBytes bounds request documents.
const maxBodyBytes = 32 << 20

type Server struct {
	db    *db.DB
	units string
	opts  pipeline.Options
}

// NewServer returns a server that runs pipelines with opts, stores runs in
// store and reports speeds in units.
func NewServer(store *db.DB, units string, opts pipeline.Options) *Server {
	return &Server{
		db:    store,
		units: units,
		opts:  opts,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.health)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/plan", s.plan)
	mux.HandleFunc("/api/snap", s.snap)
	mux.HandleFunc("/api/runs", s.listRuns)
	mux.HandleFunc("/api/runs/fuse", s.createRun(pipeline.Fuse))
	mux.HandleFunc("/api/runs/simulate", s.createRun(pipeline.Simulate))
	mux.HandleFunc("/api/runs/", s.handleRunByID)
	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.String(),
	})
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	config := map[string]interface{}{
		"units":         s.units,
		"vehicle":       s.opts.Params,
		"simulation_dt": s.opts.SimulationDt,
		"speed_limit":   units.ConvertSpeed(units.KmhToMps(s.opts.DefaultSpeedLimitKmh), s.units),
	}
	httputil.WriteJSON(w, http.StatusOK, config)
}
