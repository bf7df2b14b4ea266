// Package diagapi exposes a minimal HTTP surface for operational visibility:
// a liveness probe and a snapshot of uptime and cache sizes. It does not
// replicate the teacher's flow/conversation/sankey endpoints — those read
// from an aggregate flow store this collector does not build; see the
// project's design notes.
package diagapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"netflow-collector/internal/decode"
)

// Server is the diagnostics HTTP server.
type Server struct {
	httpServer *http.Server
	templates  *decode.TemplateCache
	options    *decode.OptionsCache
	started    time.Time
}

// New builds a diagnostics server bound to addr, reporting on the given
// caches.
func New(addr string, templates *decode.TemplateCache, options *decode.OptionsCache) *Server {
	s := &Server{
		templates: templates,
		options:   options,
		started:   time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", cors(s.handleHealthz))
	mux.HandleFunc("/api/v1/stats", cors(s.handleStats))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start runs the server in a background goroutine.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("diagapi: server error: %v\n", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type statsResponse struct {
	UptimeSeconds        float64 `json:"uptime_seconds"`
	TemplatesCached      int     `json:"templates_cached"`
	ExportersWithOptions int     `json:"exporters_with_options"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	resp := statsResponse{
		UptimeSeconds:        time.Since(s.started).Seconds(),
		TemplatesCached:      s.templates.Len(),
		ExportersWithOptions: s.options.Len(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}
