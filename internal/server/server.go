// Package server provides the HTTP server for the hand exercise coach.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/ayusman/handcoach/internal/detector"
	"github.com/ayusman/handcoach/internal/exercise"
	"github.com/ayusman/handcoach/internal/hook"
	"github.com/ayusman/handcoach/internal/server/api"
	"github.com/ayusman/handcoach/internal/session"
)

// DefaultMaxFrameBytes bounds a frame request body when Config leaves it
// unset.
const DefaultMaxFrameBytes = 4 << 20

// Config holds the server configuration.
type Config struct {
	Registry *session.Registry
	Catalog  *exercise.Catalog
	// Detector runs on base64 image frames. Without one, only keypoint
	// frames are accepted.
	Detector      detector.Detector
	Hooks         *hook.Manager
	MaxFrameBytes int64
}

// Server represents the HTTP server.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.MaxFrameBytes <= 0 {
		config.MaxFrameBytes = DefaultMaxFrameBytes
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Catalog != nil {
		exercises := api.NewExerciseHandler(s.config.Catalog)
		s.mux.Handle("/api/exercises", exercises)
		s.mux.Handle("/api/exercises/", exercises)
	}

	if s.config.Registry != nil {
		decoder := api.NewFrameDecoder(s.config.Detector)
		sessions := api.NewSessionHandler(s.config.Registry, decoder, s.config.MaxFrameBytes)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Registry, decoder, s.config.MaxFrameBytes))
	}

	if s.config.Hooks != nil {
		s.mux.HandleFunc("/api/hooks", s.handleHooks)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status":   "ok",
		"uptime":   time.Since(s.start).String(),
		"detector": s.config.Detector != nil,
	}
	if s.config.Registry != nil {
		response["sessions"] = s.config.Registry.Len()
	}
	if s.config.Catalog != nil {
		response["exercises"] = len(s.config.Catalog.Entries())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

type hookResponse struct {
	Name        string           `json:"name"`
	Version     string           `json:"version,omitempty"`
	Description string           `json:"description,omitempty"`
	Events      []exercise.Event `json:"events"`
}

// handleHooks lists the discovered hooks.
func (s *Server) handleHooks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	hooks := s.config.Hooks.List()
	resp := make([]hookResponse, 0, len(hooks))
	for _, h := range hooks {
		resp = append(resp, hookResponse{
			Name:        h.Manifest.Name,
			Version:     h.Manifest.Version,
			Description: h.Manifest.Description,
			Events:      h.Manifest.Events,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"hooks": resp}); err != nil {
		log.Printf("hooks: encode response: %v", err)
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
