package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Sessions
	mux.HandleFunc("/api/sessions", s.handleSessionsRoute)               // GET (list), POST (create)
	mux.HandleFunc("/api/sessions/", s.app.SessionHandler.SessionRoutesHandler) // GET/DELETE /{id}, POST /{id}/validate

	// API routes - Properties
	mux.HandleFunc("/api/properties", s.app.PropertyHandler.PropertiesHandler)
	mux.HandleFunc("/api/properties/import", s.app.PropertyHandler.ImportPropertiesHandler)
	mux.HandleFunc("/api/properties/", s.app.PropertyHandler.PropertyRoutesHandler)

	// API routes - Runs
	mux.HandleFunc("/api/runs", s.handleRunsRoute)                    // GET (list), POST (create)
	mux.HandleFunc("/api/runs/", s.app.RunHandler.RunRoutesHandler)   // GET /{id}, POST /{id}/start

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleSessionsRoute dispatches the sessions collection route by method
func (s *Server) handleSessionsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.SessionHandler.ListSessionsHandler(w, r)
	case "POST":
		s.app.SessionHandler.CreateSessionHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleRunsRoute dispatches the runs collection route by method
func (s *Server) handleRunsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		s.app.RunHandler.ListRunsHandler(w, r)
	case "POST":
		s.app.RunHandler.CreateRunHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
