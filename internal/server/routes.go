package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Jobs (report job management)
	mux.HandleFunc("/api/jobs/all", s.app.JobHandler.SubmitAllHandler) // POST - submit every client
	mux.HandleFunc("/api/jobs", s.handleJobsRoute)                     // GET (list), POST (submit)
	mux.HandleFunc("/api/jobs/", s.app.JobHandler.GetJobHandler)       // GET /{client}/{month}

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	// Locally hosted reports (when the publish target is the local dir)
	if s.app.Config.Publish.Target == "local" {
		fs := http.FileServer(http.Dir(s.app.Config.Publish.Local.Dir))
		mux.Handle("/reports/", http.StripPrefix("/reports/", fs))
	}

	return mux
}

// handleJobsRoute routes /api/jobs by method
func (s *Server) handleJobsRoute(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSuffix(r.URL.Path, "/") != "/api/jobs" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.app.JobHandler.ListJobsHandler(w, r)
	case http.MethodPost:
		s.app.JobHandler.SubmitJobHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
