package web

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes wires every endpoint the table projector surface exposes.
func SetupRoutes(s *Server) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/table", s.handleTable).Methods(http.MethodGet)
	r.HandleFunc("/api/export", s.handleExportAll).Methods(http.MethodGet)
	r.HandleFunc("/api/export/{runID}", s.handleExportRun).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.WSManager.HandleWebSocket)
	r.Handle("/metrics", metricsHandler)

	return r
}
