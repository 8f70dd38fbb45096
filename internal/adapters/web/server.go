// Package web exposes the handshake table projector over HTTP and
// WebSocket, backed directly by the in-memory HandshakeStore and the
// SQLite export history.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rook-sec/fourway22000/internal/adapters/storage"
	websocketadapter "github.com/rook-sec/fourway22000/internal/adapters/web/websocket"
	"github.com/rook-sec/fourway22000/internal/core/domain"
	"github.com/rook-sec/fourway22000/internal/core/export"
	"github.com/rook-sec/fourway22000/internal/core/table"
)

// Server serves the table projector's JSON/WebSocket/export surface.
type Server struct {
	Addr      string
	Store     *domain.HandshakeStore
	Lines     *storage.SQLiteStore
	WSManager *websocketadapter.WSManager
	Log       *slog.Logger

	srv *http.Server
}

// NewServer wires a Server over store and lines, logging with log.
func NewServer(addr string, store *domain.HandshakeStore, lines *storage.SQLiteStore, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		Addr:      addr,
		Store:     store,
		Lines:     lines,
		WSManager: websocketadapter.NewWSManager(store, log),
		Log:       log,
	}
}

// Run starts the HTTP server and the WebSocket broadcast loop, serving
// until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.WSManager.Start(ctx)

	instrumentedHandler := otelhttp.NewHandler(SetupRoutes(s), "fourway22000-server")

	s.srv = &http.Server{
		Addr:    s.Addr,
		Handler: instrumentedHandler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.Log.Error("web server shutdown", "error", err.Error())
		}
	}()

	s.Log.Info("web server listening", "addr", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// handleTable returns the current table projection as JSON.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	selected := -1
	if q := r.URL.Query().Get("selected"); q != "" {
		fmt.Sscanf(q, "%d", &selected)
	}

	headers, rows := table.Project(s.Store, selected, table.SortByTimestamp, true)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"headers": headers,
		"rows":    rows,
	})
}

// handleExportAll renders every eligible record currently in the store
// as hashcat 22000 text, without touching the SQLite history.
func (s *Server) handleExportAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, rec := range s.Store.Records() {
		if line, ok := export.Export22000(rec); ok {
			fmt.Fprintln(w, line)
		}
	}
}

// handleExportRun renders the lines persisted for one capture run.
func (s *Server) handleExportRun(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["runID"]
	runID, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "invalid run id", http.StatusBadRequest)
		return
	}

	rows, err := s.Lines.ListRun(r.Context(), runID)
	if err != nil {
		http.Error(w, "failed to list run", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, row := range rows {
		fmt.Fprintln(w, row.Line)
	}
}

// handleHealth is a trivial liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

var metricsHandler = promhttp.Handler()
