// Package server exposes the HTTP and WebSocket surface: health, recent
// history queries, on-demand log simulation, and live anomaly streaming.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ashmont/kestrel/internal/model"
	"github.com/ashmont/kestrel/internal/simulator"
	"github.com/ashmont/kestrel/internal/storage"
	"github.com/ashmont/kestrel/internal/storage/elastic"
)

const (
	defaultRecentLogs      = 100
	defaultRecentAnomalies = 50
)

// Processor turns a raw log blob into anomaly records.
type Processor interface {
	Process(ctx context.Context, blob string) []model.AnomalyRecord
}

// Historian serves the anomaly history aggregation. Only the
// Elasticsearch store implements it.
type Historian interface {
	History(ctx context.Context, start, end, interval string) ([]elastic.HistoryPoint, error)
}

// Server routes API requests and manages WebSocket clients.
type Server struct {
	router    *mux.Router
	processor Processor
	store     storage.Store
	sim       *simulator.Simulator
	historian Historian
	hub       *Hub
	logger    *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHistorian enables the anomaly history endpoint.
func WithHistorian(h Historian) Option {
	return func(s *Server) { s.historian = h }
}

// WithLogger sets the server logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New assembles the route table.
func New(processor Processor, store storage.Store, sim *simulator.Simulator, opts ...Option) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		processor: processor,
		store:     store,
		sim:       sim,
		hub:       NewHub(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/simulate-logs", s.handleSimulateLogs).Methods(http.MethodPost)
	s.router.HandleFunc("/logs/recent", s.handleRecentLogs).Methods(http.MethodGet)
	s.router.HandleFunc("/anomalies/recent", s.handleRecentAnomalies).Methods(http.MethodGet)
	s.router.HandleFunc("/anomalies/history", s.handleHistory).Methods(http.MethodGet)
	s.router.HandleFunc("/ws", s.handleWS)
	return s
}

// Hub returns the broadcast hub so ingestion can push anomalies to
// connected clients.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe runs the HTTP server until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleSimulateLogs(w http.ResponseWriter, r *http.Request) {
	numLogs := queryInt(r, "num_logs", 10)
	includeAnomalies := true
	if v := r.URL.Query().Get("include_anomalies"); v != "" {
		includeAnomalies = v != "false"
	}

	logs := s.sim.Batch(numLogs, includeAnomalies)
	writeJSON(w, http.StatusOK, map[string][]string{"logs": logs})
}

func (s *Server) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.store.RecentLogs(r.Context(), queryInt(r, "limit", defaultRecentLogs))
	if err != nil {
		s.logger.Warn("recent logs query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch recent logs")
		return
	}
	if logs == nil {
		logs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"logs": logs})
}

func (s *Server) handleRecentAnomalies(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.RecentAnomalies(r.Context(), queryInt(r, "limit", defaultRecentAnomalies))
	if err != nil {
		s.logger.Warn("recent anomalies query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch recent anomalies")
		return
	}
	if records == nil {
		records = []model.AnomalyRecord{}
	}
	writeJSON(w, http.StatusOK, map[string][]model.AnomalyRecord{"anomalies": records})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.historian == nil {
		writeError(w, http.StatusNotImplemented, "history requires Elasticsearch storage")
		return
	}
	q := r.URL.Query()
	points, err := s.historian.History(r.Context(), q.Get("start"), q.Get("end"), q.Get("interval"))
	if err != nil {
		s.logger.Warn("anomaly history query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to fetch anomaly history")
		return
	}
	if points == nil {
		points = []elastic.HistoryPoint{}
	}
	writeJSON(w, http.StatusOK, map[string][]elastic.HistoryPoint{"history": points})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
