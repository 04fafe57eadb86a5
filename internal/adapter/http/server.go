// Package http exposes the relay's REST surface: health, readiness, metrics,
// and read-only alert endpoints.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/nws-alert-relay/internal/domain"
	"github.com/couchcryptid/nws-alert-relay/internal/manager"
)

// AlertStore is the read side of the alert manager.
type AlertStore interface {
	Active() []*domain.Alert
	ByState(state string) []*domain.Alert
	Get(productID string) (*domain.Alert, bool)
	Statistics() manager.Statistics
	RecentProducts(limit int) []manager.RecentProduct
}

// ClientCounter reports how many WebSocket subscribers are connected.
type ClientCounter interface {
	ClientCount() int
}

// Server exposes the relay's HTTP endpoints.
type Server struct {
	httpServer *http.Server
	store      AlertStore
	clients    ClientCounter
	logger     *slog.Logger
}

// NewServer creates the HTTP server. clients may be nil when the WebSocket
// listener is disabled.
func NewServer(addr string, store AlertStore, clients ClientCounter, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:   store,
		clients: clients,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /alerts", s.handleAlerts)
	mux.HandleFunc("GET /alerts/{id}", s.handleAlert)
	mux.HandleFunc("GET /products/recent", s.handleRecentProducts)
	mux.HandleFunc("GET /status", s.handleStatus)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	var alerts []*domain.Alert
	if state := r.URL.Query().Get("state"); state != "" {
		alerts = s.store.ByState(state)
	} else {
		alerts = s.store.Active()
	}
	if alerts == nil {
		alerts = []*domain.Alert{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func (s *Server) handleAlert(w http.ResponseWriter, r *http.Request) {
	alert, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "alert not found"})
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (s *Server) handleRecentProducts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	products := s.store.RecentProducts(limit)
	if products == nil {
		products = []manager.RecentProduct{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products": products,
		"count":    len(products),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"statistics": s.store.Statistics(),
	}
	if s.clients != nil {
		status["connected_clients"] = s.clients.ClientCount()
	}
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
