// Package manager owns the active alert set: merge and cancellation
// semantics, expiration sweeping, persistence across restarts, and the
// lifecycle event stream the fan-out layers consume.
package manager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/nws-alert-relay/internal/domain"
	"github.com/couchcryptid/nws-alert-relay/internal/observability"
)

// EventType classifies a lifecycle event.
type EventType string

const (
	EventAlertNew    EventType = "alert_new"
	EventAlertUpdate EventType = "alert_update"
	EventAlertRemove EventType = "alert_remove"
)

// Event is one alert lifecycle transition. Events for the same product id are
// emitted in the order the transitions happened.
type Event struct {
	Type   EventType     `json:"type"`
	Alert  *domain.Alert `json:"alert"`
	Reason string        `json:"reason,omitempty"` // removes: "cancelled" or "expired"
}

// RecentProduct is a lightweight record of a recently added alert.
type RecentProduct struct {
	ProductID  string     `json:"product_id"`
	EventName  string     `json:"event_name"`
	Headline   string     `json:"headline"`
	IssuedTime *time.Time `json:"issued_time"`
	Source     string     `json:"source"`
}

// Statistics summarizes the active set.
type Statistics struct {
	TotalAlerts  int            `json:"total_alerts"`
	Warnings     int            `json:"warnings"`
	Watches      int            `json:"watches"`
	HighPriority int            `json:"high_priority"`
	ByPhenomenon map[string]int `json:"by_phenomenon"`
	BySource     map[string]int `json:"by_source"`
	LastUpdated  *time.Time     `json:"last_updated"`
}

const (
	recentProductsCap = 50
	eventBuffer       = 256
)

// Manager is the authoritative store of active alerts.
type Manager struct {
	cleanupInterval time.Duration
	clock           clockwork.Clock
	logger          *slog.Logger
	metrics         *observability.Metrics

	mu     sync.Mutex
	alerts map[string]*domain.Alert
	recent []RecentProduct
	subs   []chan Event
}

// New creates a Manager. A nil clock uses the real one.
func New(cleanupInterval time.Duration, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Manager {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Manager{
		cleanupInterval: cleanupInterval,
		clock:           clk,
		logger:          logger.With("component", "manager"),
		metrics:         metrics,
		alerts:          make(map[string]*domain.Alert),
	}
}

// Subscribe registers a new consumer of the lifecycle stream. Every
// subscriber sees every event; channels are never closed, consumers stop via
// their own context.
func (m *Manager) Subscribe() <-chan Event {
	ch := make(chan Event, eventBuffer)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Upsert applies a parsed alert to the active set. New ids are added,
// existing ids merged, and cancellations remove the alert. A cancellation for
// an unknown id is ignored. Returns true when the set changed.
func (m *Manager) Upsert(alert *domain.Alert) bool {
	if alert == nil || alert.ProductID == "" {
		m.logger.Warn("dropping alert without product id")
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.alerts[alert.ProductID]
	if !ok {
		if alert.Status == domain.StatusCancelled {
			m.logger.Debug("ignoring cancellation for unknown alert", "product_id", alert.ProductID)
			return false
		}
		m.alerts[alert.ProductID] = alert
		m.addRecentLocked(alert)
		m.metrics.ActiveAlerts.Set(float64(len(m.alerts)))
		m.logger.Info("alert added", "product_id", alert.ProductID, "event", alert.EventName, "source", alert.Source)
		m.emitLocked(Event{Type: EventAlertNew, Alert: alert.Clone()})
		return true
	}

	if alert.Status == domain.StatusCancelled {
		m.removeLocked(alert.ProductID, "cancelled")
		return true
	}

	mergeAlert(existing, alert)
	existing.MarkUpdated()
	m.logger.Info("alert updated", "product_id", alert.ProductID, "update_count", existing.UpdateCount)
	m.emitLocked(Event{Type: EventAlertUpdate, Alert: existing.Clone()})
	return true
}

// mergeAlert folds non-empty fields of an incoming product into the stored
// alert, so a follow-up statement cannot blank out data the first product
// carried.
func mergeAlert(existing, incoming *domain.Alert) {
	if incoming.Headline != "" {
		existing.Headline = incoming.Headline
	}
	if incoming.Description != "" {
		existing.Description = incoming.Description
	}
	if incoming.Instruction != "" {
		existing.Instruction = incoming.Instruction
	}
	if incoming.ExpirationTime != nil {
		existing.ExpirationTime = incoming.ExpirationTime
	}
	if incoming.Threat.HasTornado() || incoming.Threat.MaxWindGustMPH != nil {
		existing.Threat = incoming.Threat
	}
	if len(incoming.Polygon) > 0 {
		existing.Polygon = incoming.Polygon
		existing.Centroid = incoming.Centroid
	}
	if len(incoming.AffectedAreas) > 0 {
		existing.AffectedAreas = incoming.AffectedAreas
		existing.FIPSCodes = incoming.FIPSCodes
	}
	if incoming.DisplayLocations != "" {
		existing.DisplayLocations = incoming.DisplayLocations
	}
	if incoming.VTEC != nil {
		existing.VTEC = incoming.VTEC
	}
	existing.Status = domain.StatusUpdated
}

// Remove deletes an alert by id, emitting a remove event.
func (m *Manager) Remove(productID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(productID, "removed")
}

func (m *Manager) removeLocked(productID, reason string) bool {
	alert, ok := m.alerts[productID]
	if !ok {
		return false
	}
	delete(m.alerts, productID)

	switch reason {
	case "expired":
		alert.MarkExpired()
	case "cancelled":
		alert.MarkCancelled()
	}
	m.metrics.ActiveAlerts.Set(float64(len(m.alerts)))
	m.logger.Info("alert removed", "product_id", productID, "reason", reason)
	m.emitLocked(Event{Type: EventAlertRemove, Alert: alert.Clone(), Reason: reason})
	return true
}

// emitLocked sends an event to every subscriber while holding the manager
// lock, which keeps per-id ordering. A full subscriber drops the event (with
// a log) rather than blocking the ingest path.
func (m *Manager) emitLocked(ev Event) {
	m.metrics.AlertEvents.WithLabelValues(string(ev.Type)).Inc()
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			m.logger.Warn("event subscriber full, dropping event", "type", ev.Type, "product_id", ev.Alert.ProductID)
		}
	}
}

// Get returns a copy of one alert.
func (m *Manager) Get(productID string) (*domain.Alert, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.alerts[productID]
	if !ok {
		return nil, false
	}
	return alert.Clone(), true
}

// Active returns copies of all active alerts sorted by priority, newest
// issued first within a priority.
func (m *Manager) Active() []*domain.Alert {
	m.mu.Lock()
	out := make([]*domain.Alert, 0, len(m.alerts))
	for _, alert := range m.alerts {
		out = append(out, alert.Clone())
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return issuedUnix(out[i]) > issuedUnix(out[j])
	})
	return out
}

func issuedUnix(a *domain.Alert) int64 {
	if a.IssuedTime == nil {
		return 0
	}
	return a.IssuedTime.Unix()
}

// ByState returns copies of alerts touching the given state.
func (m *Manager) ByState(state string) []*domain.Alert {
	prefix := state
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Alert
	for _, alert := range m.alerts {
		for _, ugc := range alert.AffectedAreas {
			if len(ugc) >= 2 && ugc[:2] == prefix {
				out = append(out, alert.Clone())
				break
			}
		}
	}
	return out
}

// MissingGeometry returns copies of active alerts that have no polygon,
// typically alerts restored from disk before a boundary could be resolved.
func (m *Manager) MissingGeometry() []*domain.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Alert
	for _, alert := range m.alerts {
		if len(alert.Polygon) == 0 {
			out = append(out, alert.Clone())
		}
	}
	return out
}

// SetGeometry attaches a resolved boundary to an alert without emitting an
// event or bumping the update counter; it fills in what the alert should have
// carried all along. Returns false for an unknown id.
func (m *Manager) SetGeometry(productID string, polygon []domain.Ring, centroid *domain.LatLon) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.alerts[productID]
	if !ok {
		return false
	}
	alert.Polygon = polygon
	alert.Centroid = centroid
	return true
}

// Count returns the number of active alerts.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

// SweepExpired removes alerts whose event end has passed.
func (m *Manager) SweepExpired() int {
	now := m.clock.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []string
	for id, alert := range m.alerts {
		if alert.IsExpired(now) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		m.removeLocked(id, "expired")
	}

	if len(expired) > 0 {
		m.logger.Info("expired alerts swept", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps expired alerts on the cleanup interval until the context ends.
func (m *Manager) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.SweepExpired()
		}
	}
}

// RecentProducts returns the newest-first record of recently added alerts.
func (m *Manager) RecentProducts(limit int) []RecentProduct {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.recent) {
		limit = len(m.recent)
	}
	out := make([]RecentProduct, limit)
	copy(out, m.recent[:limit])
	return out
}

func (m *Manager) addRecentLocked(alert *domain.Alert) {
	rec := RecentProduct{
		ProductID:  alert.ProductID,
		EventName:  alert.EventName,
		Headline:   alert.Headline,
		IssuedTime: alert.IssuedTime,
		Source:     alert.Source,
	}
	m.recent = append([]RecentProduct{rec}, m.recent...)
	if len(m.recent) > recentProductsCap {
		m.recent = m.recent[:recentProductsCap]
	}
}

// Statistics summarizes the active set for the status surfaces.
func (m *Manager) Statistics() Statistics {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Statistics{
		TotalAlerts:  len(m.alerts),
		ByPhenomenon: make(map[string]int),
		BySource:     make(map[string]int),
	}
	for _, alert := range m.alerts {
		key := alert.Phenomenon
		if key == "" {
			key = "UNKNOWN"
		}
		stats.ByPhenomenon[key]++
		stats.BySource[alert.Source]++

		switch alert.Significance {
		case domain.SignificanceWarning:
			stats.Warnings++
		case domain.SignificanceWatch:
			stats.Watches++
		}
		if alert.IsHighPriority() {
			stats.HighPriority++
		}
		if stats.LastUpdated == nil || alert.LastUpdated.After(*stats.LastUpdated) {
			t := alert.LastUpdated
			stats.LastUpdated = &t
		}
	}
	return stats
}

type persistFile struct {
	SavedAt    time.Time       `json:"saved_at"`
	AlertCount int             `json:"alert_count"`
	Alerts     []*domain.Alert `json:"alerts"`
}

// SaveToFile persists the active set for restart recovery.
func (m *Manager) SaveToFile(path string) error {
	m.mu.Lock()
	file := persistFile{
		SavedAt:    m.clock.Now().UTC(),
		AlertCount: len(m.alerts),
		Alerts:     make([]*domain.Alert, 0, len(m.alerts)),
	}
	for _, alert := range m.alerts {
		file.Alerts = append(file.Alerts, alert.Clone())
	}
	m.mu.Unlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal alerts: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write alerts file: %w", err)
	}

	m.logger.Info("alerts saved", "path", path, "count", file.AlertCount)
	return nil
}

// LoadFromFile restores persisted alerts, skipping any that expired while the
// service was down. Loaded alerts do not emit events; subscribers get them
// through bulk snapshots. A missing file is not an error.
func (m *Manager) LoadFromFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read alerts file: %w", err)
	}

	var file persistFile
	if err := json.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse alerts file %s: %w", path, err)
	}

	now := m.clock.Now().UTC()
	loaded := 0
	m.mu.Lock()
	for _, alert := range file.Alerts {
		if alert == nil || alert.ProductID == "" || alert.IsExpired(now) {
			continue
		}
		m.alerts[alert.ProductID] = alert
		loaded++
	}
	m.metrics.ActiveAlerts.Set(float64(len(m.alerts)))
	m.mu.Unlock()

	m.logger.Info("alerts loaded", "path", path, "count", loaded)
	return loaded, nil
}
