// Package ingest runs the product pipeline: raw text or CAP features in,
// parsed alerts into the manager, with zone geometry backfilled for alerts
// that arrive without a polygon.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/nws-alert-relay/internal/adapter/nwws"
	"github.com/couchcryptid/nws-alert-relay/internal/domain"
	"github.com/couchcryptid/nws-alert-relay/internal/observability"
)

// AlertSink receives parsed alerts. The alert manager implements it.
type AlertSink interface {
	Upsert(alert *domain.Alert) bool
}

// GeometryResolver backfills boundaries for polygon-less alerts.
type GeometryResolver interface {
	Populate(ctx context.Context, codes []string) []domain.Ring
}

// AlertAPI polls the REST service for active alerts, optionally narrowed by
// area (comma-separated state codes) and event name.
type AlertAPI interface {
	ActiveAlerts(ctx context.Context, area, event string) ([]domain.APIFeature, error)
}

// GeometryStore exposes the restored alerts that still need a boundary. The
// alert manager implements it.
type GeometryStore interface {
	MissingGeometry() []*domain.Alert
	SetGeometry(productID string, polygon []domain.Ring, centroid *domain.LatLon) bool
}

// Ingestor wires the feed sources through the parser into the manager.
type Ingestor struct {
	parser   *domain.Parser
	sink     AlertSink
	geometry GeometryResolver // may be nil
	api      AlertAPI         // may be nil
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	ready    atomic.Bool

	pollArea  string
	pollEvent string
}

// New creates an Ingestor. geometry and api are optional; a nil clock uses
// the real one.
func New(parser *domain.Parser, sink AlertSink, geo GeometryResolver, api AlertAPI, clk clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Ingestor {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	return &Ingestor{
		parser:   parser,
		sink:     sink,
		geometry: geo,
		api:      api,
		clock:    clk,
		logger:   logger.With("component", "ingest"),
		metrics:  metrics,
	}
}

// SetPollFilters narrows the active-alerts poll to an area (comma-separated
// state codes) and/or event name. Empty strings leave the query unfiltered.
func (in *Ingestor) SetPollFilters(area, event string) {
	in.pollArea = area
	in.pollEvent = event
}

// CheckReadiness returns nil once at least one product has been processed.
func (in *Ingestor) CheckReadiness(_ context.Context) error {
	if !in.ready.Load() {
		return errors.New("no products processed yet")
	}
	return nil
}

// RunWire consumes the NWWS product stream until the context ends.
func (in *Ingestor) RunWire(ctx context.Context, products <-chan nwws.RawProduct) {
	in.logger.Info("wire ingest started")
	in.metrics.RelayRunning.Set(1)
	defer in.metrics.RelayRunning.Set(0)

	for {
		select {
		case <-ctx.Done():
			in.logger.Info("wire ingest stopping", "reason", ctx.Err())
			return
		case p := <-products:
			in.ProcessText(ctx, p.Text, "nwws")
		}
	}
}

// RunPoll fetches active alerts from the REST API on the given interval. The
// first poll happens immediately so a fresh start is not empty for interval
// seconds.
func (in *Ingestor) RunPoll(ctx context.Context, interval time.Duration) {
	in.logger.Info("api poll started", "interval", interval)
	in.poll(ctx)

	ticker := in.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			in.logger.Info("api poll stopping", "reason", ctx.Err())
			return
		case <-ticker.Chan():
			in.poll(ctx)
		}
	}
}

func (in *Ingestor) poll(ctx context.Context) {
	features, err := in.api.ActiveAlerts(ctx, in.pollArea, in.pollEvent)
	if err != nil {
		if ctx.Err() == nil {
			in.logger.Error("active alerts poll failed", "error", err)
		}
		return
	}

	accepted := 0
	for _, f := range features {
		feature := f
		in.metrics.ProductsConsumed.WithLabelValues("api").Inc()
		if in.ProcessFeature(ctx, &feature) {
			accepted++
		}
	}
	in.logger.Info("api poll complete", "features", len(features), "accepted", accepted)
}

// ProcessText parses one raw text product and applies it. Returns true when
// the product produced an alert.
func (in *Ingestor) ProcessText(ctx context.Context, text, source string) bool {
	alert, err := in.parser.ParseTextAlert(text, source)
	return in.apply(ctx, alert, err, source)
}

// ProcessFeature parses one CAP feature from the REST API and applies it.
func (in *Ingestor) ProcessFeature(ctx context.Context, feature *domain.APIFeature) bool {
	alert, err := in.parser.ParseAPIAlert(feature, "api")
	return in.apply(ctx, alert, err, "api")
}

func (in *Ingestor) apply(ctx context.Context, alert *domain.Alert, err error, source string) bool {
	if err != nil {
		if reason := domain.RejectReason(err); reason != "" {
			in.metrics.ProductsRejected.WithLabelValues(source, reason).Inc()
			in.logger.Debug("product rejected", "source", source, "reason", reason)
		} else {
			in.metrics.ParseFailures.WithLabelValues(source).Inc()
			in.logger.Warn("product parse failed", "source", source, "error", err)
		}
		return false
	}

	in.backfillGeometry(ctx, alert)

	in.metrics.ProductsParsed.WithLabelValues(source).Inc()
	in.sink.Upsert(alert)
	in.ready.Store(true)
	return true
}

// backfillGeometry gives polygon-less alerts the boundaries of their affected
// zones so every alert can be drawn.
func (in *Ingestor) backfillGeometry(ctx context.Context, alert *domain.Alert) {
	if in.geometry == nil || len(alert.Polygon) > 0 || len(alert.AffectedAreas) == 0 {
		return
	}

	rings := in.geometry.Populate(ctx, alert.AffectedAreas)
	if len(rings) == 0 {
		return
	}
	alert.Polygon = rings
	alert.Centroid = domain.Centroid(rings)
}

// BackfillRestored resolves boundaries for alerts restored from disk without
// a polygon. Runs once at startup, after LoadFromFile.
func (in *Ingestor) BackfillRestored(ctx context.Context, store GeometryStore) {
	if in.geometry == nil {
		return
	}

	filled := 0
	for _, alert := range store.MissingGeometry() {
		if ctx.Err() != nil {
			return
		}
		if len(alert.AffectedAreas) == 0 {
			continue
		}
		rings := in.geometry.Populate(ctx, alert.AffectedAreas)
		if len(rings) == 0 {
			continue
		}
		if store.SetGeometry(alert.ProductID, rings, domain.Centroid(rings)) {
			filled++
		}
	}
	if filled > 0 {
		in.logger.Info("restored alert geometry backfilled", "alerts", filled)
	}
}
