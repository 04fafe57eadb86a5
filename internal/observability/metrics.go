package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the relay.
type Metrics struct {
	ProductsConsumed *prometheus.CounterVec // labels: source={nwws,api}
	ProductsParsed   *prometheus.CounterVec // labels: source
	ProductsRejected *prometheus.CounterVec // labels: source, reason
	ParseFailures    *prometheus.CounterVec // labels: source

	ActiveAlerts prometheus.Gauge
	AlertEvents  *prometheus.CounterVec // labels: type={alert_new,alert_update,alert_remove}

	// WebSocket fan-out metrics.
	ConnectedClients prometheus.Gauge
	MessagesSent     *prometheus.CounterVec // labels: type
	SendFailures     prometheus.Counter

	// Zone geometry resolver metrics.
	GeometryCache         *prometheus.CounterVec // labels: result={hit,miss,negative}
	GeometryFetchDuration prometheus.Histogram

	// NWS REST API metrics.
	APIRequestDuration *prometheus.HistogramVec // labels: endpoint
	APIRequestErrors   *prometheus.CounterVec   // labels: endpoint

	// Connection state.
	NWWSConnected prometheus.Gauge
	RelayRunning  prometheus.Gauge
}

// NewMetrics creates and registers all relay metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.ProductsConsumed,
		m.ProductsParsed,
		m.ProductsRejected,
		m.ParseFailures,
		m.ActiveAlerts,
		m.AlertEvents,
		m.ConnectedClients,
		m.MessagesSent,
		m.SendFailures,
		m.GeometryCache,
		m.GeometryFetchDuration,
		m.APIRequestDuration,
		m.APIRequestErrors,
		m.NWWSConnected,
		m.RelayRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ProductsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nws_relay",
			Name:      "products_consumed_total",
			Help:      "Raw products received, by source.",
		}, []string{"source"}),
		ProductsParsed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nws_relay",
			Name:      "products_parsed_total",
			Help:      "Products decoded into alerts, by source.",
		}, []string{"source"}),
		ProductsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nws_relay",
			Name:      "products_rejected_total",
			Help:      "Products dropped by relevance filters, by source and reason.",
		}, []string{"source", "reason"}),
		ParseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nws_relay",
			Name:      "parse_failures_total",
			Help:      "Products that could not be decoded at all, by source.",
		}, []string{"source"}),
		ActiveAlerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nws_relay",
			Name:      "active_alerts",
			Help:      "Alerts currently in the active set.",
		}),
		AlertEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nws_relay",
			Name:      "alert_events_total",
			Help:      "Lifecycle events emitted by the alert manager, by type.",
		}, []string{"type"}),
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nws_relay",
			Name:      "connected_clients",
			Help:      "WebSocket subscribers currently connected.",
		}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nws_relay",
			Name:      "messages_sent_total",
			Help:      "WebSocket messages delivered, by envelope type.",
		}, []string{"type"}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nws_relay",
			Name:      "send_failures_total",
			Help:      "WebSocket writes that failed and disconnected the client.",
		}),
		GeometryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nws_relay",
			Name:      "geometry_cache_total",
			Help:      "Zone geometry cache lookups, by result.",
		}, []string{"result"}),
		GeometryFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "nws_relay",
			Name:      "geometry_fetch_duration_seconds",
			Help:      "Zone geometry fetch duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		APIRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "nws_relay",
			Name:      "api_request_duration_seconds",
			Help:      "NWS REST API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		APIRequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nws_relay",
			Name:      "api_request_errors_total",
			Help:      "NWS REST API requests that exhausted their retries.",
		}, []string{"endpoint"}),
		NWWSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nws_relay",
			Name:      "nwws_connected",
			Help:      "1 when the NWWS-OI XMPP session is established.",
		}),
		RelayRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "nws_relay",
			Name:      "relay_running",
			Help:      "1 when the ingest loop is active, 0 when shut down.",
		}),
	}
}
