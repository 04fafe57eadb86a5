package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	Environment string
	LogLevel    string
	LogFormat   string

	HTTPAddr        string
	WebSocketAddr   string
	ShutdownTimeout time.Duration

	// Alert sources. AlertSource selects the primary feed; the API poller
	// always runs as backfill unless UseAPIFallback is false.
	AlertSource    string // "nwws" or "api"
	UseAPIFallback bool

	// NWWS-OI (Weather Wire) XMPP credentials. NWWS is enabled when a
	// username is present.
	NWWSUsername string
	NWWSPassword string
	NWWSServer   string
	NWWSResource string
	NWWSRoom     string

	// NWS REST API.
	APIBaseURL      string
	APIUserAgent    string
	APITimeout      time.Duration
	APIRetryCount   int
	APIPollInterval time.Duration

	// Geographic and phenomenon filtering.
	FilterStates  []string
	FilterOffices []string

	// Alert lifecycle.
	DefaultAlertLifetime time.Duration
	CleanupInterval      time.Duration

	// Zone geometry cache.
	CacheZoneGeometries bool
	ZoneCacheTTL        time.Duration

	// Persistence.
	DataDir       string
	PersistAlerts bool

	// Optional Kafka lifecycle-event mirror; enabled when a topic is set.
	KafkaBrokers []string
	KafkaTopic   string

	// Optional JSON file overriding the target phenomena list.
	PhenomenaFile string
}

// KafkaEnabled reports whether the lifecycle-event mirror is configured.
func (c *Config) KafkaEnabled() bool {
	return c.KafkaTopic != ""
}

// NWWSEnabled reports whether Weather Wire credentials are configured.
func (c *Config) NWWSEnabled() bool {
	return c.NWWSUsername != ""
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parseDuration("NWS_API_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	pollInterval, err := parseDuration("API_POLL_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	defaultLifetime, err := parseDuration("DEFAULT_ALERT_LIFETIME", "60m")
	if err != nil {
		return nil, err
	}
	cleanupInterval, err := parseDuration("ALERT_CLEANUP_INTERVAL", "60s")
	if err != nil {
		return nil, err
	}
	zoneCacheTTL, err := parseDuration("ZONE_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: sharedcfg.EnvOrDefault("ENVIRONMENT", "development"),
		LogLevel:    sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:   sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8000"),
		WebSocketAddr:   sharedcfg.EnvOrDefault("WEBSOCKET_ADDR", ":8765"),
		ShutdownTimeout: shutdownTimeout,

		AlertSource:    strings.ToLower(sharedcfg.EnvOrDefault("ALERT_SOURCE", "nwws")),
		UseAPIFallback: parseBool("USE_API_FALLBACK", true),

		NWWSUsername: os.Getenv("NWWS_USERNAME"),
		NWWSPassword: os.Getenv("NWWS_PASSWORD"),
		NWWSServer:   sharedcfg.EnvOrDefault("NWWS_SERVER", "nwws-oi.weather.gov"),
		NWWSResource: sharedcfg.EnvOrDefault("NWWS_RESOURCE", "nwws"),
		NWWSRoom:     sharedcfg.EnvOrDefault("NWWS_ROOM", "nwws@conference.nwws-oi.weather.gov"),

		APIBaseURL:      sharedcfg.EnvOrDefault("NWS_API_BASE_URL", "https://api.weather.gov"),
		APIUserAgent:    sharedcfg.EnvOrDefault("NWS_API_USER_AGENT", "nws-alert-relay/1.0"),
		APITimeout:      apiTimeout,
		APIRetryCount:   parseInt("NWS_API_RETRY_COUNT", 3),
		APIPollInterval: pollInterval,

		FilterStates:  parseUpperList(sharedcfg.EnvOrDefault("FILTER_STATES", "OH,IN,MI,KY,WV,PA")),
		FilterOffices: parseUpperList(os.Getenv("FILTER_OFFICES")),

		DefaultAlertLifetime: defaultLifetime,
		CleanupInterval:      cleanupInterval,

		CacheZoneGeometries: parseBool("CACHE_ZONE_GEOMETRIES", true),
		ZoneCacheTTL:        zoneCacheTTL,

		DataDir:       sharedcfg.EnvOrDefault("DATA_DIR", "data"),
		PersistAlerts: parseBool("PERSIST_ALERTS", true),

		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   os.Getenv("KAFKA_TOPIC"),

		PhenomenaFile: os.Getenv("PHENOMENA_FILE"),
	}

	if cfg.AlertSource != "nwws" && cfg.AlertSource != "api" {
		return nil, fmt.Errorf("ALERT_SOURCE must be \"nwws\" or \"api\", got %q", cfg.AlertSource)
	}
	if cfg.AlertSource == "nwws" && !cfg.NWWSEnabled() && !cfg.UseAPIFallback {
		return nil, errors.New("ALERT_SOURCE is nwws but NWWS_USERNAME is not set and USE_API_FALLBACK is false")
	}
	if cfg.NWWSEnabled() && cfg.NWWSPassword == "" {
		return nil, errors.New("NWWS_USERNAME is set but NWWS_PASSWORD is not")
	}
	if cfg.KafkaEnabled() && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_TOPIC is set but KAFKA_BROKERS is empty")
	}
	if cfg.APIUserAgent == "" {
		return nil, errors.New("NWS_API_USER_AGENT is required; api.weather.gov rejects anonymous clients")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	s := sharedcfg.EnvOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, s)
	}
	return d, nil
}

func parseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func parseInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// parseUpperList splits a comma-separated list, trimming and uppercasing.
func parseUpperList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
