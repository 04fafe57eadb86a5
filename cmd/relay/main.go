package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/nws-alert-relay/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/nws-alert-relay/internal/adapter/kafka"
	"github.com/couchcryptid/nws-alert-relay/internal/adapter/nwsapi"
	"github.com/couchcryptid/nws-alert-relay/internal/adapter/nwws"
	"github.com/couchcryptid/nws-alert-relay/internal/broker"
	"github.com/couchcryptid/nws-alert-relay/internal/config"
	"github.com/couchcryptid/nws-alert-relay/internal/domain"
	"github.com/couchcryptid/nws-alert-relay/internal/geometry"
	"github.com/couchcryptid/nws-alert-relay/internal/ingest"
	"github.com/couchcryptid/nws-alert-relay/internal/manager"
	"github.com/couchcryptid/nws-alert-relay/internal/observability"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	phenomena, err := config.NewPhenomena(cfg.PhenomenaFile)
	if err != nil {
		logger.Error("failed to load phenomena file", "error", err)
		os.Exit(1)
	}

	parser := domain.NewParser(domain.ParseOptions{
		PhenomenaProvider: phenomena.List,
		FilterStates:      cfg.FilterStates,
		FilterOffices:     cfg.FilterOffices,
		DefaultLifetime:   cfg.DefaultAlertLifetime,
	})

	apiClient := nwsapi.NewClient(nwsapi.Options{
		BaseURL:    cfg.APIBaseURL,
		UserAgent:  cfg.APIUserAgent,
		Timeout:    cfg.APITimeout,
		RetryCount: cfg.APIRetryCount,
	}, logger, metrics)

	var resolver *geometry.Resolver
	geometryCachePath := filepath.Join(cfg.DataDir, "zone_geometries.json")
	if cfg.CacheZoneGeometries {
		resolver = geometry.NewResolver(apiClient, cfg.ZoneCacheTTL, nil, logger, metrics)
		if err := resolver.LoadCache(geometryCachePath); err != nil {
			logger.Warn("geometry cache load failed", "error", err)
		}
	}

	mgr := manager.New(cfg.CleanupInterval, nil, logger, metrics)
	alertsPath := filepath.Join(cfg.DataDir, "alerts.json")
	if cfg.PersistAlerts {
		if _, err := mgr.LoadFromFile(alertsPath); err != nil {
			logger.Warn("alert restore failed", "error", err)
		}
	}

	var geo ingest.GeometryResolver
	if resolver != nil {
		geo = resolver
	}
	ing := ingest.New(parser, mgr, geo, apiClient, nil, logger, metrics)
	ing.SetPollFilters(strings.Join(cfg.FilterStates, ","), "")

	ws := broker.New(mgr, nil, logger, metrics)
	wsServer := &http.Server{
		Addr:        cfg.WebSocketAddr,
		Handler:     ws,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 5 * time.Minute,
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, mgr, ws, ing, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// SIGHUP rereads the phenomena file, so the accepted set can change
	// without a restart.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := phenomena.Reload(); err != nil {
					logger.Error("phenomena reload failed", "error", err)
				} else {
					logger.Info("phenomena reloaded", "codes", phenomena.List())
				}
			}
		}
	}()

	// Alerts restored from disk may predate their zone boundaries being
	// cached; resolve them in the background once at startup.
	if cfg.PersistAlerts && resolver != nil {
		go ing.BackfillRestored(ctx, mgr)
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	go func() {
		logger.Info("websocket server starting", "addr", wsServer.Addr)
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("websocket server error", "error", err)
		}
	}()

	go mgr.Run(ctx)
	go ws.Run(ctx, mgr.Subscribe())

	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		kafkaWriter = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		go kafkaWriter.Run(ctx, mgr.Subscribe())
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic)
	}

	// The wire feed is primary; the REST poll either replaces it or backs it
	// up depending on configuration.
	useWire := cfg.AlertSource == "nwws" && cfg.NWWSEnabled()
	if useWire {
		wire := nwws.NewClient(nwws.Options{
			Username: cfg.NWWSUsername,
			Password: cfg.NWWSPassword,
			Server:   cfg.NWWSServer,
			Resource: cfg.NWWSResource,
			Room:     cfg.NWWSRoom,
		}, logger, metrics)

		go func() {
			if err := wire.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("nwws client error", "error", err)
			}
		}()
		go ing.RunWire(ctx, wire.Products())
	}
	if !useWire || cfg.UseAPIFallback {
		go ing.RunPoll(ctx, cfg.APIPollInterval)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("websocket server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if cfg.PersistAlerts {
		if err := mgr.SaveToFile(alertsPath); err != nil {
			logger.Error("alert persist failed", "error", err)
		}
	}
	if resolver != nil {
		if err := resolver.SaveCache(geometryCachePath); err != nil {
			logger.Error("geometry cache save failed", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
