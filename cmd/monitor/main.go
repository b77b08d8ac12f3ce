// Command monitor runs the disaster ingestion service: it polls the GDELT
// feed, normalizes and enriches the records, upserts them into MongoDB, and
// serves the query API alongside health and metrics endpoints.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/geofinch/disaster-monitor/internal/adapter/gdelt"
	"github.com/geofinch/disaster-monitor/internal/adapter/gemini"
	"github.com/geofinch/disaster-monitor/internal/adapter/googlemaps"
	"github.com/geofinch/disaster-monitor/internal/adapter/httpadapter"
	"github.com/geofinch/disaster-monitor/internal/adapter/mongostore"
	"github.com/geofinch/disaster-monitor/internal/config"
	"github.com/geofinch/disaster-monitor/internal/domain"
	"github.com/geofinch/disaster-monitor/internal/observability"
	"github.com/geofinch/disaster-monitor/internal/pipeline"
	"github.com/geofinch/disaster-monitor/internal/query"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := mongostore.Connect(ctx, mongostore.Options{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDatabase,
		Collection:  cfg.MongoCollection,
		Timeout:     cfg.MongoTimeout,
		VectorIndex: cfg.VectorIndex,
	}, logger, metrics)
	if err != nil {
		logger.Error("failed to connect to store", "error", err)
		os.Exit(1)
	}

	// Embedding is feature-flagged via EMBED_ENABLED / GEMINI_API_KEY.
	var embedder domain.Embedder
	if cfg.EmbedEnabled {
		client := gemini.NewClient(cfg.GeminiAPIKey, cfg.EmbedModel, cfg.EmbedDimensions,
			cfg.EmbedTimeout, logger, metrics)
		embedder = gemini.NewCachedEmbedder(client, cfg.EmbedCacheSize, metrics)
		metrics.EmbedEnabled.Set(1)
		logger.Info("embedding enabled",
			"model", cfg.EmbedModel, "dimensions", cfg.EmbedDimensions, "cache_size", cfg.EmbedCacheSize)
	} else {
		logger.Info("embedding disabled")
	}

	// Geocoding enrichment is feature-flagged via GEOCODE_ENABLED / GOOGLE_MAPS_API_KEY.
	var geocoder domain.Geocoder
	if cfg.GeocodeEnabled {
		client := googlemaps.NewClient(cfg.MapsAPIKey, cfg.GeocodeTimeout, logger, metrics)
		geocoder = googlemaps.NewCachedGeocoder(client, cfg.GeocodeCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("geocoding enabled", "cache_size", cfg.GeocodeCacheSize)
	} else {
		logger.Info("geocoding disabled")
	}

	fetcher := gdelt.NewClient(cfg.GDELTBaseURL, cfg.FetchTimeout, cfg.FetchRetries, logger, metrics)
	p := pipeline.New(fetcher, store, embedder, geocoder, cfg.PollInterval, logger, metrics)
	facade := query.New(store, embedder)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, facade, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
