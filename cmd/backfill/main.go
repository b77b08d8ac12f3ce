// Command backfill performs a one-shot ingestion over a date range and
// prints the run summary.
//
// Usage:
//
//	go run ./cmd/backfill -from 20250526 -to 20250602
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geofinch/disaster-monitor/internal/adapter/gdelt"
	"github.com/geofinch/disaster-monitor/internal/adapter/gemini"
	"github.com/geofinch/disaster-monitor/internal/adapter/googlemaps"
	"github.com/geofinch/disaster-monitor/internal/adapter/mongostore"
	"github.com/geofinch/disaster-monitor/internal/config"
	"github.com/geofinch/disaster-monitor/internal/domain"
	"github.com/geofinch/disaster-monitor/internal/observability"
	"github.com/geofinch/disaster-monitor/internal/pipeline"
)

func main() {
	from := flag.String("from", "", "first day to ingest (yyyymmdd)")
	to := flag.String("to", "", "last day to ingest (yyyymmdd, inclusive)")
	flag.Parse()

	if *from == "" || *to == "" {
		flag.Usage()
		os.Exit(1)
	}

	fromDay, err := time.ParseInLocation("20060102", *from, time.UTC)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -from: %v\n", err)
		os.Exit(1)
	}
	toDay, err := time.ParseInLocation("20060102", *to, time.UTC)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -to: %v\n", err)
		os.Exit(1)
	}
	if toDay.Before(fromDay) {
		fmt.Fprintln(os.Stderr, "-to must not be before -from")
		os.Exit(1)
	}

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
	defer store.Close(context.Background()) //nolint:errcheck // process exits next

	var embedder domain.Embedder
	if cfg.EmbedEnabled {
		client := gemini.NewClient(cfg.GeminiAPIKey, cfg.EmbedModel, cfg.EmbedDimensions,
			cfg.EmbedTimeout, logger, metrics)
		embedder = gemini.NewCachedEmbedder(client, cfg.EmbedCacheSize, metrics)
	}

	var geocoder domain.Geocoder
	if cfg.GeocodeEnabled {
		client := googlemaps.NewClient(cfg.MapsAPIKey, cfg.GeocodeTimeout, logger, metrics)
		geocoder = googlemaps.NewCachedGeocoder(client, cfg.GeocodeCacheSize, metrics)
	}

	fetcher := gdelt.NewClient(cfg.GDELTBaseURL, cfg.FetchTimeout, cfg.FetchRetries, logger, metrics)
	p := pipeline.New(fetcher, store, embedder, geocoder, cfg.PollInterval, logger, metrics)

	sum, err := p.IngestWindow(ctx, fromDay, toDay)
	if err != nil {
		logger.Error("backfill aborted", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Backfill %s..%s complete\n", *from, *to)
	fmt.Printf("  fetched:    %d\n", sum.Fetched)
	fmt.Printf("  normalized: %d\n", sum.Normalized)
	fmt.Printf("  rejected:   %d\n", sum.Rejected)
	fmt.Printf("  embedded:   %d\n", sum.Embedded)
	fmt.Printf("  written:    %d\n", sum.Written)
	fmt.Printf("  failed:     %d\n", sum.Failed)

	if sum.Failed > 0 {
		os.Exit(1)
	}
}
