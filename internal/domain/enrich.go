package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// AttachEmbedding computes and attaches an embedding for the event's
// description. Empty or whitespace-only descriptions produce no embedding
// and no error. An embedder failure is recoverable: the event is returned
// unchanged alongside an error wrapping ErrEmbeddingUnavailable, so the
// caller persists it without a vector and a later run can backfill.
func AttachEmbedding(ctx context.Context, event CanonicalEvent, embedder Embedder) (CanonicalEvent, error) {
	if embedder == nil {
		return event, nil
	}
	if strings.TrimSpace(event.Description) == "" {
		return event, nil
	}

	vec, err := embedder.Embed(ctx, event.Description)
	if err != nil {
		return event, fmt.Errorf("%w: event %s: %v", ErrEmbeddingUnavailable, event.ID, err)
	}
	event.Embedding = vec
	return event, nil
}

// EnrichWithPlace backfills the country code and location name from a
// reverse-geocode lookup when the source row left them empty. If geocoder
// is nil or the lookup fails, the event is returned as-is (graceful
// degradation: place details are informational).
func EnrichWithPlace(ctx context.Context, event CanonicalEvent, geocoder Geocoder, logger *slog.Logger) CanonicalEvent {
	if geocoder == nil {
		return event
	}
	if event.CountryCode != "" && event.LocationName != "" {
		return event
	}

	place, err := geocoder.ReverseGeocode(ctx, event.Geo.Lat, event.Geo.Lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"event_id", event.ID,
			"lat", event.Geo.Lat,
			"lon", event.Geo.Lon,
			"error", err,
		)
		return event
	}

	if event.CountryCode == "" {
		event.CountryCode = place.CountryCode
	}
	if event.LocationName == "" {
		event.LocationName = place.FormattedAddress
	}
	return event
}
