package domain

import "context"

// Place holds location details returned by a geocoding provider.
type Place struct {
	FormattedAddress string
	CountryCode      string // ISO 3166-1 alpha-2
}

// Geocoder backfills place details for events missing them.
type Geocoder interface {
	// ReverseGeocode converts coordinates to place details.
	ReverseGeocode(ctx context.Context, lat, lon float64) (Place, error)
}
