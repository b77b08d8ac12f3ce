package domain

import (
	"context"
	"time"
)

// RawRecord is one row of a GDELT daily export, keyed by the export's
// column names (GLOBALEVENTID, SQLDATE, ActionGeo_Lat, ...). Values are the
// raw tab-separated strings; nothing is validated until Normalize.
type RawRecord map[string]string

// Geo is a WGS-84 latitude/longitude pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Canonical disaster-type vocabulary. Raw event codes that match nothing
// fall into CategoryOther.
const (
	CategoryEarthquake       = "earthquake"
	CategoryFlood            = "flood"
	CategoryDrought          = "drought"
	CategoryHurricaneTyphoon = "hurricane_typhoon"
	CategoryWildfire         = "wildfire"
	CategoryVolcanic         = "volcanic_activity"
	CategoryLandslide        = "landslide"
	CategoryTsunami          = "tsunami"
	CategoryTerroristAttack  = "terrorist_attack"
	CategoryArmedConflict    = "armed_conflict"
	CategoryExplosion        = "explosion"
	CategoryIndustrial       = "industrial_accident"
	CategoryChemicalSpill    = "chemical_spill"
	CategoryNuclearIncident  = "nuclear_incident"
	CategoryStorm            = "storm"
	CategoryAccident         = "accident"
	CategoryOther            = "other"
)

// CanonicalEvent is the normalized representation of one disaster record.
// It is produced once per raw record by Normalize and upserted by ID, so
// re-ingesting the same source row never duplicates a document.
type CanonicalEvent struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Category   string    `json:"category"`
	Geo        Geo       `json:"geo"`

	// Severity is a derived 1-5 ordinal; nil when the source signals
	// (Goldstein scale, mention counts, tone) are missing or non-numeric.
	Severity *int `json:"severity,omitempty"`

	// Description is free text composed from actor and place names.
	// May be empty, in which case no embedding is generated.
	Description string    `json:"description,omitempty"`
	Embedding   []float32 `json:"embedding,omitempty"`

	Actor1       string   `json:"actor1,omitempty"`
	Actor2       string   `json:"actor2,omitempty"`
	CountryCode  string   `json:"country_code,omitempty"`
	LocationName string   `json:"location_name,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`

	EventCode string `json:"event_code,omitempty"`
	BaseCode  string `json:"base_code,omitempty"`

	Goldstein float64 `json:"goldstein"`
	Tone      float64 `json:"tone"`
	Mentions  int     `json:"mentions"`
	Articles  int     `json:"articles"`
	Sources   int     `json:"sources"`

	// IngestedAt is stamped by the store writer, never by the normalizer,
	// so normalization stays idempotent.
	IngestedAt time.Time `json:"ingested_at,omitzero"`
}

// HasEmbedding reports whether an embedding vector is attached.
func (e CanonicalEvent) HasEmbedding() bool {
	return len(e.Embedding) > 0
}

// Bounds is a rectangular geographic region.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// PointRadius selects events within RadiusKm kilometers of a point.
type PointRadius struct {
	Center   Geo
	RadiusKm float64
}

// EventFilter is the query façade's filter specification. Zero-value
// fields mean "no constraint". Vector and SimilarText request a
// similarity query; when both are set, Vector wins.
type EventFilter struct {
	Bounds     *Bounds
	Near       *PointRadius
	From       time.Time
	To         time.Time
	Categories []string

	SimilarText string
	Vector      []float32

	Limit int64
}

// Similarity reports whether the filter asks for a vector-similarity query.
func (f EventFilter) Similarity() bool {
	return len(f.Vector) > 0 || f.SimilarText != ""
}

// EventCursor is a lazy, finite, non-restartable sequence of events.
// An exhausted cursor with a nil Err is a valid empty result.
type EventCursor interface {
	// Next advances the cursor, reporting false at the end of the
	// sequence or on error (check Err afterwards).
	Next(ctx context.Context) bool
	// Event returns the event decoded by the last successful Next.
	Event() CanonicalEvent
	Err() error
	Close(ctx context.Context) error
}
