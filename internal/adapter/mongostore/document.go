package mongostore

import (
	"time"

	"github.com/geofinch/disaster-monitor/internal/domain"
)

// eventDocument is the stored shape of a canonical event. The location is a
// GeoJSON Point ([lon, lat] order) so the 2dsphere index applies.
type eventDocument struct {
	EventID      string    `bson:"event_id"`
	Date         time.Time `bson:"date"`
	DisasterType string    `bson:"disaster_type"`
	Location     geoJSON   `bson:"location"`
	Severity     *int      `bson:"severity,omitempty"`
	Description  string    `bson:"description,omitempty"`
	Embedding    []float32 `bson:"embedding,omitempty"`
	Actor1       string    `bson:"actor1,omitempty"`
	Actor2       string    `bson:"actor2,omitempty"`
	CountryCode  string    `bson:"country_code,omitempty"`
	LocationName string    `bson:"location_name,omitempty"`
	SourceURL    string    `bson:"source_url,omitempty"`
	Keywords     []string  `bson:"keywords,omitempty"`
	EventCode    string    `bson:"event_code,omitempty"`
	BaseCode     string    `bson:"base_code,omitempty"`
	Goldstein    float64   `bson:"goldstein"`
	Tone         float64   `bson:"tone"`
	Mentions     int       `bson:"mentions"`
	Articles     int       `bson:"articles"`
	Sources      int       `bson:"sources"`
	IngestedAt   time.Time `bson:"ingested_at"`
}

type geoJSON struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"` // [lon, lat]
}

func toDocument(e domain.CanonicalEvent) eventDocument {
	return eventDocument{
		EventID:      e.ID,
		Date:         e.OccurredAt,
		DisasterType: e.Category,
		Location: geoJSON{
			Type:        "Point",
			Coordinates: []float64{e.Geo.Lon, e.Geo.Lat},
		},
		Severity:     e.Severity,
		Description:  e.Description,
		Embedding:    e.Embedding,
		Actor1:       e.Actor1,
		Actor2:       e.Actor2,
		CountryCode:  e.CountryCode,
		LocationName: e.LocationName,
		SourceURL:    e.SourceURL,
		Keywords:     e.Keywords,
		EventCode:    e.EventCode,
		BaseCode:     e.BaseCode,
		Goldstein:    e.Goldstein,
		Tone:         e.Tone,
		Mentions:     e.Mentions,
		Articles:     e.Articles,
		Sources:      e.Sources,
		IngestedAt:   e.IngestedAt,
	}
}

func fromDocument(d eventDocument) domain.CanonicalEvent {
	e := domain.CanonicalEvent{
		ID:           d.EventID,
		OccurredAt:   d.Date,
		Category:     d.DisasterType,
		Severity:     d.Severity,
		Description:  d.Description,
		Embedding:    d.Embedding,
		Actor1:       d.Actor1,
		Actor2:       d.Actor2,
		CountryCode:  d.CountryCode,
		LocationName: d.LocationName,
		SourceURL:    d.SourceURL,
		Keywords:     d.Keywords,
		EventCode:    d.EventCode,
		BaseCode:     d.BaseCode,
		Goldstein:    d.Goldstein,
		Tone:         d.Tone,
		Mentions:     d.Mentions,
		Articles:     d.Articles,
		Sources:      d.Sources,
		IngestedAt:   d.IngestedAt,
	}
	if len(d.Location.Coordinates) == 2 {
		e.Geo = domain.Geo{Lat: d.Location.Coordinates[1], Lon: d.Location.Coordinates[0]}
	}
	return e
}
