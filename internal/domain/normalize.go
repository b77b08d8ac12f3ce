package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// disasterCodes maps CAMEO event codes to canonical categories.
var disasterCodes = map[string]string{
	// Natural disasters.
	"0231": CategoryEarthquake,
	"0232": CategoryFlood,
	"0233": CategoryDrought,
	"0234": CategoryHurricaneTyphoon,
	"0235": CategoryWildfire,
	"0236": CategoryVolcanic,
	"0237": CategoryLandslide,
	"0238": CategoryTsunami,
	// Man-made disasters.
	"180":  CategoryTerroristAttack,
	"190":  CategoryArmedConflict,
	"200":  CategoryExplosion,
	"145":  CategoryIndustrial,
	"1283": CategoryChemicalSpill,
	"1284": CategoryNuclearIncident,
}

// DisasterEventCodes returns the CAMEO codes the fetcher pre-filters on.
func DisasterEventCodes() []string {
	codes := make([]string, 0, len(disasterCodes))
	for code := range disasterCodes {
		codes = append(codes, code)
	}
	return codes
}

// disasterKeywords are scanned in actor names, both to extract keyword tags
// and as a classification fallback when no CAMEO code matches.
var disasterKeywords = []string{
	"earthquake", "flood", "fire", "storm", "hurricane", "typhoon",
	"drought", "tsunami", "volcano", "landslide", "avalanche",
	"explosion", "accident", "spill", "leak", "collapse",
}

// Normalize converts one raw GDELT row into a CanonicalEvent or rejects it
// with an *InvalidRecordError. It is idempotent: the same input always
// produces the same output (no clock reads, no randomness — IngestedAt is
// stamped later by the store writer).
func Normalize(raw RawRecord) (CanonicalEvent, error) {
	id := strings.TrimSpace(raw["GLOBALEVENTID"])
	if id == "" {
		return CanonicalEvent{}, &InvalidRecordError{Field: "GLOBALEVENTID", Err: ErrMissingID}
	}

	geo, err := parseCoordinates(raw)
	if err != nil {
		return CanonicalEvent{}, &InvalidRecordError{ID: id, Field: "coordinates", Err: err}
	}

	occurredAt, err := parseSQLDate(raw["SQLDATE"])
	if err != nil {
		return CanonicalEvent{}, &InvalidRecordError{ID: id, Field: "SQLDATE", Err: err}
	}

	actor1 := strings.TrimSpace(raw["Actor1Name"])
	actor2 := strings.TrimSpace(raw["Actor2Name"])
	eventCode := strings.TrimSpace(raw["EventCode"])
	baseCode := strings.TrimSpace(raw["EventBaseCode"])
	keywords := extractKeywords(actor1, actor2)

	locationName := firstNonEmpty(raw["ActionGeo_FullName"], raw["Actor1Geo_FullName"])
	countryCode := firstNonEmpty(raw["ActionGeo_CountryCode"], raw["Actor1Geo_CountryCode"])

	event := CanonicalEvent{
		ID:           id,
		OccurredAt:   occurredAt,
		Category:     classifyCategory(eventCode, baseCode, actor1, actor2),
		Geo:          geo,
		Actor1:       actor1,
		Actor2:       actor2,
		CountryCode:  countryCode,
		LocationName: locationName,
		SourceURL:    strings.TrimSpace(raw["SOURCEURL"]),
		Keywords:     keywords,
		EventCode:    eventCode,
		BaseCode:     baseCode,
		Mentions:     parseIntOrZero(raw["NumMentions"]),
		Articles:     parseIntOrZero(raw["NumArticles"]),
		Sources:      parseIntOrZero(raw["NumSources"]),
	}

	goldstein, okG := parseFloat(raw["GoldsteinScale"])
	tone, okT := parseFloat(raw["AvgTone"])
	mentions, okM := parseFloat(raw["NumMentions"])
	event.Goldstein = goldstein
	event.Tone = tone
	if okG && okT && okM {
		event.Severity = deriveSeverity(goldstein, int(mentions), tone)
	}

	event.Description = composeDescription(actor1, actor2, locationName, keywords)

	return event, nil
}

// parseCoordinates reads the action geography, falling back to actor 1's.
// Missing, non-numeric, or out-of-range values are rejected, never clamped.
func parseCoordinates(raw RawRecord) (Geo, error) {
	latStr := firstNonEmpty(raw["ActionGeo_Lat"], raw["Actor1Geo_Lat"])
	lonStr := firstNonEmpty(raw["ActionGeo_Long"], raw["Actor1Geo_Long"])
	if latStr == "" || lonStr == "" {
		return Geo{}, fmt.Errorf("%w: missing lat/lon", ErrInvalidCoordinate)
	}

	lat, okLat := parseFloat(latStr)
	lon, okLon := parseFloat(lonStr)
	if !okLat || !okLon {
		return Geo{}, fmt.Errorf("%w: non-numeric lat=%q lon=%q", ErrInvalidCoordinate, latStr, lonStr)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Geo{}, fmt.Errorf("%w: out of range lat=%g lon=%g", ErrInvalidCoordinate, lat, lon)
	}
	return Geo{Lat: lat, Lon: lon}, nil
}

// parseSQLDate parses GDELT's yyyymmdd event date into a UTC time.
func parseSQLDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.ParseInLocation("20060102", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	return t, nil
}

// classifyCategory maps CAMEO codes to the canonical vocabulary, falling
// back to actor-name keywords and finally to CategoryOther. A table miss is
// not an error: category is informational, unlike coordinates.
func classifyCategory(eventCode, baseCode, actor1, actor2 string) string {
	if c, ok := disasterCodes[eventCode]; ok {
		return c
	}
	if c, ok := disasterCodes[baseCode]; ok {
		return c
	}

	text := strings.ToLower(actor1 + " " + actor2)
	switch {
	case containsAny(text, "earthquake", "quake"):
		return CategoryEarthquake
	case containsAny(text, "flood", "flooding"):
		return CategoryFlood
	case containsAny(text, "wildfire", "fire"):
		return CategoryWildfire
	case containsAny(text, "storm", "hurricane", "typhoon", "cyclone"):
		return CategoryStorm
	case containsAny(text, "explosion", "blast"):
		return CategoryExplosion
	case containsAny(text, "accident", "crash"):
		return CategoryAccident
	default:
		return CategoryOther
	}
}

// deriveSeverity scores an event 1-5 from its Goldstein scale, media
// mention count, and average tone. Thresholds follow the heuristic that
// more negative Goldstein/tone and heavier coverage mean a worse event.
func deriveSeverity(goldstein float64, mentions int, tone float64) *int {
	score := 0

	switch {
	case goldstein <= -8:
		score += 3
	case goldstein <= -5:
		score += 2
	case goldstein <= -2:
		score += 1
	}

	switch {
	case mentions >= 100:
		score += 2
	case mentions >= 50:
		score += 1
	}

	if tone <= -5 {
		score++
	}

	s := min(max(score, 1), 5)
	return &s
}

// extractKeywords collects disaster terms appearing in the actor names.
func extractKeywords(actor1, actor2 string) []string {
	text := strings.ToLower(actor1 + " " + actor2)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var found []string
	for _, kw := range disasterKeywords {
		if strings.Contains(text, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// composeDescription builds the free-text summary used for embeddings from
// the actor names, location, and extracted keywords. Deterministic, and
// empty when the row carries no descriptive text at all.
func composeDescription(actor1, actor2, locationName string, keywords []string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{actor1, actor2, locationName} {
		if strings.TrimSpace(p) != "" {
			parts = append(parts, p)
		}
	}
	if len(keywords) > 0 {
		parts = append(parts, strings.Join(keywords, " "))
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseIntOrZero(s string) int {
	v, ok := parseFloat(s)
	if !ok {
		return 0
	}
	return int(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func containsAny(text string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(text, sub) {
			return true
		}
	}
	return false
}
