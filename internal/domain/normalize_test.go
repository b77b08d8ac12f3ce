package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validRecord returns a raw record that normalizes cleanly. Tests mutate
// copies of it to probe individual fields.
func validRecord() RawRecord {
	return RawRecord{
		"GLOBALEVENTID":         "123456789",
		"SQLDATE":               "20250526",
		"Actor1Name":            "FLOOD",
		"Actor2Name":            "GOVERNMENT",
		"EventCode":             "0232",
		"EventBaseCode":         "023",
		"GoldsteinScale":        "-9.0",
		"NumMentions":           "120",
		"NumSources":            "12",
		"NumArticles":           "40",
		"AvgTone":               "-6.5",
		"ActionGeo_FullName":    "Bangalore, Karnataka, India",
		"ActionGeo_CountryCode": "IN",
		"ActionGeo_Lat":         "12.9",
		"ActionGeo_Long":        "77.6",
		"SOURCEURL":             "https://example.com/article",
	}
}

func TestNormalize_ValidRecord(t *testing.T) {
	event, err := Normalize(validRecord())
	require.NoError(t, err)

	assert.Equal(t, "123456789", event.ID)
	assert.Equal(t, time.Date(2025, time.May, 26, 0, 0, 0, 0, time.UTC), event.OccurredAt)
	assert.Equal(t, CategoryFlood, event.Category)
	assert.InEpsilon(t, 12.9, event.Geo.Lat, 1e-9)
	assert.InEpsilon(t, 77.6, event.Geo.Lon, 1e-9)
	assert.Equal(t, "IN", event.CountryCode)
	assert.Equal(t, "Bangalore, Karnataka, India", event.LocationName)
	assert.Equal(t, 120, event.Mentions)
	assert.Contains(t, event.Keywords, "flood")
	assert.True(t, event.IngestedAt.IsZero(), "normalizer must not stamp ingestion time")

	require.NotNil(t, event.Severity)
	// Goldstein -9 (+3), 120 mentions (+2), tone -6.5 (+1) caps at 5.
	assert.Equal(t, 5, *event.Severity)
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := validRecord()

	first, err := Normalize(raw)
	require.NoError(t, err)
	second, err := Normalize(raw)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first, second))
}

func TestNormalize_InvalidCoordinates(t *testing.T) {
	tests := []struct {
		name string
		lat  string
		lon  string
	}{
		{"latitude above range", "200", "10"},
		{"latitude below range", "-90.1", "10"},
		{"longitude above range", "45", "181"},
		{"longitude below range", "45", "-180.5"},
		{"non-numeric latitude", "north", "10"},
		{"non-numeric longitude", "45", "east"},
		{"missing latitude", "", "10"},
		{"missing longitude", "45", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRecord()
			raw["ActionGeo_Lat"] = tt.lat
			raw["ActionGeo_Long"] = tt.lon
			raw["Actor1Geo_Lat"] = ""
			raw["Actor1Geo_Long"] = ""

			_, err := Normalize(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidCoordinate)

			var invalid *InvalidRecordError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, "123456789", invalid.ID)
		})
	}
}

func TestNormalize_CoordinateFallbackToActor1Geo(t *testing.T) {
	raw := validRecord()
	raw["ActionGeo_Lat"] = ""
	raw["ActionGeo_Long"] = ""
	raw["Actor1Geo_Lat"] = "35.68"
	raw["Actor1Geo_Long"] = "139.69"

	event, err := Normalize(raw)
	require.NoError(t, err)
	assert.InEpsilon(t, 35.68, event.Geo.Lat, 1e-9)
	assert.InEpsilon(t, 139.69, event.Geo.Lon, 1e-9)
}

func TestNormalize_MissingID(t *testing.T) {
	raw := validRecord()
	raw["GLOBALEVENTID"] = "  "

	_, err := Normalize(raw)
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestNormalize_InvalidDate(t *testing.T) {
	for _, date := range []string{"", "not-a-date", "2025052"} {
		raw := validRecord()
		raw["SQLDATE"] = date

		_, err := Normalize(raw)
		assert.ErrorIs(t, err, ErrInvalidTimestamp, "date %q", date)
	}
}

func TestNormalize_CategoryFromEventCode(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"0231", CategoryEarthquake},
		{"0232", CategoryFlood},
		{"0233", CategoryDrought},
		{"0238", CategoryTsunami},
		{"190", CategoryArmedConflict},
		{"1284", CategoryNuclearIncident},
	}

	for _, tt := range tests {
		raw := validRecord()
		raw["EventCode"] = tt.code
		raw["EventBaseCode"] = ""
		raw["Actor1Name"] = ""
		raw["Actor2Name"] = ""

		event, err := Normalize(raw)
		require.NoError(t, err)
		assert.Equal(t, tt.want, event.Category, "code %s", tt.code)
	}
}

func TestNormalize_CategoryKeywordFallback(t *testing.T) {
	tests := []struct {
		actor string
		want  string
	}{
		{"EARTHQUAKE VICTIMS", CategoryEarthquake},
		{"HURRICANE SURVIVORS", CategoryStorm},
		{"WILDFIRE CREW", CategoryWildfire},
		{"BLAST SITE", CategoryExplosion},
		{"TRAIN CRASH", CategoryAccident},
	}

	for _, tt := range tests {
		raw := validRecord()
		raw["EventCode"] = "9999"
		raw["EventBaseCode"] = "999"
		raw["Actor1Name"] = tt.actor
		raw["Actor2Name"] = ""

		event, err := Normalize(raw)
		require.NoError(t, err)
		assert.Equal(t, tt.want, event.Category, "actor %q", tt.actor)
	}
}

func TestNormalize_UnrecognizedCategoryMapsToOther(t *testing.T) {
	raw := validRecord()
	raw["EventCode"] = "9999"
	raw["EventBaseCode"] = "999"
	raw["Actor1Name"] = "FARMERS"
	raw["Actor2Name"] = "TRADERS"

	event, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, CategoryOther, event.Category)
}

func TestNormalize_SeverityAbsentOnNonNumericSignals(t *testing.T) {
	for _, field := range []string{"GoldsteinScale", "AvgTone", "NumMentions"} {
		raw := validRecord()
		raw[field] = "moderate"

		event, err := Normalize(raw)
		require.NoError(t, err, "field %s", field)
		assert.Nil(t, event.Severity, "severity must be absent when %s is non-numeric", field)
	}
}

func TestNormalize_SeverityFloorsAtOne(t *testing.T) {
	raw := validRecord()
	raw["GoldsteinScale"] = "5.0"
	raw["NumMentions"] = "1"
	raw["AvgTone"] = "2.0"

	event, err := Normalize(raw)
	require.NoError(t, err)
	require.NotNil(t, event.Severity)
	assert.Equal(t, 1, *event.Severity)
}

func TestNormalize_EmptyDescriptionWhenNoText(t *testing.T) {
	raw := validRecord()
	raw["Actor1Name"] = ""
	raw["Actor2Name"] = ""
	raw["ActionGeo_FullName"] = ""

	event, err := Normalize(raw)
	require.NoError(t, err)
	assert.Empty(t, event.Description)
	assert.False(t, event.HasEmbedding())
}

func TestNormalize_DescriptionComposition(t *testing.T) {
	event, err := Normalize(validRecord())
	require.NoError(t, err)

	assert.Equal(t, "flood government bangalore, karnataka, india flood", event.Description)
}

func TestNormalize_FloodScenario(t *testing.T) {
	// Flood record with no descriptive text: category flood, no embedding.
	raw := RawRecord{
		"GLOBALEVENTID":  "e2",
		"SQLDATE":        "20250526",
		"EventCode":      "0232",
		"ActionGeo_Lat":  "12.9",
		"ActionGeo_Long": "77.6",
	}

	event, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, CategoryFlood, event.Category)
	assert.Empty(t, event.Description)
	assert.False(t, event.HasEmbedding())
	assert.Nil(t, event.Severity)
}

func TestDeriveSeverity_Thresholds(t *testing.T) {
	tests := []struct {
		name      string
		goldstein float64
		mentions  int
		tone      float64
		want      int
	}{
		{"mild everything", 0, 0, 0, 1},
		{"goldstein -2 boundary", -2, 0, 0, 1},
		{"goldstein -5 boundary", -5, 0, 0, 2},
		{"goldstein -8 boundary", -8, 0, 0, 3},
		{"heavy coverage", -8, 100, 0, 5},
		{"moderate coverage", -5, 50, 0, 3},
		{"negative tone adds one", -5, 50, -5, 4},
		{"score capped at five", -10, 500, -20, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deriveSeverity(tt.goldstein, tt.mentions, tt.tone)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	assert.ElementsMatch(t, []string{"flood", "storm"}, extractKeywords("FLOOD VICTIMS", "STORM CHASERS"))
	assert.Empty(t, extractKeywords("", ""))
	assert.Empty(t, extractKeywords("FARMERS", "TRADERS"))
}

func TestInvalidRecordError_Unwrap(t *testing.T) {
	err := &InvalidRecordError{ID: "x", Field: "coordinates", Err: ErrInvalidCoordinate}
	assert.True(t, errors.Is(err, ErrInvalidCoordinate))
	assert.Contains(t, err.Error(), "coordinates")
}
