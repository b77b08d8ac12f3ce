// Package domain models disaster events extracted from the GDELT project's
// daily event exports.
//
// # Data Source
//
// GDELT publishes a tab-separated 58-column CSV of globally monitored events
// every day at http://data.gdeltproject.org/events/{yyyymmdd}.export.CSV.zip.
// The fetcher downloads and unzips the file and hands each row to Normalize
// as a loosely-typed RawRecord. Only rows that look disaster-related (by
// CAMEO event code or actor-name keyword) reach the normalizer.
//
// # GDELT Conventions
//
// Event classification:
//
//	CAMEO event codes identify the interaction type. A fixed table maps the
//	disaster-relevant codes to the canonical vocabulary, e.g. 0231 earthquake,
//	0232 flood, 190 armed_conflict. Rows whose codes match nothing are
//	classified by keywords in the actor names ("EARTHQUAKE", "FLOOD", ...),
//	and fall back to "other". Classification never rejects a record; the
//	category is informational, unlike coordinates.
//
// Coordinates:
//
//	ActionGeo_Lat/ActionGeo_Long locate the event; Actor1Geo_* is the
//	fallback when the action geography is empty. Missing, non-numeric, or
//	out-of-range values ([-90,90] latitude, [-180,180] longitude) reject the
//	record with ErrInvalidCoordinate. Values are never clamped: a bad
//	coordinate will never become valid without upstream correction, so the
//	record is counted, logged, and skipped.
//
// Dates:
//
//	SQLDATE is the event date in yyyymmdd form (the date the event occurred,
//	not the ingestion date). An unparseable date rejects the record.
//
// Severity:
//
//	GDELT carries no severity field. A 1-5 ordinal is derived from three
//	signals: the Goldstein scale (more negative = more severe), the number
//	of media mentions, and the average tone. When any signal is present but
//	non-numeric the severity is left absent rather than guessed.
//
// # Identity
//
// GLOBALEVENTID is GDELT's stable per-event identifier and becomes the
// canonical ID. Upserts are keyed on it, so replaying a day's export leaves
// the store unchanged. Normalization reads no clock and no randomness:
// normalizing the same raw record twice yields bit-identical output.
package domain
