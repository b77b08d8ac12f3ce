// Package gdelt fetches daily event exports from the GDELT project feed.
package gdelt

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geofinch/disaster-monitor/internal/domain"
	"github.com/geofinch/disaster-monitor/internal/observability"
)

// columns are the 58 tab-separated fields of a GDELT 1.0 daily export row,
// in file order. The export carries no header line.
var columns = []string{
	"GLOBALEVENTID", "SQLDATE", "MonthYear", "Year", "FractionDate",
	"Actor1Code", "Actor1Name", "Actor1CountryCode", "Actor1KnownGroupCode",
	"Actor1EthnicCode", "Actor1Religion1Code", "Actor1Religion2Code",
	"Actor1Type1Code", "Actor1Type2Code", "Actor1Type3Code",
	"Actor2Code", "Actor2Name", "Actor2CountryCode", "Actor2KnownGroupCode",
	"Actor2EthnicCode", "Actor2Religion1Code", "Actor2Religion2Code",
	"Actor2Type1Code", "Actor2Type2Code", "Actor2Type3Code",
	"IsRootEvent", "EventCode", "EventBaseCode", "EventRootCode",
	"QuadClass", "GoldsteinScale", "NumMentions", "NumSources",
	"NumArticles", "AvgTone", "Actor1Geo_Type", "Actor1Geo_FullName",
	"Actor1Geo_CountryCode", "Actor1Geo_ADM1Code", "Actor1Geo_Lat",
	"Actor1Geo_Long", "Actor1Geo_FeatureID", "Actor2Geo_Type",
	"Actor2Geo_FullName", "Actor2Geo_CountryCode", "Actor2Geo_ADM1Code",
	"Actor2Geo_Lat", "Actor2Geo_Long", "Actor2Geo_FeatureID",
	"ActionGeo_Type", "ActionGeo_FullName", "ActionGeo_CountryCode",
	"ActionGeo_ADM1Code", "ActionGeo_Lat", "ActionGeo_Long",
	"ActionGeo_FeatureID", "DATEADDED", "SOURCEURL",
}

// actorKeywords pre-filters rows whose actor names look disaster-related
// even when their CAMEO codes are not in the disaster table.
var actorKeywords = []string{
	"EARTHQUAKE", "FLOOD", "FIRE", "STORM", "HURRICANE", "EXPLOSION",
}

// Client downloads and parses GDELT daily exports.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    int
	logger     *slog.Logger
	metrics    *observability.Metrics

	disasterCodes map[string]bool
}

// NewClient creates a GDELT feed client. retries bounds download attempts
// per day file; timeout applies to each attempt.
func NewClient(baseURL string, timeout time.Duration, retries int, logger *slog.Logger, metrics *observability.Metrics) *Client {
	codes := make(map[string]bool)
	for _, c := range domain.DisasterEventCodes() {
		codes[c] = true
	}
	return &Client{
		baseURL:       strings.TrimSuffix(baseURL, "/"),
		httpClient:    &http.Client{Timeout: timeout},
		retries:       retries,
		logger:        logger,
		metrics:       metrics,
		disasterCodes: codes,
	}
}

// FetchDay downloads the export for the given date and returns the
// disaster-related rows as raw records. Transient failures are retried
// with exponential backoff up to the configured attempt count; exhaustion
// returns a *domain.FetchError.
func (c *Client) FetchDay(ctx context.Context, day time.Time) ([]domain.RawRecord, error) {
	url := fmt.Sprintf("%s/%s.export.CSV.zip", c.baseURL, day.UTC().Format("20060102"))
	start := time.Now()

	var body []byte
	var err error
	backoff := 500 * time.Millisecond
	for attempt := 1; attempt <= c.retries; attempt++ {
		body, err = c.download(ctx, url)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, &domain.FetchError{URL: url, Err: ctx.Err()}
		}
		c.logger.Warn("gdelt download failed",
			"url", url, "attempt", attempt, "error", err)
		if attempt == c.retries {
			return nil, &domain.FetchError{URL: url, Err: err}
		}
		if !sleepWithContext(ctx, backoff) {
			return nil, &domain.FetchError{URL: url, Err: ctx.Err()}
		}
		backoff *= 2
	}

	records, err := c.parseExport(body, day)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}

	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	c.logger.Info("gdelt export fetched",
		"day", day.UTC().Format("2006-01-02"),
		"disaster_rows", len(records),
	)
	return records, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		return nil, fmt.Errorf("gdelt feed: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// parseExport unzips the export in memory and converts the disaster-related
// rows into raw records.
func (c *Client) parseExport(data []byte, day time.Time) ([]domain.RawRecord, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open export zip: %w", err)
	}
	if len(zr.File) == 0 {
		return nil, fmt.Errorf("export zip for %s is empty", day.UTC().Format("20060102"))
	}

	f, err := zr.File[0].Open()
	if err != nil {
		return nil, fmt.Errorf("open export csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1 // some rows miss trailing fields
	r.LazyQuotes = true

	var records []domain.RawRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read export row: %w", err)
		}

		rec := make(domain.RawRecord, len(columns))
		for i, name := range columns {
			if i < len(row) {
				rec[name] = row[i]
			}
		}
		if c.disasterRelated(rec) {
			records = append(records, rec)
		}
	}
	return records, nil
}

// disasterRelated keeps rows whose event codes are in the disaster table or
// whose actor names mention a disaster keyword.
func (c *Client) disasterRelated(rec domain.RawRecord) bool {
	if c.disasterCodes[rec["EventCode"]] || c.disasterCodes[rec["EventBaseCode"]] {
		return true
	}
	actors := strings.ToUpper(rec["Actor1Name"] + " " + rec["Actor2Name"])
	for _, kw := range actorKeywords {
		if strings.Contains(actors, kw) {
			return true
		}
	}
	return false
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
