// Command genmock writes a synthetic GDELT daily export zip so the pipeline
// can be exercised without network access. Point GDELT_BASE_URL at a static
// file server over the output directory.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -date 20250526
package main

import (
	"archive/zip"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// mockRow holds the fields we populate; every other export column is empty.
type mockRow struct {
	id        string
	eventCode string
	baseCode  string
	actor1    string
	actor2    string
	goldstein string
	mentions  string
	sources   string
	articles  string
	tone      string
	geoName   string
	geoCC     string
	lat       string
	lon       string
	sourceURL string
}

var mockRows = []mockRow{
	{id: "1001", eventCode: "0231", baseCode: "023", actor1: "EARTHQUAKE", actor2: "JAPAN",
		goldstein: "-9.5", mentions: "120", sources: "12", articles: "40", tone: "-7.2",
		geoName: "Sendai, Miyagi, Japan", geoCC: "JA", lat: "38.2682", lon: "140.8694",
		sourceURL: "https://example.com/quake"},
	{id: "1002", eventCode: "0232", baseCode: "023", actor1: "FLOOD", actor2: "",
		goldstein: "-5.0", mentions: "60", sources: "6", articles: "18", tone: "-4.1",
		geoName: "Bangalore, Karnataka, India", geoCC: "IN", lat: "12.9", lon: "77.6",
		sourceURL: "https://example.com/flood"},
	{id: "1003", eventCode: "190", baseCode: "190", actor1: "MILITARY", actor2: "REBELS",
		goldstein: "-10.0", mentions: "210", sources: "25", articles: "80", tone: "-9.8",
		geoName: "Khartoum, Sudan", geoCC: "SU", lat: "15.5881", lon: "32.5342",
		sourceURL: "https://example.com/conflict"},
	// Invalid coordinates: must be rejected by the normalizer, not clamped.
	{id: "1004", eventCode: "0232", baseCode: "023", actor1: "FLOOD", actor2: "",
		goldstein: "-5.0", mentions: "10", sources: "2", articles: "4", tone: "-2.0",
		geoName: "Nowhere", geoCC: "XX", lat: "200", lon: "10",
		sourceURL: "https://example.com/bad"},
}

// columnCount matches the GDELT 1.0 daily export format.
const columnCount = 58

func main() {
	out := flag.String("out", "data/mock", "output directory")
	date := flag.String("date", "", "export date (yyyymmdd)")
	flag.Parse()

	if *date == "" {
		flag.Usage()
		os.Exit(1)
	}
	if _, err := time.ParseInLocation("20060102", *date, time.UTC); err != nil {
		fmt.Fprintf(os.Stderr, "invalid -date: %v\n", err)
		os.Exit(1)
	}

	if err := writeExport(*out, *date); err != nil {
		fmt.Fprintf(os.Stderr, "genmock: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s/%s.export.CSV.zip (%d rows)\n", *out, *date, len(mockRows))
}

func writeExport(dir, date string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(dir, date+".export.CSV.zip")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create(date + ".export.CSV")
	if err != nil {
		return err
	}

	for _, row := range mockRows {
		if _, err := fmt.Fprintln(w, strings.Join(exportFields(row, date), "\t")); err != nil {
			return err
		}
	}
	return zw.Close()
}

// exportFields lays the mock values into the 58-column export row.
func exportFields(r mockRow, date string) []string {
	fields := make([]string, columnCount)
	fields[0] = r.id       // GLOBALEVENTID
	fields[1] = date       // SQLDATE
	fields[6] = r.actor1   // Actor1Name
	fields[16] = r.actor2  // Actor2Name
	fields[26] = r.eventCode
	fields[27] = r.baseCode
	fields[30] = r.goldstein // GoldsteinScale
	fields[31] = r.mentions  // NumMentions
	fields[32] = r.sources   // NumSources
	fields[33] = r.articles  // NumArticles
	fields[34] = r.tone      // AvgTone
	fields[50] = r.geoName   // ActionGeo_FullName
	fields[51] = r.geoCC     // ActionGeo_CountryCode
	fields[53] = r.lat       // ActionGeo_Lat
	fields[54] = r.lon       // ActionGeo_Long
	fields[57] = r.sourceURL // SOURCEURL
	return fields
}
