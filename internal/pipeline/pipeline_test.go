package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geofinch/disaster-monitor/internal/domain"
	"github.com/geofinch/disaster-monitor/internal/observability"
)

var testDay = time.Date(2025, time.May, 26, 0, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	records []domain.RawRecord
	err     error
	calls   int
}

func (f *fakeFetcher) FetchDay(_ context.Context, _ time.Time) ([]domain.RawRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeWriter struct {
	written [][]domain.CanonicalEvent
	failIDs map[string]error
}

func (w *fakeWriter) UpsertBatch(_ context.Context, events []domain.CanonicalEvent) []domain.WriteResult {
	w.written = append(w.written, events)
	results := make([]domain.WriteResult, len(events))
	for i, e := range events {
		results[i] = domain.WriteResult{ID: e.ID, Err: w.failIDs[e.ID]}
	}
	return results
}

func (w *fakeWriter) all() []domain.CanonicalEvent {
	var out []domain.CanonicalEvent
	for _, batch := range w.written {
		out = append(out, batch...)
	}
	return out
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeEmbedder) Dimensions() int { return len(f.vec) }

func rawRecord(id string) domain.RawRecord {
	return domain.RawRecord{
		"GLOBALEVENTID":      id,
		"SQLDATE":            "20250526",
		"EventCode":          "0232",
		"Actor1Name":         "FLOOD",
		"ActionGeo_FullName": "Bangalore, India",
		"ActionGeo_Lat":      "12.9",
		"ActionGeo_Long":     "77.6",
	}
}

func newTestPipeline(f Fetcher, w Writer, embedder domain.Embedder) *Pipeline {
	return New(f, w, embedder, nil, time.Minute, slog.Default(), observability.NewMetricsForTesting())
}

func TestIngestDay_HappyPath(t *testing.T) {
	fetcher := &fakeFetcher{records: []domain.RawRecord{rawRecord("1"), rawRecord("2")}}
	writer := &fakeWriter{}
	embedder := &fakeEmbedder{vec: []float32{0.1, 0.2}}

	p := newTestPipeline(fetcher, writer, embedder)
	sum, err := p.IngestDay(context.Background(), testDay)
	require.NoError(t, err)

	assert.NotEmpty(t, sum.RunID)
	assert.Equal(t, 2, sum.Fetched)
	assert.Equal(t, 2, sum.Normalized)
	assert.Zero(t, sum.Rejected)
	assert.Equal(t, 2, sum.Embedded)
	assert.Equal(t, 2, sum.Written)
	assert.Zero(t, sum.Failed)

	events := writer.all()
	require.Len(t, events, 2)
	assert.True(t, events[0].HasEmbedding())
	assert.Equal(t, domain.CategoryFlood, events[0].Category)
}

func TestIngestDay_RejectedRecordsCounted(t *testing.T) {
	bad := rawRecord("bad")
	bad["ActionGeo_Lat"] = "200"

	fetcher := &fakeFetcher{records: []domain.RawRecord{rawRecord("1"), bad}}
	writer := &fakeWriter{}

	p := newTestPipeline(fetcher, writer, nil)
	sum, err := p.IngestDay(context.Background(), testDay)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Fetched)
	assert.Equal(t, 1, sum.Normalized)
	assert.Equal(t, 1, sum.Rejected)
	assert.Equal(t, 1, sum.Written)

	// Only the valid record reaches the writer.
	events := writer.all()
	require.Len(t, events, 1)
	assert.Equal(t, "1", events[0].ID)
}

func TestIngestDay_EmbeddingFailureStillWrites(t *testing.T) {
	fetcher := &fakeFetcher{records: []domain.RawRecord{rawRecord("1")}}
	writer := &fakeWriter{}
	embedder := &fakeEmbedder{err: errors.New("quota exceeded")}

	p := newTestPipeline(fetcher, writer, embedder)
	sum, err := p.IngestDay(context.Background(), testDay)
	require.NoError(t, err)

	assert.Zero(t, sum.Embedded)
	assert.Equal(t, 1, sum.Written, "record persists without its vector")

	events := writer.all()
	require.Len(t, events, 1)
	assert.False(t, events[0].HasEmbedding())
}

func TestIngestDay_WriteFailuresCounted(t *testing.T) {
	fetcher := &fakeFetcher{records: []domain.RawRecord{rawRecord("1"), rawRecord("2"), rawRecord("3")}}
	writer := &fakeWriter{failIDs: map[string]error{"2": errors.New("write conflict")}}

	p := newTestPipeline(fetcher, writer, nil)
	sum, err := p.IngestDay(context.Background(), testDay)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Written)
	assert.Equal(t, 1, sum.Failed)
}

func TestIngestDay_FetchErrorAborts(t *testing.T) {
	fetcher := &fakeFetcher{err: &domain.FetchError{URL: "http://feed/x.zip", Err: errors.New("status 502")}}
	writer := &fakeWriter{}

	p := newTestPipeline(fetcher, writer, nil)
	_, err := p.IngestDay(context.Background(), testDay)
	require.Error(t, err)

	var fetchErr *domain.FetchError
	assert.ErrorAs(t, err, &fetchErr)
	assert.Empty(t, writer.written)
}

func TestIngestDay_NoEmbedderSkipsEmbedding(t *testing.T) {
	fetcher := &fakeFetcher{records: []domain.RawRecord{rawRecord("1")}}
	writer := &fakeWriter{}

	p := newTestPipeline(fetcher, writer, nil)
	sum, err := p.IngestDay(context.Background(), testDay)
	require.NoError(t, err)

	assert.Zero(t, sum.Embedded)
	assert.Equal(t, 1, sum.Written)
}

func TestIngestDay_Cancellation(t *testing.T) {
	fetcher := &fakeFetcher{records: []domain.RawRecord{rawRecord("1")}}
	writer := &fakeWriter{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(fetcher, writer, nil)
	_, err := p.IngestDay(ctx, testDay)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngestWindow_AccumulatesAcrossDays(t *testing.T) {
	fetcher := &fakeFetcher{records: []domain.RawRecord{rawRecord("1")}}
	writer := &fakeWriter{}

	p := newTestPipeline(fetcher, writer, nil)
	sum, err := p.IngestWindow(context.Background(), testDay, testDay.AddDate(0, 0, 2))
	require.NoError(t, err)

	assert.Equal(t, 3, fetcher.calls)
	assert.Equal(t, 3, sum.Fetched)
	assert.Equal(t, 3, sum.Written)
}

func TestIngestWindow_FailedDayDoesNotAbort(t *testing.T) {
	fetcher := &flakyFetcher{failOn: 2, records: []domain.RawRecord{rawRecord("1")}}
	writer := &fakeWriter{}

	p := newTestPipeline(fetcher, writer, nil)
	sum, err := p.IngestWindow(context.Background(), testDay, testDay.AddDate(0, 0, 2))
	require.NoError(t, err)

	assert.Equal(t, 3, fetcher.calls)
	assert.Equal(t, 2, sum.Written, "the failed day is skipped, the rest proceed")
}

type flakyFetcher struct {
	failOn  int
	records []domain.RawRecord
	calls   int
}

func (f *flakyFetcher) FetchDay(_ context.Context, _ time.Time) ([]domain.RawRecord, error) {
	f.calls++
	if f.calls == f.failOn {
		return nil, errors.New("feed unavailable")
	}
	return f.records, nil
}

func TestCheckReadiness(t *testing.T) {
	fetcher := &fakeFetcher{records: nil}
	writer := &fakeWriter{}

	p := newTestPipeline(fetcher, writer, nil)
	require.Error(t, p.CheckReadiness(context.Background()))

	_, err := p.IngestDay(context.Background(), testDay)
	require.NoError(t, err)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestRejectReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&domain.InvalidRecordError{Err: domain.ErrInvalidCoordinate}, "coordinates"},
		{&domain.InvalidRecordError{Err: domain.ErrInvalidTimestamp}, "timestamp"},
		{&domain.InvalidRecordError{Err: domain.ErrMissingID}, "missing_id"},
		{errors.New("anything else"), "other"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, rejectReason(tt.err))
	}
}
