// Package pipeline orchestrates the fetch-normalize-embed-write loop.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/geofinch/disaster-monitor/internal/domain"
	"github.com/geofinch/disaster-monitor/internal/observability"
)

// Fetcher retrieves one day of raw feed records.
type Fetcher interface {
	FetchDay(ctx context.Context, day time.Time) ([]domain.RawRecord, error)
}

// Writer upserts canonical events, reporting a per-record outcome.
type Writer interface {
	UpsertBatch(ctx context.Context, events []domain.CanonicalEvent) []domain.WriteResult
}

// Summary is the per-run accounting reported after every ingestion run.
// Partial success is never silent: rejected and failed counts are always
// surfaced alongside the successes.
type Summary struct {
	RunID      string
	Fetched    int
	Normalized int
	Rejected   int
	Embedded   int
	Written    int
	Failed     int
}

func (s *Summary) add(o Summary) {
	s.Fetched += o.Fetched
	s.Normalized += o.Normalized
	s.Rejected += o.Rejected
	s.Embedded += o.Embedded
	s.Written += o.Written
	s.Failed += o.Failed
}

// Pipeline runs the single-threaded ingestion loop. Records are processed
// sequentially; cancellation is cooperative between records, and per-record
// atomicity is the store's upsert guarantee.
type Pipeline struct {
	fetcher  Fetcher
	writer   Writer
	embedder domain.Embedder // nil disables embedding
	geocoder domain.Geocoder // nil disables place backfill
	logger   *slog.Logger
	metrics  *observability.Metrics

	pollInterval time.Duration
	ready        atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(f Fetcher, w Writer, embedder domain.Embedder, geocoder domain.Geocoder,
	pollInterval time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		fetcher:      f,
		writer:       w,
		embedder:     embedder,
		geocoder:     geocoder,
		pollInterval: pollInterval,
		logger:       logger,
		metrics:      metrics,
	}
}

// CheckReadiness returns nil once at least one ingestion run has completed.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no ingestion run has completed yet")
	}
	return nil
}

// Run polls the feed until the context is cancelled. Each cycle ingests the
// previous UTC day, whose export is complete. Fetch failures back off
// exponentially; everything else is accounted per record and never stops
// the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "poll_interval", p.pollInterval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := 30 * time.Second
	maxBackoff := 10 * time.Minute

	for {
		day := domain.Now().UTC().AddDate(0, 0, -1)
		_, err := p.IngestDay(ctx, day)

		wait := p.pollInterval
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			p.logger.Error("ingestion run failed", "day", day.Format("2006-01-02"), "error", err)
			wait = backoff
			backoff = min(backoff*2, maxBackoff)
		} else {
			backoff = 30 * time.Second
		}

		if !sleepWithContext(ctx, wait) {
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// IngestWindow ingests every day in [from, to] inclusive. A failed day is
// logged and counted but does not abort the remaining days.
func (p *Pipeline) IngestWindow(ctx context.Context, from, to time.Time) (Summary, error) {
	total := Summary{RunID: uuid.NewString()}

	for day := from.UTC().Truncate(24 * time.Hour); !day.After(to.UTC()); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		sum, err := p.IngestDay(ctx, day)
		if err != nil {
			p.logger.Error("day ingestion failed", "day", day.Format("2006-01-02"), "error", err)
			continue
		}
		total.add(sum)
	}
	return total, nil
}

// IngestDay runs one fetch-normalize-embed-write cycle for a single day.
func (p *Pipeline) IngestDay(ctx context.Context, day time.Time) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	start := time.Now()
	logger := p.logger.With("run_id", sum.RunID, "day", day.UTC().Format("2006-01-02"))

	rawRecords, err := p.fetcher.FetchDay(ctx, day)
	if err != nil {
		return sum, err
	}
	sum.Fetched = len(rawRecords)
	p.metrics.RecordsFetched.Add(float64(sum.Fetched))

	events := make([]domain.CanonicalEvent, 0, len(rawRecords))
	for _, raw := range rawRecords {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}

		event, err := domain.Normalize(raw)
		if err != nil {
			// Permanent for this record: it will never become valid
			// without upstream correction. Count, log, move on.
			sum.Rejected++
			p.metrics.RecordsRejected.WithLabelValues(rejectReason(err)).Inc()
			logger.Warn("record rejected", "error", err)
			continue
		}
		sum.Normalized++
		p.metrics.RecordsNormalized.Inc()

		event = domain.EnrichWithPlace(ctx, event, p.geocoder, logger)

		event, err = domain.AttachEmbedding(ctx, event, p.embedder)
		if err != nil {
			// Recoverable: persist without the vector, backfill later.
			logger.Warn("embedding unavailable, persisting without vector",
				"event_id", event.ID, "error", err)
		} else if event.HasEmbedding() {
			sum.Embedded++
		}

		events = append(events, event)
	}

	for _, res := range p.writer.UpsertBatch(ctx, events) {
		if res.Err != nil {
			sum.Failed++
			continue
		}
		sum.Written++
	}

	p.metrics.IngestRunDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)

	logger.Info("ingestion run complete",
		"fetched", sum.Fetched,
		"normalized", sum.Normalized,
		"rejected", sum.Rejected,
		"embedded", sum.Embedded,
		"written", sum.Written,
		"failed", sum.Failed,
		"duration", time.Since(start),
	)
	return sum, nil
}

// rejectReason maps a normalization error to its metrics label.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCoordinate):
		return "coordinates"
	case errors.Is(err, domain.ErrInvalidTimestamp):
		return "timestamp"
	case errors.Is(err, domain.ErrMissingID):
		return "missing_id"
	default:
		return "other"
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
