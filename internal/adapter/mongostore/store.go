// Package mongostore persists canonical events in MongoDB and translates
// query-façade filters into store queries. Geospatial and vector indexing
// are the store's job; this package only speaks its query language.
package mongostore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/geofinch/disaster-monitor/internal/domain"
	"github.com/geofinch/disaster-monitor/internal/observability"
)

// earthRadiusKm converts radius kilometers to radians for $centerSphere.
const earthRadiusKm = 6378.1

// Store wraps a MongoDB collection of canonical event documents.
type Store struct {
	client      *mongo.Client
	coll        *mongo.Collection
	vectorIndex string
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// Options configures a Store connection.
type Options struct {
	URI         string
	Database    string
	Collection  string
	Timeout     time.Duration
	VectorIndex string
}

// Connect establishes the MongoDB connection, pings it, and ensures the
// standard indexes exist. The vector index is Atlas-managed and only named
// here.
func Connect(ctx context.Context, opts Options, logger *slog.Logger, metrics *observability.Metrics) (*Store, error) {
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.Timeout).
		SetServerSelectionTimeout(opts.Timeout)

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &Store{
		client:      client,
		coll:        client.Database(opts.Database).Collection(opts.Collection),
		vectorIndex: opts.VectorIndex,
		logger:      logger,
		metrics:     metrics,
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// Close disconnects from MongoDB.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "disaster_type", Value: 1}}},
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

// UpsertBatch writes each event keyed by its identifier. A failure on one
// record never aborts the batch; per-record outcomes let the caller retry
// only the failed subset. The upsert uses $set, so a previously stored
// embedding survives a re-ingestion that carries none (embedding backfill
// and persist-without-embedding compose).
func (s *Store) UpsertBatch(ctx context.Context, events []domain.CanonicalEvent) []domain.WriteResult {
	results := make([]domain.WriteResult, 0, len(events))
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			results = append(results, domain.WriteResult{ID: event.ID, Err: err})
			continue
		}

		event.IngestedAt = domain.Now().UTC()
		doc := toDocument(event)

		_, err := s.coll.UpdateOne(ctx,
			bson.D{{Key: "event_id", Value: event.ID}},
			bson.D{{Key: "$set", Value: doc}},
			options.UpdateOne().SetUpsert(true),
		)
		if err != nil {
			s.metrics.WriteFailures.Inc()
			s.logger.Warn("upsert failed", "event_id", event.ID, "error", err)
			results = append(results, domain.WriteResult{ID: event.ID, Err: err})
			continue
		}
		s.metrics.RecordsWritten.Inc()
		results = append(results, domain.WriteResult{ID: event.ID})
	}
	return results
}

// Query translates the filter into a store query and returns a lazy cursor
// over the matches. Similarity queries run an Atlas $vectorSearch pipeline
// and come back in relevance order; plain filter queries are sorted by
// event date descending. An empty result is a valid outcome.
func (s *Store) Query(ctx context.Context, filter domain.EventFilter) (domain.EventCursor, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}

	if len(filter.Vector) > 0 {
		pipeline := buildVectorPipeline(filter, s.vectorIndex, limit)
		cur, err := s.coll.Aggregate(ctx, pipeline)
		if err != nil {
			return nil, fmt.Errorf("vector search: %w", err)
		}
		return &Cursor{cur: cur}, nil
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetLimit(limit)

	cur, err := s.coll.Find(ctx, buildFilter(filter), findOpts)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return &Cursor{cur: cur}, nil
}

// buildFilter translates the façade filter into a Find document.
func buildFilter(filter domain.EventFilter) bson.D {
	q := bson.D{}

	if dateRange := buildDateRange(filter); len(dateRange) > 0 {
		q = append(q, bson.E{Key: "date", Value: dateRange})
	}
	if len(filter.Categories) > 0 {
		q = append(q, bson.E{Key: "disaster_type", Value: bson.D{{Key: "$in", Value: filter.Categories}}})
	}

	switch {
	case filter.Bounds != nil:
		b := filter.Bounds
		q = append(q, bson.E{Key: "location", Value: bson.D{
			{Key: "$geoWithin", Value: bson.D{
				{Key: "$box", Value: bson.A{
					bson.A{b.MinLon, b.MinLat},
					bson.A{b.MaxLon, b.MaxLat},
				}},
			}},
		}})
	case filter.Near != nil:
		n := filter.Near
		// $centerSphere composes with sort, unlike $nearSphere.
		q = append(q, bson.E{Key: "location", Value: bson.D{
			{Key: "$geoWithin", Value: bson.D{
				{Key: "$centerSphere", Value: bson.A{
					bson.A{n.Center.Lon, n.Center.Lat},
					n.RadiusKm / earthRadiusKm,
				}},
			}},
		}})
	}

	return q
}

// buildVectorPipeline translates a similarity filter into a $vectorSearch
// aggregation. Atlas pre-filters support match expressions on indexed
// fields, so category and date constraints ride along; geographic bounds
// are not supported inside $vectorSearch and are applied as a second stage.
func buildVectorPipeline(filter domain.EventFilter, indexName string, limit int64) mongo.Pipeline {
	search := bson.D{
		{Key: "index", Value: indexName},
		{Key: "path", Value: "embedding"},
		{Key: "queryVector", Value: filter.Vector},
		{Key: "numCandidates", Value: limit * 10},
		{Key: "limit", Value: limit},
	}

	pre := bson.D{}
	if dateRange := buildDateRange(filter); len(dateRange) > 0 {
		pre = append(pre, bson.E{Key: "date", Value: dateRange})
	}
	if len(filter.Categories) > 0 {
		pre = append(pre, bson.E{Key: "disaster_type", Value: bson.D{{Key: "$in", Value: filter.Categories}}})
	}
	if len(pre) > 0 {
		search = append(search, bson.E{Key: "filter", Value: pre})
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$vectorSearch", Value: search}},
	}

	geoOnly := domain.EventFilter{Bounds: filter.Bounds, Near: filter.Near}
	if post := buildFilter(geoOnly); len(post) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: post}})
	}

	return pipeline
}

func buildDateRange(filter domain.EventFilter) bson.D {
	dateRange := bson.D{}
	if !filter.From.IsZero() {
		dateRange = append(dateRange, bson.E{Key: "$gte", Value: filter.From})
	}
	if !filter.To.IsZero() {
		dateRange = append(dateRange, bson.E{Key: "$lte", Value: filter.To})
	}
	return dateRange
}

// Cursor is a lazy, finite, non-restartable sequence of canonical events
// backed by a store cursor.
type Cursor struct {
	cur   *mongo.Cursor
	event domain.CanonicalEvent
	err   error
}

// Next advances to the next event, reporting false at the end of the
// sequence or on error (check Err afterwards).
func (c *Cursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if !c.cur.Next(ctx) {
		c.err = c.cur.Err()
		return false
	}

	var doc eventDocument
	if err := c.cur.Decode(&doc); err != nil {
		c.err = fmt.Errorf("decode event: %w", err)
		return false
	}
	c.event = fromDocument(doc)
	return true
}

// Event returns the event decoded by the last successful Next.
func (c *Cursor) Event() domain.CanonicalEvent { return c.event }

// Err returns the first error encountered while iterating.
func (c *Cursor) Err() error { return c.err }

// Close releases the underlying store cursor.
func (c *Cursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }
