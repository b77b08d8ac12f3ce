package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geofinch/disaster-monitor/internal/domain"
)

type sliceCursor struct {
	events []domain.CanonicalEvent
	pos    int
}

func (c *sliceCursor) Next(_ context.Context) bool {
	if c.pos >= len(c.events) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Event() domain.CanonicalEvent { return c.events[c.pos-1] }

func (c *sliceCursor) Err() error { return nil }

func (c *sliceCursor) Close(_ context.Context) error { return nil }

type fakeStore struct {
	gotFilter domain.EventFilter
	events    []domain.CanonicalEvent
	err       error
}

func (s *fakeStore) Query(_ context.Context, filter domain.EventFilter) (domain.EventCursor, error) {
	s.gotFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	return &sliceCursor{events: s.events}, nil
}

type fixedEmbedder struct {
	vec []float32
	err error
}

func (f *fixedEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fixedEmbedder) Dimensions() int { return len(f.vec) }

func TestQuery_PassthroughFilter(t *testing.T) {
	store := &fakeStore{events: []domain.CanonicalEvent{{ID: "e1"}}}
	f := New(store, nil)

	filter := domain.EventFilter{Categories: []string{"flood"}, Limit: 10}
	cur, err := f.Query(context.Background(), filter)
	require.NoError(t, err)
	defer cur.Close(context.Background()) //nolint:errcheck

	assert.Equal(t, filter, store.gotFilter)
	require.True(t, cur.Next(context.Background()))
	assert.Equal(t, "e1", cur.Event().ID)
	assert.False(t, cur.Next(context.Background()))
}

func TestQuery_SimilarTextEmbedded(t *testing.T) {
	store := &fakeStore{}
	f := New(store, &fixedEmbedder{vec: []float32{0.1, 0.2}})

	_, err := f.Query(context.Background(), domain.EventFilter{SimilarText: "flooding in karnataka"})
	require.NoError(t, err)

	assert.Equal(t, []float32{0.1, 0.2}, store.gotFilter.Vector)
	assert.Equal(t, "flooding in karnataka", store.gotFilter.SimilarText)
}

func TestQuery_ExplicitVectorSkipsEmbedder(t *testing.T) {
	store := &fakeStore{}
	f := New(store, &fixedEmbedder{err: errors.New("must not be called")})

	vec := []float32{0.9}
	_, err := f.Query(context.Background(), domain.EventFilter{SimilarText: "flood", Vector: vec})
	require.NoError(t, err)
	assert.Equal(t, vec, store.gotFilter.Vector)
}

func TestQuery_SimilarTextWithoutEmbedder(t *testing.T) {
	f := New(&fakeStore{}, nil)

	_, err := f.Query(context.Background(), domain.EventFilter{SimilarText: "flood"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedder")
}

func TestQuery_EmbedderFailure(t *testing.T) {
	f := New(&fakeStore{}, &fixedEmbedder{err: errors.New("unavailable")})

	_, err := f.Query(context.Background(), domain.EventFilter{SimilarText: "flood"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed similarity query")
}

func TestQuery_EmptyResultIsNotError(t *testing.T) {
	store := &fakeStore{}
	f := New(store, nil)

	cur, err := f.Query(context.Background(), domain.EventFilter{})
	require.NoError(t, err)
	defer cur.Close(context.Background()) //nolint:errcheck

	assert.False(t, cur.Next(context.Background()))
	assert.NoError(t, cur.Err())
}
