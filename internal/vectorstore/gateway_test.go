package vectorstore

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/logging"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/retry"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/storage"
)

var fastRetry = retry.Config{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

func newSQLiteGateway(t *testing.T) *Gateway {
	t.Helper()
	db, err := storage.NewSQLiteStorage(context.Background(), storage.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	g := NewGateway(context.Background(), NewSQLiteBackend(db), 3, logging.NewDiscard(), WithRetry(fastRetry))
	require.True(t, g.Available())
	return g
}

// failingBackend fails every call after construction
type failingBackend struct {
	pingErr   error
	upserts   atomic.Int32
	closed    atomic.Bool
	failWrite bool
}

func (f *failingBackend) EnsureCollection(context.Context, int) error { return nil }
func (f *failingBackend) Upsert(context.Context, []Point) error {
	f.upserts.Add(1)
	if f.failWrite {
		return errors.New("write refused")
	}
	return nil
}
func (f *failingBackend) Search(context.Context, Query) ([]Hit, error) {
	return nil, errors.New("search refused")
}
func (f *failingBackend) ScrollIDs(context.Context, Filter, int) ([]uint64, error) {
	return nil, errors.New("scroll refused")
}
func (f *failingBackend) Delete(context.Context, []uint64) error { return errors.New("delete refused") }
func (f *failingBackend) Ping(context.Context) error { return f.pingErr }
func (f *failingBackend) Close() error {
	f.closed.Store(true)
	return nil
}

func TestPointID(t *testing.T) {
	a := PointID("p1:a.py::foo")
	assert.Equal(t, a, PointID("p1:a.py::foo"), "mapping must be stable")
	assert.NotEqual(t, a, PointID("p1:a.py::bar"))
	assert.Zero(t, a>>63, "top bit must be clear")
}

func TestGatewayUpsertAndSearch(t *testing.T) {
	g := newSQLiteGateway(t)
	ctx := context.Background()

	payload := map[string]any{PayloadName: "foo", PayloadType: "function", PayloadProjectID: "p1"}
	require.NoError(t, g.Upsert(ctx, "p1:a.py::foo", []float32{1, 0, 0}, payload))
	require.NoError(t, g.Upsert(ctx, "p1:b.md", []float32{0, 1, 0}, map[string]any{PayloadType: "documentation", PayloadProjectID: "p1"}))
	require.NoError(t, g.Upsert(ctx, "p2:c.py", []float32{1, 0.1, 0}, map[string]any{PayloadType: "file", PayloadProjectID: "p2"}))
	assert.NotContains(t, payload, PayloadID, "caller payload must not be mutated")

	hits := g.Search(ctx, []float32{1, 0, 0}, SearchOptions{Limit: 10})
	require.Len(t, hits, 3)
	assert.Equal(t, "p1:a.py::foo", hits[0].EntityID())
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}

	hits = g.Search(ctx, []float32{1, 0, 0}, SearchOptions{Limit: 10, ProjectID: "p1", EntityType: "function"})
	require.Len(t, hits, 1)
	assert.Equal(t, "foo", hits[0].Payload[PayloadName])

	// Re-upserting the same entity replaces the point
	require.NoError(t, g.Upsert(ctx, "p1:a.py::foo", []float32{0, 0, 1}, payload))
	hits = g.Search(ctx, []float32{0, 0, 1}, SearchOptions{Limit: 10, ScoreThreshold: 0.9})
	require.Len(t, hits, 1)
	assert.Equal(t, "p1:a.py::foo", hits[0].EntityID())
}

func TestGatewayScoreThreshold(t *testing.T) {
	g := newSQLiteGateway(t)
	ctx := context.Background()

	require.NoError(t, g.Upsert(ctx, "p1:a", []float32{1, 2, 2}, nil))
	require.NoError(t, g.Upsert(ctx, "p1:b", []float32{0, 1, 1}, nil))

	// Both items score below 0.5 against the query
	hits := g.Search(ctx, []float32{1, 0, 0}, SearchOptions{Limit: 10, ScoreThreshold: 0.9})
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestGatewayDeleteByProject(t *testing.T) {
	g := newSQLiteGateway(t)
	ctx := context.Background()

	for _, id := range []string{"p1:a", "p1:b", "p1:c"} {
		require.NoError(t, g.Upsert(ctx, id, []float32{1, 0, 0}, map[string]any{PayloadProjectID: "p1"}))
	}
	require.NoError(t, g.Upsert(ctx, "p2:a", []float32{1, 0, 0}, map[string]any{PayloadProjectID: "p2"}))

	assert.Equal(t, 3, g.DeleteByProject(ctx, "p1"))
	assert.Empty(t, g.Search(ctx, []float32{1, 0, 0}, SearchOptions{Limit: 10, ProjectID: "p1"}))
	assert.Len(t, g.Search(ctx, []float32{1, 0, 0}, SearchOptions{Limit: 10}), 1)

	assert.Zero(t, g.DeleteByProject(ctx, "p1"))
}

func TestGatewayDeleteEntities(t *testing.T) {
	g := newSQLiteGateway(t)
	ctx := context.Background()

	require.NoError(t, g.Upsert(ctx, "p1:a", []float32{1, 0, 0}, nil))
	require.NoError(t, g.Upsert(ctx, "p1:b", []float32{1, 0, 0}, nil))

	g.DeleteEntities(ctx, []string{"p1:a"})
	hits := g.Search(ctx, []float32{1, 0, 0}, SearchOptions{Limit: 10})
	require.Len(t, hits, 1)
	assert.Equal(t, "p1:b", hits[0].EntityID())
}

func TestGatewayDegraded(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		backend Backend
	}{
		{"nil backend", nil},
		{"unreachable backend", &failingBackend{pingErr: errors.New("connection refused")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGateway(ctx, tt.backend, 3, logging.NewDiscard())
			assert.False(t, g.Available())

			err := g.Upsert(ctx, "p1:a", []float32{1, 0, 0}, nil)
			assert.ErrorIs(t, err, ErrDropped)

			hits := g.Search(ctx, []float32{1, 0, 0}, SearchOptions{Limit: 10})
			assert.NotNil(t, hits)
			assert.Empty(t, hits)

			assert.Zero(t, g.DeleteByProject(ctx, "p1"))
			g.DeleteEntities(ctx, []string{"p1:a"})
			assert.NoError(t, g.Close())
		})
	}

	unreachable := &failingBackend{pingErr: errors.New("down")}
	NewGateway(ctx, unreachable, 3, logging.NewDiscard())
	assert.True(t, unreachable.closed.Load(), "refused backend is released")
}

func TestGatewayFailuresAfterStartup(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{failWrite: true}
	g := NewGateway(ctx, backend, 3, logging.NewDiscard(), WithRetry(fastRetry))
	require.True(t, g.Available())

	err := g.Upsert(ctx, "p1:a", []float32{1, 0, 0}, nil)
	assert.ErrorIs(t, err, ErrDropped)
	assert.Equal(t, int32(2), backend.upserts.Load(), "write is retried")

	assert.Empty(t, g.Search(ctx, []float32{1, 0, 0}, SearchOptions{Limit: 5}))
	assert.Zero(t, g.DeleteByProject(ctx, "p1"))
}
