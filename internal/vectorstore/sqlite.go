package vectorstore

import (
	"context"
	"errors"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/storage"
)

// SQLiteBackend stores vectors in the embedded state database and scores
// them by brute-force cosine similarity
type SQLiteBackend struct {
	store storage.VectorStore
	ping  func(ctx context.Context) error
}

// NewSQLiteBackend creates a backend over the state database. The database
// is owned by the caller and is not closed by Close.
func NewSQLiteBackend(db *storage.SQLiteStorage) *SQLiteBackend {
	return &SQLiteBackend{store: db, ping: db.Ping}
}

// EnsureCollection is a no-op: the table is created by migrations and
// vectors of any dimension can coexist
func (b *SQLiteBackend) EnsureCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return errors.New("invalid dimension")
	}
	return nil
}

// Upsert stores points
func (b *SQLiteBackend) Upsert(ctx context.Context, points []Point) error {
	records := make([]storage.VectorPoint, len(points))
	for i, p := range points {
		records[i] = storage.VectorPoint{
			ID:         p.ID,
			EntityID:   payloadString(p.Payload, PayloadID),
			ProjectID:  payloadString(p.Payload, PayloadProjectID),
			EntityType: payloadString(p.Payload, PayloadType),
			Vector:     p.Vector,
			Payload:    p.Payload,
		}
	}
	return b.store.UpsertVectors(ctx, records)
}

// Search scores every stored vector matching the filter
func (b *SQLiteBackend) Search(ctx context.Context, query Query) ([]Hit, error) {
	matches, err := b.store.SearchVectors(ctx, query.Vector, toStorageFilter(query.Filter), query.Limit, query.ScoreThreshold)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, len(matches))
	for i, m := range matches {
		hits[i] = Hit{ID: m.ID, Score: m.Score, Payload: m.Payload}
	}
	return hits, nil
}

// ScrollIDs lists point ids matching the filter
func (b *SQLiteBackend) ScrollIDs(ctx context.Context, filter Filter, limit int) ([]uint64, error) {
	return b.store.ListVectorIDs(ctx, toStorageFilter(filter), limit)
}

// Delete removes points by id
func (b *SQLiteBackend) Delete(ctx context.Context, ids []uint64) error {
	_, err := b.store.DeleteVectors(ctx, ids)
	return err
}

// Ping checks the database connection
func (b *SQLiteBackend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

// Close is a no-op; the state database outlives the gateway
func (b *SQLiteBackend) Close() error {
	return nil
}

func toStorageFilter(f Filter) storage.VectorFilter {
	return storage.VectorFilter{ProjectID: f.ProjectID, EntityType: f.EntityType}
}

func payloadString(payload map[string]any, key string) string {
	s, _ := payload[key].(string)
	return s
}
