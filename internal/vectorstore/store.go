// Package vectorstore is the vector store gateway. It maps entity ids to
// stable point ids, retries writes, and degrades to a no-op when the backend
// is unreachable so indexing and search keep running.
package vectorstore

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

// ErrDropped marks a write that did not reach the backend
var ErrDropped = errors.New("vector write dropped")

// Payload keys written for every entity
const (
	PayloadID        = "id"
	PayloadName      = "name"
	PayloadType      = "type"
	PayloadFilePath  = "file_path"
	PayloadProjectID = "project_id"
	PayloadContent   = "content"
	PayloadLineStart = "line_start"
	PayloadLineEnd   = "line_end"
)

// Backend is a concrete vector database
type Backend interface {
	// EnsureCollection creates the cosine collection of the given dimension if missing
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, query Query) ([]Hit, error)
	// ScrollIDs returns up to limit point ids matching filter
	ScrollIDs(ctx context.Context, filter Filter, limit int) ([]uint64, error)
	Delete(ctx context.Context, ids []uint64) error
	Ping(ctx context.Context) error
	Close() error
}

// Point is a vector with its payload
type Point struct {
	ID      uint64
	Vector  []float32
	Payload map[string]any
}

// Filter holds exact-match payload conditions, AND-ed. Empty fields are ignored.
type Filter struct {
	ProjectID  string
	EntityType string
}

// IsEmpty reports whether the filter has no conditions
func (f Filter) IsEmpty() bool {
	return f.ProjectID == "" && f.EntityType == ""
}

// Query is a backend similarity query
type Query struct {
	Vector         []float32
	Limit          int
	ScoreThreshold float64
	Filter         Filter
}

// Hit is a scored search result
type Hit struct {
	ID      uint64
	Score   float64
	Payload map[string]any
}

// EntityID returns the entity id carried in the payload
func (h Hit) EntityID() string {
	id, _ := h.Payload[PayloadID].(string)
	return id
}

// PointID maps an entity id to a backend point id: the first eight bytes of
// its SHA-256, big-endian, masked to 63 bits so it fits a signed integer column.
func PointID(entityID string) uint64 {
	sum := sha256.Sum256([]byte(entityID))
	return binary.BigEndian.Uint64(sum[:8]) & (1<<63 - 1)
}
