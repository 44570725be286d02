package storage

import (
	"context"
	"time"

	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

// Storage is the embedded state database used by the service
type Storage interface {
	FileStateStore
	VectorStore
	GraphStore
	HistoryStore

	Ping(ctx context.Context) error
	Close() error
}

// FileStateStore persists the last durable indexing state of each file
type FileStateStore interface {
	GetFileState(ctx context.Context, projectID, filePath string) (*FileState, error)
	PutFileState(ctx context.Context, state *FileState) error
	ListFileStates(ctx context.Context, projectID string) ([]*FileState, error)
	DeleteFileState(ctx context.Context, projectID, filePath string) error
	DeleteFileStates(ctx context.Context, projectID string) (int64, error)
}

// VectorStore is the embedded vector backend
type VectorStore interface {
	UpsertVectors(ctx context.Context, points []VectorPoint) error
	SearchVectors(ctx context.Context, query []float32, filter VectorFilter, limit int, minScore float64) ([]VectorMatch, error)
	ListVectorIDs(ctx context.Context, filter VectorFilter, limit int) ([]uint64, error)
	DeleteVectors(ctx context.Context, pointIDs []uint64) (int64, error)
}

// GraphStore is the embedded graph backend
type GraphStore interface {
	UpsertGraphNode(ctx context.Context, node types.GraphNode) error
	UpsertGraphEdge(ctx context.Context, edge types.GraphEdge) error
	GetGraphNode(ctx context.Context, id string) (*types.GraphNode, error)
	GraphNeighbors(ctx context.Context, id, relationType string, limit int) ([]Neighbor, error)
	DeleteGraphNodes(ctx context.Context, ids []string) (int64, error)
	DeleteGraphProject(ctx context.Context, projectID string) (int64, error)
}

// HistoryStore records executed searches
type HistoryStore interface {
	RecordSearch(ctx context.Context, entry *HistoryEntry) error
	ListSearchHistory(ctx context.Context, limit int) ([]*HistoryEntry, error)
}

// FileState is the durable result of indexing one file
type FileState struct {
	ProjectID   string
	FilePath    string
	ContentHash [32]byte
	EntityIDs   []string
	IndexedAt   time.Time
}

// VectorPoint is a stored vector with its payload
type VectorPoint struct {
	ID         uint64
	EntityID   string
	ProjectID  string
	EntityType string
	Vector     []float32
	Payload    map[string]any
}

// VectorFilter restricts vector queries. Empty fields match everything.
type VectorFilter struct {
	ProjectID  string
	EntityType string
}

// VectorMatch is a scored vector search hit
type VectorMatch struct {
	ID      uint64
	Score   float64
	Payload map[string]any
}

// Neighbor is a node adjacent to a queried node together with the connecting edge
type Neighbor struct {
	Node types.GraphNode
	Edge types.GraphEdge
}

// HistoryEntry is a recorded search
type HistoryEntry struct {
	ID          int64     `json:"id"`
	Query       string    `json:"query"`
	Mode        string    `json:"mode"`
	ProjectID   string    `json:"project_id,omitempty"`
	ResultCount int       `json:"result_count"`
	TookMs      int64     `json:"took_ms"`
	CreatedAt   time.Time `json:"created_at"`
}
