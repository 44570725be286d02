package graphstore

import (
	"context"
	"errors"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/storage"
	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

// SQLiteBackend stores the graph in the embedded state database
type SQLiteBackend struct {
	db *storage.SQLiteStorage
}

// NewSQLiteBackend creates a backend over the state database. The database
// is owned by the caller and is not closed by Close.
func NewSQLiteBackend(db *storage.SQLiteStorage) *SQLiteBackend {
	return &SQLiteBackend{db: db}
}

// UpsertNode inserts or updates a node
func (b *SQLiteBackend) UpsertNode(ctx context.Context, node types.GraphNode) error {
	return b.db.UpsertGraphNode(ctx, node)
}

// UpsertEdge inserts or updates an edge between existing nodes
func (b *SQLiteBackend) UpsertEdge(ctx context.Context, edge types.GraphEdge) error {
	return b.db.UpsertGraphEdge(ctx, edge)
}

// Neighbors returns 1-hop neighbours ordered by weight descending
func (b *SQLiteBackend) Neighbors(ctx context.Context, query NeighborQuery) ([]Neighbor, error) {
	rows, err := b.db.GraphNeighbors(ctx, query.ID, query.RelationType, query.Limit)
	if err != nil {
		return nil, err
	}
	neighbors := make([]Neighbor, len(rows))
	for i, r := range rows {
		neighbors[i] = Neighbor{Node: r.Node, Edge: r.Edge}
	}
	return neighbors, nil
}

// GetNode returns a node or ErrNodeNotFound
func (b *SQLiteBackend) GetNode(ctx context.Context, id string) (*types.GraphNode, error) {
	node, err := b.db.GetGraphNode(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNodeNotFound
	}
	return node, err
}

// DeleteNodes removes nodes and their edges
func (b *SQLiteBackend) DeleteNodes(ctx context.Context, ids []string) error {
	_, err := b.db.DeleteGraphNodes(ctx, ids)
	return err
}

// DeleteProject removes a project's edges and nodes
func (b *SQLiteBackend) DeleteProject(ctx context.Context, projectID string) error {
	_, err := b.db.DeleteGraphProject(ctx, projectID)
	return err
}

// Ping checks the database connection
func (b *SQLiteBackend) Ping(ctx context.Context) error {
	return b.db.Ping(ctx)
}

// Close is a no-op; the state database outlives the gateway
func (b *SQLiteBackend) Close() error {
	return nil
}
