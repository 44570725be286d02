// Package graphstore is the graph store gateway. Backends only answer 1-hop
// neighbour queries; the bounded breadth-first expansion runs here so every
// backend shares the same limits.
package graphstore

import (
	"context"
	"errors"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/storage"
	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

var (
	// ErrDropped marks a write that did not reach the backend
	ErrDropped = errors.New("graph write dropped")
	// ErrNodeNotFound is returned for missing nodes and for edges whose endpoints are missing
	ErrNodeNotFound = storage.ErrNodeNotFound
)

// Backend is a concrete graph database
type Backend interface {
	UpsertNode(ctx context.Context, node types.GraphNode) error
	UpsertEdge(ctx context.Context, edge types.GraphEdge) error
	// Neighbors returns 1-hop neighbours in both directions ordered by edge weight descending
	Neighbors(ctx context.Context, query NeighborQuery) ([]Neighbor, error)
	GetNode(ctx context.Context, id string) (*types.GraphNode, error)
	DeleteNodes(ctx context.Context, ids []string) error
	// DeleteProject removes a project's relationships, then its nodes
	DeleteProject(ctx context.Context, projectID string) error
	Ping(ctx context.Context) error
	Close() error
}

// NeighborQuery selects the neighbours of one node
type NeighborQuery struct {
	ID           string
	RelationType string // empty matches every relation
	Limit        int    // <= 0 means unlimited
}

// Neighbor is an adjacent node with the edge that connects it
type Neighbor struct {
	Node types.GraphNode
	Edge types.GraphEdge
}
