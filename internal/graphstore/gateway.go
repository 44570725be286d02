package graphstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/retry"
	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

// Traversal bounds
const (
	DefaultDepth    = 2
	DefaultMaxNodes = 50
	MaxDepth        = 5
	MaxNodesLimit   = 500

	// MaxConnections caps the result of Connections
	MaxConnections = 50
)

// Gateway wraps a Backend with retries, traversal bounds and graceful degradation
type Gateway struct {
	backend Backend
	name    string
	retry   retry.Config
	logger  *slog.Logger
}

// Option configures a Gateway
type Option func(*Gateway)

// WithRetry overrides the retry policy for writes
func WithRetry(cfg retry.Config) Option {
	return func(g *Gateway) { g.retry = cfg }
}

// WithName sets the backend name reported by Name
func WithName(name string) Option {
	return func(g *Gateway) { g.name = name }
}

// NewGateway pings the backend; an unreachable backend leaves the gateway degraded
func NewGateway(ctx context.Context, backend Backend, logger *slog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		name:   "graph",
		retry:  retry.DefaultConfig(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(g)
	}

	if backend == nil {
		g.logger.Warn("graph store not configured, running degraded")
		return g
	}
	if err := backend.Ping(ctx); err != nil {
		g.logger.Warn("graph store unreachable, running degraded", "backend", g.name, "error", err)
		_ = backend.Close()
		return g
	}

	g.backend = backend
	return g
}

// Available reports whether a backend is connected
func (g *Gateway) Available() bool {
	return g.backend != nil
}

// Name returns the configured backend name
func (g *Gateway) Name() string {
	return g.name
}

// CreateNode upserts a node. The label is taken from props["name"] and the
// project from props["project_id"].
func (g *Gateway) CreateNode(ctx context.Context, id, nodeType string, props map[string]any) error {
	if g.backend == nil {
		return fmt.Errorf("create node %s: backend unavailable: %w", id, ErrDropped)
	}

	node := types.GraphNode{
		ID:         id,
		Type:       nodeType,
		Label:      stringProp(props, "name"),
		ProjectID:  stringProp(props, "project_id"),
		Properties: maps.Clone(props),
	}
	if node.Label == "" {
		node.Label = id
	}

	err := retry.DoErr(ctx, g.retry, func() error {
		return g.backend.UpsertNode(ctx, node)
	})
	if err != nil {
		g.logger.Warn("graph node write dropped", "entity_id", id, "error", err)
		return fmt.Errorf("create node %s: %v: %w", id, err, ErrDropped)
	}
	return nil
}

// CreateRelationship upserts a directed edge. A numeric props["weight"] sets the edge weight.
func (g *Gateway) CreateRelationship(ctx context.Context, from, to, relType, projectID string, props map[string]any) error {
	if g.backend == nil {
		return fmt.Errorf("create relationship %s -> %s: backend unavailable: %w", from, to, ErrDropped)
	}

	edge := types.GraphEdge{
		Source:     from,
		Target:     to,
		Type:       relType,
		ProjectID:  projectID,
		Properties: maps.Clone(props),
	}
	if w, ok := props["weight"].(float64); ok {
		edge.Weight = &w
		delete(edge.Properties, "weight")
	}

	// Missing endpoints are permanent and are not retried
	var permanent error
	err := retry.DoErr(ctx, g.retry, func() error {
		err := g.backend.UpsertEdge(ctx, edge)
		if errors.Is(err, ErrNodeNotFound) {
			permanent = err
			return nil
		}
		return err
	})
	if err == nil {
		err = permanent
	}
	if err != nil {
		g.logger.Warn("graph edge write dropped", "source", from, "target", to, "type", relType, "error", err)
		return fmt.Errorf("create relationship %s -> %s: %w: %w", from, to, err, ErrDropped)
	}
	return nil
}

// EntityGraph returns the bounded neighbourhood of id. The root counts as a
// node, nodes at distance depth are not expanded, and at most maxNodes
// distinct nodes are collected. Edges are reported only when both endpoints
// were collected. Unknown roots and backend failures yield an empty graph.
func (g *Gateway) EntityGraph(ctx context.Context, id string, depth, maxNodes int) types.Graph {
	depth, maxNodes = normalizeBounds(depth, maxNodes)
	graph := types.Graph{Nodes: []types.GraphNode{}, Edges: []types.GraphEdge{}}
	if g.backend == nil {
		return graph
	}

	root, err := g.backend.GetNode(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNodeNotFound) {
			g.logger.Warn("failed to load graph root", "entity_id", id, "error", err)
		}
		return graph
	}

	graph.Nodes = append(graph.Nodes, *root)
	seen := map[string]bool{root.ID: true}
	var candidates []types.GraphEdge
	frontier := []string{root.ID}

	for hop := 0; hop < depth && len(frontier) > 0 && len(graph.Nodes) < maxNodes; hop++ {
		var next []string
		for _, current := range frontier {
			if ctx.Err() != nil {
				return graph
			}
			neighbors, err := g.backend.Neighbors(ctx, NeighborQuery{ID: current, Limit: maxNodes})
			if err != nil {
				g.logger.Warn("failed to expand graph node", "entity_id", current, "error", err)
				continue
			}
			for _, nb := range neighbors {
				candidates = append(candidates, nb.Edge)
				if seen[nb.Node.ID] || len(graph.Nodes) >= maxNodes {
					continue
				}
				seen[nb.Node.ID] = true
				graph.Nodes = append(graph.Nodes, nb.Node)
				next = append(next, nb.Node.ID)
			}
		}
		frontier = next
	}

	type edgeKey struct{ source, target, relType string }
	emitted := make(map[edgeKey]bool, len(candidates))
	for _, e := range candidates {
		if !seen[e.Source] || !seen[e.Target] {
			continue
		}
		key := edgeKey{e.Source, e.Target, e.Type}
		if emitted[key] {
			continue
		}
		emitted[key] = true
		graph.Edges = append(graph.Edges, e)
	}
	return graph
}

// Connections returns the 1-hop neighbours of id ordered by weight
// descending, optionally restricted to one relation type
func (g *Gateway) Connections(ctx context.Context, id, relType string) []types.Connection {
	conns := []types.Connection{}
	if g.backend == nil {
		return conns
	}

	neighbors, err := g.backend.Neighbors(ctx, NeighborQuery{ID: id, RelationType: relType, Limit: MaxConnections})
	if err != nil {
		g.logger.Warn("failed to load connections", "entity_id", id, "error", err)
		return conns
	}

	for _, nb := range neighbors {
		if len(conns) >= MaxConnections {
			break
		}
		title := nb.Node.Label
		if title == "" {
			title = nb.Node.ID
		}
		conns = append(conns, types.Connection{
			ID:           nb.Node.ID,
			Type:         nb.Node.Type,
			Title:        title,
			RelationType: nb.Edge.Type,
			Score:        nb.Edge.EffectiveWeight(),
		})
	}
	return conns
}

// DeleteProject removes every node and relationship of a project, best effort
func (g *Gateway) DeleteProject(ctx context.Context, projectID string) {
	if g.backend == nil || projectID == "" {
		return
	}
	if err := g.backend.DeleteProject(ctx, projectID); err != nil {
		g.logger.Warn("failed to delete project graph", "project_id", projectID, "error", err)
	}
}

// DeleteEntities removes nodes and their relationships, best effort
func (g *Gateway) DeleteEntities(ctx context.Context, ids []string) {
	if g.backend == nil || len(ids) == 0 {
		return
	}
	if err := g.backend.DeleteNodes(ctx, ids); err != nil {
		g.logger.Warn("failed to delete graph nodes", "count", len(ids), "error", err)
	}
}

// Close releases the backend
func (g *Gateway) Close() error {
	if g.backend == nil {
		return nil
	}
	return g.backend.Close()
}

func normalizeBounds(depth, maxNodes int) (int, int) {
	if depth == 0 {
		depth = DefaultDepth
	}
	if maxNodes == 0 {
		maxNodes = DefaultMaxNodes
	}
	depth = min(max(depth, 1), MaxDepth)
	maxNodes = min(max(maxNodes, 1), MaxNodesLimit)
	return depth, maxNodes
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}
