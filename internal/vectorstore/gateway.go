package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sort"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/retry"
)

const (
	// DeletePageSize is the number of ids scrolled per delete round
	DeletePageSize = 1000
	// MaxDeletePages bounds the delete loop
	MaxDeletePages = 10000
)

// SearchOptions are the caller-facing search parameters
type SearchOptions struct {
	Limit          int
	ScoreThreshold float64
	ProjectID      string
	EntityType     string
}

// Gateway wraps a Backend with retries and graceful degradation.
// It is safe for concurrent use when the backend is.
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

// NewGateway verifies the backend and ensures the collection exists. If either
// step fails the gateway starts degraded and every call becomes a no-op.
func NewGateway(ctx context.Context, backend Backend, dim int, logger *slog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		name:   "vector",
		retry:  retry.DefaultConfig(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(g)
	}

	if backend == nil {
		g.logger.Warn("vector store not configured, running degraded")
		return g
	}

	if err := backend.Ping(ctx); err != nil {
		g.logger.Warn("vector store unreachable, running degraded", "backend", g.name, "error", err)
		_ = backend.Close()
		return g
	}
	if err := backend.EnsureCollection(ctx, dim); err != nil {
		g.logger.Warn("failed to ensure vector collection, running degraded", "backend", g.name, "error", err)
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

// Upsert stores the vector of an entity. A dropped write returns an error
// wrapping ErrDropped; callers treat it as soft.
func (g *Gateway) Upsert(ctx context.Context, entityID string, vector []float32, payload map[string]any) error {
	if g.backend == nil {
		return fmt.Errorf("upsert %s: backend unavailable: %w", entityID, ErrDropped)
	}

	stored := make(map[string]any, len(payload)+1)
	maps.Copy(stored, payload)
	stored[PayloadID] = entityID
	point := Point{ID: PointID(entityID), Vector: vector, Payload: stored}

	err := retry.DoErr(ctx, g.retry, func() error {
		return g.backend.Upsert(ctx, []Point{point})
	})
	if err != nil {
		g.logger.Warn("vector upsert dropped", "entity_id", entityID, "error", err)
		return fmt.Errorf("upsert %s: %v: %w", entityID, err, ErrDropped)
	}
	return nil
}

// Search returns hits sorted by score descending, all at or above the
// threshold. Failures are logged and yield an empty result.
func (g *Gateway) Search(ctx context.Context, vector []float32, opts SearchOptions) []Hit {
	if g.backend == nil || opts.Limit <= 0 {
		return []Hit{}
	}

	hits, err := g.backend.Search(ctx, Query{
		Vector:         vector,
		Limit:          opts.Limit,
		ScoreThreshold: opts.ScoreThreshold,
		Filter:         Filter{ProjectID: opts.ProjectID, EntityType: opts.EntityType},
	})
	if err != nil {
		g.logger.Warn("vector search failed", "error", err)
		return []Hit{}
	}

	filtered := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if h.Score >= opts.ScoreThreshold {
			filtered = append(filtered, h)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	if len(filtered) > opts.Limit {
		filtered = filtered[:opts.Limit]
	}
	return filtered
}

// DeleteByProject removes every point of a project page by page and returns
// the number of ids deleted. Errors are logged, never returned.
func (g *Gateway) DeleteByProject(ctx context.Context, projectID string) int {
	if g.backend == nil || projectID == "" {
		return 0
	}

	deleted := 0
	filter := Filter{ProjectID: projectID}
	for page := 0; page < MaxDeletePages; page++ {
		ids, err := g.backend.ScrollIDs(ctx, filter, DeletePageSize)
		if err != nil {
			g.logger.Warn("failed to scroll vectors for deletion", "project_id", projectID, "error", err)
			return deleted
		}
		if len(ids) == 0 {
			return deleted
		}
		if err := g.backend.Delete(ctx, ids); err != nil {
			g.logger.Warn("failed to delete vectors", "project_id", projectID, "error", err)
			return deleted
		}
		deleted += len(ids)
	}

	g.logger.Warn("vector deletion stopped at page limit", "project_id", projectID, "pages", MaxDeletePages)
	return deleted
}

// DeleteEntities removes the points of the given entities, best effort
func (g *Gateway) DeleteEntities(ctx context.Context, entityIDs []string) {
	if g.backend == nil || len(entityIDs) == 0 {
		return
	}
	ids := make([]uint64, len(entityIDs))
	for i, id := range entityIDs {
		ids[i] = PointID(id)
	}
	if err := g.backend.Delete(ctx, ids); err != nil {
		g.logger.Warn("failed to delete entity vectors", "count", len(ids), "error", err)
	}
}

// Close releases the backend
func (g *Gateway) Close() error {
	if g.backend == nil {
		return nil
	}
	return g.backend.Close()
}
