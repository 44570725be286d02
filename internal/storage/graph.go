package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

// UpsertGraphNode inserts or updates a node by id
func (s *SQLiteStorage) UpsertGraphNode(ctx context.Context, node types.GraphNode) error {
	if node.ID == "" {
		return types.ErrMissingEntityID
	}
	props, err := encodeJSON(node.Properties)
	if err != nil {
		return fmt.Errorf("failed to encode node properties: %w", err)
	}

	query := `
		INSERT INTO graph_nodes (id, project_id, type, label, properties)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id = excluded.project_id,
			type = excluded.type,
			label = excluded.label,
			properties = excluded.properties
	`
	if _, err := s.db.ExecContext(ctx, query, node.ID, node.ProjectID, node.Type, node.Label, props); err != nil {
		return fmt.Errorf("failed to upsert graph node: %w", err)
	}
	return nil
}

// UpsertGraphEdge inserts or updates an edge. Both endpoints must exist.
func (s *SQLiteStorage) UpsertGraphEdge(ctx context.Context, edge types.GraphEdge) error {
	props, err := encodeJSON(edge.Properties)
	if err != nil {
		return fmt.Errorf("failed to encode edge properties: %w", err)
	}

	var weight sql.NullFloat64
	if edge.Weight != nil {
		weight = sql.NullFloat64{Float64: *edge.Weight, Valid: true}
	}

	return s.withTx(ctx, func(q querier) error {
		var count int
		err := q.QueryRowContext(ctx,
			"SELECT COUNT(DISTINCT id) FROM graph_nodes WHERE id IN (?, ?)",
			edge.Source, edge.Target).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check edge endpoints: %w", err)
		}
		want := 2
		if edge.Source == edge.Target {
			want = 1
		}
		if count != want {
			return fmt.Errorf("edge %s -> %s: %w", edge.Source, edge.Target, ErrNodeNotFound)
		}

		query := `
			INSERT INTO graph_edges (source_id, target_id, relation_type, project_id, weight, properties)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(source_id, target_id, relation_type, project_id) DO UPDATE SET
				weight = excluded.weight,
				properties = excluded.properties
		`
		if _, err := q.ExecContext(ctx, query,
			edge.Source, edge.Target, edge.Type, edge.ProjectID, weight, props); err != nil {
			return fmt.Errorf("failed to upsert graph edge: %w", err)
		}
		return nil
	})
}

// GetGraphNode returns a node by id, or ErrNotFound
func (s *SQLiteStorage) GetGraphNode(ctx context.Context, id string) (*types.GraphNode, error) {
	var node types.GraphNode
	var props string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, project_id, type, label, properties FROM graph_nodes WHERE id = ?", id,
	).Scan(&node.ID, &node.ProjectID, &node.Type, &node.Label, &props)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get graph node: %w", err)
	}
	if node.Properties, err = decodeProperties(props); err != nil {
		return nil, fmt.Errorf("failed to decode node properties: %w", err)
	}
	return &node, nil
}

// GraphNeighbors returns nodes one hop away from id in either direction,
// ordered by edge weight (missing weight counts as 1.0) descending.
// An empty relationType matches every relation.
func (s *SQLiteStorage) GraphNeighbors(ctx context.Context, id, relationType string, limit int) ([]Neighbor, error) {
	query := `
		SELECT n.id, n.project_id, n.type, n.label, n.properties,
		       e.source_id, e.target_id, e.relation_type, e.project_id, e.weight, e.properties
		FROM graph_edges e
		INNER JOIN graph_nodes n
		        ON n.id = CASE WHEN e.source_id = ? THEN e.target_id ELSE e.source_id END
		WHERE (e.source_id = ? OR e.target_id = ?)
	`
	args := []interface{}{id, id, id}
	if relationType != "" {
		query += " AND e.relation_type = ?"
		args = append(args, relationType)
	}
	query += " ORDER BY COALESCE(e.weight, 1.0) DESC, n.id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query neighbors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var neighbors []Neighbor
	for rows.Next() {
		var nb Neighbor
		var nodeProps, edgeProps string
		var weight sql.NullFloat64
		if err := rows.Scan(
			&nb.Node.ID, &nb.Node.ProjectID, &nb.Node.Type, &nb.Node.Label, &nodeProps,
			&nb.Edge.Source, &nb.Edge.Target, &nb.Edge.Type, &nb.Edge.ProjectID, &weight, &edgeProps,
		); err != nil {
			return nil, fmt.Errorf("failed to scan neighbor: %w", err)
		}
		if nb.Node.Properties, err = decodeProperties(nodeProps); err != nil {
			return nil, err
		}
		if nb.Edge.Properties, err = decodeProperties(edgeProps); err != nil {
			return nil, err
		}
		if weight.Valid {
			w := weight.Float64
			nb.Edge.Weight = &w
		}
		neighbors = append(neighbors, nb)
	}
	return neighbors, rows.Err()
}

// DeleteGraphNodes removes nodes and every edge touching them
func (s *SQLiteStorage) DeleteGraphNodes(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	in := placeholders(len(ids))

	var deleted int64
	err := s.withTx(ctx, func(q querier) error {
		edgeArgs := append(append([]interface{}{}, args...), args...)
		if _, err := q.ExecContext(ctx,
			"DELETE FROM graph_edges WHERE source_id IN ("+in+") OR target_id IN ("+in+")", edgeArgs...); err != nil {
			return fmt.Errorf("failed to delete edges: %w", err)
		}
		result, err := q.ExecContext(ctx, "DELETE FROM graph_nodes WHERE id IN ("+in+")", args...)
		if err != nil {
			return fmt.Errorf("failed to delete nodes: %w", err)
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}

// DeleteGraphProject removes a project's relationships first, then its nodes
func (s *SQLiteStorage) DeleteGraphProject(ctx context.Context, projectID string) (int64, error) {
	var deleted int64
	err := s.withTx(ctx, func(q querier) error {
		if _, err := q.ExecContext(ctx, "DELETE FROM graph_edges WHERE project_id = ?", projectID); err != nil {
			return fmt.Errorf("failed to delete project edges: %w", err)
		}
		// Edges from other projects pointing at these nodes go too
		if _, err := q.ExecContext(ctx, `
			DELETE FROM graph_edges
			WHERE source_id IN (SELECT id FROM graph_nodes WHERE project_id = ?)
			   OR target_id IN (SELECT id FROM graph_nodes WHERE project_id = ?)`,
			projectID, projectID); err != nil {
			return fmt.Errorf("failed to detach project nodes: %w", err)
		}
		result, err := q.ExecContext(ctx, "DELETE FROM graph_nodes WHERE project_id = ?", projectID)
		if err != nil {
			return fmt.Errorf("failed to delete project nodes: %w", err)
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}
