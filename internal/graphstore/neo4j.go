package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

// Neo4jConfig configures the Neo4j backend
type Neo4jConfig struct {
	URI      string
	User     string
	Password string
	Database string
}

// Reserved node properties. Everything else round-trips through Properties.
const (
	propID        = "id"
	propType      = "type"
	propLabel     = "label"
	propProjectID = "project_id"
	propWeight    = "weight"
)

// Cypher cannot parametrise labels, so every node is an :Entity and the
// entity kind is a property
const (
	cypherUpsertNode = `
		MERGE (n:Entity {id: $id})
		SET n += $props, n.type = $type, n.label = $label, n.project_id = $project_id`

	cypherUpsertEdge = `
		MATCH (a:Entity {id: $source})
		MATCH (b:Entity {id: $target})
		MERGE (a)-[r:RELATES_TO {type: $type, project_id: $project_id}]->(b)
		SET r += $props, r.weight = $weight
		RETURN count(r) AS c`

	cypherNeighbors = `
		MATCH (n:Entity {id: $id})-[r:RELATES_TO]-(m:Entity)
		WHERE $type = '' OR r.type = $type
		RETURN m, r, startNode(r).id AS source, endNode(r).id AS target
		ORDER BY coalesce(r.weight, 1.0) DESC, m.id
		LIMIT $limit`

	cypherGetNode = `MATCH (n:Entity {id: $id}) RETURN n LIMIT 1`

	cypherDeleteNodes = `MATCH (n:Entity) WHERE n.id IN $ids DETACH DELETE n`

	cypherDeleteProjectEdges = `MATCH ()-[r:RELATES_TO {project_id: $project_id}]-() DELETE r`

	cypherDeleteProjectNodes = `MATCH (n:Entity {project_id: $project_id}) DETACH DELETE n`
)

// unlimitedNeighbors stands in for "no limit" in Cypher LIMIT clauses
const unlimitedNeighbors = 1 << 31

// Neo4jBackend talks to Neo4j through the official Bolt driver
type Neo4jBackend struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jBackend creates the driver. Connectivity is verified by Ping.
func NewNeo4jBackend(cfg Neo4jConfig) (*Neo4jBackend, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	return &Neo4jBackend{driver: driver, database: cfg.Database}, nil
}

func (b *Neo4jBackend) run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	var opts []neo4j.ExecuteQueryConfigurationOption
	if b.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(b.database))
	}
	return neo4j.ExecuteQuery(ctx, b.driver, query, params, neo4j.EagerResultTransformer, opts...)
}

// UpsertNode merges a node by id
func (b *Neo4jBackend) UpsertNode(ctx context.Context, node types.GraphNode) error {
	_, err := b.run(ctx, cypherUpsertNode, map[string]any{
		"id":         node.ID,
		"type":       node.Type,
		"label":      node.Label,
		"project_id": node.ProjectID,
		"props":      neo4jProps(node.Properties),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert node %s: %w", node.ID, err)
	}
	return nil
}

// UpsertEdge merges a typed relationship between two existing nodes
func (b *Neo4jBackend) UpsertEdge(ctx context.Context, edge types.GraphEdge) error {
	var weight any
	if edge.Weight != nil {
		weight = *edge.Weight
	}
	result, err := b.run(ctx, cypherUpsertEdge, map[string]any{
		"source":     edge.Source,
		"target":     edge.Target,
		"type":       edge.Type,
		"project_id": edge.ProjectID,
		"weight":     weight,
		"props":      neo4jProps(edge.Properties),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert edge %s -> %s: %w", edge.Source, edge.Target, err)
	}
	if len(result.Records) == 0 {
		return fmt.Errorf("edge %s -> %s: %w", edge.Source, edge.Target, ErrNodeNotFound)
	}
	count, _, err := neo4j.GetRecordValue[int64](result.Records[0], "c")
	if err != nil || count == 0 {
		return fmt.Errorf("edge %s -> %s: %w", edge.Source, edge.Target, ErrNodeNotFound)
	}
	return nil
}

// Neighbors returns 1-hop neighbours in both directions
func (b *Neo4jBackend) Neighbors(ctx context.Context, query NeighborQuery) ([]Neighbor, error) {
	limit := int64(query.Limit)
	if limit <= 0 {
		limit = unlimitedNeighbors
	}
	result, err := b.run(ctx, cypherNeighbors, map[string]any{
		"id":    query.ID,
		"type":  query.RelationType,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query neighbors of %s: %w", query.ID, err)
	}

	neighbors := make([]Neighbor, 0, len(result.Records))
	for _, rec := range result.Records {
		m, _, err := neo4j.GetRecordValue[neo4j.Node](rec, "m")
		if err != nil {
			return nil, fmt.Errorf("failed to read neighbor node: %w", err)
		}
		r, _, err := neo4j.GetRecordValue[neo4j.Relationship](rec, "r")
		if err != nil {
			return nil, fmt.Errorf("failed to read relationship: %w", err)
		}
		source, _, _ := neo4j.GetRecordValue[string](rec, "source")
		target, _, _ := neo4j.GetRecordValue[string](rec, "target")

		neighbors = append(neighbors, Neighbor{
			Node: nodeFromProps(m.Props),
			Edge: edgeFromProps(source, target, r.Props),
		})
	}
	return neighbors, nil
}

// GetNode returns a node by id
func (b *Neo4jBackend) GetNode(ctx context.Context, id string) (*types.GraphNode, error) {
	result, err := b.run(ctx, cypherGetNode, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get node %s: %w", id, err)
	}
	if len(result.Records) == 0 {
		return nil, ErrNodeNotFound
	}
	n, _, err := neo4j.GetRecordValue[neo4j.Node](result.Records[0], "n")
	if err != nil {
		return nil, fmt.Errorf("failed to read node %s: %w", id, err)
	}
	node := nodeFromProps(n.Props)
	return &node, nil
}

// DeleteNodes detaches and deletes nodes by id
func (b *Neo4jBackend) DeleteNodes(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := b.run(ctx, cypherDeleteNodes, map[string]any{"ids": ids}); err != nil {
		return fmt.Errorf("failed to delete nodes: %w", err)
	}
	return nil
}

// DeleteProject deletes the project's relationships, then its nodes
func (b *Neo4jBackend) DeleteProject(ctx context.Context, projectID string) error {
	params := map[string]any{"project_id": projectID}
	if _, err := b.run(ctx, cypherDeleteProjectEdges, params); err != nil {
		return fmt.Errorf("failed to delete project relationships: %w", err)
	}
	if _, err := b.run(ctx, cypherDeleteProjectNodes, params); err != nil {
		return fmt.Errorf("failed to delete project nodes: %w", err)
	}
	return nil
}

// Ping verifies connectivity
func (b *Neo4jBackend) Ping(ctx context.Context) error {
	return b.driver.VerifyConnectivity(ctx)
}

// Close closes the driver
func (b *Neo4jBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return b.driver.Close(ctx)
}

// neo4jProps drops reserved keys and values Neo4j cannot store as properties
func neo4jProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		switch k {
		case propID, propType, propLabel, propProjectID, propWeight:
			continue
		}
		switch v.(type) {
		case string, bool, int, int32, int64, float32, float64, []string, []int64, []float64:
			out[k] = v
		case nil:
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

func nodeFromProps(props map[string]any) types.GraphNode {
	node := types.GraphNode{Properties: map[string]any{}}
	for k, v := range props {
		switch k {
		case propID:
			node.ID, _ = v.(string)
		case propType:
			node.Type, _ = v.(string)
		case propLabel:
			node.Label, _ = v.(string)
		case propProjectID:
			node.ProjectID, _ = v.(string)
			node.Properties[k] = v
		default:
			node.Properties[k] = v
		}
	}
	return node
}

func edgeFromProps(source, target string, props map[string]any) types.GraphEdge {
	edge := types.GraphEdge{Source: source, Target: target, Properties: map[string]any{}}
	for k, v := range props {
		switch k {
		case propType:
			edge.Type, _ = v.(string)
		case propProjectID:
			edge.ProjectID, _ = v.(string)
		case propWeight:
			switch w := v.(type) {
			case float64:
				edge.Weight = &w
			case int64:
				f := float64(w)
				edge.Weight = &f
			}
		default:
			edge.Properties[k] = v
		}
	}
	return edge
}
