package types

// DefaultEdgeWeight is used when an edge carries no explicit weight
const DefaultEdgeWeight = 1.0

// GraphNode mirrors an Entity inside the graph store
type GraphNode struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Label      string         `json:"label"`
	ProjectID  string         `json:"project_id,omitempty"`
	Properties map[string]any `json:"properties"`
}

// GraphEdge is a directed, typed relation between two nodes
type GraphEdge struct {
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       string         `json:"type"`
	ProjectID  string         `json:"project_id,omitempty"`
	Weight     *float64       `json:"weight,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
}

// EffectiveWeight returns the edge weight, defaulting to 1.0
func (e *GraphEdge) EffectiveWeight() float64 {
	if e.Weight == nil {
		return DefaultEdgeWeight
	}
	return *e.Weight
}

// Graph is a bounded neighbourhood around an entity
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Connection is a 1-hop neighbour of an entity
type Connection struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	Title        string  `json:"title"`
	RelationType string  `json:"relation_type"`
	Score        float64 `json:"score"`
}
