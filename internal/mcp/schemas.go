package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/graphstore"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/searcher"
)

// indexProjectTool returns the tool definition for index_project
func indexProjectTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_project",
		Description: "Index a project directory into the vector and graph stores",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the project root",
				},
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Project identifier; a UUID is generated when omitted",
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "Re-index every file, ignoring stored content hashes",
					"default":     false,
				},
				"wait": map[string]interface{}{
					"type":        "boolean",
					"description": "Block until the run finishes and return its statistics",
					"default":     false,
				},
			},
			Required: []string{"project_path"},
		},
	}
}

// indexStatusTool returns the tool definition for index_status
func indexStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_status",
		Description: "Report the indexing job of one project, or of every project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Project identifier; omit to list all jobs",
				},
			},
		},
	}
}

// deleteIndexTool returns the tool definition for delete_index
func deleteIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_index",
		Description: "Delete every vector, graph node and job record of a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Project identifier",
				},
			},
			Required: []string{"project_id"},
		},
	}
}

// searchTool returns the tool definition for search
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Search indexed entities by meaning, optionally expanding through the entity graph",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "text and semantic rank by vector similarity; graph returns neighbours of the best matches",
					"enum":        []string{string(searcher.ModeText), string(searcher.ModeSemantic), string(searcher.ModeGraph)},
					"default":     string(searcher.ModeSemantic),
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results",
					"default":     searcher.DefaultLimit,
					"minimum":     1,
					"maximum":     searcher.MaxLimit,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Results to skip (text and semantic modes)",
					"default":     0,
					"minimum":     0,
				},
				"project_id": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one project",
				},
				"type": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one entity type",
					"enum":        []string{"class", "function", "documentation", "file"},
				},
				"score_threshold": map[string]interface{}{
					"type":        "number",
					"description": "Minimum similarity score",
					"default":     searcher.DefaultScoreThreshold,
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// entityGraphTool returns the tool definition for entity_graph
func entityGraphTool() mcp.Tool {
	return mcp.Tool{
		Name:        "entity_graph",
		Description: "Return the bounded graph neighbourhood of an entity",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entity_id": map[string]interface{}{
					"type":        "string",
					"description": "Entity identifier, e.g. proj:src/a.py::foo",
				},
				"depth": map[string]interface{}{
					"type":    "integer",
					"default": graphstore.DefaultDepth,
					"minimum": 1,
					"maximum": graphstore.MaxDepth,
				},
				"max_nodes": map[string]interface{}{
					"type":    "integer",
					"default": graphstore.DefaultMaxNodes,
					"minimum": 1,
					"maximum": graphstore.MaxNodesLimit,
				},
			},
			Required: []string{"entity_id"},
		},
	}
}

// entityConnectionsTool returns the tool definition for entity_connections
func entityConnectionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "entity_connections",
		Description: "List the direct neighbours of an entity ordered by edge weight",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entity_id": map[string]interface{}{
					"type":        "string",
					"description": "Entity identifier",
				},
				"connection_type": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one relation type, e.g. defined_in",
				},
			},
			Required: []string{"entity_id"},
		},
	}
}
