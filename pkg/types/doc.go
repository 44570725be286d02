// Package types provides shared domain types for the AetherNexus service.
//
// Entity is the indexed unit. Its identifier is derived, never generated:
//
//	types.EntityID("proj", "pkg/a.py", "")    // "proj:pkg/a.py"
//	types.EntityID("proj", "pkg/a.py", "foo") // "proj:pkg/a.py::foo"
//
// Re-indexing the same file therefore yields the same ids, which lets every
// store treat writes as idempotent upserts.
//
// GraphNode, GraphEdge, Graph and Connection describe the graph side;
// SearchResult is the projection returned by the retrieval engine.
package types
