// Package mcp exposes AetherNexus to MCP clients over stdio.
//
// Six tools are registered:
//   - index_project: start (or, with wait, run to completion) an indexing job
//   - index_status: report one job or list all of them
//   - delete_index: remove a project from both stores and the job tracker
//   - search: text, semantic or graph search
//   - entity_graph: bounded neighbourhood of an entity
//   - entity_connections: direct neighbours of an entity
//
// # Tool: index_project
//
//	Request:
//	{
//	  "name": "index_project",
//	  "arguments": {
//	    "project_path": "/path/to/project",
//	    "project_id": "shop",
//	    "force": false,
//	    "wait": true
//	  }
//	}
//
//	Response (wait=true):
//	{
//	  "project_id": "shop",
//	  "status": "completed",
//	  "progress": 1,
//	  "total_files": 42,
//	  "indexed_files": 41,
//	  "failed_files": 1,
//	  "errors": ["broken.py: syntax error at line 3"]
//	}
//
// # Tool: search
//
//	Request:
//	{
//	  "name": "search",
//	  "arguments": {
//	    "query": "where are sessions created",
//	    "mode": "semantic",
//	    "limit": 5,
//	    "project_id": "shop"
//	  }
//	}
//
// The response is the searcher.Response JSON: query, mode, results, total
// and took_ms.
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "aethernexus": {
//	      "command": "/usr/local/bin/aethernexus",
//	      "args": ["mcp"]
//	    }
//	  }
//	}
//
// # Error Handling
//
// Handlers return *MCPError values:
//   - -32602: Invalid params (missing arguments, bad path, empty query)
//   - -32603: Internal error
//   - -32001: No job recorded for the project
//   - -32002: Indexing in progress
//
// Logs go to stderr; stdout is reserved for the protocol.
package mcp
