package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/jobs"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/searcher"
	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound    = -32001 // No job is recorded for the project
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
)

// waitPollInterval is how often index_project polls a job when wait is set
const waitPollInterval = 100 * time.Millisecond

// handleIndexProject handles the index_project tool invocation
func (s *Server) handleIndexProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path := getStringDefault(args, "project_path", "")
	if strings.TrimSpace(path) == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "project_path parameter is required", map[string]interface{}{
			"param":  "project_path",
			"reason": "missing or empty",
		})
	}

	job, err := s.runner.Start(ctx, jobs.StartRequest{
		ProjectPath: path,
		ProjectID:   getStringDefault(args, "project_id", ""),
		Force:       getBoolDefault(args, "force", false),
	})
	if err != nil {
		return nil, mapError("failed to start indexing", err)
	}

	if !getBoolDefault(args, "wait", false) {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"project_id": job.ProjectID,
			"status":     "started",
			"message":    "Indexing started",
		})), nil
	}

	job, err = s.waitForJob(ctx, job.ProjectID)
	if err != nil {
		return nil, mapError("failed to wait for indexing", err)
	}
	return mcp.NewToolResultText(formatJSON(job)), nil
}

// waitForJob polls the tracker until the job is terminal or ctx ends
func (s *Server) waitForJob(ctx context.Context, projectID string) (*jobs.Job, error) {
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		job, err := s.runner.Tracker().Get(projectID)
		if err != nil {
			return nil, err
		}
		if job.Status.IsTerminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// handleIndexStatus handles the index_status tool invocation
func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	tracker := s.runner.Tracker()

	if projectID := getStringDefault(args, "project_id", ""); projectID != "" {
		job, err := tracker.Get(projectID)
		if err != nil {
			return nil, mapError("failed to get status", err)
		}
		return mcp.NewToolResultText(formatJSON(job)), nil
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"projects": tracker.List(),
	})), nil
}

// handleDeleteIndex handles the delete_index tool invocation
func (s *Server) handleDeleteIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	projectID := getStringDefault(args, "project_id", "")
	if projectID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "project_id parameter is required", map[string]interface{}{
			"param":  "project_id",
			"reason": "missing or empty",
		})
	}

	result, err := s.runner.Delete(ctx, projectID)
	if err != nil {
		return nil, mapError("failed to delete index", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"project_id":      projectID,
		"status":          "deleted",
		"vectors_deleted": result.VectorsDeleted,
		"files_forgotten": result.FilesForgotten,
	})), nil
}

// handleSearch handles the search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	mode, err := searcher.ParseMode(getStringDefault(args, "mode", ""))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"reason":  err.Error(),
			"allowed": []string{string(searcher.ModeText), string(searcher.ModeSemantic), string(searcher.ModeGraph)},
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", searcher.MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	req := searcher.Request{
		Query:  getStringDefault(args, "query", ""),
		Mode:   mode,
		Limit:  limit,
		Offset: getIntDefault(args, "offset", 0),
		Filters: searcher.Filters{
			ProjectID: getStringDefault(args, "project_id", ""),
			Type:      getStringDefault(args, "type", ""),
		},
	}
	if v, ok := args["score_threshold"].(float64); ok {
		req.Filters.ScoreThreshold = &v
	}

	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		return nil, mapError("search failed", err)
	}
	return mcp.NewToolResultText(formatJSON(resp)), nil
}

// handleEntityGraph handles the entity_graph tool invocation
func (s *Server) handleEntityGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	entityID, err := requireEntityID(args)
	if err != nil {
		return nil, err
	}

	graph := s.graph.EntityGraph(ctx, entityID, getIntDefault(args, "depth", 0), getIntDefault(args, "max_nodes", 0))
	return mcp.NewToolResultText(formatJSON(graph)), nil
}

// handleEntityConnections handles the entity_connections tool invocation
func (s *Server) handleEntityConnections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	entityID, err := requireEntityID(args)
	if err != nil {
		return nil, err
	}

	conns := s.graph.Connections(ctx, entityID, getStringDefault(args, "connection_type", ""))
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"entity_id":   entityID,
		"connections": conns,
	})), nil
}

func requireEntityID(args map[string]interface{}) (string, error) {
	entityID := getStringDefault(args, "entity_id", "")
	if entityID == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "entity_id parameter is required", map[string]interface{}{
			"param":  "entity_id",
			"reason": "missing or empty",
		})
	}
	return entityID, nil
}

// Helper functions

// mapError converts a domain error into an MCPError
func mapError(message string, err error) error {
	code := ErrorCodeInternalError
	switch {
	case errors.Is(err, types.ErrPathNotFound), errors.Is(err, types.ErrEmptyQuery):
		code = ErrorCodeInvalidParams
	case errors.Is(err, types.ErrJobRunning):
		code = ErrorCodeIndexingInProgress
	case errors.Is(err, types.ErrJobNotFound):
		code = ErrorCodeProjectNotFound
	}
	return newMCPError(code, message, map[string]interface{}{"error": err.Error()})
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
