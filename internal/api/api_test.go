package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/embedder"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/graphstore"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/indexer"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/jobs"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/logging"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/searcher"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/storage"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/vectorstore"
	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

const testDim = 16

// newTestServer wires the real components over an in-memory database
func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	logger := logging.NewDiscard()

	db, err := storage.NewSQLiteStorage(ctx, storage.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	emb := embedder.NewGateway(ctx, embedder.NewHashProvider(testDim), testDim, logger)
	vectors := vectorstore.NewGateway(ctx, vectorstore.NewSQLiteBackend(db), testDim, logger, vectorstore.WithName("sqlite"))
	graph := graphstore.NewGateway(ctx, graphstore.NewSQLiteBackend(db), logger, graphstore.WithName("sqlite"))

	runner := jobs.NewRunner(indexer.New(emb, vectors, graph, db, logger), jobs.NewTracker(), logger, 2)
	t.Cleanup(runner.Shutdown)

	return NewServer(":0", Deps{
		Runner:   runner,
		Searcher: searcher.New(emb, vectors, graph, db, logger),
		Graph:    graph,
		Vectors:  vectors,
		Embedder: emb,
		Version:  "test",
	}, logger)
}

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"main.go":   "package main\n\n// Login starts a session\nfunc Login(user string) bool { return user != \"\" }\n",
		"README.md": "# Demo\n\nSessions are created by Login.\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o644))
	}
	return root
}

func do(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func waitForJob(t *testing.T, s *Server, projectID string) *jobs.Job {
	t.Helper()
	var job *jobs.Job
	require.Eventually(t, func() bool {
		j, err := s.deps.Runner.Tracker().Get(projectID)
		if err != nil {
			return false
		}
		job = j
		return j.Status.IsTerminal()
	}, 10*time.Second, 10*time.Millisecond)
	return job
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	root := decode[map[string]any](t, w)
	assert.Equal(t, "AetherNexus", root["name"])
	assert.Equal(t, "test", root["version"])

	w = do(t, s, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, embedder.ProviderHash, health.Embedder.Provider)
	assert.Equal(t, testDim, health.Embedder.Dimension)
	assert.Equal(t, ComponentHealth{Backend: "sqlite", Available: true}, health.VectorStore)
	assert.Equal(t, ComponentHealth{Backend: "sqlite", Available: true}, health.GraphStore)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/nope", nil).Code)
}

func TestHealthDegraded(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewDiscard()
	s := NewServer(":0", Deps{
		Vectors:  vectorstore.NewGateway(ctx, nil, testDim, logger),
		Graph:    graphstore.NewGateway(ctx, nil, logger),
		Embedder: embedder.NewGateway(ctx, nil, testDim, logger),
	}, logger)

	health := decode[HealthResponse](t, do(t, s, http.MethodGet, "/health", nil))
	assert.Equal(t, "degraded", health.Status)
	assert.Equal(t, embedder.FallbackName, health.Embedder.Provider)
	assert.False(t, health.Embedder.Available)
}

func TestIndexLifecycle(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)

	w := do(t, s, http.MethodPost, Prefix+"/index/project", IndexRequest{ProjectPath: root, ProjectID: "demo"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	started := decode[IndexResponse](t, w)
	assert.Equal(t, IndexResponse{ProjectID: "demo", Status: "started", Message: "Indexing started"}, started)

	job := waitForJob(t, s, "demo")
	require.Equal(t, jobs.StatusCompleted, job.Status, job.Error)

	w = do(t, s, http.MethodGet, Prefix+"/index/status?project_id=demo", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[jobs.Job](t, w)
	assert.Equal(t, jobs.StatusCompleted, status.Status)
	assert.Equal(t, 2, status.TotalFiles)
	assert.Equal(t, 2, status.IndexedFiles)
	assert.InDelta(t, 1.0, status.Progress, 1e-9)
	assert.NotNil(t, status.CompletedAt)

	w = do(t, s, http.MethodGet, Prefix+"/index/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[map[string][]jobs.Job](t, w)
	assert.Len(t, all["projects"], 1)

	// Cancelling a finished job is a conflict
	w = do(t, s, http.MethodPost, Prefix+"/index/project/demo/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, CodeInvalidTransition, decode[ErrorResponse](t, w).Code)

	w = do(t, s, http.MethodDelete, Prefix+"/index/project/demo", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	deleted := decode[DeleteResponse](t, w)
	assert.Equal(t, "deleted", deleted.Status)
	assert.Positive(t, deleted.VectorsDeleted)
	assert.Equal(t, int64(2), deleted.FilesForgotten)

	w = do(t, s, http.MethodGet, Prefix+"/index/status?project_id=demo", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, CodeJobNotFound, decode[ErrorResponse](t, w).Code)
}

func TestIndexValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"missing path", IndexRequest{}, http.StatusBadRequest, CodeInvalidRequest},
		{"nonexistent path", IndexRequest{ProjectPath: filepath.Join(t.TempDir(), "missing")}, http.StatusBadRequest, CodePathNotFound},
		{"malformed body", "not an object", http.StatusBadRequest, CodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, Prefix+"/index/project", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, w).Code)
		})
	}

	w := do(t, s, http.MethodPost, Prefix+"/index/project/unknown/cancel", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearchEndpoints(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)

	w := do(t, s, http.MethodPost, Prefix+"/index/project", IndexRequest{ProjectPath: root, ProjectID: "demo"})
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, jobs.StatusCompleted, waitForJob(t, s, "demo").Status)

	for _, mode := range []string{"text", "semantic"} {
		t.Run(mode, func(t *testing.T) {
			zero := 0.0
			w := do(t, s, http.MethodPost, Prefix+"/search/"+mode, SearchRequest{
				Query:   "login session",
				Filters: searcher.Filters{ProjectID: "demo", ScoreThreshold: &zero},
			})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			resp := decode[searcher.Response](t, w)
			assert.Equal(t, searcher.Mode(mode), resp.Mode)
			assert.Len(t, resp.Results, 3, "file, Login and README")
			assert.Equal(t, len(resp.Results), resp.Total)
		})
	}

	w = do(t, s, http.MethodPost, Prefix+"/search/semantic", SearchRequest{Query: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, CodeEmptyQuery, decode[ErrorResponse](t, w).Code)

	w = do(t, s, http.MethodPost, Prefix+"/search/fuzzy", SearchRequest{Query: "login"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, Prefix+"/search/history?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[map[string]any](t, w)
	assert.EqualValues(t, 1, history["total"])

	w = do(t, s, http.MethodGet, Prefix+"/search/history?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGraphEndpoints(t *testing.T) {
	s := newTestServer(t)
	root := writeProject(t)

	w := do(t, s, http.MethodPost, Prefix+"/index/project", IndexRequest{ProjectPath: root, ProjectID: "demo"})
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Equal(t, jobs.StatusCompleted, waitForJob(t, s, "demo").Status)

	fileID := types.EntityID("demo", "main.go", "")
	loginID := types.EntityID("demo", "main.go", "Login")

	w = do(t, s, http.MethodGet, Prefix+"/graph/entity/"+fileID+"?depth=1&max_nodes=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	graph := decode[types.Graph](t, w)
	require.Len(t, graph.Nodes, 2)
	assert.Equal(t, fileID, graph.Nodes[0].ID)
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, types.RelationDefinedIn, graph.Edges[0].Type)

	w = do(t, s, http.MethodGet, Prefix+"/graph/entity/demo:missing.go", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[types.Graph](t, w).Nodes)

	w = do(t, s, http.MethodGet, Prefix+"/graph/entity/"+fileID+"?depth=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, Prefix+"/graph/connections/"+fileID+"?connection_type=defined_in", nil)
	require.Equal(t, http.StatusOK, w.Code)
	conns := decode[struct {
		EntityID    string             `json:"entity_id"`
		Connections []types.Connection `json:"connections"`
	}](t, w)
	assert.Equal(t, fileID, conns.EntityID)
	require.Len(t, conns.Connections, 1)
	assert.Equal(t, loginID, conns.Connections[0].ID)

	w = do(t, s, http.MethodGet, Prefix+"/context/related/"+loginID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	related := decode[RelatedResponse](t, w)
	assert.Equal(t, "code", related.EntityType)
	require.Len(t, related.Related, 1)
	assert.Equal(t, fileID, related.Related[0].ID)
}

func TestMapErrorToStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{types.ErrPathNotFound, http.StatusBadRequest, CodePathNotFound},
		{types.ErrEmptyQuery, http.StatusBadRequest, CodeEmptyQuery},
		{types.ErrJobNotFound, http.StatusNotFound, CodeJobNotFound},
		{types.ErrJobRunning, http.StatusConflict, CodeJobRunning},
		{types.ErrInvalidTransition, http.StatusConflict, CodeInvalidTransition},
		{context.Canceled, http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code := MapErrorToStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)

			status, _ = MapErrorToStatus(fmt.Errorf("request failed: %w", tt.err))
			assert.Equal(t, tt.status, status, "wrapped errors map the same way")
		})
	}
}
