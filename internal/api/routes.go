package api

import (
	"net/http"
)

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.HandleFunc("GET /{$}", s.handleRoot)
	s.router.HandleFunc("GET /health", s.handleHealth)

	// Indexing
	s.router.HandleFunc("POST "+Prefix+"/index/project", s.handleIndexProject)
	s.router.HandleFunc("GET "+Prefix+"/index/status", s.handleIndexStatus)
	s.router.HandleFunc("DELETE "+Prefix+"/index/project/{project_id}", s.handleDeleteIndex)
	s.router.HandleFunc("POST "+Prefix+"/index/project/{project_id}/cancel", s.handleCancelIndex)

	// Search
	s.router.HandleFunc("GET "+Prefix+"/search/history", s.handleSearchHistory)
	s.router.HandleFunc("POST "+Prefix+"/search/{mode}", s.handleSearch)

	// Graph and context; entity ids contain slashes
	s.router.HandleFunc("GET "+Prefix+"/graph/entity/{entity_id...}", s.handleEntityGraph)
	s.router.HandleFunc("GET "+Prefix+"/graph/connections/{entity_id...}", s.handleConnections)
	s.router.HandleFunc("GET "+Prefix+"/context/related/{entity_id...}", s.handleRelated)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, map[string]any{
		"name":    "AetherNexus",
		"version": s.deps.Version,
		"status":  "running",
	}, http.StatusOK)
}

// ComponentHealth describes one backing component
type ComponentHealth struct {
	Backend   string `json:"backend"`
	Available bool   `json:"available"`
}

// EmbedderHealth describes the embedding gateway
type EmbedderHealth struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	Available     bool   `json:"available"`
	Dimension     int    `json:"dimension"`
	FallbackCount int64  `json:"fallback_count"`
}

// HealthResponse is returned by GET /health. Status is "degraded" when a
// store is unreachable; the service keeps answering either way.
type HealthResponse struct {
	Status      string          `json:"status"`
	Version     string          `json:"version"`
	Embedder    EmbedderHealth  `json:"embedder"`
	VectorStore ComponentHealth `json:"vector_store"`
	GraphStore  ComponentHealth `json:"graph_store"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Version: s.deps.Version}

	if e := s.deps.Embedder; e != nil {
		resp.Embedder = EmbedderHealth{
			Provider:      e.Provider(),
			Model:         e.Model(),
			Available:     e.Available(),
			Dimension:     e.Dimension(),
			FallbackCount: e.FallbackCount(),
		}
	}
	if v := s.deps.Vectors; v != nil {
		resp.VectorStore = ComponentHealth{Backend: v.Name(), Available: v.Available()}
	}
	if g := s.deps.Graph; g != nil {
		resp.GraphStore = ComponentHealth{Backend: g.Name(), Available: g.Available()}
	}
	if !resp.VectorStore.Available || !resp.GraphStore.Available {
		resp.Status = "degraded"
	}

	WriteJSON(w, resp, http.StatusOK)
}
