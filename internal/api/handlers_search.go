package api

import (
	"net/http"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/graphstore"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/searcher"
	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

// DefaultHistoryLimit is the page size of GET /search/history
const DefaultHistoryLimit = 10

// SearchRequest is the body of POST /search/{mode}
type SearchRequest struct {
	Query   string           `json:"query"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
	Filters searcher.Filters `json:"filters"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	mode, err := searcher.ParseMode(r.PathValue("mode"))
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	var req SearchRequest
	if err := decodeBody(w, r, &req); err != nil {
		BadRequest(w, err.Error())
		return
	}

	resp, err := s.deps.Searcher.Search(r.Context(), searcher.Request{
		Query:   req.Query,
		Mode:    mode,
		Limit:   req.Limit,
		Offset:  req.Offset,
		Filters: req.Filters,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, resp, http.StatusOK)
}

func (s *Server) handleSearchHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", DefaultHistoryLimit)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	history, err := s.deps.Searcher.History(r.Context(), limit)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, map[string]any{"history": history, "total": len(history)}, http.StatusOK)
}

// handleEntityGraph returns the bounded neighbourhood of an entity. Unknown
// entities yield an empty graph.
func (s *Server) handleEntityGraph(w http.ResponseWriter, r *http.Request) {
	depth, err := queryInt(r, "depth", graphstore.DefaultDepth)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	maxNodes, err := queryInt(r, "max_nodes", graphstore.DefaultMaxNodes)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	graph := s.deps.Graph.EntityGraph(r.Context(), r.PathValue("entity_id"), depth, maxNodes)
	WriteJSON(w, graph, http.StatusOK)
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	entityID := r.PathValue("entity_id")
	conns := s.deps.Graph.Connections(r.Context(), entityID, r.URL.Query().Get("connection_type"))

	WriteJSON(w, map[string]any{
		"entity_id":   entityID,
		"connections": conns,
	}, http.StatusOK)
}

// RelatedResponse is returned by GET /context/related/{entity_id}
type RelatedResponse struct {
	EntityID   string             `json:"entity_id"`
	EntityType string             `json:"entity_type"`
	Related    []types.Connection `json:"related"`
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	if entityType == "" {
		entityType = "code"
	}
	entityID := r.PathValue("entity_id")

	WriteJSON(w, RelatedResponse{
		EntityID:   entityID,
		EntityType: entityType,
		Related:    s.deps.Searcher.Related(r.Context(), entityID, ""),
	}, http.StatusOK)
}
