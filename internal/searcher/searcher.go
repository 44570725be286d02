package searcher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/embedder"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/graphstore"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/storage"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/vectorstore"
	"github.com/ViktoriyaGonchar/AetherNexus/pkg/types"
)

// Mode defines how search is performed
type Mode string

const (
	ModeText     Mode = "text"     // Same as semantic; there is no keyword index
	ModeSemantic Mode = "semantic" // Vector similarity
	ModeGraph    Mode = "graph"    // Vector seeds expanded through the graph
)

// Request limits and defaults
const (
	DefaultLimit          = 10
	MaxLimit              = 100
	DefaultScoreThreshold = 0.3

	GraphSeedLimit     = 5
	GraphSeedThreshold = 0.5

	SnippetLength = 200
	UnknownTitle  = "Unknown"
	UnknownType   = "unknown"
)

// ParseMode validates a mode name. Empty selects semantic.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSemantic:
		return ModeSemantic, nil
	case ModeText:
		return ModeText, nil
	case ModeGraph:
		return ModeGraph, nil
	default:
		return "", fmt.Errorf("unknown search mode %q (want text, semantic or graph)", s)
	}
}

// Filters narrow a search
type Filters struct {
	ProjectID      string   `json:"project_id,omitempty"`
	Type           string   `json:"type,omitempty"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
}

// Request contains parameters for a search operation
type Request struct {
	Query   string  `json:"query"`
	Mode    Mode    `json:"mode,omitempty"`
	Limit   int     `json:"limit,omitempty"`
	Offset  int     `json:"offset,omitempty"`
	Filters Filters `json:"filters"`
}

// Response contains search results and metadata
type Response struct {
	Query   string               `json:"query"`
	Mode    Mode                 `json:"mode"`
	Results []types.SearchResult `json:"results"`
	Total   int                  `json:"total"`
	TookMs  int64                `json:"took_ms"`
}

// Searcher answers text, semantic and graph queries over the indexed stores
type Searcher struct {
	embedder *embedder.Gateway
	vectors  *vectorstore.Gateway
	graph    *graphstore.Gateway
	history  storage.HistoryStore
	logger   *slog.Logger
}

// New creates a new Searcher instance. history may be nil.
func New(emb *embedder.Gateway, vectors *vectorstore.Gateway, graph *graphstore.Gateway, history storage.HistoryStore, logger *slog.Logger) *Searcher {
	return &Searcher{
		embedder: emb,
		vectors:  vectors,
		graph:    graph,
		history:  history,
		logger:   logger,
	}
}

// Search runs a query. The only error is types.ErrEmptyQuery; store
// failures produce an empty result set.
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	var results []types.SearchResult
	switch req.Mode {
	case ModeGraph:
		results = s.graphSearch(ctx, req)
	default:
		results = s.semanticSearch(ctx, req)
	}

	resp := &Response{
		Query:   req.Query,
		Mode:    req.Mode,
		Results: results,
		Total:   len(results),
		TookMs:  time.Since(start).Milliseconds(),
	}
	s.record(ctx, req, resp)
	return resp, nil
}

// validateRequest normalizes limits and the mode in place
func validateRequest(req *Request) error {
	if strings.TrimSpace(req.Query) == "" {
		return types.ErrEmptyQuery
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	mode, err := ParseMode(string(req.Mode))
	if err != nil {
		mode = ModeSemantic
	}
	req.Mode = mode
	return nil
}

func (s *Searcher) semanticSearch(ctx context.Context, req Request) []types.SearchResult {
	threshold := DefaultScoreThreshold
	if req.Filters.ScoreThreshold != nil {
		threshold = *req.Filters.ScoreThreshold
	}

	vector := s.embedder.Embed(ctx, req.Query)
	hits := s.vectors.Search(ctx, vector, vectorstore.SearchOptions{
		Limit:          req.Limit + req.Offset,
		ScoreThreshold: threshold,
		ProjectID:      req.Filters.ProjectID,
		EntityType:     req.Filters.Type,
	})

	if req.Offset >= len(hits) {
		return []types.SearchResult{}
	}
	hits = hits[req.Offset:]

	results := make([]types.SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, resultFromHit(h))
	}
	return results
}

func resultFromHit(h vectorstore.Hit) types.SearchResult {
	id := h.EntityID()
	if id == "" {
		id = strconv.FormatUint(h.ID, 10)
	}
	title, _ := h.Payload[vectorstore.PayloadName].(string)
	if title == "" {
		title = UnknownTitle
	}
	typ, _ := h.Payload[vectorstore.PayloadType].(string)
	if typ == "" {
		typ = UnknownType
	}
	content, _ := h.Payload[vectorstore.PayloadContent].(string)

	metadata := h.Payload
	if metadata == nil {
		metadata = map[string]any{}
	}
	return types.SearchResult{
		ID:       id,
		Title:    title,
		Content:  types.Truncate(content, SnippetLength),
		Type:     typ,
		Score:    h.Score,
		Metadata: metadata,
	}
}

// graphSearch finds up to GraphSeedLimit close entities and returns their
// graph neighbours. Offset does not apply.
func (s *Searcher) graphSearch(ctx context.Context, req Request) []types.SearchResult {
	vector := s.embedder.Embed(ctx, req.Query)
	seeds := s.vectors.Search(ctx, vector, vectorstore.SearchOptions{
		Limit:          GraphSeedLimit,
		ScoreThreshold: GraphSeedThreshold,
		ProjectID:      req.Filters.ProjectID,
		EntityType:     req.Filters.Type,
	})

	results := make([]types.SearchResult, 0, req.Limit)
	seen := make(map[string]bool, len(seeds))
	for _, seed := range seeds {
		id := seed.EntityID()
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		for _, conn := range s.graph.Connections(ctx, id, "") {
			if len(results) >= req.Limit {
				return results
			}
			results = append(results, resultFromConnection(conn))
		}
	}
	return results
}

func resultFromConnection(c types.Connection) types.SearchResult {
	title := c.Title
	if title == "" {
		title = UnknownTitle
	}
	typ := c.Type
	if typ == "" {
		typ = UnknownType
	}
	return types.SearchResult{
		ID:       c.ID,
		Title:    title,
		Content:  "Related via " + c.RelationType,
		Type:     typ,
		Score:    c.Score,
		Metadata: map[string]any{"relation_type": c.RelationType},
	}
}

// record stores the query in the search history, best effort
func (s *Searcher) record(ctx context.Context, req Request, resp *Response) {
	if s.history == nil {
		return
	}
	err := s.history.RecordSearch(ctx, &storage.HistoryEntry{
		Query:       req.Query,
		Mode:        string(req.Mode),
		ProjectID:   req.Filters.ProjectID,
		ResultCount: resp.Total,
		TookMs:      resp.TookMs,
	})
	if err != nil {
		s.logger.Warn("failed to record search history", "error", err)
	}
}

// Related returns the graph neighbours of an entity, optionally restricted
// to one relation type
func (s *Searcher) Related(ctx context.Context, entityID, relType string) []types.Connection {
	return s.graph.Connections(ctx, entityID, relType)
}

// History returns the most recent queries, newest first
func (s *Searcher) History(ctx context.Context, limit int) ([]*storage.HistoryEntry, error) {
	if s.history == nil {
		return []*storage.HistoryEntry{}, nil
	}
	if limit <= 0 {
		limit = storage.DefaultHistoryLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	entries, err := s.history.ListSearchHistory(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load search history: %w", err)
	}
	if entries == nil {
		entries = []*storage.HistoryEntry{}
	}
	return entries, nil
}
