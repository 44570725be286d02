package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultQdrantTimeout is the HTTP timeout used when none is configured
const DefaultQdrantTimeout = 15 * time.Second

// errCollectionMissing is returned by the collection probe on 404
var errCollectionMissing = errors.New("collection does not exist")

// QdrantConfig configures the Qdrant REST backend
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// QdrantBackend is a minimal REST client to Qdrant using cosine distance
type QdrantBackend struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// NewQdrantBackend creates a Qdrant backend. No request is made until the
// gateway pings it.
func NewQdrantBackend(cfg QdrantConfig) *QdrantBackend {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultQdrantTimeout
	}
	return &QdrantBackend{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// EnsureCollection creates the collection when GET reports it missing
func (q *QdrantBackend) EnsureCollection(ctx context.Context, dim int) error {
	if dim <= 0 {
		return errors.New("invalid dimension")
	}

	err := q.do(ctx, http.MethodGet, q.collectionURL(""), nil, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errCollectionMissing) {
		return err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	if err := q.do(ctx, http.MethodPut, q.collectionURL(""), body, nil); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", q.collection, err)
	}
	return nil
}

// Upsert writes points and waits for them to be applied
func (q *QdrantBackend) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	wire := make([]map[string]any, len(points))
	for i, p := range points {
		wire[i] = map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		}
	}
	return q.do(ctx, http.MethodPut, q.collectionURL("/points?wait=true"), map[string]any{"points": wire}, nil)
}

// Search runs a filtered similarity query
func (q *QdrantBackend) Search(ctx context.Context, query Query) ([]Hit, error) {
	body := map[string]any{
		"vector":       query.Vector,
		"limit":        query.Limit,
		"with_payload": true,
	}
	if query.ScoreThreshold > 0 {
		body["score_threshold"] = query.ScoreThreshold
	}
	if f := qdrantFilter(query.Filter); f != nil {
		body["filter"] = f
	}

	var resp struct {
		Result []struct {
			ID      uint64         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := q.do(ctx, http.MethodPost, q.collectionURL("/points/search"), body, &resp); err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, Hit{ID: r.ID, Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

// ScrollIDs returns the first page of point ids matching the filter
func (q *QdrantBackend) ScrollIDs(ctx context.Context, filter Filter, limit int) ([]uint64, error) {
	body := map[string]any{
		"limit":        limit,
		"with_payload": false,
		"with_vector":  false,
	}
	if f := qdrantFilter(filter); f != nil {
		body["filter"] = f
	}

	var resp struct {
		Result struct {
			Points []struct {
				ID uint64 `json:"id"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := q.do(ctx, http.MethodPost, q.collectionURL("/points/scroll"), body, &resp); err != nil {
		return nil, err
	}

	ids := make([]uint64, len(resp.Result.Points))
	for i, p := range resp.Result.Points {
		ids[i] = p.ID
	}
	return ids, nil
}

// Delete removes points by id
func (q *QdrantBackend) Delete(ctx context.Context, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return q.do(ctx, http.MethodPost, q.collectionURL("/points/delete?wait=true"), map[string]any{"points": ids}, nil)
}

// Ping lists collections to verify connectivity
func (q *QdrantBackend) Ping(ctx context.Context) error {
	return q.do(ctx, http.MethodGet, q.url+"/collections", nil, nil)
}

// Close releases idle connections
func (q *QdrantBackend) Close() error {
	q.client.CloseIdleConnections()
	return nil
}

func (q *QdrantBackend) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", q.url, url.PathEscape(q.collection), suffix)
}

// qdrantFilter builds a must-match filter, or nil when empty
func qdrantFilter(f Filter) map[string]any {
	if f.IsEmpty() {
		return nil
	}
	var must []map[string]any
	if f.ProjectID != "" {
		must = append(must, matchCondition(PayloadProjectID, f.ProjectID))
	}
	if f.EntityType != "" {
		must = append(must, matchCondition(PayloadType, f.EntityType))
	}
	return map[string]any{"must": must}
}

func matchCondition(key, value string) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}

// do sends a JSON request and decodes the JSON response into out when non-nil
func (q *QdrantBackend) do(ctx context.Context, method, target string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
		return errCollectionMissing
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, target, resp.Status, strings.TrimSpace(string(msg)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode qdrant response: %w", err)
		}
	}
	return nil
}
