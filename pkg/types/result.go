package types

// SearchResult is a single ranked hit returned by the retrieval engine
type SearchResult struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Content  string         `json:"content"`
	Type     string         `json:"type"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}
