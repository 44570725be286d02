package embedder

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// FallbackName is reported as the provider when no model is usable
const FallbackName = "fallback"

// Gateway turns text into vectors of a fixed dimension. It never fails:
// blank text maps to the zero vector and any provider problem maps to
// FallbackVector. Safe for concurrent use.
type Gateway struct {
	provider  Embedder
	dim       int
	logger    *slog.Logger
	fallbacks atomic.Int64
}

// NewGateway validates the provider against dim and probes its health. A nil,
// mismatched or unhealthy provider leaves the gateway on the fallback.
func NewGateway(ctx context.Context, provider Embedder, dim int, logger *slog.Logger) *Gateway {
	g := &Gateway{dim: dim, logger: logger}

	if provider == nil {
		logger.Warn("no embedding model configured, using hash fallback", "dimension", dim)
		return g
	}
	if provider.Dimension() != dim {
		logger.Warn("embedding provider dimension mismatch, using hash fallback",
			"provider", provider.Provider(), "provider_dimension", provider.Dimension(), "dimension", dim)
		_ = provider.Close()
		return g
	}
	if hc, ok := provider.(HealthChecker); ok {
		if err := hc.Health(ctx); err != nil {
			logger.Warn("embedding model unavailable, using hash fallback",
				"provider", provider.Provider(), "model", provider.Model(), "error", err)
			_ = provider.Close()
			return g
		}
	}

	g.provider = provider
	logger.Info("embedding model ready", "provider", provider.Provider(), "model", provider.Model(), "dimension", dim)
	return g
}

// Embed returns the embedding of text
func (g *Gateway) Embed(ctx context.Context, text string) []float32 {
	if isBlank(text) {
		return ZeroVector(g.dim)
	}
	if g.provider == nil {
		return g.fallback(text)
	}

	emb, err := g.provider.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
	if err != nil {
		g.logger.Warn("embedding failed, using hash fallback", "error", err)
		return g.fallback(text)
	}
	if len(emb.Vector) != g.dim {
		g.logger.Warn("embedding has wrong dimension, using hash fallback", "got", len(emb.Vector), "want", g.dim)
		return g.fallback(text)
	}
	return emb.Vector
}

// EmbedBatch embeds texts in order. Blank items become zero vectors and are
// not sent to the provider; the rest go in chunks of MaxBatchSize. A failed
// chunk is retried item by item.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))

	var pending []string
	var pendingIdx []int
	for i, text := range texts {
		if isBlank(text) {
			out[i] = ZeroVector(g.dim)
			continue
		}
		if g.provider == nil {
			out[i] = g.fallback(text)
			continue
		}
		pending = append(pending, text)
		pendingIdx = append(pendingIdx, i)
	}

	for start := 0; start < len(pending); start += MaxBatchSize {
		end := min(start+MaxBatchSize, len(pending))
		chunk := pending[start:end]
		idx := pendingIdx[start:end]

		resp, err := g.provider.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: chunk})
		if err == nil && len(resp.Embeddings) == len(chunk) && g.dimensionsMatch(resp.Embeddings) {
			for j, emb := range resp.Embeddings {
				out[idx[j]] = emb.Vector
			}
			continue
		}

		if err != nil {
			g.logger.Warn("batch embedding failed, retrying items individually", "size", len(chunk), "error", err)
		}
		for j, text := range chunk {
			out[idx[j]] = g.Embed(ctx, text)
		}
	}

	return out
}

func (g *Gateway) dimensionsMatch(embs []*Embedding) bool {
	for _, e := range embs {
		if e == nil || len(e.Vector) != g.dim {
			return false
		}
	}
	return true
}

func (g *Gateway) fallback(text string) []float32 {
	g.fallbacks.Add(1)
	return FallbackVector(text, g.dim)
}

// Available reports whether a real model is in use
func (g *Gateway) Available() bool {
	return g.provider != nil
}

// Provider returns the active provider name, or FallbackName
func (g *Gateway) Provider() string {
	if g.provider == nil {
		return FallbackName
	}
	return g.provider.Provider()
}

// Model returns the active model name
func (g *Gateway) Model() string {
	if g.provider == nil {
		return FallbackName
	}
	return g.provider.Model()
}

// Dimension returns the vector dimension
func (g *Gateway) Dimension() int {
	return g.dim
}

// FallbackCount returns how many vectors were produced by the fallback
func (g *Gateway) FallbackCount() int64 {
	return g.fallbacks.Load()
}

// Close releases the provider
func (g *Gateway) Close() error {
	if g.provider == nil {
		return nil
	}
	return g.provider.Close()
}
