package embedder

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/logging"
)

// stubProvider records calls and can be told to fail
type stubProvider struct {
	dim        int
	failBatch  bool
	failText   string
	healthErr  error
	batchSizes []int
	singles    atomic.Int32
	closed     bool
}

func (s *stubProvider) GenerateEmbedding(_ context.Context, req EmbeddingRequest) (*Embedding, error) {
	s.singles.Add(1)
	if req.Text == s.failText {
		return nil, errors.New("model crashed")
	}
	return &Embedding{Vector: vectorFor(req.Text, s.dim)}, nil
}

func (s *stubProvider) GenerateBatch(_ context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	s.batchSizes = append(s.batchSizes, len(req.Texts))
	if s.failBatch {
		return nil, errors.New("batch refused")
	}
	embs := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		embs[i] = &Embedding{Vector: vectorFor(text, s.dim)}
	}
	return &BatchEmbeddingResponse{Embeddings: embs}, nil
}

func (s *stubProvider) Health(context.Context) error { return s.healthErr }
func (s *stubProvider) Dimension() int { return s.dim }
func (s *stubProvider) Provider() string { return "stub" }
func (s *stubProvider) Model() string { return "stub-model" }
func (s *stubProvider) Close() error {
	s.closed = true
	return nil
}

func TestGatewayEmbed(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(ctx, &stubProvider{dim: 4}, 4, logging.NewDiscard())
	require.True(t, g.Available())
	assert.Equal(t, "stub", g.Provider())

	assert.Equal(t, vectorFor("abc", 4), g.Embed(ctx, "abc"))
	assert.Equal(t, ZeroVector(4), g.Embed(ctx, ""))
	assert.Equal(t, ZeroVector(4), g.Embed(ctx, " \n\t"))
	assert.Zero(t, g.FallbackCount())
}

func TestGatewayFallback(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		provider Embedder
	}{
		{"no provider", nil},
		{"dimension mismatch", &stubProvider{dim: 8}},
		{"unhealthy", &stubProvider{dim: 4, healthErr: errors.New("model not loaded")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGateway(ctx, tt.provider, 4, logging.NewDiscard())
			assert.False(t, g.Available())
			assert.Equal(t, FallbackName, g.Provider())

			assert.Equal(t, FallbackVector("abc", 4), g.Embed(ctx, "abc"))
			assert.Equal(t, ZeroVector(4), g.Embed(ctx, ""))

			vecs := g.EmbedBatch(ctx, []string{"a", "", "b"})
			assert.Equal(t, [][]float32{FallbackVector("a", 4), ZeroVector(4), FallbackVector("b", 4)}, vecs)
			assert.Equal(t, int64(3), g.FallbackCount())

			if sp, ok := tt.provider.(*stubProvider); ok {
				assert.True(t, sp.closed, "refused provider is released")
			}
		})
	}
}

func TestGatewayEmbedProviderError(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(ctx, &stubProvider{dim: 4, failText: "boom"}, 4, logging.NewDiscard())

	assert.Equal(t, FallbackVector("boom", 4), g.Embed(ctx, "boom"))
	assert.Equal(t, int64(1), g.FallbackCount())
}

func TestGatewayEmbedBatch(t *testing.T) {
	ctx := context.Background()
	stub := &stubProvider{dim: 4}
	g := NewGateway(ctx, stub, 4, logging.NewDiscard())

	texts := make([]string, MaxBatchSize+5)
	for i := range texts {
		texts[i] = string(make([]byte, i%7+1))
	}
	texts[3] = "   "

	vecs := g.EmbedBatch(ctx, texts)
	require.Len(t, vecs, len(texts))
	assert.Equal(t, ZeroVector(4), vecs[3])
	assert.Equal(t, vectorFor(texts[10], 4), vecs[10])
	assert.Equal(t, vectorFor(texts[len(texts)-1], 4), vecs[len(texts)-1])
	assert.Equal(t, []int{MaxBatchSize, 4}, stub.batchSizes, "blank items are not sent")

	assert.Empty(t, g.EmbedBatch(ctx, nil))
}

func TestGatewayEmbedBatchItemRetry(t *testing.T) {
	ctx := context.Background()
	stub := &stubProvider{dim: 4, failBatch: true, failText: "bad"}
	g := NewGateway(ctx, stub, 4, logging.NewDiscard())

	vecs := g.EmbedBatch(ctx, []string{"ok", "bad", "fine"})
	require.Len(t, vecs, 3)
	assert.Equal(t, vectorFor("ok", 4), vecs[0])
	assert.Equal(t, FallbackVector("bad", 4), vecs[1])
	assert.Equal(t, vectorFor("fine", 4), vecs[2])
	assert.Equal(t, int32(3), stub.singles.Load())
	assert.Equal(t, int64(1), g.FallbackCount())
}
