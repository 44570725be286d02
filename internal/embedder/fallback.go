package embedder

import (
	"context"
	"crypto/md5"
	"fmt"
	"strings"
)

// FallbackVector derives a deterministic vector from the MD5 digest of text.
// Each of the 16 digest bytes (one hex pair) becomes a value in [0,1]; the
// result is zero-padded or truncated to dim.
func FallbackVector(text string, dim int) []float32 {
	vec := make([]float32, max(dim, 0))
	sum := md5.Sum([]byte(text))
	for i := 0; i < len(sum) && i < len(vec); i++ {
		vec[i] = float32(sum[i]) / 255.0
	}
	return vec
}

// ZeroVector returns a vector of dim zeros
func ZeroVector(dim int) []float32 {
	return make([]float32, max(dim, 0))
}

// HashProvider implements Embedder with FallbackVector. It needs no model and
// is used as an explicit provider or in tests.
type HashProvider struct {
	dimension int
}

// NewHashProvider creates a hash embedder of the given dimension
func NewHashProvider(dim int) *HashProvider {
	if dim <= 0 {
		dim = DefaultOllamaDimension
	}
	return &HashProvider{dimension: dim}
}

func (h *HashProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	return h.embed(req.Text), nil
}

func (h *HashProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		embeddings[i] = h.embed(text)
	}
	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderHash,
		Model:      h.Model(),
	}, nil
}

func (h *HashProvider) embed(text string) *Embedding {
	return &Embedding{
		Vector:    FallbackVector(text, h.dimension),
		Dimension: h.dimension,
		Provider:  ProviderHash,
		Model:     h.Model(),
		Hash:      ComputeHash(text),
	}
}

func (h *HashProvider) Dimension() int {
	return h.dimension
}

func (h *HashProvider) Provider() string {
	return ProviderHash
}

func (h *HashProvider) Model() string {
	return fmt.Sprintf("md5-%d", h.dimension)
}

func (h *HashProvider) Close() error {
	return nil
}

func isBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
