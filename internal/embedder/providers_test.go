package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/retry"
)

var fastRetry = &retry.Config{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

// vectorFor gives each text a distinct, recognisable vector
func vectorFor(text string, dim int) []float32 {
	v := make([]float32, dim)
	v[0] = float32(len(text))
	return v
}

func newEmbeddingsServer(t *testing.T, dim int, failFirst int32, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if n <= failFirst {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// Reverse the order to exercise index sorting
		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{"index": i, "embedding": vectorFor(req.Input[i], dim)})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"model": req.Model, "data": data})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteProviders(t *testing.T) {
	constructors := map[string]func(ProviderOptions) (Embedder, error){
		ProviderJina: func(o ProviderOptions) (Embedder, error) {
			p, err := NewJinaProvider(o)
			return p, err
		},
		ProviderOpenAI: func(o ProviderOptions) (Embedder, error) {
			p, err := NewOpenAIProvider(o)
			return p, err
		},
	}

	for name, newProvider := range constructors {
		t.Run(name, func(t *testing.T) {
			var calls atomic.Int32
			srv := newEmbeddingsServer(t, 4, 0, &calls)
			p, err := newProvider(ProviderOptions{APIKey: "test-key", BaseURL: srv.URL, Dimension: 4, Cache: NewCache(10), Retry: fastRetry})
			require.NoError(t, err)
			defer p.Close()

			assert.Equal(t, name, p.Provider())
			assert.Equal(t, 4, p.Dimension())

			resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"a", "bbb"}})
			require.NoError(t, err)
			require.Len(t, resp.Embeddings, 2)
			assert.Equal(t, float32(1), resp.Embeddings[0].Vector[0])
			assert.Equal(t, float32(3), resp.Embeddings[1].Vector[0])

			// Cached texts are not requested again
			emb, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "bbb"})
			require.NoError(t, err)
			assert.Equal(t, float32(3), emb.Vector[0])
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestRemoteProviderRetries(t *testing.T) {
	var calls atomic.Int32
	srv := newEmbeddingsServer(t, 4, 2, &calls)
	p, err := NewOpenAIProvider(ProviderOptions{APIKey: "test-key", BaseURL: srv.URL, Retry: fastRetry})
	require.NoError(t, err)

	emb, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, float32(5), emb.Vector[0])
	assert.Equal(t, int32(3), calls.Load())
}

func TestRemoteProviderFailure(t *testing.T) {
	var calls atomic.Int32
	srv := newEmbeddingsServer(t, 4, 100, &calls)
	p, err := NewJinaProvider(ProviderOptions{APIKey: "test-key", BaseURL: srv.URL, Retry: fastRetry})
	require.NoError(t, err)

	_, err = p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "hello"})
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, int32(fastRetry.MaxRetries), calls.Load())
}

func TestRemoteProviderAPIKeyFromEnv(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "from-env")
	p, err := NewOpenAIProvider(ProviderOptions{})
	require.NoError(t, err)
	assert.Equal(t, "from-env", p.apiKey)
	assert.Equal(t, DefaultOpenAIURL, p.baseURL)
	assert.Equal(t, DefaultOpenAIModel, p.Model())
	assert.Equal(t, OpenAIDimension, p.Dimension())
}

func newOllamaServer(t *testing.T, dim int, healthy bool) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var embedCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			if !healthy {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"models": []any{}})
		case "/api/embed":
			embedCalls.Add(1)
			var req ollamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			embs := make([][]float32, len(req.Input))
			for i, text := range req.Input {
				embs[i] = vectorFor(text, dim)
			}
			_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Model: req.Model, Embeddings: embs})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &embedCalls
}

func TestOllamaProvider(t *testing.T) {
	srv, calls := newOllamaServer(t, DefaultOllamaDimension, true)
	p := NewOllamaProvider(ProviderOptions{BaseURL: srv.URL + "/", Cache: NewCache(10), Retry: fastRetry})
	ctx := context.Background()

	require.NoError(t, p.Health(ctx))
	assert.Equal(t, DefaultOllamaModel, p.Model())
	assert.Equal(t, DefaultOllamaDimension, p.Dimension())

	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"one", "three"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, float32(3), resp.Embeddings[0].Vector[0])
	assert.Equal(t, float32(5), resp.Embeddings[1].Vector[0])
	assert.Len(t, resp.Embeddings[0].Vector, DefaultOllamaDimension)

	_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "one"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOllamaHealthFailure(t *testing.T) {
	srv, _ := newOllamaServer(t, DefaultOllamaDimension, false)
	p := NewOllamaProvider(ProviderOptions{BaseURL: srv.URL})
	assert.Error(t, p.Health(context.Background()))

	unreachable := NewOllamaProvider(ProviderOptions{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	assert.Error(t, unreachable.Health(context.Background()))
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOllamaProvider(ProviderOptions{BaseURL: srv.URL, Retry: &retry.Config{MaxRetries: 5, BaseDelay: time.Second, MaxDelay: time.Second, Multiplier: 1}})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "x"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "backoff must stop on cancellation")
}
