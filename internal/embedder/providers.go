package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/retry"
)

// Provider configuration
const (
	ProviderOllama = "ollama"
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
	ProviderNone   = "none"

	// Environment variables consulted when no API key is configured
	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"

	// Default endpoints
	DefaultJinaURL   = "https://api.jina.ai/v1"
	DefaultOpenAIURL = "https://api.openai.com/v1"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536

	// Batch limits
	DefaultBatchSize = 50
	MaxBatchSize     = 100

	defaultHTTPTimeout = 30 * time.Second
)

// ProviderOptions configures a network provider. Zero values select defaults.
type ProviderOptions struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	Cache     *Cache
	Retry     *retry.Config
	Timeout   time.Duration
}

func (o ProviderOptions) retryConfig() retry.Config {
	if o.Retry != nil {
		return *o.Retry
	}
	return retry.DefaultConfig()
}

func (o ProviderOptions) httpClient() *http.Client {
	timeout := o.Timeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}
	return &http.Client{Timeout: timeout}
}

// remoteProvider implements the OpenAI-style /embeddings API shared by Jina and OpenAI
type remoteProvider struct {
	name       string
	apiKey     string
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
	retry      retry.Config
}

// JinaProvider implements Embedder using the Jina AI API
type JinaProvider struct {
	remoteProvider
}

// NewJinaProvider creates a Jina AI embedder. The API key falls back to JINA_API_KEY.
func NewJinaProvider(opts ProviderOptions) (*JinaProvider, error) {
	p, err := newRemoteProvider(ProviderJina, EnvJinaAPIKey, DefaultJinaURL, DefaultJinaModel, JinaDimension, opts)
	if err != nil {
		return nil, err
	}
	return &JinaProvider{remoteProvider: *p}, nil
}

// OpenAIProvider implements Embedder using the OpenAI API
type OpenAIProvider struct {
	remoteProvider
}

// NewOpenAIProvider creates an OpenAI embedder. The API key falls back to OPENAI_API_KEY.
func NewOpenAIProvider(opts ProviderOptions) (*OpenAIProvider, error) {
	p, err := newRemoteProvider(ProviderOpenAI, EnvOpenAIAPIKey, DefaultOpenAIURL, DefaultOpenAIModel, OpenAIDimension, opts)
	if err != nil {
		return nil, err
	}
	return &OpenAIProvider{remoteProvider: *p}, nil
}

func newRemoteProvider(name, keyEnv, defaultURL, defaultModel string, defaultDim int, opts ProviderOptions) (*remoteProvider, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv(keyEnv)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, keyEnv)
	}

	p := &remoteProvider{
		name:       name,
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		model:      opts.Model,
		dimension:  opts.Dimension,
		httpClient: opts.httpClient(),
		cache:      opts.Cache,
		retry:      opts.retryConfig(),
	}
	if p.baseURL == "" {
		p.baseURL = defaultURL
	}
	if p.model == "" {
		p.model = defaultModel
	}
	if p.dimension == 0 {
		p.dimension = defaultDim
	}
	return p, nil
}

func (p *remoteProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{req.Text}, Model: req.Model})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}
	return resp.Embeddings[0], nil
}

func (p *remoteProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	embeddings, err := cachedBatch(p.cache, req.Texts, func(missing []string) ([]*Embedding, error) {
		embs, err := retry.Do(ctx, p.retry, func() ([]*Embedding, error) {
			return p.callAPI(ctx, missing, model)
		})
		if err != nil {
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrProviderFailed, p.retry.MaxRetries, err)
		}
		return embs, nil
	})
	if err != nil {
		return nil, err
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   p.name,
		Model:      model,
	}, nil
}

func (p *remoteProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	body, err := json.Marshal(map[string]interface{}{
		"input": texts,
		"model": model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// The API may return items out of order
	sort.Slice(apiResp.Data, func(i, j int) bool {
		return apiResp.Data[i].Index < apiResp.Data[j].Index
	})

	embeddings := make([]*Embedding, len(apiResp.Data))
	for i, data := range apiResp.Data {
		embeddings[i] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  p.name,
			Model:     model,
		}
	}
	return embeddings, nil
}

func (p *remoteProvider) Dimension() int {
	return p.dimension
}

func (p *remoteProvider) Provider() string {
	return p.name
}

func (p *remoteProvider) Model() string {
	return p.model
}

func (p *remoteProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
