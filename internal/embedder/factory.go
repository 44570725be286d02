package embedder

import (
	"fmt"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	Model     string
	Dimension int
	APIKey    string
	BaseURL   string // Ollama host, or an OpenAI/Jina compatible endpoint
	CacheSize int
}

// New creates the configured provider. ProviderNone returns a nil Embedder,
// which the Gateway treats as "always fall back".
func New(cfg Config) (Embedder, error) {
	opts := ProviderOptions{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Model:     cfg.Model,
		Dimension: cfg.Dimension,
		Cache:     NewCache(cfg.CacheSize),
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOllama, "":
		return NewOllamaProvider(opts), nil
	case ProviderJina:
		p, err := NewJinaProvider(opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderOpenAI:
		p, err := NewOpenAIProvider(opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderHash:
		return NewHashProvider(cfg.Dimension), nil
	case ProviderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}
