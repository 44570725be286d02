// Package app assembles AetherNexus components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ViktoriyaGonchar/AetherNexus/internal/api"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/config"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/embedder"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/graphstore"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/indexer"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/jobs"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/logging"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/mcp"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/searcher"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/storage"
	"github.com/ViktoriyaGonchar/AetherNexus/internal/vectorstore"
)

// App holds every wired component. Close releases them in reverse order of
// construction.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Version  string
	DB       *storage.SQLiteStorage
	Embedder *embedder.Gateway
	Vectors  *vectorstore.Gateway
	Graph    *graphstore.Gateway
	Indexer  *indexer.Indexer
	Runner   *jobs.Runner
	Searcher *searcher.Searcher

	logCloser io.Closer
}

// NewLogger builds the process logger from the logging section. Debug mode
// forces the debug level.
func NewLogger(cfg *config.Config, w io.Writer) (*slog.Logger, io.Closer, error) {
	level := cfg.Logging.Level
	if cfg.Server.Debug {
		level = "debug"
	}
	return logging.New(logging.Options{
		Level:  level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Writer: w,
	})
}

// New opens the state database and connects every gateway. Unreachable
// external services leave their gateway degraded; only a state database
// failure is fatal.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, logCloser io.Closer, version string) (*App, error) {
	db, err := storage.NewSQLiteStorage(ctx, cfg.Storage.StateDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	a := &App{
		Config:    cfg,
		Logger:    logger,
		Version:   version,
		DB:        db,
		logCloser: logCloser,
	}

	dim := cfg.Embedding.Dimension
	a.Embedder = embedder.NewGateway(ctx, newProvider(cfg, logger), dim, logger)
	a.Vectors = vectorstore.NewGateway(ctx, newVectorBackend(cfg, db), dim, logger,
		vectorstore.WithName(cfg.Storage.VectorBackend))
	a.Graph = graphstore.NewGateway(ctx, newGraphBackend(cfg, db, logger), logger,
		graphstore.WithName(cfg.Storage.GraphBackend))

	a.Indexer = indexer.New(a.Embedder, a.Vectors, a.Graph, db, logger)
	a.Runner = jobs.NewRunner(a.Indexer, jobs.NewTracker(), logger, cfg.Indexing.Workers)
	a.Searcher = searcher.New(a.Embedder, a.Vectors, a.Graph, db, logger)

	logger.Info("components ready",
		"embedder", a.Embedder.Provider(),
		"vector_backend", cfg.Storage.VectorBackend,
		"vector_available", a.Vectors.Available(),
		"graph_backend", cfg.Storage.GraphBackend,
		"graph_available", a.Graph.Available(),
		"state_db", cfg.Storage.StateDBPath)
	return a, nil
}

// newProvider builds the embedding provider. Configuration problems such as
// a missing API key are logged and leave the gateway on the hash fallback.
func newProvider(cfg *config.Config, logger *slog.Logger) embedder.Embedder {
	ec := cfg.Embedding
	provider := strings.ToLower(strings.TrimSpace(ec.Provider))

	model := ec.Model
	var apiKey, baseURL string
	switch provider {
	case embedder.ProviderOllama, "":
		baseURL = ec.OllamaHost
	case embedder.ProviderOpenAI:
		apiKey = ec.OpenAIKey
	case embedder.ProviderJina:
		apiKey = ec.JinaKey
	}
	// The default model name only exists on Ollama
	if provider != embedder.ProviderOllama && provider != "" && model == config.DefaultConfig().Embedding.Model {
		model = ""
	}

	p, err := embedder.New(embedder.Config{
		Provider:  provider,
		Model:     model,
		Dimension: ec.Dimension,
		APIKey:    apiKey,
		BaseURL:   baseURL,
		CacheSize: ec.CacheSize,
	})
	if err != nil {
		logger.Warn("embedding provider not available, using hash fallback", "provider", ec.Provider, "error", err)
		return nil
	}
	return p
}

func newVectorBackend(cfg *config.Config, db *storage.SQLiteStorage) vectorstore.Backend {
	if cfg.Storage.VectorBackend == config.BackendQdrant {
		return vectorstore.NewQdrantBackend(vectorstore.QdrantConfig{
			URL:        cfg.Qdrant.URL(),
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
		})
	}
	return vectorstore.NewSQLiteBackend(db)
}

func newGraphBackend(cfg *config.Config, db *storage.SQLiteStorage, logger *slog.Logger) graphstore.Backend {
	if cfg.Storage.GraphBackend != config.BackendNeo4j {
		return graphstore.NewSQLiteBackend(db)
	}

	b, err := graphstore.NewNeo4jBackend(graphstore.Neo4jConfig{
		URI:      cfg.Neo4j.URI,
		User:     cfg.Neo4j.User,
		Password: cfg.Neo4j.Password,
		Database: cfg.Neo4j.Database,
	})
	if err != nil {
		logger.Warn("neo4j driver unavailable, graph store degraded", "uri", cfg.Neo4j.URI, "error", err)
		return nil
	}
	return b
}

// APIDeps returns the components served over HTTP
func (a *App) APIDeps() api.Deps {
	return api.Deps{
		Runner:   a.Runner,
		Searcher: a.Searcher,
		Graph:    a.Graph,
		Vectors:  a.Vectors,
		Embedder: a.Embedder,
		Version:  a.Version,
	}
}

// MCPDeps returns the components exposed as MCP tools
func (a *App) MCPDeps() mcp.Deps {
	return mcp.Deps{
		Runner:   a.Runner,
		Searcher: a.Searcher,
		Graph:    a.Graph,
		Version:  a.Version,
	}
}

// Close stops background jobs and releases every resource
func (a *App) Close() error {
	a.Runner.Shutdown()

	var errs []error
	errs = append(errs, a.Embedder.Close(), a.Vectors.Close(), a.Graph.Close(), a.DB.Close())
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}
