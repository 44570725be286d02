// Package config loads AetherNexus configuration from defaults, an optional
// config file, a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Backend names
const (
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
	BackendNeo4j  = "neo4j"
)

// Config is the complete service configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant" yaml:"qdrant"`
	Neo4j     Neo4jConfig     `mapstructure:"neo4j" yaml:"neo4j"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Indexing  IndexingConfig  `mapstructure:"indexing" yaml:"indexing"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Host  string `mapstructure:"host" yaml:"host"`
	Port  int    `mapstructure:"port" yaml:"port"`
	Debug bool   `mapstructure:"debug" yaml:"debug"`
}

// QdrantConfig configures the Qdrant vector backend
type QdrantConfig struct {
	Host       string `mapstructure:"host" yaml:"host"`
	Port       int    `mapstructure:"port" yaml:"port"`
	Collection string `mapstructure:"collection" yaml:"collection"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key,omitempty"`
}

// URL returns the REST endpoint of the Qdrant server
func (q QdrantConfig) URL() string {
	host := q.Host
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return fmt.Sprintf("%s:%d", host, q.Port)
}

// Neo4jConfig configures the Neo4j graph backend
type Neo4jConfig struct {
	URI      string `mapstructure:"uri" yaml:"uri"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	Database string `mapstructure:"database" yaml:"database,omitempty"`
}

// EmbeddingConfig configures the embedding gateway
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"`
	Model      string `mapstructure:"model" yaml:"model"`
	Dimension  int    `mapstructure:"dimension" yaml:"dimension"`
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OpenAIKey  string `mapstructure:"openai_api_key" yaml:"openai_api_key,omitempty"`
	JinaKey    string `mapstructure:"jina_api_key" yaml:"jina_api_key,omitempty"`
	CacheSize  int    `mapstructure:"cache_size" yaml:"cache_size"`
}

// StorageConfig selects the vector and graph backends
type StorageConfig struct {
	VectorBackend string `mapstructure:"vector_backend" yaml:"vector_backend"`
	GraphBackend  string `mapstructure:"graph_backend" yaml:"graph_backend"`
	StateDBPath   string `mapstructure:"state_db_path" yaml:"state_db_path"`
}

// IndexingConfig tunes the indexing pipeline
type IndexingConfig struct {
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// LoggingConfig configures log output
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file,omitempty"`
}

// envBindings maps config keys to the environment variables that set them
var envBindings = map[string][]string{
	"server.host":              {"HOST"},
	"server.port":              {"PORT"},
	"server.debug":             {"DEBUG"},
	"qdrant.host":              {"QDRANT_HOST"},
	"qdrant.port":              {"QDRANT_PORT"},
	"qdrant.collection":        {"QDRANT_COLLECTION"},
	"qdrant.api_key":           {"QDRANT_API_KEY"},
	"neo4j.uri":                {"NEO4J_URI"},
	"neo4j.user":               {"NEO4J_USER"},
	"neo4j.password":           {"NEO4J_PASSWORD"},
	"neo4j.database":           {"NEO4J_DATABASE"},
	"embedding.provider":       {"EMBEDDING_PROVIDER"},
	"embedding.model":          {"EMBEDDING_MODEL"},
	"embedding.dimension":      {"EMBEDDING_DIMENSION"},
	"embedding.ollama_host":    {"OLLAMA_HOST"},
	"embedding.openai_api_key": {"OPENAI_API_KEY"},
	"embedding.jina_api_key":   {"JINA_API_KEY"},
	"embedding.cache_size":     {"EMBEDDING_CACHE_SIZE"},
	"storage.vector_backend":   {"VECTOR_BACKEND"},
	"storage.graph_backend":    {"GRAPH_BACKEND"},
	"storage.state_db_path":    {"STATE_DB_PATH"},
	"indexing.workers":         {"INDEX_WORKERS"},
	"logging.level":            {"LOG_LEVEL"},
	"logging.format":           {"LOG_FORMAT"},
	"logging.file":             {"LOG_FILE"},
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Qdrant: QdrantConfig{
			Host:       "localhost",
			Port:       6333,
			Collection: "aethernexus_vectors",
		},
		Neo4j: Neo4jConfig{
			URI:  "bolt://localhost:7687",
			User: "neo4j",
		},
		Embedding: EmbeddingConfig{
			Provider:   "ollama",
			Model:      "all-minilm",
			Dimension:  384,
			OllamaHost: "http://localhost:11434",
			CacheSize:  10000,
		},
		Storage: StorageConfig{
			VectorBackend: BackendSQLite,
			GraphBackend:  BackendSQLite,
			StateDBPath:   DefaultStateDBPath(),
		},
		Indexing: IndexingConfig{
			Workers: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultStateDBPath returns ~/.aethernexus/state.db, or a relative path when
// the home directory cannot be determined
func DefaultStateDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".aethernexus", "state.db")
	}
	return filepath.Join(home, ".aethernexus", "state.db")
}

// Load reads configuration. An empty path searches for aethernexus.{yaml,toml,json}
// in the working directory and ~/.aethernexus; a missing file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("aethernexus")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".aethernexus"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Storage.StateDBPath = expandHome(cfg.Storage.StateDBPath)
	cfg.Logging.File = expandHome(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.debug", d.Server.Debug)
	v.SetDefault("qdrant.host", d.Qdrant.Host)
	v.SetDefault("qdrant.port", d.Qdrant.Port)
	v.SetDefault("qdrant.collection", d.Qdrant.Collection)
	v.SetDefault("qdrant.api_key", d.Qdrant.APIKey)
	v.SetDefault("neo4j.uri", d.Neo4j.URI)
	v.SetDefault("neo4j.user", d.Neo4j.User)
	v.SetDefault("neo4j.password", d.Neo4j.Password)
	v.SetDefault("neo4j.database", d.Neo4j.Database)
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimension", d.Embedding.Dimension)
	v.SetDefault("embedding.ollama_host", d.Embedding.OllamaHost)
	v.SetDefault("embedding.openai_api_key", d.Embedding.OpenAIKey)
	v.SetDefault("embedding.jina_api_key", d.Embedding.JinaKey)
	v.SetDefault("embedding.cache_size", d.Embedding.CacheSize)
	v.SetDefault("storage.vector_backend", d.Storage.VectorBackend)
	v.SetDefault("storage.graph_backend", d.Storage.GraphBackend)
	v.SetDefault("storage.state_db_path", d.Storage.StateDBPath)
	v.SetDefault("indexing.workers", d.Indexing.Workers)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}
	switch c.Storage.VectorBackend {
	case BackendSQLite, BackendQdrant:
	default:
		return fmt.Errorf("unknown vector backend %q", c.Storage.VectorBackend)
	}
	switch c.Storage.GraphBackend {
	case BackendSQLite, BackendNeo4j:
	default:
		return fmt.Errorf("unknown graph backend %q", c.Storage.GraphBackend)
	}
	if c.Storage.VectorBackend == BackendQdrant && (c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535) {
		return fmt.Errorf("invalid qdrant port %d", c.Qdrant.Port)
	}
	if c.Indexing.Workers < 0 {
		return fmt.Errorf("indexing workers cannot be negative")
	}
	return nil
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// WriteDefault writes the default configuration as YAML to path.
// Existing files are not overwritten.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
