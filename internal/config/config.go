// Package config provides configuration loading and structs for the kotae server and tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/storage"
)

// APIKeyEnv names the environment variable holding the OpenAI API key.
const APIKeyEnv = "OPENAI_API_KEY"

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Corpora    []CorpusConfig   `yaml:"corpora"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Provider    string        `yaml:"provider"`
	ModelPath   string        `yaml:"model_path"`
	VocabPath   string        `yaml:"vocab_path"`
	Dimensions  int           `yaml:"dimensions"`
	MaxTokens   int           `yaml:"max_tokens"`
	CacheSize   int           `yaml:"cache_size"`
	OpenAIModel string        `yaml:"openai_model"`
	BaseURL     string        `yaml:"base_url"`
	BatchSize   int           `yaml:"batch_size"`
	Timeout     time.Duration `yaml:"timeout"`
	// AllowMockFallback lets the server answer with mock embeddings when the ONNX
	// model cannot be loaded. Builds never fall back.
	AllowMockFallback bool `yaml:"allow_mock_fallback"`
}

// GenerationConfig holds answer-generation settings.
type GenerationConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	Temperature *float64      `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

// TemperatureOrDefault returns the sampling temperature; defaults to 0.3 when unset.
func (g *GenerationConfig) TemperatureOrDefault() float64 {
	if g.Temperature != nil {
		return *g.Temperature
	}
	return llm.DefaultTemperature
}

// RetrievalConfig holds search settings.
type RetrievalConfig struct {
	TopK           int           `yaml:"top_k"`
	IndexType      string        `yaml:"index_type"`
	ReloadOnChange bool          `yaml:"reload_on_change"`
	ReloadDebounce time.Duration `yaml:"reload_debounce"`
}

// ChunkingConfig holds corpus-preparation settings.
type ChunkingConfig struct {
	MaxSize    int      `yaml:"max_size"`
	Extensions []string `yaml:"extensions"`
}

// CorpusConfig locates the documents and artifacts of one corpus.
type CorpusConfig struct {
	Name           string `yaml:"name"`
	DocumentsDir   string `yaml:"documents_dir"`
	ChunksPath     string `yaml:"chunks_path"`
	Store          string `yaml:"store"`
	EmbeddingsPath string `yaml:"embeddings_path"`
	TextsPath      string `yaml:"texts_path"`
	DatabasePath   string `yaml:"database_path"`
	IndexPath      string `yaml:"index_path"`
}

// Location returns where the corpus's embedding store lives.
func (c CorpusConfig) Location() storage.Location {
	return storage.Location{
		Kind:           storage.Kind(c.Store),
		Corpus:         c.Name,
		EmbeddingsPath: c.EmbeddingsPath,
		TextsPath:      c.TextsPath,
		DatabasePath:   c.DatabasePath,
	}
}

// Artifacts returns the store and index locations of the corpus.
func (c CorpusConfig) Artifacts() search.CorpusArtifacts {
	return search.CorpusArtifacts{Name: c.Name, Store: c.Location(), IndexPath: c.IndexPath}
}

// Corpus returns the corpus called name.
func (cfg *Config) Corpus(name string) (CorpusConfig, bool) {
	for _, c := range cfg.Corpora {
		if c.Name == name {
			return c, true
		}
	}
	return CorpusConfig{}, false
}

// Artifacts returns the artifacts of every corpus in retrieval order.
func (cfg *Config) Artifacts() []search.CorpusArtifacts {
	out := make([]search.CorpusArtifacts, len(cfg.Corpora))
	for i, c := range cfg.Corpora {
		out[i] = c.Artifacts()
	}
	return out
}

// ArtifactDirs returns the distinct directories holding corpus stores and indexes.
func (cfg *Config) ArtifactDirs() []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, c := range cfg.Corpora {
		paths := append(c.Location().Paths(), c.IndexPath)
		for _, p := range paths {
			if p == "" {
				continue
			}
			d := filepath.Dir(p)
			if !seen[d] {
				seen[d] = true
				dirs = append(dirs, d)
			}
		}
	}
	return dirs
}

// EmbeddingOptions returns the embedder settings with the API key from the environment.
func (cfg *Config) EmbeddingOptions() embedding.Options {
	return embedding.Options{
		Provider:    embedding.Provider(cfg.Embedding.Provider),
		ModelPath:   cfg.Embedding.ModelPath,
		VocabPath:   cfg.Embedding.VocabPath,
		Dimensions:  cfg.Embedding.Dimensions,
		MaxTokens:   cfg.Embedding.MaxTokens,
		CacheSize:   cfg.Embedding.CacheSize,
		OpenAIModel: cfg.Embedding.OpenAIModel,
		APIKey:      os.Getenv(APIKeyEnv),
		BaseURL:     cfg.Embedding.BaseURL,

		AllowFallback: cfg.Embedding.AllowMockFallback,
	}
}

// GenerationOptions returns the generator settings with the API key from the environment.
func (cfg *Config) GenerationOptions() llm.Options {
	return llm.Options{
		Provider:    cfg.Generation.Provider,
		Model:       cfg.Generation.Model,
		Temperature: cfg.Generation.TemperatureOrDefault(),
		MaxTokens:   cfg.Generation.MaxTokens,
		APIKey:      os.Getenv(APIKeyEnv),
		BaseURL:     cfg.Generation.BaseURL,
	}
}

// Load reads and parses the config file at path, applies defaults, expands paths
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.VocabPath = expandPath(cfg.Embedding.VocabPath, configDir)
	for i := range cfg.Corpora {
		c := &cfg.Corpora[i]
		c.DocumentsDir = expandPath(c.DocumentsDir, configDir)
		c.ChunksPath = expandPath(c.ChunksPath, configDir)
		c.EmbeddingsPath = expandPath(c.EmbeddingsPath, configDir)
		c.TextsPath = expandPath(c.TextsPath, configDir)
		c.DatabasePath = expandPath(c.DatabasePath, configDir)
		c.IndexPath = expandPath(c.IndexPath, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// LoadEnv loads environment variables from the .env file at path. A missing file is not
// an error; variables already set in the environment win.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (cfg *Config) Validate() error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	switch embedding.Provider(cfg.Embedding.Provider) {
	case embedding.ProviderONNX, embedding.ProviderOpenAI, embedding.ProviderMock:
	default:
		return fmt.Errorf("unknown embedding.provider: %s", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", cfg.Embedding.Dimensions)
	}
	switch cfg.Generation.Provider {
	case "openai", "mock":
	default:
		return fmt.Errorf("unknown generation.provider: %s", cfg.Generation.Provider)
	}
	if t := cfg.Generation.TemperatureOrDefault(); t < 0 || t > 2 {
		return fmt.Errorf("generation.temperature %.2f out of range [0, 2]", t)
	}
	if cfg.Retrieval.TopK < 0 {
		return fmt.Errorf("retrieval.top_k must not be negative, got %d", cfg.Retrieval.TopK)
	}
	switch cfg.Retrieval.IndexType {
	case "flat", "faiss":
	default:
		return fmt.Errorf("unknown retrieval.index_type: %s", cfg.Retrieval.IndexType)
	}
	if cfg.Chunking.MaxSize <= 0 {
		return fmt.Errorf("chunking.max_size must be positive, got %d", cfg.Chunking.MaxSize)
	}
	if len(cfg.Corpora) == 0 {
		return errors.New("at least one corpus is required")
	}
	names := make(map[string]bool, len(cfg.Corpora))
	for _, c := range cfg.Corpora {
		if strings.TrimSpace(c.Name) == "" {
			return errors.New("corpus name must not be empty")
		}
		if names[c.Name] {
			return fmt.Errorf("duplicate corpus name: %s", c.Name)
		}
		names[c.Name] = true
		switch storage.Kind(c.Store) {
		case storage.KindFile:
			if c.EmbeddingsPath == "" || c.TextsPath == "" {
				return fmt.Errorf("corpus %s: embeddings_path and texts_path are required", c.Name)
			}
		case storage.KindSQLite:
			if c.DatabasePath == "" {
				return fmt.Errorf("corpus %s: database_path is required", c.Name)
			}
		default:
			return fmt.Errorf("corpus %s: unknown store %q (supported: file, sqlite)", c.Name, c.Store)
		}
		if c.IndexPath == "" {
			return fmt.Errorf("corpus %s: index_path is required", c.Name)
		}
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

// ArtifactPaths returns the distinct store and index files of every corpus.
func (cfg *Config) ArtifactPaths() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, c := range cfg.Corpora {
		for _, p := range append(c.Location().Paths(), c.IndexPath) {
			if p != "" && !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	return paths
}
