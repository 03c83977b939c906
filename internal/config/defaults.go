package config

import (
	"time"

	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/storage"
)

// DefaultCorpora are the corpora served when none are configured.
var DefaultCorpora = []string{"sklearn", "hf"}

// DefaultMaxChunkSize is the chunker's soft size bound in characters.
const DefaultMaxChunkSize = 1200

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5050
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = string(embedding.ProviderONNX)
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kotae/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = embedding.DefaultDimensions
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = embedding.DefaultMaxTokens
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.OpenAIModel == "" {
		cfg.Embedding.OpenAIModel = embedding.DefaultOpenAIModel
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = indexer.DefaultBatchSize
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}

	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = "openai"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = llm.DefaultModel
	}
	if cfg.Generation.Temperature == nil {
		t := llm.DefaultTemperature
		cfg.Generation.Temperature = &t
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 60 * time.Second
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = search.DefaultTopK
	}
	if cfg.Retrieval.IndexType == "" {
		cfg.Retrieval.IndexType = "flat"
	}
	if cfg.Retrieval.ReloadDebounce == 0 {
		cfg.Retrieval.ReloadDebounce = 500 * time.Millisecond
	}

	if cfg.Chunking.MaxSize == 0 {
		cfg.Chunking.MaxSize = DefaultMaxChunkSize
	}
	if cfg.Chunking.Extensions == nil {
		cfg.Chunking.Extensions = append([]string(nil), extract.DefaultExtensions...)
	}

	if cfg.Corpora == nil {
		for _, name := range DefaultCorpora {
			cfg.Corpora = append(cfg.Corpora, CorpusConfig{Name: name})
		}
	}
	for i := range cfg.Corpora {
		applyCorpusDefaults(&cfg.Corpora[i], cfg.Retrieval.IndexType)
	}
}

func applyCorpusDefaults(c *CorpusConfig, indexType string) {
	if c.Store == "" {
		c.Store = string(storage.KindFile)
	}
	if c.DocumentsDir == "" {
		c.DocumentsDir = "./docs/" + c.Name
	}
	if c.ChunksPath == "" {
		c.ChunksPath = "./embeddings/" + c.Name + "_chunks.json"
	}
	if c.Store == string(storage.KindFile) {
		if c.EmbeddingsPath == "" {
			c.EmbeddingsPath = "./embeddings/" + c.Name + "_embeddings.bin"
		}
		if c.TextsPath == "" {
			c.TextsPath = "./embeddings/" + c.Name + "_texts.json"
		}
	}
	if c.Store == string(storage.KindSQLite) && c.DatabasePath == "" {
		c.DatabasePath = "./embeddings/kotae.db"
	}
	if c.IndexPath == "" {
		c.IndexPath = "./embeddings/" + c.Name + "_index." + indexType
	}
}
