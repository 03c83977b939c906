package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/pkg/utils"
)

type chunkReport struct {
	name   string
	chunks int
	path   string
}

type buildReport struct {
	name   string
	result *indexer.BuildResult
}

// selectCorpora returns the corpus called name, or every corpus when name is empty.
// buildEmbeddingOptions returns the embedder settings for writing artifacts.
// Fallback is always off so a missing model cannot persist mock vectors.
func buildEmbeddingOptions(cfg *config.Config) embedding.Options {
	opts := cfg.EmbeddingOptions()
	opts.AllowFallback = false
	return opts
}

func selectCorpora(cfg *config.Config, name string) ([]config.CorpusConfig, error) {
	if name == "" {
		return cfg.Corpora, nil
	}
	c, ok := cfg.Corpus(name)
	if !ok {
		return nil, fmt.Errorf("unknown corpus: %s", name)
	}
	return []config.CorpusConfig{c}, nil
}

// chunkCorpora extracts and chunks each selected corpus and writes its chunk records.
// dir overrides the configured documents directory and needs a single corpus.
func chunkCorpora(ctx context.Context, cfg *config.Config, name, dir string, logger *zap.Logger) ([]chunkReport, error) {
	logger = utils.OrNop(logger)
	corpora, err := selectCorpora(cfg, name)
	if err != nil {
		return nil, err
	}
	if dir != "" && len(corpora) != 1 {
		return nil, errors.New("a documents directory argument requires --corpus")
	}

	corpus := indexer.NewCorpus(
		indexer.NewChunker(cfg.Chunking.MaxSize),
		extract.NewExtractor(),
		cfg.Chunking.Extensions,
		indexer.WithCorpusLogger(logger),
	)
	reports := make([]chunkReport, 0, len(corpora))
	for _, c := range corpora {
		src := c.DocumentsDir
		if dir != "" {
			src = dir
		}
		chunks, err := corpus.ChunkDirectory(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("corpus %s: %w", c.Name, err)
		}
		if err := indexer.WriteChunks(c.ChunksPath, chunks); err != nil {
			return nil, fmt.Errorf("corpus %s: %w", c.Name, err)
		}
		reports = append(reports, chunkReport{name: c.Name, chunks: len(chunks), path: c.ChunksPath})
	}
	return reports, nil
}

// buildCorpora embeds the chunk records of each selected corpus and writes its store
// and index.
func buildCorpora(ctx context.Context, cfg *config.Config, name string, embedder embedding.Embedder, logger *zap.Logger) ([]buildReport, error) {
	logger = utils.OrNop(logger)
	corpora, err := selectCorpora(cfg, name)
	if err != nil {
		return nil, err
	}
	idx := indexer.NewIndexer(embedder,
		indexer.WithLogger(logger),
		indexer.WithBatchSize(cfg.Embedding.BatchSize))

	reports := make([]buildReport, 0, len(corpora))
	for _, c := range corpora {
		res, err := buildCorpus(ctx, idx, c, cfg.Retrieval.IndexType, embedder.Dimensions())
		if err != nil {
			return nil, fmt.Errorf("corpus %s: %w", c.Name, err)
		}
		reports = append(reports, buildReport{name: c.Name, result: res})
	}
	return reports, nil
}

func buildCorpus(ctx context.Context, idx *indexer.Indexer, c config.CorpusConfig, indexType string, dims int) (*indexer.BuildResult, error) {
	chunks, err := indexer.ReadChunks(c.ChunksPath)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(c.Location())
	if err != nil {
		return nil, err
	}
	defer store.Close()
	index, err := vector.NewVectorIndex(indexType, dims)
	if err != nil {
		return nil, err
	}
	defer index.Close()
	return idx.Build(ctx, chunks, store, index, c.IndexPath)
}

// statusDirect loads the catalog from disk and reports it with artifact disk usage.
func statusDirect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*models.Status, error) {
	catalog, err := search.LoadCatalog(ctx, cfg.Artifacts(), cfg.Retrieval.IndexType, logger)
	if err != nil {
		return nil, err
	}
	defer catalog.Close()
	st := catalog.Status()
	if n, err := storage.DiskUsageBytes(cfg.ArtifactPaths()...); err == nil {
		st.DiskUsageBytes = n
	}
	return st, nil
}

func askViaHTTP(ctx context.Context, client *http.Client, serverURL, question string) (*models.Answer, error) {
	body, err := json.Marshal(models.QueryRequest{Question: question})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(serverURL, "/")+"/api/v1/answer", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var out models.Answer
	if err := doJSON(client, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func statusViaHTTP(ctx context.Context, client *http.Client, serverURL string) (*models.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(serverURL, "/")+"/api/v1/status", nil)
	if err != nil {
		return nil, err
	}
	var out models.Status
	if err := doJSON(client, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// writeDefaultConfig writes a config holding every default to path.
func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return config.Save(path, cfg)
}
