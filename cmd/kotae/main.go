// Package main is the kotae CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/answer"
	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

const defaultServerURL = "http://localhost:5050"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// A .env file next to the loaded config, or in the current directory, is loaded into
// the environment first so OPENAI_API_KEY can live there.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
	}
	if err := loadEnvFiles(path); err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func loadEnvFiles(configPath string) error {
	candidates := []string{filepath.Join(filepath.Dir(configPath), ".env")}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ".env"))
	}
	for _, p := range candidates {
		if err := config.LoadEnv(p); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "chunk":
		runChunk()
	case "build":
		runBuild()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "init":
		runInit()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and creates the logger shared by every command.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger, string) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugFlag)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger, resolved
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, resolvedConfigPath := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	embedder, err := embedding.New(cfg.EmbeddingOptions(), logger)
	if err != nil {
		logger.Fatal("Failed to create embedder", zap.Error(err))
	}
	defer embedder.Close()

	generator, err := llm.New(cfg.GenerationOptions())
	if err != nil {
		logger.Fatal("Failed to create generator", zap.Error(err))
	}

	catalog, err := search.LoadCatalog(ctx, cfg.Artifacts(), cfg.Retrieval.IndexType, logger)
	if err != nil {
		logger.Fatal("Failed to load corpora", zap.Error(err))
	}
	if catalog.Dimensions() != embedder.Dimensions() {
		logger.Fatal("Embedder and corpora disagree on dimension",
			zap.Int("embedder", embedder.Dimensions()),
			zap.Int("corpora", catalog.Dimensions()))
	}
	snapshot := search.NewSnapshot(catalog)
	defer func() { _ = snapshot.Load().Close() }()

	if cfg.Retrieval.ReloadOnChange {
		reloader := watcher.NewReloader(cfg.Artifacts(), cfg.Retrieval.IndexType, snapshot,
			watcher.WithReloadLogger(logger),
			watcher.WithRetireAfter(2*cfg.Server.RequestTimeout))
		w := watcher.NewWatcher(cfg.ArtifactPaths(),
			func() { _ = reloader.Reload(ctx) },
			watcher.WithLogger(logger),
			watcher.WithDebounce(cfg.Retrieval.ReloadDebounce))
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
		logger.Info("Watching corpus artifacts", zap.Strings("directories", w.Directories()))
	}

	pipeline := answer.NewPipeline(embedder, generator, snapshot,
		answer.WithTopK(cfg.Retrieval.TopK),
		answer.WithTimeouts(cfg.Embedding.Timeout, cfg.Generation.Timeout),
		answer.WithLogger(logger))

	srv := server.NewServer(pipeline, snapshot, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runChunk() {
	fs := flag.NewFlagSet("chunk", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	corpus := fs.String("corpus", "", "corpus name (default: all corpora)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, _ := setup(*configPath, *debug)
	defer logger.Sync()

	results, err := chunkCorpora(context.Background(), cfg, *corpus, fs.Arg(0), logger)
	if err != nil {
		fmt.Printf("Chunking failed: %v\n", err)
		os.Exit(1)
	}
	for _, r := range results {
		fmt.Printf("%s: %d chunks -> %s\n", r.name, r.chunks, r.path)
	}
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	corpus := fs.String("corpus", "", "corpus name (default: all corpora)")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, _ := setup(*configPath, *debug)
	defer logger.Sync()

	embedder, err := embedding.New(buildEmbeddingOptions(cfg), logger)
	if err != nil {
		fmt.Printf("Failed to create embedder: %v\n", err)
		os.Exit(1)
	}
	defer embedder.Close()

	results, err := buildCorpora(context.Background(), cfg, *corpus, embedder, logger)
	if err != nil {
		fmt.Printf("Build failed: %v\n", err)
		os.Exit(1)
	}
	for _, r := range results {
		fmt.Printf("%s: %d vectors (%d dims) in %s\n", r.name, r.result.Vectors, r.result.Dimensions, r.result.Duration.Round(time.Millisecond))
	}
}

func printAskUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kotae ask [flags] <question>\n\n")
	fmt.Fprintf(fs.Output(), "The question is all remaining arguments joined by spaces.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  kotae ask how do I fit a pipeline
  kotae ask --context "what does predict_proba return?"
  kotae ask --server "" --output json what is a tokenizer   # answer without a running server
`)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = answer directly without a server)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	showContext := fs.Bool("context", false, "print the retrieved context")
	fs.Usage = func() { printAskUsage(fs) }
	_ = fs.Parse(argsReorder(os.Args[2:]))

	question := buildQuestion(fs.Args())
	if question == "" {
		printAskUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	var result *models.Answer
	if *serverURL != "" {
		result, err = askViaHTTP(context.Background(), http.DefaultClient, *serverURL, question)
	} else {
		result, err = askDirect(*configPath, question)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteAnswer(os.Stdout, result, format, *showContext); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func askDirect(configPath, question string) (*models.Answer, error) {
	cfg, logger, _ := setup(configPath, false)
	defer logger.Sync()
	ctx := context.Background()

	embedder, err := embedding.New(cfg.EmbeddingOptions(), logger)
	if err != nil {
		return nil, err
	}
	defer embedder.Close()
	generator, err := llm.New(cfg.GenerationOptions())
	if err != nil {
		return nil, err
	}
	catalog, err := search.LoadCatalog(ctx, cfg.Artifacts(), cfg.Retrieval.IndexType, logger)
	if err != nil {
		return nil, err
	}
	defer catalog.Close()

	pipeline := answer.NewPipeline(embedder, generator, search.NewSnapshot(catalog),
		answer.WithTopK(cfg.Retrieval.TopK),
		answer.WithTimeouts(cfg.Embedding.Timeout, cfg.Generation.Timeout),
		answer.WithLogger(logger))
	return pipeline.Answer(ctx, question)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (for direct mode)")
	serverURL := fs.String("server", "", "server URL (empty = read artifacts directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	var st *models.Status
	if *serverURL != "" {
		st, err = statusViaHTTP(context.Background(), http.DefaultClient, *serverURL)
	} else {
		cfg, logger, _ := setup(*configPath, false)
		defer logger.Sync()
		st, err = statusDirect(context.Background(), cfg, logger)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "where to write the config file")
	force := fs.Bool("force", false, "overwrite an existing config file")
	_ = fs.Parse(os.Args[2:])

	if err := writeDefaultConfig(*configPath, *force); err != nil {
		fmt.Printf("Init failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", *configPath)
}

// argsReorder moves any flags (and their values) that appear after the question
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func printUsage() {
	fmt.Println(`kotae - question answering over your documentation corpora

Usage:
  kotae server [flags]            Start the HTTP server
  kotae chunk [flags] [dir]       Extract and chunk raw documents into chunk records
  kotae build [flags]             Embed chunk records and write the store and index
  kotae ask [flags] <question>    Ask a question
  kotae status [flags]            Show loaded corpora and index status
  kotae init [flags]              Write a default config file
  kotae version                   Show version
  kotae help                      Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/kotae/config.yaml)
  --debug            Enable debug logging

Chunk / Build Flags:
  --config string    Config file path
  --corpus string    Only process this corpus (default: all)
  [dir]              Chunk this directory instead of the corpus documents_dir (requires --corpus)

Ask Flags:
  --config string    Config file path (for direct mode)
  --server string    Server URL (default: http://localhost:5050). Use --server "" to answer without a server.
  --output string    Output format: text or json (default: text)
  --context          Print the retrieved context

Status Flags:
  --config string    Config file path
  --server string    Server URL; empty reads artifacts directly (default: empty)
  --output string    Output format: text or json (default: text)

Examples:
  kotae init
  kotae chunk
  kotae build --corpus sklearn
  kotae server
  kotae ask how do I train a model
  kotae status --output json`)
}
