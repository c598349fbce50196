package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/scipeer/reviewd/internal/agent"
	"github.com/scipeer/reviewd/internal/api"
	"github.com/scipeer/reviewd/internal/config"
	"github.com/scipeer/reviewd/internal/ingest"
	"github.com/scipeer/reviewd/internal/llm"
	"github.com/scipeer/reviewd/internal/retrieval"
	"github.com/scipeer/reviewd/internal/review"
	"github.com/scipeer/reviewd/internal/tavily"
	"github.com/scipeer/reviewd/internal/vectorstore"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the review and guideline HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log := newLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	openai := llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIRPS)
	qdrant := vectorstore.NewClient(cfg.QdrantURL, cfg.QdrantAPIKey)
	store := vectorstore.NewStore(qdrant, openai, log, cfg.QdrantCollection, cfg.EmbeddingModel, cfg.EmbeddingDims)

	initCtx, initCancel := context.WithTimeout(ctx, 30*time.Second)
	defer initCancel()
	if err := store.Init(initCtx); err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}

	// Retrieval strategies.
	registry := retrieval.NewRegistry(log)
	registry.Register(config.StrategyNaive, retrieval.NaiveBuilder{})
	registry.Register(config.StrategyBM25, retrieval.NewBM25Builder(log))
	registry.Register(config.StrategyRerank, retrieval.NewRerankBuilder(log))

	// Review agents and orchestrator.
	agents, search, err := buildAgents(ctx, cfg, registry, store, openai, log)
	if err != nil {
		return err
	}
	reviewer := review.NewOrchestrator(agents, openai, log, review.Options{
		Model:            cfg.OrchestratorModel,
		Temperature:      cfg.Temperature,
		MaxSectionTokens: cfg.MaxSectionTokens,
	})

	// Guideline ingest pipeline.
	ingester := ingest.NewOrchestrator(cfg, store, log)
	ingester.Start(ctx)

	srv := api.NewServer(reviewer, ingester, registry, store, openai.Stats, log, cfg)

	// WriteTimeout stays unset: review sockets hold the connection open for
	// the full length of an analysis.
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		ingester.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		openai.Close()
		qdrant.Close()
		if search != nil {
			search.Close()
		}
	}()

	log.Info("starting reviewd", "port", cfg.Port, "strategies", registry.List(), "search_enabled", cfg.SearchEnabled())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// buildAgents constructs the clarity and rigor agents with their per-agent
// retrieval pipelines. The returned tavily client is nil when web search is
// not configured.
func buildAgents(ctx context.Context, cfg config.Config, registry *retrieval.Registry, store *vectorstore.Store, gen agent.Generator, log *slog.Logger) ([]review.Agent, *tavily.Client, error) {
	clarityPipeline, err := registry.Create(ctx, cfg.ClarityRetriever, store,
		retrieverOverrides(cfg, cfg.ClarityRetriever, cfg.ClarityK, cfg.ClarityInitialK, "clarity"))
	if err != nil {
		return nil, nil, fmt.Errorf("clarity retriever: %w", err)
	}
	rigorPipeline, err := registry.Create(ctx, cfg.RigorRetriever, store,
		retrieverOverrides(cfg, cfg.RigorRetriever, cfg.RigorK, cfg.RigorInitialK, "rigor"))
	if err != nil {
		return nil, nil, fmt.Errorf("rigor retriever: %w", err)
	}

	var (
		search   *tavily.Client
		searcher agent.Searcher
	)
	if cfg.SearchEnabled() {
		search = tavily.NewClient("", cfg.TavilyAPIKey, cfg.TavilySearchDepth, cfg.TavilyMaxResults)
		searcher = search
	}

	clarity := agent.NewClarity(gen, clarityPipeline, log, agent.ClarityOptions{
		Model:       cfg.ClarityModel,
		Temperature: cfg.Temperature,
	})
	rigor := agent.NewRigor(gen, rigorPipeline, searcher, log, agent.RigorOptions{
		Model:        cfg.RigorModel,
		Temperature:  cfg.Temperature,
		MaxToolCalls: cfg.MaxToolCalls,
	})

	return []review.Agent{clarity, rigor}, search, nil
}

// retrieverOverrides maps service config onto a strategy's config keys. The
// rerank keys are only meaningful to the cohere_rerank builder.
func retrieverOverrides(cfg config.Config, strategy string, k, initialK int, docType string) retrieval.Config {
	overrides := retrieval.Config{
		"k":        k,
		"doc_type": docType,
	}
	if strategy == config.StrategyRerank {
		overrides["initial_k"] = initialK
		overrides["model"] = cfg.CohereRerankModel
		overrides["cohere_api_key"] = cfg.CohereAPIKey
	}
	return overrides
}

func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stdout
	if cfg.LogFile != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}
