package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/scipeer/reviewd/internal/config"
	"github.com/scipeer/reviewd/internal/guideline"
	"github.com/scipeer/reviewd/internal/ingest"
	"github.com/scipeer/reviewd/internal/llm"
	"github.com/scipeer/reviewd/internal/parser"
	"github.com/scipeer/reviewd/internal/vectorstore"
)

func newIngestCmd() *cobra.Command {
	var (
		dir     string
		file    string
		docType string
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index guideline documents without starting the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(dir, file, docType)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Directory of guideline documents to index")
	cmd.Flags().StringVar(&file, "file", "", "Single guideline document to index")
	cmd.Flags().StringVar(&docType, "doc-type", "", "Guideline type: clarity or rigor")
	cmd.MarkFlagRequired("doc-type")
	return cmd
}

func runIngest(dir, file, docType string) error {
	dt, err := guideline.ParseDocType(docType)
	if err != nil {
		return err
	}
	if (dir == "") == (file == "") {
		return errors.New("exactly one of --dir or --file is required")
	}

	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.OpenAIAPIKey == "" {
		return errors.New("OPENAI_API_KEY is required for embedding")
	}

	log := newLogger(cfg)

	paths, err := collectPaths(dir, file)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no supported documents found")
	}

	openai := llm.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIRPS)
	defer openai.Close()
	qdrant := vectorstore.NewClient(cfg.QdrantURL, cfg.QdrantAPIKey)
	defer qdrant.Close()
	store := vectorstore.NewStore(qdrant, openai, log, cfg.QdrantCollection, cfg.EmbeddingModel, cfg.EmbeddingDims)

	ctx := context.Background()
	initCtx, initCancel := context.WithTimeout(ctx, 30*time.Second)
	defer initCancel()
	if err := store.Init(initCtx); err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}

	worker := ingest.NewWorker(store, log, ingest.ChunkConfig(cfg),
		cfg.EmbedBatchSize, cfg.MaxConcurrentEmbed, cfg.PDFFallbackPdftotext)

	failed := 0
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Error("read document", "path", path, "error", err)
			failed++
			continue
		}

		name := filepath.Base(path)
		job := ingest.NewJob(name, name, dt, data)
		worker.Process(ctx, job)

		snap := job.Snapshot()
		switch snap.Status {
		case ingest.StatusCompleted:
			log.Info("indexed document", "file", name, "chunks", snap.Progress.ChunksIndexed)
		case ingest.StatusPartial:
			log.Warn("partially indexed document", "file", name,
				"indexed", snap.Progress.ChunksIndexed,
				"total", snap.Progress.TotalChunks,
				"errors", snap.Progress.Errors)
		default:
			log.Error("failed to index document", "file", name, "errors", snap.Progress.Errors)
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(paths))
	}
	log.Info("ingest complete", "documents", len(paths))
	return nil
}

// collectPaths expands --dir or --file into the list of documents to index.
// Directory listings skip subdirectories and unsupported extensions.
func collectPaths(dir, file string) ([]string, error) {
	if file != "" {
		if !parser.IsSupportedExtension(file) {
			return nil, fmt.Errorf("unsupported file type: %s", filepath.Ext(file))
		}
		return []string{file}, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !parser.IsSupportedExtension(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}
