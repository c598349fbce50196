package ingest

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scipeer/reviewd/internal/chunker"
	"github.com/scipeer/reviewd/internal/guideline"
	"github.com/scipeer/reviewd/internal/parser"
	"github.com/scipeer/reviewd/internal/vectorstore"
)

// Indexer is the slice of the vector store the worker depends on.
type Indexer interface {
	AddBatch(ctx context.Context, items []vectorstore.Item) (int, error)
	DeleteSource(ctx context.Context, source string) error
}

// Worker processes a single guideline ingestion job.
type Worker struct {
	store    Indexer
	log      *slog.Logger
	chunkCfg chunker.Config

	batchSize          int
	maxConcurrentEmbed int
	pdfFallback        bool
}

func NewWorker(store Indexer, log *slog.Logger, chunkCfg chunker.Config, batchSize, maxConcurrentEmbed int, pdfFallback bool) *Worker {
	if batchSize <= 0 {
		batchSize = 32
	}
	if maxConcurrentEmbed <= 0 {
		maxConcurrentEmbed = 1
	}
	return &Worker{
		store:              store,
		log:                log,
		chunkCfg:           chunkCfg,
		batchSize:          batchSize,
		maxConcurrentEmbed: maxConcurrentEmbed,
		pdfFallback:        pdfFallback,
	}
}

// Process runs the full ingestion pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename, "doc_type", job.DocType)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	if pdf, ok := p.(*parser.PDFParser); ok {
		pdf.FallbackPdftotext = w.pdfFallback
	}

	doc, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	doc.Source = job.Source
	if job.Title != "" {
		doc.Title = job.Title
	} else {
		job.SetTitle(doc.Title)
	}

	// Hash the parsed text so identical content is recognizable across
	// re-uploads regardless of container format.
	job.SetContentHash(ContentHashHex([]byte(flattenText(doc))))

	// The raw upload is no longer needed once parsed.
	job.SetFileData(nil)

	// Phase 2: Chunk
	job.SetStatus(StatusChunking, "chunking")
	chunks := chunker.ChunkDocument(doc, w.chunkCfg)
	job.SetTotalChunks(len(chunks))
	log.Info("chunked document", "chunks", len(chunks))

	if len(chunks) == 0 {
		log.Warn("no chunks produced")
		job.AddError("no indexable content")
		job.SetStatus(StatusFailed, "chunking")
		return
	}

	// Phase 3: Index. Re-ingesting a source replaces its previous chunks,
	// so stale ones are removed before the new batches go in.
	job.SetStatus(StatusIndexing, "indexing")
	if err := w.store.DeleteSource(ctx, job.Source); err != nil {
		log.Warn("stale chunk cleanup failed, proceeding", "source", job.Source, "error", err)
	}

	items := buildItems(chunks, job)

	var g errgroup.Group
	g.SetLimit(w.maxConcurrentEmbed)

	for start := 0; start < len(items); start += w.batchSize {
		batch := items[start:min(start+w.batchSize, len(items))]
		g.Go(func() error {
			n, err := w.indexBatch(ctx, batch)
			job.AddIndexed(n)
			if err != nil {
				first, last := batch[0].ChunkIndex, batch[len(batch)-1].ChunkIndex
				log.Error("batch index failed", "chunks", fmt.Sprintf("%d-%d", first, last), "error", err)
				job.AddError(fmt.Sprintf("chunks %d-%d: %s", first, last, err))
				return err
			}
			return nil
		})
	}

	// A failed batch does not cancel the others; the group error only
	// signals that at least one batch was lost.
	hadErrors := g.Wait() != nil

	indexed := job.Snapshot().Progress.ChunksIndexed
	log.Info("indexing complete", "indexed", indexed, "total", len(items), "errors", hadErrors)

	if hadErrors && indexed > 0 {
		job.SetStatus(StatusPartial, "done")
	} else if hadErrors {
		job.SetStatus(StatusFailed, "indexing")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
}

// indexBatch embeds and upserts one batch, retrying transient failures.
func (w *Worker) indexBatch(ctx context.Context, items []vectorstore.Item) (int, error) {
	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		n, err := w.store.AddBatch(ctx, items)
		if err == nil {
			return n, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return 0, err
		}
		w.log.Warn("retryable index error", "attempt", attempt, "error", err)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return 0, lastErr
}

func buildItems(chunks []guideline.Chunk, job *Job) []vectorstore.Item {
	items := make([]vectorstore.Item, len(chunks))
	for i, c := range chunks {
		items[i] = vectorstore.Item{
			Text:       c.Text,
			DocType:    string(job.DocType),
			Source:     job.Source,
			Breadcrumb: strings.Join(c.Breadcrumb, " > "),
			ChunkIndex: c.Index,
			PageStart:  c.PageStart,
			PageEnd:    c.PageEnd,
		}
	}
	return items
}

// flattenText joins all node text into a single string for hashing.
func flattenText(doc *guideline.Document) string {
	var sb strings.Builder
	var walk func(nodes []*guideline.Node)
	walk = func(nodes []*guideline.Node) {
		for _, n := range nodes {
			if n.Text != "" {
				if sb.Len() > 0 {
					sb.WriteString("\n")
				}
				sb.WriteString(n.Text)
			}
			walk(n.Children)
		}
	}
	walk(doc.Children)
	return sb.String()
}
