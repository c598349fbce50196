package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/scipeer/reviewd/internal/config"
	"github.com/scipeer/reviewd/internal/guideline"
)

func testConfig() config.Config {
	return config.Config{
		WorkerCount:        1,
		MaxQueueSize:       4,
		MaxConcurrentEmbed: 2,
		EmbedBatchSize:     8,
		ChunkSize:          1000,
		ChunkOverlap:       200,
		JobTTL:             time.Hour,
	}
}

func TestOrchestrator_SubmitAndGetJob(t *testing.T) {
	o := NewOrchestrator(testConfig(), &fakeIndexer{}, testLogger())

	job := NewJob("guide.md", "guide.md", guideline.DocTypeClarity, nil)
	if err := o.Submit(job); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if got := o.GetJob(job.ID); got == nil || got.ID != job.ID {
		t.Fatalf("expected to get job %q back, got %v", job.ID, got)
	}
	if depth := o.QueueDepth(); depth != 1 {
		t.Errorf("expected queue depth 1, got %d", depth)
	}
}

func TestOrchestrator_SubmitQueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.MaxQueueSize = 1
	o := NewOrchestrator(cfg, &fakeIndexer{}, testLogger())

	first := NewJob("a.md", "a.md", guideline.DocTypeClarity, nil)
	if err := o.Submit(first); err != nil {
		t.Fatalf("first Submit() error: %v", err)
	}

	second := NewJob("b.md", "b.md", guideline.DocTypeClarity, nil)
	if err := o.Submit(second); err == nil {
		t.Fatal("expected error when queue is full")
	}
	snap := second.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("expected status %q, got %q", StatusFailed, snap.Status)
	}
	if snap.Phase != "queue_full" {
		t.Errorf("expected phase %q, got %q", "queue_full", snap.Phase)
	}
	// The rejected job stays queryable.
	if o.GetJob(second.ID) == nil {
		t.Error("expected rejected job to remain in the store")
	}
}

func TestOrchestrator_ProcessesJobEndToEnd(t *testing.T) {
	content := `# Reproducibility

Report every preprocessing step in enough detail that another group could
repeat it. Name the software versions, the random seeds, and the hardware
used for each experiment. When results depend on tuned parameters, publish
the full search space and the selection rule rather than just the winning
configuration.
`
	fake := &fakeIndexer{}
	o := NewOrchestrator(testConfig(), fake, testLogger())
	o.Start(context.Background())
	defer o.Stop()

	job := NewJob("repro.md", "repro.md", guideline.DocTypeRigor, []byte(content))
	if err := o.Submit(job); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		snap := o.GetJob(job.ID).Snapshot()
		switch snap.Status {
		case StatusCompleted:
			if snap.Progress.ChunksIndexed == 0 {
				t.Error("expected at least one chunk indexed")
			}
			if got := fake.items(); len(got) == 0 || got[0].DocType != "rigor" {
				t.Errorf("expected rigor items in the store, got %v", got)
			}
			return
		case StatusFailed, StatusPartial:
			t.Fatalf("expected job to complete, got %q (errors: %v)", snap.Status, snap.Progress.Errors)
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for job, last status %q", snap.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
