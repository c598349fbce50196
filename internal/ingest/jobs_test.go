package ingest

import (
	"testing"
	"time"

	"github.com/scipeer/reviewd/internal/guideline"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestContentHashHex_DifferentInputs(t *testing.T) {
	h1 := ContentHashHex([]byte("aaa"))
	h2 := ContentHashHex([]byte("bbb"))
	if h1 == h2 {
		t.Error("expected different hashes for different inputs")
	}
}

func TestContentHashHex_EmptyInput(t *testing.T) {
	h := ContentHashHex([]byte{})
	// SHA-256 of empty input is well-known.
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if h != want {
		t.Errorf("expected hash %q, got %q", want, h)
	}
}

func TestNewJob_Defaults(t *testing.T) {
	data := []byte("# Heading\n\nBody.")
	job := NewJob("guide.md", "guide.md", guideline.DocTypeClarity, data)

	if job.ID == "" {
		t.Error("expected non-empty job ID")
	}
	if job.Status != StatusQueued {
		t.Errorf("expected status %q, got %q", StatusQueued, job.Status)
	}
	if job.Phase != "queued" {
		t.Errorf("expected phase %q, got %q", "queued", job.Phase)
	}
	if job.DocType != guideline.DocTypeClarity {
		t.Errorf("expected doc type %q, got %q", guideline.DocTypeClarity, job.DocType)
	}
	if string(job.FileData()) != string(data) {
		t.Error("expected file data to be retained")
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestNewJob_UniqueIDs(t *testing.T) {
	a := NewJob("a.md", "a.md", guideline.DocTypeClarity, nil)
	b := NewJob("b.md", "b.md", guideline.DocTypeClarity, nil)
	if a.ID == b.ID {
		t.Errorf("expected unique job IDs, got %q twice", a.ID)
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob("guide.md", "guide.md", guideline.DocTypeRigor, nil)

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusParsing, "parsing document"},
		{StatusChunking, "splitting into chunks"},
		{StatusIndexing, "embedding and upserting"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestJob_AddError(t *testing.T) {
	job := NewJob("guide.md", "guide.md", guideline.DocTypeClarity, nil)
	job.AddError("chunks 0-7: embed failed")
	job.AddError("chunks 8-15: embed failed")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "chunks 0-7: embed failed" {
		t.Errorf("expected first error %q, got %q", "chunks 0-7: embed failed", snap.Progress.Errors[0])
	}
}

func TestJob_AddIndexed(t *testing.T) {
	job := NewJob("guide.md", "guide.md", guideline.DocTypeClarity, nil)
	job.AddIndexed(8)
	job.AddIndexed(8)
	job.AddIndexed(3)

	snap := job.Snapshot()
	if snap.Progress.ChunksIndexed != 19 {
		t.Errorf("expected 19 chunks indexed, got %d", snap.Progress.ChunksIndexed)
	}
}

func TestJob_SetTotalChunks(t *testing.T) {
	job := NewJob("guide.md", "guide.md", guideline.DocTypeClarity, nil)
	job.SetTotalChunks(42)

	snap := job.Snapshot()
	if snap.Progress.TotalChunks != 42 {
		t.Errorf("expected 42 total chunks, got %d", snap.Progress.TotalChunks)
	}
}

func TestJob_FileDataCanBeReleased(t *testing.T) {
	job := NewJob("guide.md", "guide.md", guideline.DocTypeClarity, []byte("file content here"))
	job.SetFileData(nil)
	if job.FileData() != nil {
		t.Error("expected file data to be released")
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := NewJob("guide.md", "guide.md", guideline.DocTypeClarity, nil)
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJob_SnapshotCarriesIdentity(t *testing.T) {
	job := NewJob("Style Guide.pdf", "style-guide.pdf", guideline.DocTypeRigor, nil)
	job.SetTitle("Style Guide")
	job.SetContentHash("abc123")

	snap := job.Snapshot()
	if snap.ID != job.ID {
		t.Errorf("expected ID %q, got %q", job.ID, snap.ID)
	}
	if snap.Filename != "Style Guide.pdf" {
		t.Errorf("expected filename %q, got %q", "Style Guide.pdf", snap.Filename)
	}
	if snap.Source != "style-guide.pdf" {
		t.Errorf("expected source %q, got %q", "style-guide.pdf", snap.Source)
	}
	if snap.DocType != guideline.DocTypeRigor {
		t.Errorf("expected doc type %q, got %q", guideline.DocTypeRigor, snap.DocType)
	}
	if snap.Title != "Style Guide" {
		t.Errorf("expected title %q, got %q", "Style Guide", snap.Title)
	}
	if snap.ContentHash != "abc123" {
		t.Errorf("expected content hash %q, got %q", "abc123", snap.ContentHash)
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := NewJob("guide.md", "guide.md", guideline.DocTypeClarity, nil)
	store.Put(job)

	got := store.Get(job.ID)
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != job.ID {
		t.Errorf("expected ID %q, got %q", job.ID, got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := NewJob("old.md", "old.md", guideline.DocTypeClarity, nil)
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh job.
	fresh := NewJob("new.md", "new.md", guideline.DocTypeClarity, nil)
	store.Put(fresh)

	store.Cleanup()

	if store.Get(expired.ID) != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get(fresh.ID) == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
