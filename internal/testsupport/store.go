package testsupport

import (
	"context"
	"fmt"
	"testing"

	"fluxqueue/internal/config"
	"fluxqueue/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob inserts a queued text-to-image job with sensible defaults and
// returns it. The sequence number keeps ids and filenames unique within a
// test.
func NewJob(t testing.TB, store *queue.Store, cfg *config.Config, seq int, prompt string) *queue.Job {
	t.Helper()

	job := &queue.Job{
		ID:            fmt.Sprintf("job%04x", seq),
		Prompt:        prompt,
		Steps:         4,
		GuidanceScale: 3.5,
		Height:        1024,
		Width:         1024,
		Autotune:      true,
		Filename:      fmt.Sprintf("job%04x.png", seq),
		OutputDir:     cfg.Paths.ArtifactDir,
	}
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}
