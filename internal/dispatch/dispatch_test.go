package dispatch_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fluxqueue/internal/config"
	"fluxqueue/internal/dispatch"
	"fluxqueue/internal/logging"
	"fluxqueue/internal/queue"
	"fluxqueue/internal/services"
	"fluxqueue/internal/testsupport"
)

func newDispatcher(t *testing.T) (*dispatch.Dispatcher, *queue.Store, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return dispatch.New(store, cfg, logging.NewNop()), store, cfg
}

func TestSubmitAppliesDefaults(t *testing.T) {
	d, store, cfg := newDispatcher(t)
	ctx := context.Background()

	receipt, err := d.Submit(ctx, dispatch.Request{Prompt: "  a quiet harbor  "})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if receipt.Status != queue.StatusQueued {
		t.Fatalf("receipt status = %q, want queued", receipt.Status)
	}
	if len(receipt.JobID) != 8 {
		t.Fatalf("job id %q, want 8 hex characters", receipt.JobID)
	}
	if receipt.Filename != receipt.JobID+".png" {
		t.Fatalf("filename %q, want %q", receipt.Filename, receipt.JobID+".png")
	}

	job, err := store.GetByID(ctx, receipt.JobID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job.Prompt != "a quiet harbor" {
		t.Fatalf("prompt = %q, want trimmed", job.Prompt)
	}
	if job.Steps != 4 || job.GuidanceScale != 3.5 || job.Height != 1024 || job.Width != 1024 {
		t.Fatalf("defaults not applied: %+v", job)
	}
	if !job.Autotune {
		t.Fatal("autotune should default to enabled")
	}
	if job.OutputDir != cfg.Paths.ArtifactDir {
		t.Fatalf("output dir = %q, want artifact dir", job.OutputDir)
	}
}

func TestSubmitRejectsBadRequests(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  dispatch.Request
	}{
		{"empty prompt", dispatch.Request{Prompt: "   "}},
		{"negative steps", dispatch.Request{Prompt: "p", Steps: -1}},
		{"negative guidance", dispatch.Request{Prompt: "p", GuidanceScale: -2}},
		{"zero height", dispatch.Request{Prompt: "p", Height: -10}},
		{"strength above one", dispatch.Request{Prompt: "p", Strength: 1.5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.Submit(ctx, tc.req)
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestSubmitSanitizesCustomFilename(t *testing.T) {
	d, store, _ := newDispatcher(t)
	ctx := context.Background()

	receipt, err := d.Submit(ctx, dispatch.Request{
		Prompt:   "portrait",
		Filename: "../../etc/passwd",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	// The receipt echoes the name as requested; the record stores the
	// sanitized form.
	if receipt.CustomFilename != "../../etc/passwd" {
		t.Fatalf("receipt custom filename = %q, want the requested name", receipt.CustomFilename)
	}
	// The internal storage name is never the custom one.
	if receipt.Filename == receipt.CustomFilename {
		t.Fatal("internal filename must stay id-derived")
	}

	job, err := store.GetByID(ctx, receipt.JobID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job.CustomFilename != "....etcpasswd.png" {
		t.Fatalf("persisted custom filename = %q, want sanitized", job.CustomFilename)
	}
}

func TestSubmitReceiptEchoesRequestedFilename(t *testing.T) {
	d, store, _ := newDispatcher(t)
	ctx := context.Background()

	receipt, err := d.Submit(ctx, dispatch.Request{
		Prompt:   "portrait",
		Filename: "My Portrait (final)",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if receipt.CustomFilename != "My Portrait (final)" {
		t.Fatalf("receipt custom filename = %q, want %q", receipt.CustomFilename, "My Portrait (final)")
	}

	job, err := store.GetByID(ctx, receipt.JobID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job.CustomFilename != "MyPortraitfinal.png" {
		t.Fatalf("persisted custom filename = %q, want %q", job.CustomFilename, "MyPortraitfinal.png")
	}
}

func TestSubmitCreatesRequestedOutputDir(t *testing.T) {
	d, _, cfg := newDispatcher(t)
	ctx := context.Background()

	target := filepath.Join(testsupport.BaseDir(cfg), "exports", "august")
	receipt, err := d.Submit(ctx, dispatch.Request{Prompt: "p", OutputDir: target})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if receipt.OutputDir != target {
		t.Fatalf("output dir = %q, want %q", receipt.OutputDir, target)
	}
	if info, err := os.Stat(target); err != nil || !info.IsDir() {
		t.Fatalf("output dir not created: %v", err)
	}
}

func TestSubmitRejectsUncreatableOutputDir(t *testing.T) {
	d, _, cfg := newDispatcher(t)
	ctx := context.Background()

	// A regular file where the directory should go.
	blocker := filepath.Join(testsupport.BaseDir(cfg), "blocker")
	testsupport.WriteFile(t, blocker, 1)

	_, err := d.Submit(ctx, dispatch.Request{Prompt: "p", OutputDir: blocker})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}

func TestSubmitResolvesInitImage(t *testing.T) {
	d, store, cfg := newDispatcher(t)
	ctx := context.Background()

	source := filepath.Join(cfg.Paths.ArtifactDir, "seed.png")
	testsupport.WriteFile(t, source, 64)

	receipt, err := d.Submit(ctx, dispatch.Request{Prompt: "p", InitImage: "seed.png", Strength: 0.6})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	job, err := store.GetByID(ctx, receipt.JobID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job.InitImage != source {
		t.Fatalf("init image = %q, want %q", job.InitImage, source)
	}
	if job.Strength != 0.6 {
		t.Fatalf("strength = %v", job.Strength)
	}
	if !job.IsImageToImage() {
		t.Fatal("expected image-to-image job")
	}
}

func TestSubmitMissingInitImage(t *testing.T) {
	d, _, _ := newDispatcher(t)

	_, err := d.Submit(context.Background(), dispatch.Request{Prompt: "p", InitImage: "nope.png"})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRetryClonesFailedJob(t *testing.T) {
	d, store, _ := newDispatcher(t)
	ctx := context.Background()

	receipt, err := d.Submit(ctx, dispatch.Request{Prompt: "retry me", Steps: 8})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	claimed, err := store.ClaimOldestQueued(ctx)
	if err != nil {
		t.Fatalf("ClaimOldestQueued: %v", err)
	}
	if err := store.MarkFailed(ctx, claimed.ID, time.Now().UTC(), "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	clone, err := d.Retry(ctx, receipt.JobID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if clone.JobID == receipt.JobID {
		t.Fatal("retry must mint a new job id")
	}
	if clone.Filename == receipt.Filename {
		t.Fatal("retry must mint a new filename")
	}

	cloned, err := store.GetByID(ctx, clone.JobID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if cloned.Status != queue.StatusQueued {
		t.Fatalf("clone status = %q, want queued", cloned.Status)
	}
	if cloned.Prompt != "retry me" || cloned.Steps != 8 {
		t.Fatalf("clone did not inherit parameters: %+v", cloned)
	}

	original, err := store.GetByID(ctx, receipt.JobID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if original.Status != queue.StatusFailed {
		t.Fatalf("original status = %q, want failed (untouched)", original.Status)
	}
}

func TestRetryRejectsNonFailedJobs(t *testing.T) {
	d, _, _ := newDispatcher(t)
	ctx := context.Background()

	receipt, err := d.Submit(ctx, dispatch.Request{Prompt: "still queued"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, err = d.Retry(ctx, receipt.JobID)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("retry queued job: err = %v, want ErrValidation", err)
	}

	_, err = d.Retry(ctx, "deadbeef")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("retry missing job: err = %v, want ErrNotFound", err)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"portrait.png", "portrait.png"},
		{"portrait", "portrait.png"},
		{"My Portrait (final).PNG", "MyPortraitfinal.PNG"},
		{"../../etc/passwd", "....etcpasswd.png"},
		{"///", ""},
		{"...", ""},
		{"sunset_2026-08.png", "sunset_2026-08.png"},
	}
	for _, tc := range cases {
		if got := dispatch.SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
