package services_test

import (
	"context"
	"testing"

	"fluxqueue/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "a1b2c3d4")
	ctx = services.WithWorker(ctx, "worker-2")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != "a1b2c3d4" {
		t.Fatalf("unexpected job id: %v %v", id, ok)
	}
	if name, ok := services.WorkerFromContext(ctx); !ok || name != "worker-2" {
		t.Fatalf("unexpected worker: %v %v", name, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "")
	ctx = services.WithWorker(ctx, "")
	if _, ok := services.JobIDFromContext(ctx); ok {
		t.Fatal("expected no job id value")
	}
	if _, ok := services.WorkerFromContext(ctx); ok {
		t.Fatal("expected no worker value")
	}
}
