package services_test

import (
	"errors"
	"strings"
	"testing"

	"fluxqueue/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "worker", "generate", "command failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"worker", "generate", "command failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "queue", "claim", "database is locked", nil)
	if !services.IsTransient(err) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsTransient(t *testing.T) {
	if services.IsTransient(errors.New("plain")) {
		t.Fatal("plain error should not be transient")
	}
	wrapped := services.Wrap(services.ErrValidation, "dispatch", "submit", "empty prompt", nil)
	if services.IsTransient(wrapped) {
		t.Fatal("validation error should not be transient")
	}
}
