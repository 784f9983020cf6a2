package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks bad or missing request parameters, rejected before
	// any job is persisted.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks failures to prepare requested resources, such as
	// an output directory that cannot be created.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks references to inputs that do not exist, such as a
	// missing init image.
	ErrNotFound = errors.New("not found")
	// ErrExternalTool marks generation command failures; these are terminal
	// for the job that triggered them.
	ErrExternalTool = errors.New("external tool error")
	// ErrTransient marks storage-level trouble that callers should retry
	// rather than record as a job failure.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTransient reports whether an error should be retried rather than treated
// as a terminal outcome.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
