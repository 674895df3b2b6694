package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation tags bad or missing caller input; no job is created.
	ErrValidation = errors.New("validation error")
	// ErrToolUnavailable tags a missing reconstruction tool on the host.
	ErrToolUnavailable = errors.New("reconstruction tool unavailable")
	// ErrExternalTool tags a reconstruction run that exited nonzero or
	// produced no artifact.
	ErrExternalTool = errors.New("external tool error")
	// ErrNotFound tags lookups for unknown job ids.
	ErrNotFound = errors.New("not found")
	// ErrNotReady tags artifact requests for jobs that have not completed.
	ErrNotReady = errors.New("job not completed")
)

// Wrap builds an error message that includes operation context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, operation, message string, err error) error {
	detail := buildDetail(operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(operation, message string) string {
	parts := make([]string, 0, 2)
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
