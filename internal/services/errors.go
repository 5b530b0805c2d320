package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidState marks operations attempted outside the required session mode.
	ErrInvalidState = errors.New("invalid state")
	// ErrNotFound marks lookups of absent tokens or records.
	ErrNotFound = errors.New("not found")
	// ErrForbidden marks authorization or ownership failures.
	ErrForbidden = errors.New("forbidden")
	// ErrRelay marks transient transport or storage failures during item relay.
	ErrRelay = errors.New("relay error")
	// ErrPersistence marks registry read/write failures.
	ErrPersistence = errors.New("persistence error")
	// ErrGate marks gate lookup failures; callers treat it as ErrForbidden (fail-closed).
	ErrGate = errors.New("gate error")
	// ErrTransient marks failures with no more specific classification.
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

// Denied reports whether an error should be presented as an authorization
// failure. Gate errors read as denied by fail-closed policy.
func Denied(err error) bool {
	return errors.Is(err, ErrForbidden) || errors.Is(err, ErrGate)
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
