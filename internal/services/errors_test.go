package services_test

import (
	"errors"
	"strings"
	"testing"

	"courier/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("disk full")
	err := services.Wrap(services.ErrPersistence, "registry", "create", "insert share", base)

	if !errors.Is(err, services.ErrPersistence) {
		t.Fatalf("expected persistence marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	for _, want := range []string{"registry", "create", "insert share", "disk full"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %q", want, err.Error())
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "relay", "copy", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestDeniedTreatsGateErrorsAsForbidden(t *testing.T) {
	gateErr := services.Wrap(services.ErrGate, "gate", "check", "collaborator timeout", errors.New("timeout"))
	if !services.Denied(gateErr) {
		t.Error("gate errors must read as denied")
	}
	if !services.Denied(services.ErrForbidden) {
		t.Error("forbidden must read as denied")
	}
	if services.Denied(services.ErrNotFound) {
		t.Error("not-found must not read as denied")
	}
}
