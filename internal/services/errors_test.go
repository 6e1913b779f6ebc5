package services_test

import (
	"errors"
	"strings"
	"testing"

	"lectern/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalService, "render", "submit", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalService) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"render", "submit", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "tts", "synthesize", "no marker", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		marker error
		want   bool
	}{
		{services.ErrTransient, true},
		{services.ErrTimeout, true},
		{services.ErrValidation, false},
		{services.ErrExternalService, false},
		{services.ErrConfiguration, false},
		{services.ErrNotFound, false},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "generate", "call", "x", nil)
		if got := services.Retryable(err); got != tc.want {
			t.Fatalf("Retryable(%v) = %v, want %v", tc.marker, got, tc.want)
		}
	}
	if services.Retryable(nil) {
		t.Fatal("nil error must not be retryable")
	}
}

func TestKindLabels(t *testing.T) {
	cases := []struct {
		marker error
		want   string
	}{
		{services.ErrValidation, "validation"},
		{services.ErrConfiguration, "configuration"},
		{services.ErrNotFound, "not_found"},
		{services.ErrExternalService, "external"},
		{services.ErrTimeout, "timeout"},
		{services.ErrTransient, "transient"},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "extract", "read", "x", nil)
		if got := services.Kind(err); got != tc.want {
			t.Fatalf("Kind(%v) = %q, want %q", tc.marker, got, tc.want)
		}
	}
	if got := services.Kind(errors.New("plain")); got != "transient" {
		t.Fatalf("unclassified error should be transient, got %q", got)
	}
	if got := services.Kind(nil); got != "" {
		t.Fatalf("nil error should have empty kind, got %q", got)
	}
}
