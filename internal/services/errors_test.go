package services_test

import (
	"errors"
	"strings"
	"testing"

	"tellmemore/internal/services"
)

func TestWrapTagsMarkerAndDetail(t *testing.T) {
	cause := errors.New("connection reset")
	err := services.Wrap(services.ErrTransient, "download", "fetch audio", "request failed", cause)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "download: fetch audio") {
		t.Fatalf("expected stage detail in message, got %q", err.Error())
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "embed", "", "upstream unavailable", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient default, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient", services.Wrap(services.ErrTransient, "download", "", "timeout", nil), true},
		{"external tool", services.Wrap(services.ErrExternalTool, "transcribe", "", "exit 1", nil), true},
		{"not found", services.Wrap(services.ErrNotFound, "claim", "", "episode missing from catalog", nil), false},
		{"configuration", services.Wrap(services.ErrConfiguration, "embed", "", "api key missing", nil), false},
	}
	for _, tc := range cases {
		if got := services.Retryable(tc.err); got != tc.want {
			t.Errorf("%s: Retryable = %v, want %v", tc.name, got, tc.want)
		}
	}
}
