package services_test

import (
	"errors"
	"strings"
	"testing"

	"shortreel/internal/queue"
	"shortreel/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connect refused")
	err := services.Wrap(services.ErrUpstreamUnavailable, "scripting", "generate", "request failed", base)

	if !errors.Is(err, services.ErrUpstreamUnavailable) {
		t.Fatal("expected marker to be detectable via errors.Is")
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped cause to be detectable via errors.Is")
	}
	if !strings.Contains(err.Error(), "scripting: generate: request failed") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestDetailsExtractsStageAndKind(t *testing.T) {
	err := services.Wrap(services.ErrVoiceNotFound, "synthesizing", "voice lookup", "unknown voice \"xx\"", nil)

	details := services.Details(err)
	if details.Stage != "synthesizing" {
		t.Fatalf("expected stage synthesizing, got %q", details.Stage)
	}
	if details.Kind != "voice_not_found" {
		t.Fatalf("expected kind voice_not_found, got %q", details.Kind)
	}
	if details.Message == "" {
		t.Fatal("expected non-empty message")
	}
}

func TestDetailsForeignError(t *testing.T) {
	details := services.Details(errors.New("boom"))
	if details.Kind != "" {
		t.Fatalf("expected empty kind, got %q", details.Kind)
	}
	if details.Message != "boom" {
		t.Fatalf("expected plain message, got %q", details.Message)
	}
}

func TestFailureStatus(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected queue.Status
	}{
		{"cancelled", services.Wrap(services.ErrCancelled, "composing", "render", "", nil), queue.StatusCancelled},
		{"encoding", services.Wrap(services.ErrEncodingFailure, "composing", "render", "", nil), queue.StatusFailed},
		{"foreign", errors.New("boom"), queue.StatusFailed},
	}
	for _, tc := range cases {
		if got := services.FailureStatus(tc.err); got != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, got)
		}
	}
}
