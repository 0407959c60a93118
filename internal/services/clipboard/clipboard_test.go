package clipboard

import (
	"errors"
	"testing"
)

func TestServiceCopyDelegates(t *testing.T) {
	var copiedText string
	service := &Service{writeAll: func(text string) error {
		copiedText = text
		return nil
	}}
	if copyError := service.Copy("digest body"); copyError != nil {
		t.Fatalf("Copy error: %v", copyError)
	}
	if copiedText != "digest body" {
		t.Fatalf("expected copied text %q, got %q", "digest body", copiedText)
	}
}

func TestServiceCopyPropagatesError(t *testing.T) {
	writeFailure := errors.New("no clipboard available")
	service := &Service{writeAll: func(string) error { return writeFailure }}
	if copyError := service.Copy("digest body"); !errors.Is(copyError, writeFailure) {
		t.Fatalf("expected write failure, got %v", copyError)
	}
}
