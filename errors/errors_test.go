package errors

import (
	"fmt"
	"testing"
)

func TestGcpdError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeRemoteNotFound, "remote not found")
	if err.Code != ErrCodeRemoteNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeRemoteNotFound, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeCommandFailed, "command failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
	if wrapped.Error() != "command failed: underlying error" {
		t.Errorf("unexpected message %q", wrapped.Error())
	}

	// Test Is function
	if !Is(wrapped, ErrCodeCommandFailed) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeRemoteNotFound) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("remote", "origin").WithDetail("attempt", 2)
	if detailed.Details["remote"] != "origin" {
		t.Error("WithDetail should add details")
	}
}

func TestIsLooksThroughNestedCodes(t *testing.T) {
	inner := CleanupFailed("/tmp/x", fmt.Errorf("busy"))
	outer := fmt.Errorf("pass failed: %w", StepFailed("cherry-pick", inner))

	if !Is(outer, ErrCodeStepFailed) {
		t.Error("expected step failure code")
	}
	if !Is(outer, ErrCodeCleanupFailed) {
		t.Error("expected nested cleanup code")
	}
	if GetCode(outer) != ErrCodeStepFailed {
		t.Errorf("expected outermost code, got %s", GetCode(outer))
	}
}

func TestErrorConstructors(t *testing.T) {
	err := RemoteNotFound("upstream")
	if err.Error() != "Cannot find remote upstream" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if err.Details["remote"] != "upstream" {
		t.Error("RemoteNotFound should include remote detail")
	}

	err = UnknownAction("Explode")
	if err.Error() != "Explode doesn't exist." {
		t.Errorf("unexpected message %q", err.Error())
	}

	err = QueryFailed([]string{"cherry", "-v", "a", "b"}, "fatal: bad revision\n", fmt.Errorf("exit status 128"))
	if err.Code != ErrCodeQueryFailed {
		t.Errorf("expected code %s, got %s", ErrCodeQueryFailed, err.Code)
	}
	if err.Message != "git cherry -v a b failed: fatal: bad revision" {
		t.Errorf("unexpected message %q", err.Message)
	}

	err = InstanceRunning("integration", 42)
	if err.Details["pid"] != 42 {
		t.Error("InstanceRunning should include pid detail")
	}
}
