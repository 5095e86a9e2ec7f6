package aggregates

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorHelpers(t *testing.T) {
	base := NewError(CodeCycleDetected, "Learning.CourseTree.Reparent", "section cannot move under its own descendant", nil)
	wrapped := fmt.Errorf("service: %w", base)

	if !IsCode(wrapped, CodeCycleDetected) {
		t.Fatalf("IsCode: want true for wrapped error")
	}
	if got := CodeOf(wrapped); got != CodeCycleDetected {
		t.Fatalf("CodeOf: want=%s got=%s", CodeCycleDetected, got)
	}
	if got := MessageOf(wrapped); got != "section cannot move under its own descendant" {
		t.Fatalf("MessageOf: got=%q", got)
	}
	if CodeOf(errors.New("plain")) != "" || MessageOf(errors.New("plain")) != "" {
		t.Fatalf("uncoded error must have no code or message")
	}
	if Wrap(CodeInternal, "op", nil) != nil {
		t.Fatalf("Wrap(nil) must be nil")
	}
}

func TestErrorCode_Structural(t *testing.T) {
	for code, want := range map[ErrorCode]bool{
		CodeDepthExceeded:      true,
		CodeCycleDetected:      true,
		CodeSelfForkRejected:   true,
		CodeNotFound:           false,
		CodeIntegrityViolation: false,
		CodeInternal:           false,
	} {
		if got := code.Structural(); got != want {
			t.Fatalf("%s: want=%v got=%v", code, want, got)
		}
	}
}

func TestError_Format(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{&Error{Code: CodeNotFound, Op: "Get", Message: "course missing"}, "Get: course missing (not_found)"},
		{&Error{Code: CodeConflict, Op: "Create"}, "Create (conflict)"},
		{&Error{Code: CodeRetryable}, "retryable"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Fatalf("Error(): want=%q got=%q", tc.want, got)
		}
	}
}
