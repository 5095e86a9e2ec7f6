package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	domainagg "github.com/yungbote/neurobridge-coursestore/internal/domain/aggregates"
)

func TestFromError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
		msg    string
	}{
		{domainagg.NewError(domainagg.CodeDepthExceeded, "op", "depth 6 exceeds max depth 5", nil), http.StatusUnprocessableEntity, "depth_exceeded", "depth 6 exceeds max depth 5"},
		{fmt.Errorf("wrapped: %w", domainagg.NewError(domainagg.CodeNotFound, "op", "course not found", nil)), http.StatusNotFound, "not_found", "course not found"},
		{domainagg.NewError(domainagg.CodeOwnershipViolation, "op", "course is private", nil), http.StatusForbidden, "ownership_violation", "course is private"},
		{domainagg.NewError(domainagg.CodeSelfForkRejected, "op", "", nil), http.StatusConflict, "self_fork_rejected", ""},
		{domainagg.NewError(domainagg.CodeIntegrityViolation, "op", "orphan parent", nil), http.StatusInternalServerError, "integrity_violation", "internal error"},
		{errors.New("dial tcp: refused"), http.StatusInternalServerError, "internal", "internal error"},
		{New(http.StatusUnauthorized, "unauthorized", errors.New("missing X-User-Id")), http.StatusUnauthorized, "unauthorized", "missing X-User-Id"},
	}
	for _, c := range cases {
		got := FromError(c.err)
		if got.Status != c.status || got.Code != c.code {
			t.Fatalf("%v: want=%d/%s got=%d/%s", c.err, c.status, c.code, got.Status, got.Code)
		}
		if c.msg != "" && got.Error() != c.msg {
			t.Fatalf("%v: message want=%q got=%q", c.err, c.msg, got.Error())
		}
	}
	if FromError(nil) != nil {
		t.Fatalf("nil: want nil")
	}
}
