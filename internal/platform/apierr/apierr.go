package apierr

import (
	"errors"
	"fmt"
	"net/http"

	domainagg "github.com/yungbote/neurobridge-coursestore/internal/domain/aggregates"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

var statusByCode = map[domainagg.ErrorCode]int{
	domainagg.CodeValidation:         http.StatusBadRequest,
	domainagg.CodeNotFound:           http.StatusNotFound,
	domainagg.CodeOwnershipViolation: http.StatusForbidden,
	domainagg.CodeConflict:           http.StatusConflict,
	domainagg.CodeSelfForkRejected:   http.StatusConflict,
	domainagg.CodePreconditionFailed: http.StatusPreconditionFailed,
	domainagg.CodeDepthExceeded:      http.StatusUnprocessableEntity,
	domainagg.CodeCycleDetected:      http.StatusUnprocessableEntity,
	domainagg.CodeRetryable:          http.StatusServiceUnavailable,
	domainagg.CodeIntegrityViolation: http.StatusInternalServerError,
	domainagg.CodeInvariantViolation: http.StatusInternalServerError,
	domainagg.CodeInternal:           http.StatusInternalServerError,
}

// FromError maps err to an API error. Aggregate codes keep their code;
// anything else is an internal error whose message is not exposed.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	code := domainagg.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		return New(http.StatusInternalServerError, string(domainagg.CodeInternal), errors.New("internal error"))
	}
	if status == http.StatusInternalServerError {
		return New(status, string(code), errors.New("internal error"))
	}
	if msg := domainagg.MessageOf(err); msg != "" {
		return New(status, string(code), errors.New(msg))
	}
	return New(status, string(code), err)
}
