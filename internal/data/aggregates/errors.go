package aggregates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/neurobridge-coursestore/internal/domain/aggregates"
)

// rejection is a failure raised inside a write body before it has an op name.
// MapError attaches the op once the transaction unwinds.
type rejection struct {
	code domainagg.ErrorCode
	msg  string
}

func (r *rejection) Error() string { return r.msg }

func reject(code domainagg.ErrorCode, msg string) error {
	return &rejection{code: code, msg: strings.TrimSpace(msg)}
}

func ValidationError(msg string) error { return reject(domainagg.CodeValidation, msg) }
func InvariantError(msg string) error  { return reject(domainagg.CodeInvariantViolation, msg) }
func ConflictError(msg string) error   { return reject(domainagg.CodeConflict, msg) }
func RetryableError(msg string) error  { return reject(domainagg.CodeRetryable, msg) }

// Postgres SQLSTATEs that map onto a code. Anything else falls through to the
// message rules.
var pgCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,           // unique_violation
	"23503": domainagg.CodePreconditionFailed, // foreign_key_violation
	"40001": domainagg.CodeRetryable,          // serialization_failure
	"40P01": domainagg.CodeRetryable,          // deadlock_detected
	"55P03": domainagg.CodeRetryable,          // lock_not_available
}

// SQLite only reports constraint and locking failures through messages.
var messageRules = []struct {
	code    domainagg.ErrorCode
	needles []string
}{
	{domainagg.CodeConflict, []string{"duplicate key", "already exists", "unique constraint failed"}},
	{domainagg.CodePreconditionFailed, []string{"foreign key constraint failed"}},
	{domainagg.CodeRetryable, []string{"deadlock", "serialization", "database is locked", "timeout", "temporar"}},
}

// MapError gives err an aggregate code. Errors that already carry one pass
// through unchanged; unknown failures become internal.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *domainagg.Error
	if errors.As(err, &aggErr) {
		return err
	}
	return domainagg.Wrap(classify(err), op, err)
}

func classify(err error) domainagg.ErrorCode {
	var rej *rejection
	if errors.As(err, &rej) {
		return rej.code
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainagg.CodeNotFound
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domainagg.CodeRetryable
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := pgCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return code
		}
	}
	msg := strings.ToLower(err.Error())
	for _, rule := range messageRules {
		for _, needle := range rule.needles {
			if strings.Contains(msg, needle) {
				return rule.code
			}
		}
	}
	return domainagg.CodeInternal
}

func notFound(op, what string, id any) error {
	return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("%s %v not found", what, id), gorm.ErrRecordNotFound)
}
