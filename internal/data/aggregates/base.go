// Package aggregates implements the course tree write boundary on top of the
// table repos in internal/data/repos. Every write runs in one transaction
// owned by the aggregate.
package aggregates

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/neurobridge-coursestore/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/logger"
)

type BaseDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Runner   TxRunner
	Hooks    Hooks
	CASGuard CASGuard
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.CASGuard.db == nil {
		d.CASGuard = NewCASGuard(d.DB)
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

// executeWrite runs fn in one transaction and reports the outcome to hooks.
// The returned error always carries an aggregate code.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	if op = strings.TrimSpace(op); op == "" {
		op = "aggregate.write"
	}

	err := ctx.Err()
	if err == nil {
		err = deps.Runner.InTx(ctx, fn)
	}
	err = MapError(op, err)

	status := aggregateErrorStatus(err)
	switch domainagg.ErrorCode(status) {
	case domainagg.CodeConflict:
		deps.Hooks.IncConflict(op)
	case domainagg.CodeRetryable:
		deps.Hooks.IncRetry(op)
	}
	switch {
	case err == nil:
	case status == string(domainagg.CodeInternal):
		deps.Log.Error("aggregate write failed", "op", op, "error", err)
	default:
		deps.Log.Debug("aggregate write rejected", "op", op, "code", status, "error", err)
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
	return err
}

// aggregateErrorStatus is the metrics label for a write outcome.
func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	if code := domainagg.CodeOf(err); code != "" {
		return string(code)
	}
	return string(classify(err))
}
