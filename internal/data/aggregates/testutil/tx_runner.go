package testutil

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coursestore/internal/data/aggregates"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/dbctx"
)

// InjectedTxRunner fails aggregate transactions on demand. With DB set the
// body runs inside a real transaction, so FailAfterBody discards whatever
// the body wrote. Without DB the body runs with no Tx at all.
type InjectedTxRunner struct {
	DB *gorm.DB

	// FailBegin is returned before the body runs.
	FailBegin error
	// FailAfterBody is returned after a successful body, forcing a rollback.
	FailAfterBody error

	mu                                     sync.Mutex
	BeginCalls, CommitCalls, RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	r.mu.Unlock()
	if r.FailBegin != nil {
		return r.FailBegin
	}

	run := func(dbc dbctx.Context) error {
		if fn != nil {
			if err := fn(dbc); err != nil {
				return err
			}
		}
		return r.FailAfterBody
	}
	var err error
	if r.DB != nil {
		err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return run(dbctx.Context{Ctx: ctx, Tx: tx})
		})
	} else {
		err = run(dbctx.Context{Ctx: ctx})
	}

	r.mu.Lock()
	if err != nil {
		r.RollbackCalls++
	} else {
		r.CommitCalls++
	}
	r.mu.Unlock()
	return err
}
