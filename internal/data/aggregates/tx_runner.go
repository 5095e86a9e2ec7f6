package aggregates

import (
	"context"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/neurobridge-coursestore/internal/domain/aggregates"
	"github.com/yungbote/neurobridge-coursestore/internal/platform/dbctx"
)

// TxRunner is the transaction boundary every aggregate write goes through.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

// InTx commits when fn returns nil and rolls back otherwise. A context that
// is done by the time fn returns also rolls back.
func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(dbctx.Context{Ctx: ctx, Tx: tx}); err != nil {
			return err
		}
		return ctx.Err()
	})
}
