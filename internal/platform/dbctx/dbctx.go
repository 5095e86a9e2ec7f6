// Package dbctx carries a request context together with the transaction a
// repo call should join.
package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

// Conn returns the transaction when one is open, otherwise fallback, bound to
// the request context.
func (c Context) Conn(fallback *gorm.DB) *gorm.DB {
	conn := c.Tx
	if conn == nil {
		conn = fallback
	}
	return conn.WithContext(c.Context())
}

// Context returns the request context, or Background when unset.
func (c Context) Context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// InTx reports whether repo calls will join an open transaction.
func (c Context) InTx() bool { return c.Tx != nil }
