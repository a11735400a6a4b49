package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context bundles a request context with an optional GORM transaction.
// A nil Tx means the repo should use its own connection.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}

func (c Context) WithTx(tx *gorm.DB) Context {
	return Context{Ctx: c.Ctx, Tx: tx}
}
