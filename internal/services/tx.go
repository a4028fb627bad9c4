package services

import (
	"gorm.io/gorm"

	"github.com/taskforge/taskforge-backend/internal/platform/dbctx"
)

// withTx runs fn inside the caller's transaction when one is present,
// otherwise opens a new one. With no db configured (unit tests against
// fakes) fn runs directly and the caller owns atomicity.
func withTx(db *gorm.DB, dbc dbctx.Context, fn func(dbctx.Context) error) error {
	if dbc.Tx != nil || db == nil {
		return fn(dbc)
	}
	return db.Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: dbc.Ctx, Tx: tx})
	})
}
