package dbctx

import (
	"context"

	"gorm.io/gorm"
)

// Context pairs a request context with an optional GORM transaction. A nil
// Tx means the repo runs against its base connection.
type Context struct {
	Ctx context.Context
	Tx  *gorm.DB
}
