// Package repomanager vends repository implementations bound to a database
// handle, runs schema migrations and scopes work to a transaction.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/messagely/internal/dbx"
	"github.com/dmitrijs2005/messagely/internal/server/repositories/messages"
	"github.com/dmitrijs2005/messagely/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	// Conn is the handle non-transactional work binds repositories to.
	Conn() dbx.DBTX
	// WithTx runs fn with a handle scoped to one transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error
	Users(db dbx.DBTX) users.Repository
	Messages(db dbx.DBTX) messages.Repository
	Close() error
}
