package repomanager

import (
	"context"
	"database/sql"

	"github.com/knowyourenemy/statsadmit-backend/internal/dbx"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/repositories/profiles"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/repositories/sessions"
	"github.com/knowyourenemy/statsadmit-backend/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX so services can run
// the same code against the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Profiles(db dbx.DBTX) profiles.Repository
}
