package profiles

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/gophprofile/internal/client/profiles/migrations"
)

const versionTable = "profiles_db_version"

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// sqlOpen is a seam for tests that must not dial a real server.
var sqlOpen = sql.Open

// Open connects to the profile database for driver and returns the matching
// Store. When migrate is set the profiles table is created if missing.
func Open(ctx context.Context, driver, dsn string, migrate bool) (*sql.DB, Store, error) {
	var sqlDriver, dialect string
	switch driver {
	case DriverPostgres:
		sqlDriver, dialect = "pgx", "postgres"
	case DriverSQLite:
		sqlDriver, dialect = "sqlite", "sqlite3"
	default:
		return nil, nil, fmt.Errorf("unknown profile store driver %q", driver)
	}

	db, err := sqlOpen(sqlDriver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open profile store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if migrate {
		if err := RunMigrations(ctx, db, dialect); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}

	if driver == DriverPostgres {
		return db, NewPostgresStore(db), nil
	}
	return db, NewSQLiteStore(db), nil
}

func RunMigrations(ctx context.Context, db *sql.DB, dialect string) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetTableName(versionTable)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate profiles: %w", err)
	}
	return nil
}
