package migrations

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/migrate"
)

//go:embed *.sql
var migrationFS embed.FS

// FS exposes the embedded SQL for external runners.
var FS = migrationFS

// Migrations is a bun/migrate registry for this module.
var Migrations = migrate.NewMigrations()

func init() {
	if err := Migrations.Discover(migrationFS); err != nil {
		panic(fmt.Sprintf("migrations: discover: %v", err))
	}
}

// Migrate applies every pending migration, holding bun's migration lock so
// concurrently starting replicas do not race.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log logrus.FieldLogger) error {
	// sqldb borrows connections from pool; the pool owns their lifetime.
	sqldb := stdlib.OpenDBFromPool(pool)
	db := bun.NewDB(sqldb, pgdialect.New())
	m := migrate.NewMigrator(db, Migrations,
		migrate.WithTableName("moodkit_migrations"),
		migrate.WithLocksTableName("moodkit_migration_locks"),
	)
	if err := m.Init(ctx); err != nil {
		return fmt.Errorf("migrations: init: %w", err)
	}
	if err := m.Lock(ctx); err != nil {
		return fmt.Errorf("migrations: lock: %w", err)
	}
	defer func() {
		if err := m.Unlock(ctx); err != nil {
			log.WithError(err).Warn("migrations: unlock failed")
		}
	}()
	group, err := m.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrations: migrate: %w", err)
	}
	if group.IsZero() {
		log.Info("migrations: schema up to date")
		return nil
	}
	log.WithField("group", group.String()).Info("migrations: applied")
	return nil
}
