package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/shinyyama/skillswap-backend/internal/config"
)

//go:embed migrations/mysql/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Migrator wraps goose over the embedded migrations for one dialect.
type Migrator struct {
	db  *sql.DB
	dir string
}

func NewMigrator(db *sql.DB, driver string) (*Migrator, error) {
	dialect, dir := "mysql", "migrations/mysql"
	if driver == config.DriverPostgres {
		dialect, dir = "postgres", "migrations/postgres"
	}
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	return &Migrator{db: db, dir: dir}, nil
}

func (m *Migrator) Up(ctx context.Context) error {
	if err := goose.UpContext(ctx, m.db, m.dir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (m *Migrator) Down(ctx context.Context) error {
	if err := goose.DownContext(ctx, m.db, m.dir); err != nil {
		return fmt.Errorf("roll back migration: %w", err)
	}
	return nil
}

func (m *Migrator) Status(ctx context.Context) error {
	return goose.StatusContext(ctx, m.db, m.dir)
}

func (m *Migrator) Version(ctx context.Context) (int64, error) {
	version, err := goose.GetDBVersionContext(ctx, m.db)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}
