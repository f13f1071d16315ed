// Package migrations применяет SQL-миграции из каталога migrations.
package migrations

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// ErrDirty возвращается, если прошлая миграция упала посередине и схему нужно чинить вручную.
var ErrDirty = errors.New("database schema is dirty")

// Run применяет все непримененные миграции и логирует итоговую версию схемы.
func Run(db *sql.DB, path string, log *slog.Logger) error {
	const op = "migrations.Run"
	driver, err := pgxv5.WithInstance(db, &pgxv5.Config{})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+path, "pgx_v5", driver)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	before, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if dirty {
		return fmt.Errorf("%s: version %d: %w", op, before, ErrDirty)
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("database schema is up to date", slog.Uint64("version", uint64(before)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	after, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	log.Info("migrations applied", slog.Uint64("from", uint64(before)), slog.Uint64("to", uint64(after)))
	return nil
}
