package db

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/nodal-works/ferret/backend/internal/util"
)

// Migrate applies pending schema migrations. The migrations directory is
// configurable so tests and containers can mount it elsewhere.
func Migrate(databaseURL string) error {
	dir := util.GetEnvString("MIGRATIONS_DIR", "migrations")

	m, err := migrate.New(fmt.Sprintf("file://%s", dir), databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
