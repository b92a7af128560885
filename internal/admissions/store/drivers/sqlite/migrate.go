package sqlite

import (
	"errors"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/store/drivers/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

// ApplyMigrations applies any pending migrations to the store's database. The
// migration files are embedded, so the binary carries its own schema.
//
// Migrations run directly on the connection rather than inside a store
// transaction; golang-migrate manages its own locking and version table.
func (s *Store) ApplyMigrations() error {
	// 1. SQLite migration driver over the existing connection
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return err
	}

	// 2. Embedded filesystem source
	source, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	// 3. Migrate instance binding the two
	instance, err := migrate.NewWithInstance("iofs", source, "", driver)
	if err != nil {
		return err
	}

	// 4. Apply all up migrations; an up-to-date schema is not an error
	err = instance.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
