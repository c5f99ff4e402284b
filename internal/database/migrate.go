package database

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// getSchemaVersion reads PRAGMA user_version from the database.
func getSchemaVersion(conn *sql.DB) (int, error) {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return version, nil
}

// isUnversionedDB returns true if the drafts table exists but user_version
// was never set.
func isUnversionedDB(conn *sql.DB) (bool, error) {
	var count int
	err := conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='drafts'",
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking for existing tables: %w", err)
	}
	return count > 0, nil
}

// migrate brings the database schema up to the latest version.
func migrate(conn *sql.DB) error {
	current, err := getSchemaVersion(conn)
	if err != nil {
		return err
	}

	// Tables present at version 0 already match migration 1.
	if current == 0 {
		unversioned, err := isUnversionedDB(conn)
		if err != nil {
			return err
		}
		if unversioned {
			log.Info().Msg("detected unversioned database, stamping as version 1")
			if _, err := conn.Exec("PRAGMA user_version = 1"); err != nil {
				return fmt.Errorf("stamping version: %w", err)
			}
			current = 1
		}
	}

	if current >= latestVersion() {
		return nil
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		log.Debug().Int("version", m.Version).Str("description", m.Description).Msg("applying migration")

		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if err := m.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		// modernc/sqlite does not apply user_version inside a transaction.
		if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.Version)); err != nil {
			return fmt.Errorf("setting version %d: %w", m.Version, err)
		}
	}

	return nil
}
