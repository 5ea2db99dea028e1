// Package migrations versions the SQLite registry and audit schema.
package migrations

import (
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// Migration is one versioned schema step
type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

// Manager applies and reverts migrations in version order
type Manager struct {
	migrations []Migration
}

// NewManager creates an empty migration manager
func NewManager() *Manager {
	return &Manager{migrations: []Migration{}}
}

// Default returns a manager holding the taskgate schema history
func Default() *Manager {
	m := NewManager()
	for _, mig := range schemaHistory {
		m.Register(mig)
	}
	return m
}

// Register adds a migration. Registering a version twice is an error at
// apply time.
func (m *Manager) Register(migration Migration) {
	m.migrations = append(m.migrations, migration)
}

// Latest returns the highest registered version
func (m *Manager) Latest() int {
	latest := 0
	for _, mig := range m.migrations {
		if mig.Version > latest {
			latest = mig.Version
		}
	}
	return latest
}

func (m *Manager) sorted() ([]Migration, error) {
	out := append([]Migration(nil), m.migrations...)
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	for i := 1; i < len(out); i++ {
		if out[i].Version == out[i-1].Version {
			return nil, fmt.Errorf("duplicate migration version %d", out[i].Version)
		}
	}
	return out, nil
}

// ApplySQLite applies every pending migration and returns how many ran
func (m *Manager) ApplySQLite(db *sql.DB) (int, error) {
	if err := createSQLiteVersionTable(db); err != nil {
		return 0, fmt.Errorf("failed to create version table: %w", err)
	}
	current, err := VersionSQLite(db)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	migrations, err := m.sorted()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, mig := range migrations {
		if mig.Version <= current {
			continue
		}
		if err := applySQLiteMigration(db, mig); err != nil {
			return applied, fmt.Errorf("failed to apply migration %d: %w", mig.Version, err)
		}
		applied++
	}
	return applied, nil
}

// RollbackSQLite reverts the most recently applied migration
func (m *Manager) RollbackSQLite(db *sql.DB) error {
	current, err := VersionSQLite(db)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if current == 0 {
		return fmt.Errorf("no migrations to rollback")
	}

	for _, mig := range m.migrations {
		if mig.Version == current {
			if err := rollbackSQLiteMigration(db, mig); err != nil {
				return fmt.Errorf("failed to rollback migration %d: %w", mig.Version, err)
			}
			return nil
		}
	}
	return fmt.Errorf("migration %d not found", current)
}

// VersionSQLite returns the applied schema version, 0 for a fresh database
func VersionSQLite(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, nil
	}

	var version int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

func createSQLiteVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

func applySQLiteMigration(db *sql.DB, migration Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(migration.Up); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO schema_version (version, description, applied_at) VALUES (?, ?, ?)",
		migration.Version, migration.Description, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}
	return tx.Commit()
}

func rollbackSQLiteMigration(db *sql.DB, migration Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(migration.Down); err != nil {
		return fmt.Errorf("failed to execute rollback SQL: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM schema_version WHERE version = ?", migration.Version); err != nil {
		return fmt.Errorf("failed to remove migration record: %w", err)
	}
	return tx.Commit()
}
