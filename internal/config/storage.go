package config

import (
	"fmt"

	"github.com/steveyegge/taskgate/internal/storage"
	"github.com/steveyegge/taskgate/internal/storage/postgres"
)

// StorageConfigFromEnv reads the storage backend selection.
//
// Environment variables:
//   - TASKGATE_STORAGE_BACKEND: sqlite (default) or postgres
//   - TASKGATE_DB_PATH: SQLite database path
//   - TASKGATE_PG_HOST, TASKGATE_PG_PORT, TASKGATE_PG_DATABASE,
//     TASKGATE_PG_USER, TASKGATE_PG_PASSWORD, TASKGATE_PG_SSLMODE
func StorageConfigFromEnv() (*storage.Config, error) {
	cfg := storage.DefaultConfig()
	if err := parseEnvString("TASKGATE_STORAGE_BACKEND", &cfg.Backend); err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case storage.BackendSQLite:
		return cfg, nil
	case storage.BackendPostgres:
	default:
		return nil, fmt.Errorf("invalid value for TASKGATE_STORAGE_BACKEND: %q", cfg.Backend)
	}

	pg := postgres.DefaultConfig()
	if err := parseEnvString("TASKGATE_PG_HOST", &pg.Host); err != nil {
		return nil, err
	}
	if err := parseEnvInt("TASKGATE_PG_PORT", &pg.Port); err != nil {
		return nil, err
	}
	if err := parseEnvString("TASKGATE_PG_DATABASE", &pg.Database); err != nil {
		return nil, err
	}
	if err := parseEnvString("TASKGATE_PG_USER", &pg.User); err != nil {
		return nil, err
	}
	if err := parseEnvString("TASKGATE_PG_PASSWORD", &pg.Password); err != nil {
		return nil, err
	}
	if err := parseEnvString("TASKGATE_PG_SSLMODE", &pg.SSLMode); err != nil {
		return nil, err
	}
	if pg.Port < 1 || pg.Port > 65535 {
		return nil, fmt.Errorf("TASKGATE_PG_PORT must be between 1 and 65535 (got %d)", pg.Port)
	}
	cfg.Postgres = pg
	return cfg, nil
}
