package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/steveyegge/taskgate/internal/storage/postgres"
	"github.com/steveyegge/taskgate/internal/storage/sqlite"
	"github.com/steveyegge/taskgate/internal/types"
)

// ErrNotFound is returned when a task type is not in the registry
var ErrNotFound = types.ErrTaskTypeNotFound

// Storage defines the interface for registry and audit backends
type Storage interface {
	// Task-type registry
	GetTaskTypeConfig(ctx context.Context, id string) (*types.TaskTypeConfig, error)
	UpsertTaskType(ctx context.Context, cfg *types.TaskTypeConfig) error
	ListTaskTypes(ctx context.Context, activeOnly bool) ([]*types.TaskTypeConfig, error)

	// Validation audit log
	InsertAuditRecord(ctx context.Context, rec *types.AuditRecord) error
	ListAuditRecords(ctx context.Context, filter types.AuditFilter) ([]*types.AuditRecord, error)

	// Lifecycle
	Close() error
}

// Supported backends
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// DefaultDBPath is used when neither discovery nor TASKGATE_DB_PATH yields a path
const DefaultDBPath = ".taskgate/taskgate.db"

// Config holds storage configuration
type Config struct {
	Backend string

	// SQLite
	Path string

	// PostgreSQL
	Postgres *postgres.Config
}

// DefaultConfig returns the default storage configuration.
// TASKGATE_DB_PATH overrides the SQLite path.
func DefaultConfig() *Config {
	path := DefaultDBPath
	if envPath := os.Getenv("TASKGATE_DB_PATH"); envPath != "" {
		path = envPath
	}
	return &Config{
		Backend: BackendSQLite,
		Path:    path,
	}
}

// NewStorage creates a storage backend based on configuration
func NewStorage(ctx context.Context, cfg *Config) (Storage, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Backend {
	case "", BackendSQLite:
		path := cfg.Path
		if path == "" {
			path = DefaultConfig().Path
		}
		store, err := sqlite.New(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendPostgres:
		store, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want %s or %s)", cfg.Backend, BackendSQLite, BackendPostgres)
	}
}
