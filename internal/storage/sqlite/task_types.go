package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/steveyegge/taskgate/internal/types"
)

// GetTaskTypeConfig returns a task type by id. Inactive task types are
// returned as-is; the schema gate decides what inactive means.
func (s *SQLiteStorage) GetTaskTypeConfig(ctx context.Context, id string) (*types.TaskTypeConfig, error) {
	var definition string
	var active bool
	err := s.db.QueryRowContext(ctx,
		`SELECT definition, is_active FROM task_types WHERE id = ?`, id,
	).Scan(&definition, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task type %s: %w", id, types.ErrTaskTypeNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task type %s: %w", id, err)
	}

	return decodeTaskType(definition, active)
}

// UpsertTaskType inserts or replaces a task type definition
func (s *SQLiteStorage) UpsertTaskType(ctx context.Context, cfg *types.TaskTypeConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	definition, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode task type %s: %w", cfg.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_types (id, display_name, category, definition, is_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			category = excluded.category,
			definition = excluded.definition,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`, cfg.ID, cfg.DisplayName, cfg.Category, string(definition), cfg.IsActive, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert task type %s: %w", cfg.ID, err)
	}
	return nil
}

// ListTaskTypes returns task types ordered by id
func (s *SQLiteStorage) ListTaskTypes(ctx context.Context, activeOnly bool) ([]*types.TaskTypeConfig, error) {
	query := `SELECT definition, is_active FROM task_types`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list task types: %w", err)
	}
	defer rows.Close()

	var result []*types.TaskTypeConfig
	for rows.Next() {
		var definition string
		var active bool
		if err := rows.Scan(&definition, &active); err != nil {
			return nil, fmt.Errorf("failed to scan task type: %w", err)
		}
		cfg, err := decodeTaskType(definition, active)
		if err != nil {
			return nil, err
		}
		result = append(result, cfg)
	}
	return result, rows.Err()
}

// decodeTaskType unmarshals a stored definition. The is_active column wins
// over the copy inside the JSON.
func decodeTaskType(definition string, active bool) (*types.TaskTypeConfig, error) {
	var cfg types.TaskTypeConfig
	if err := json.Unmarshal([]byte(definition), &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode task type definition: %w", err)
	}
	cfg.IsActive = active
	return &cfg, nil
}
