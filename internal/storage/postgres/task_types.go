package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/steveyegge/taskgate/internal/types"
)

// GetTaskTypeConfig returns a task type by id
func (s *PostgresStorage) GetTaskTypeConfig(ctx context.Context, id string) (*types.TaskTypeConfig, error) {
	var definition []byte
	var active bool
	err := s.pool.QueryRow(ctx,
		`SELECT definition, is_active FROM task_types WHERE id = $1`, id,
	).Scan(&definition, &active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task type %s: %w", id, types.ErrTaskTypeNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task type %s: %w", id, err)
	}
	return decodeTaskType(definition, active)
}

// UpsertTaskType inserts or replaces a task type definition
func (s *PostgresStorage) UpsertTaskType(ctx context.Context, cfg *types.TaskTypeConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	definition, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode task type %s: %w", cfg.ID, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO task_types (id, display_name, category, definition, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			category = EXCLUDED.category,
			definition = EXCLUDED.definition,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`, cfg.ID, cfg.DisplayName, cfg.Category, string(definition), cfg.IsActive, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert task type %s: %w", cfg.ID, err)
	}
	return nil
}

// ListTaskTypes returns task types ordered by id
func (s *PostgresStorage) ListTaskTypes(ctx context.Context, activeOnly bool) ([]*types.TaskTypeConfig, error) {
	query := `SELECT definition, is_active FROM task_types`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list task types: %w", err)
	}
	defer rows.Close()

	var result []*types.TaskTypeConfig
	for rows.Next() {
		var definition []byte
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

func decodeTaskType(definition []byte, active bool) (*types.TaskTypeConfig, error) {
	var cfg types.TaskTypeConfig
	if err := json.Unmarshal(definition, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode task type definition: %w", err)
	}
	cfg.IsActive = active
	return &cfg, nil
}
