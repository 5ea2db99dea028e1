package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/steveyegge/taskgate/internal/types"
)

// DefaultAuditLimit caps ListAuditRecords when the filter sets no limit
const DefaultAuditLimit = 100

// InsertAuditRecord appends one validation audit row
func (s *PostgresStorage) InsertAuditRecord(ctx context.Context, rec *types.AuditRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("audit record id is required")
	}
	if !rec.Outcome.IsValid() {
		return fmt.Errorf("invalid validation result %q", rec.Outcome)
	}

	errorsJSON, err := marshalFindings(rec.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode audit errors: %w", err)
	}
	flagsJSON, err := marshalFindings(rec.SoftFlags)
	if err != nil {
		return fmt.Errorf("failed to encode audit soft flags: %w", err)
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO validation_audit (
			id, agent_id, task_type_id, payload_hash, validation_result,
			errors, soft_flags, attempt_number, dry_run, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		rec.ID, rec.AgentID, rec.TaskTypeID, rec.PayloadHash, string(rec.Outcome),
		errorsJSON, flagsJSON, rec.AttemptNumber, rec.DryRun, createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// ListAuditRecords returns the newest records matching the filter
func (s *PostgresStorage) ListAuditRecords(ctx context.Context, filter types.AuditFilter) ([]*types.AuditRecord, error) {
	var conditions []string
	var args []any
	addCondition := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.AgentID != "" {
		addCondition("agent_id", filter.AgentID)
	}
	if filter.TaskTypeID != "" {
		addCondition("task_type_id", filter.TaskTypeID)
	}
	if filter.Outcome != "" {
		addCondition("validation_result", string(filter.Outcome))
	}

	query := `SELECT id, agent_id, task_type_id, payload_hash, validation_result, errors, soft_flags, attempt_number, dry_run, created_at FROM validation_audit`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()

	var records []*types.AuditRecord
	for rows.Next() {
		var rec types.AuditRecord
		var outcome string
		var errorsJSON, flagsJSON []byte
		if err := rows.Scan(
			&rec.ID, &rec.AgentID, &rec.TaskTypeID, &rec.PayloadHash, &outcome,
			&errorsJSON, &flagsJSON, &rec.AttemptNumber, &rec.DryRun, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		rec.Outcome = types.Outcome(outcome)
		if err := json.Unmarshal(errorsJSON, &rec.Errors); err != nil {
			return nil, fmt.Errorf("failed to decode errors for %s: %w", rec.ID, err)
		}
		if err := json.Unmarshal(flagsJSON, &rec.SoftFlags); err != nil {
			return nil, fmt.Errorf("failed to decode soft flags for %s: %w", rec.ID, err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func marshalFindings(findings []types.ValidationError) (string, error) {
	if findings == nil {
		findings = []types.ValidationError{}
	}
	data, err := json.Marshal(findings)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
