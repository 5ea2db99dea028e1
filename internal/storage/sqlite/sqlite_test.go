package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/taskgate/internal/storage/migrations"
	"github.com/steveyegge/taskgate/internal/types"
)

func setupTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "taskgate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func floatPtr(f float64) *float64 { return &f }

func movingType() *types.TaskTypeConfig {
	return &types.TaskTypeConfig{
		ID:                 "moving",
		DisplayName:        "Moving help",
		Category:           "physical",
		RequiredFields:     []string{"title", "description", "budget_usd", "duration_hours"},
		OptionalFields:     []string{"floors"},
		FieldSchemas:       map[string]types.FieldSchema{"floors": {Type: types.FieldNumber, Min: floatPtr(0)}},
		MinimumBudgetUSD:   40,
		MaximumDurationHr:  10,
		ProhibitedKeywords: []string{"piano"},
		RequiresAddress:    true,
		IsActive:           true,
	}
}

func TestNew_CreatesDirectoryAndSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "taskgate.db")
	store, err := New(path)
	require.NoError(t, err)
	defer store.Close()

	version, err := migrations.VersionSQLite(store.db)
	require.NoError(t, err)
	assert.Equal(t, migrations.Default().Latest(), version)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestNew_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskgate.db")
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)
	require.NoError(t, store.UpsertTaskType(ctx, movingType()))
	require.NoError(t, store.Close())

	store, err = New(path)
	require.NoError(t, err)
	defer store.Close()
	_, err = store.GetTaskTypeConfig(ctx, "moving")
	assert.NoError(t, err)
}

func TestInMemory(t *testing.T) {
	store, err := New(":memory:")
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.UpsertTaskType(ctx, movingType()))
	got, err := store.GetTaskTypeConfig(ctx, "moving")
	require.NoError(t, err)
	assert.Equal(t, "moving", got.ID)
}

func TestTaskTypeRoundTrip(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	want := movingType()
	require.NoError(t, store.UpsertTaskType(ctx, want))

	got, err := store.GetTaskTypeConfig(ctx, "moving")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetTaskTypeConfig_NotFound(t *testing.T) {
	store := setupTestStorage(t)

	_, err := store.GetTaskTypeConfig(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrTaskTypeNotFound))
}

func TestUpsertTaskType_Updates(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	cfg := movingType()
	require.NoError(t, store.UpsertTaskType(ctx, cfg))

	cfg.MinimumBudgetUSD = 55
	cfg.IsActive = false
	require.NoError(t, store.UpsertTaskType(ctx, cfg))

	got, err := store.GetTaskTypeConfig(ctx, "moving")
	require.NoError(t, err)
	assert.Equal(t, 55.0, got.MinimumBudgetUSD)
	assert.False(t, got.IsActive)
}

func TestUpsertTaskType_RejectsInvalid(t *testing.T) {
	store := setupTestStorage(t)

	err := store.UpsertTaskType(context.Background(), &types.TaskTypeConfig{ID: " "})
	assert.Error(t, err)

	cfg := movingType()
	cfg.FieldSchemas["floors"] = types.FieldSchema{Type: "matrix"}
	assert.Error(t, store.UpsertTaskType(context.Background(), cfg))
}

func TestListTaskTypes(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	for _, id := range []string{"zeta", "alpha", "mid"} {
		cfg := movingType()
		cfg.ID = id
		cfg.IsActive = id != "mid"
		require.NoError(t, store.UpsertTaskType(ctx, cfg))
	}

	all, err := store.ListTaskTypes(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].ID)
	assert.Equal(t, "zeta", all[2].ID)

	active, err := store.ListTaskTypes(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	for _, cfg := range active {
		assert.True(t, cfg.IsActive)
	}
}

func auditRecord(id, agent string, outcome types.Outcome, at time.Time) *types.AuditRecord {
	return &types.AuditRecord{
		ID:          id,
		AgentID:     agent,
		TaskTypeID:  "moving",
		PayloadHash: "deadbeef",
		Outcome:     outcome,
		Errors: []types.ValidationError{{
			Field: "budget_usd", Code: types.CodeBudgetBelowMinimum, Message: "too low",
			Constraint: map[string]any{"minimum_budget_usd": 40.0},
		}},
		AttemptNumber: 2,
		DryRun:        true,
		CreatedAt:     at,
	}
}

func TestAuditRoundTrip(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	rec := auditRecord("a1", "agent-1", types.OutcomeFailed, at)
	rec.SoftFlags = []types.ValidationError{{Field: "title", Code: types.CodeProhibitedContent, Message: "knife"}}
	require.NoError(t, store.InsertAuditRecord(ctx, rec))

	got, err := store.ListAuditRecords(ctx, types.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "a1", got[0].ID)
	assert.Equal(t, types.OutcomeFailed, got[0].Outcome)
	assert.Equal(t, 2, got[0].AttemptNumber)
	assert.True(t, got[0].DryRun)
	assert.True(t, at.Equal(got[0].CreatedAt))
	require.Len(t, got[0].Errors, 1)
	assert.Equal(t, types.CodeBudgetBelowMinimum, got[0].Errors[0].Code)
	assert.Equal(t, 40.0, got[0].Errors[0].Constraint["minimum_budget_usd"])
	require.Len(t, got[0].SoftFlags, 1)
}

func TestInsertAuditRecord_Validation(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	rec := auditRecord("", "agent", types.OutcomePassed, time.Now())
	assert.Error(t, store.InsertAuditRecord(ctx, rec))

	rec = auditRecord("x", "agent", types.Outcome("meh"), time.Now())
	assert.Error(t, store.InsertAuditRecord(ctx, rec))

	rec = auditRecord("dup", "agent", types.OutcomePassed, time.Now())
	require.NoError(t, store.InsertAuditRecord(ctx, rec))
	assert.Error(t, store.InsertAuditRecord(ctx, rec), "duplicate id")
}

func TestListAuditRecords_FilterAndOrder(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	records := []*types.AuditRecord{
		auditRecord("r1", "agent-1", types.OutcomeFailed, base),
		auditRecord("r2", "agent-1", types.OutcomePassed, base.Add(time.Minute)),
		auditRecord("r3", "agent-2", types.OutcomeRateLimited, base.Add(2*time.Minute)),
		auditRecord("r4", "agent-1", types.OutcomeFailed, base.Add(3*time.Minute)),
	}
	for _, r := range records {
		require.NoError(t, store.InsertAuditRecord(ctx, r))
	}

	got, err := store.ListAuditRecords(ctx, types.AuditFilter{AgentID: "agent-1"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "r4", got[0].ID)
	assert.Equal(t, "r1", got[2].ID)

	got, err = store.ListAuditRecords(ctx, types.AuditFilter{AgentID: "agent-1", Outcome: types.OutcomeFailed})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = store.ListAuditRecords(ctx, types.AuditFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r4", got[0].ID)

	got, err = store.ListAuditRecords(ctx, types.AuditFilter{TaskTypeID: "other"})
	require.NoError(t, err)
	assert.Empty(t, got)
}
