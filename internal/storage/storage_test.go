package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/taskgate/internal/types"
)

func TestDefaultConfig_RespectsEnv(t *testing.T) {
	t.Setenv("TASKGATE_DB_PATH", "")
	cfg := DefaultConfig()
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, DefaultDBPath, cfg.Path)

	t.Setenv("TASKGATE_DB_PATH", ":memory:")
	assert.Equal(t, ":memory:", DefaultConfig().Path)
}

func TestNewStorage_SQLite(t *testing.T) {
	ctx := context.Background()
	store, err := NewStorage(ctx, &Config{Path: filepath.Join(t.TempDir(), "t.db")})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.UpsertTaskType(ctx, &types.TaskTypeConfig{ID: "errand", IsActive: true}))

	got, err := store.GetTaskTypeConfig(ctx, "errand")
	require.NoError(t, err)
	assert.Equal(t, "errand", got.ID)

	_, err = store.GetTaskTypeConfig(ctx, "unknown")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestNewStorage_UnknownBackend(t *testing.T) {
	_, err := NewStorage(context.Background(), &Config{Backend: "mongo"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo")
}

func TestServerLock(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), ProjectDirName, "taskgate.db")

	lockPath, err := AcquireServerLock(dbPath, "test")
	require.NoError(t, err)
	assert.Equal(t, LockPath(dbPath), lockPath)

	data, err := os.ReadFile(lockPath)
	require.NoError(t, err)
	var lock ServerLock
	require.NoError(t, json.Unmarshal(data, &lock))
	assert.Equal(t, os.Getpid(), lock.PID)

	// This process is alive, so a second acquire must fail
	_, err = AcquireServerLock(dbPath, "test")
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, ReleaseServerLock(lockPath))
	require.NoError(t, ReleaseServerLock(lockPath), "second release is a no-op")

	lockPath, err = AcquireServerLock(dbPath, "test")
	require.NoError(t, err)
	assert.NoError(t, ReleaseServerLock(lockPath))
}

func TestServerLock_StaleLockReplaced(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "taskgate.db")
	hostname, err := os.Hostname()
	require.NoError(t, err)

	stale, err := json.Marshal(ServerLock{Holder: "taskgate-serve", PID: 999999999, Hostname: hostname})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(LockPath(dbPath), stale, 0644))

	lockPath, err := AcquireServerLock(dbPath, "test")
	require.NoError(t, err)
	defer ReleaseServerLock(lockPath)
}
