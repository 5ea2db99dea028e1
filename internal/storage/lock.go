package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// ServerLock is the lock file a running `taskgate serve` writes next to its
// database so a second server on the same database refuses to start.
type ServerLock struct {
	Holder    string    `json:"holder"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
	Version   string    `json:"version"`
}

// ErrLocked is returned when a live server already holds the lock
var ErrLocked = errors.New("database is locked by another taskgate server")

// LockPath returns the lock file location for a database path
func LockPath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), ".server-lock")
}

// AcquireServerLock writes the lock file for dbPath. A lock left behind by a
// dead process on this host is overwritten.
func AcquireServerLock(dbPath, version string) (string, error) {
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return "", fmt.Errorf("invalid database path: %w", err)
	}
	lockPath := LockPath(absPath)

	if data, err := os.ReadFile(lockPath); err == nil {
		var existing ServerLock
		if json.Unmarshal(data, &existing) == nil && isProcessAlive(existing.PID, existing.Hostname) {
			return "", fmt.Errorf("%w (PID %d on %s, started %s)", ErrLocked,
				existing.PID, existing.Hostname, existing.StartedAt.Format(time.RFC3339))
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to get hostname: %w", err)
	}

	data, err := json.MarshalIndent(ServerLock{
		Holder:    "taskgate-serve",
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
		Version:   version,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal lock: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create lock directory: %w", err)
	}
	if err := os.WriteFile(lockPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to create server lock: %w", err)
	}
	return lockPath, nil
}

// ReleaseServerLock removes the lock file. Missing files are not an error.
func ReleaseServerLock(lockPath string) error {
	if lockPath == "" {
		return nil
	}
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove server lock: %w", err)
	}
	return nil
}

// isProcessAlive reports whether pid exists. Processes on other hosts are
// assumed alive.
func isProcessAlive(pid int, hostname string) bool {
	currentHost, err := os.Hostname()
	if err != nil {
		return true
	}
	if !strings.EqualFold(hostname, currentHost) {
		return true
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 probes without delivering anything
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM means it exists but belongs to someone else
	return errors.Is(err, syscall.EPERM)
}
