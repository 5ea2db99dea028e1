package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProjectDirName is the per-project directory holding the database
const ProjectDirName = ".taskgate"

// DiscoverDatabase looks for .taskgate/*.db in the current directory only.
// TASKGATE_DB_PATH, when set, is returned as-is (including ":memory:").
func DiscoverDatabase() (string, error) {
	if dbPath := os.Getenv("TASKGATE_DB_PATH"); dbPath != "" {
		return dbPath, nil
	}

	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return discoverDatabaseInDir(dir)
}

// discoverDatabaseInDir checks for .taskgate/*.db in dir. Parent directories
// are not searched.
func discoverDatabaseInDir(dir string) (string, error) {
	projectDir := filepath.Join(dir, ProjectDirName)

	if info, err := os.Stat(projectDir); err == nil && info.IsDir() {
		entries, err := os.ReadDir(projectDir)
		if err == nil {
			for _, entry := range entries {
				if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".db") {
					absPath, err := filepath.Abs(filepath.Join(projectDir, entry.Name()))
					if err != nil {
						return "", fmt.Errorf("failed to get absolute path: %w", err)
					}
					return absPath, nil
				}
			}
		}
	}

	return "", fmt.Errorf(
		"no %s/*.db found in %s\n"+
			"  Run 'taskgate init' to create one here\n"+
			"  Or use --db flag to specify database path explicitly",
		ProjectDirName, dir)
}

// GetProjectRoot returns the directory containing the .taskgate/ directory
// that holds dbPath.
func GetProjectRoot(dbPath string) (string, error) {
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	dbDir := filepath.Dir(absPath)
	if filepath.Base(dbDir) != ProjectDirName {
		return "", fmt.Errorf("database must be in a %s/ directory, got: %s", ProjectDirName, dbPath)
	}
	return filepath.Dir(dbDir), nil
}

// InitProject creates a .taskgate directory and returns the database path to
// use. The database itself is created on first open.
func InitProject(projectDir, name string) (string, error) {
	if _, err := os.Stat(projectDir); os.IsNotExist(err) {
		return "", fmt.Errorf("project directory does not exist: %s", projectDir)
	}

	dir := filepath.Join(projectDir, ProjectDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", ProjectDirName, err)
	}

	if name == "" {
		name = "taskgate"
	}
	if !strings.HasSuffix(name, ".db") {
		name += ".db"
	}

	dbPath := filepath.Join(dir, name)
	if _, err := os.Stat(dbPath); err == nil {
		return "", fmt.Errorf("database already exists: %s", dbPath)
	}
	return dbPath, nil
}
