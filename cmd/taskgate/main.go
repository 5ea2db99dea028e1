// Command taskgate validates task payloads before they reach a human task
// marketplace, and manages the task-type registry and audit log behind it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/taskgate/internal/config"
	"github.com/steveyegge/taskgate/internal/logging"
	"github.com/steveyegge/taskgate/internal/storage"
)

var (
	dbPath     string
	socketFlag string
	logLevel   string
	logJSON    bool

	store        storage.Storage
	openedDBPath string // empty for non-SQLite backends
	pipeCfg      config.PipelineConfig
	logger       *slog.Logger
)

// noStoreAnnotation marks commands that must not open the database up front
const noStoreAnnotation = "no-store"

var rootCmd = &cobra.Command{
	Use:           "taskgate",
	Short:         "Validate agent-submitted task payloads",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		pipeCfg, err = config.PipelineConfigFromEnv()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			pipeCfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("log-json") {
			pipeCfg.LogJSON = logJSON
		}
		if _, err := logging.ParseLevel(pipeCfg.LogLevel); err != nil {
			return err
		}
		logger = logging.Setup(pipeCfg.Logging())

		if cmd.Annotations[noStoreAnnotation] == "true" {
			return nil
		}
		store, err = openStore(cmd.Context())
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeStore()
	},
}

// closeStore releases the open store, if any. Cobra skips PersistentPostRun
// when RunE fails, so commands that open the store late defer this too.
func closeStore() {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil && logger != nil {
		logger.Warn("failed to close storage", "error", err)
	}
	store = nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default: discovered .taskgate/*.db)")
	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "Control socket of a running 'taskgate serve'")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")
}

// openStore resolves the backend from the environment and --db
func openStore(ctx context.Context) (storage.Storage, error) {
	cfg, err := config.StorageConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.Backend == storage.BackendSQLite {
		path, err := resolveDBPath()
		if err != nil {
			return nil, err
		}
		cfg.Path = path
		openedDBPath = path
	}
	return storage.NewStorage(ctx, cfg)
}

func resolveDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	return storage.DiscoverDatabase()
}

// exitError carries a process exit code out of a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// Exit codes for validate
const (
	exitInvalid     = 1
	exitUsage       = 2
	exitRateLimited = 3
)

func main() {
	err := rootCmd.ExecuteContext(context.Background())
	closeStore()
	if err == nil {
		return
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", exitErr.err)
		}
		os.Exit(exitErr.code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(exitUsage)
}
