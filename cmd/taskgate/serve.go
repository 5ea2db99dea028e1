package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/steveyegge/taskgate/internal/control"
	"github.com/steveyegge/taskgate/internal/storage"
)

// Version is reported in the server lock file
var Version = "dev"

// defaultSocketPath is .taskgate/control.sock in the current directory
func defaultSocketPath() string {
	if socketFlag != "" {
		return socketFlag
	}
	return filepath.Join(storage.ProjectDirName, "control.sock")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the validation pipeline behind a control socket",
	Long: `Start a long-lived pipeline and accept commands on a unix socket.

The server keeps the task-type cache and per-agent failure streaks in
memory (or in Redis when TASKGATE_REDIS_ADDR is set). Clients use
'taskgate validate --socket', 'flush-cache', 'reset-agent' and 'status'.

Only one server may run against a SQLite database at a time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if openedDBPath != "" && openedDBPath != ":memory:" {
			lockPath, err := storage.AcquireServerLock(openedDBPath, Version)
			if err != nil {
				return err
			}
			defer func() {
				if err := storage.ReleaseServerLock(lockPath); err != nil {
					logger.Warn("failed to release server lock", "error", err)
				}
			}()
		}

		p, cleanup, err := buildPipeline(ctx, store)
		if err != nil {
			return err
		}
		defer cleanup()

		server, err := control.NewServer(defaultSocketPath(), control.NewPipelineHandler(p), logger)
		if err != nil {
			return err
		}
		if err := server.Start(ctx); err != nil {
			return err
		}
		logger.Info("taskgate serving", "config", pipeCfg.String())
		fmt.Fprintf(cmd.OutOrStdout(), "%s Listening on %s (Ctrl-C to stop)\n", green("✓"), cyan(server.SocketPath()))

		<-ctx.Done()
		return server.Stop()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
