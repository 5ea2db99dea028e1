package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/taskgate/internal/config"
	"github.com/steveyegge/taskgate/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init [name]",
	Short: "Create a taskgate database in the current directory",
	Long: `Initialize a .taskgate/ directory with a SQLite database holding the
task-type registry and audit log.

Example:
  taskgate init                                # Creates .taskgate/taskgate.db
  taskgate init --task-types task_types.yaml   # ...and seeds the registry`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{noStoreAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		seedFile, _ := cmd.Flags().GetString("task-types")

		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current directory: %w", err)
		}
		path, err := storage.InitProject(cwd, name)
		if err != nil {
			return err
		}

		db, err := storage.NewStorage(cmd.Context(), &storage.Config{Backend: storage.BackendSQLite, Path: path})
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()

		loaded := 0
		if seedFile != "" {
			cfgs, err := config.LoadTaskTypes(seedFile)
			if err != nil {
				return err
			}
			for _, cfg := range cfgs {
				if err := db.UpsertTaskType(cmd.Context(), cfg); err != nil {
					return err
				}
			}
			loaded = len(cfgs)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\n%s Initialized taskgate\n\n", green("✓"))
		fmt.Fprintf(out, "  Database: %s\n", cyan(path))
		if loaded > 0 {
			fmt.Fprintf(out, "  Task types: %d\n", loaded)
		}
		fmt.Fprintln(out)
		return nil
	},
}

func init() {
	initCmd.Flags().String("task-types", "", "YAML file of task types to seed")
	rootCmd.AddCommand(initCmd)
}
