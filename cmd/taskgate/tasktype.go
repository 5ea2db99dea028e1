package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/steveyegge/taskgate/internal/config"
)

var taskTypeCmd = &cobra.Command{
	Use:   "tasktype",
	Short: "Manage the task-type registry",
}

var taskTypeLoadCmd = &cobra.Command{
	Use:   "load <task_types.yaml>",
	Short: "Insert or update task types from a YAML file",
	Long: `Load task-type definitions into the registry. Existing task types with
the same id are replaced. Running servers pick up the change once their
cache entry expires, or immediately after 'taskgate flush-cache'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgs, err := config.LoadTaskTypes(args[0])
		if err != nil {
			return err
		}
		for _, cfg := range cfgs {
			if err := store.UpsertTaskType(cmd.Context(), cfg); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Loaded %d task type(s) from %s\n", green("✓"), len(cfgs), cyan(args[0]))
		return nil
	},
}

var taskTypeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered task types",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfgs, err := store.ListTaskTypes(cmd.Context(), !all)
		if err != nil {
			return err
		}
		if asJSON {
			return renderJSON(cmd.OutOrStdout(), cfgs)
		}
		if len(cfgs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No task types registered")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tMIN BUDGET\tMAX HOURS\tACTIVE")
		for _, c := range cfgs {
			maxHours := "-"
			if c.MaximumDurationHr > 0 {
				maxHours = fmt.Sprintf("%.1f", c.MaximumDurationHr)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t$%.2f\t%s\t%t\n",
				c.ID, c.DisplayName, c.Category, c.MinimumBudgetUSD, maxHours, c.IsActive)
		}
		return tw.Flush()
	},
}

func init() {
	taskTypeListCmd.Flags().Bool("all", false, "Include inactive task types")
	taskTypeListCmd.Flags().Bool("json", false, "Print as JSON")
	taskTypeCmd.AddCommand(taskTypeLoadCmd, taskTypeListCmd)
	rootCmd.AddCommand(taskTypeCmd)
}
