package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/steveyegge/taskgate/internal/types"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the validation audit log",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent validation attempts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		agent, _ := cmd.Flags().GetString("agent")
		taskType, _ := cmd.Flags().GetString("task-type")
		outcome, _ := cmd.Flags().GetString("outcome")
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")

		filter := types.AuditFilter{
			AgentID:    agent,
			TaskTypeID: taskType,
			Outcome:    types.Outcome(outcome),
			Limit:      limit,
		}
		if filter.Outcome != "" && !filter.Outcome.IsValid() {
			return fmt.Errorf("invalid outcome %q (want passed, failed, flagged_for_review or rate_limited)", outcome)
		}

		records, err := store.ListAuditRecords(cmd.Context(), filter)
		if err != nil {
			return err
		}
		if asJSON {
			return renderJSON(cmd.OutOrStdout(), records)
		}
		if len(records) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No audit records")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tAGENT\tTASK TYPE\tRESULT\tATTEMPT\tDRY RUN\tCODES")
		for _, r := range records {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%t\t%s\n",
				r.CreatedAt.Local().Format(time.DateTime), r.AgentID, r.TaskTypeID,
				renderOutcome(r.Outcome), r.AttemptNumber, r.DryRun, codes(r.Errors))
		}
		return tw.Flush()
	},
}

func init() {
	auditListCmd.Flags().String("agent", "", "Filter by agent id")
	auditListCmd.Flags().String("task-type", "", "Filter by task type id")
	auditListCmd.Flags().String("outcome", "", "Filter by result (passed, failed, flagged_for_review, rate_limited)")
	auditListCmd.Flags().Int("limit", 50, "Maximum records to show")
	auditListCmd.Flags().Bool("json", false, "Print as JSON")
	auditCmd.AddCommand(auditListCmd)
	rootCmd.AddCommand(auditCmd)
}
