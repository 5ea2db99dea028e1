package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/taskgate/internal/control"
)

var flushCacheCmd = &cobra.Command{
	Use:         "flush-cache",
	Short:       "Drop a running server's task-type cache",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{noStoreAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := control.NewClient(defaultSocketPath()).FlushCache(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Task type cache flushed\n", green("✓"))
		return nil
	},
}

var resetAgentCmd = &cobra.Command{
	Use:   "reset-agent <agent-id>",
	Short: "Clear an agent's consecutive failure streak",
	Long: `Clear an agent's consecutive failure count on a running server, lifting
a rate-limit lockout. Failure streaks never decay on their own; this is the
operator's way to let a blocked agent submit again.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{noStoreAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := control.NewClient(defaultSocketPath()).ResetAgent(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Failure streak cleared for %s\n", green("✓"), cyan(args[0]))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:         "status",
	Short:       "Show a running server's counters",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{noStoreAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := control.NewClient(defaultSocketPath()).Status()
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return renderJSON(cmd.OutOrStdout(), stats)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Validations:     %d\n", stats.Validations)
		fmt.Fprintf(out, "  passed:        %s\n", green(stats.Passed))
		fmt.Fprintf(out, "  flagged:       %s\n", yellow(stats.Flagged))
		fmt.Fprintf(out, "  failed:        %s\n", red(stats.Failed))
		fmt.Fprintf(out, "  rate limited:  %s\n", red(stats.RateLimited))
		fmt.Fprintf(out, "Cached types:    %d\n", stats.CachedTaskTypes)
		if stats.AuditFailures > 0 {
			fmt.Fprintf(out, "Audit failures:  %s\n", red(stats.AuditFailures))
		}
		if stats.GatePanics > 0 {
			fmt.Fprintf(out, "Gate panics:     %s\n", red(stats.GatePanics))
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "Print as JSON")
	rootCmd.AddCommand(flushCacheCmd, resetAgentCmd, statusCmd)
}
