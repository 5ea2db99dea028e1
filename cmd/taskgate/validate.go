package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/taskgate/internal/control"
	"github.com/steveyegge/taskgate/internal/pipeline"
	"github.com/steveyegge/taskgate/internal/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate <payload.json | ->",
	Short: "Validate a task payload",
	Long: `Run a task payload through every validation gate and print the verdict.

The payload is a JSON object read from a file, or from stdin when the
argument is "-". With --socket the payload is sent to a running
'taskgate serve' so failure streaks persist across calls; otherwise the
pipeline runs in-process against the local registry.

Exit status:
  0  valid (possibly flagged for review)
  1  rejected
  2  usage or infrastructure error
  3  rate limited`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{noStoreAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		agentID, _ := cmd.Flags().GetString("agent")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		asJSON, _ := cmd.Flags().GetBool("json")

		payload, err := readPayload(args[0], cmd.InOrStdin())
		if err != nil {
			return err
		}

		var result *types.PipelineResult
		if socketFlag != "" {
			result, err = control.NewClient(socketFlag).Validate(payload, agentID, dryRun)
			if err != nil {
				return err
			}
		} else {
			if err := ensureStore(cmd.Context()); err != nil {
				return err
			}
			defer closeStore()
			p, cleanup, err := buildPipeline(cmd.Context(), store)
			if err != nil {
				return err
			}
			defer cleanup()
			result = p.ValidateTask(cmd.Context(), payload, pipeline.Options{AgentID: agentID, DryRun: dryRun})
		}

		out := cmd.OutOrStdout()
		if asJSON {
			if err := renderJSON(out, result); err != nil {
				return err
			}
		} else {
			renderResult(out, result)
		}

		if code := exitCodeFor(result); code != 0 {
			return &exitError{code: code}
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().String("agent", "", "Agent identifier used for failure tracking")
	validateCmd.Flags().Bool("dry-run", false, "Validate without intent to publish")
	validateCmd.Flags().Bool("json", false, "Print the result as JSON")
	rootCmd.AddCommand(validateCmd)
}

// readPayload decodes a JSON object from path, or from stdin when path is "-"
func readPayload(path string, stdin io.Reader) (types.Payload, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}

	var payload types.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("payload must be a JSON object")
	}
	return payload, nil
}
