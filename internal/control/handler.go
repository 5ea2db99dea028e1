package control

import (
	"context"
	"fmt"

	"github.com/steveyegge/taskgate/internal/pipeline"
	"github.com/steveyegge/taskgate/internal/types"
)

// Pipeline is the part of *pipeline.Pipeline the control plane drives
type Pipeline interface {
	ValidateTask(ctx context.Context, payload types.Payload, opts pipeline.Options) *types.PipelineResult
	FlushCache()
	ResetFailures(ctx context.Context, agentID string) error
	Stats() pipeline.Stats
}

// NewPipelineHandler maps control commands onto pipeline operations
func NewPipelineHandler(p Pipeline) HandlerFunc {
	return func(ctx context.Context, cmd Command) (any, error) {
		switch cmd.Type {
		case CmdValidate:
			if cmd.Payload == nil {
				return nil, fmt.Errorf("payload is required")
			}
			return p.ValidateTask(ctx, cmd.Payload, pipeline.Options{
				AgentID: cmd.AgentID,
				DryRun:  cmd.DryRun,
			}), nil
		case CmdFlushCache:
			p.FlushCache()
			return nil, nil
		case CmdResetAgent:
			return nil, p.ResetFailures(ctx, cmd.AgentID)
		case CmdStatus:
			return p.Stats(), nil
		default:
			return nil, fmt.Errorf("unknown command type %q", cmd.Type)
		}
	}
}
