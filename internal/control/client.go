package control

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/steveyegge/taskgate/internal/pipeline"
	"github.com/steveyegge/taskgate/internal/types"
)

// Client sends control commands to a running server
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new control client
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    10 * time.Second,
	}
}

// SetTimeout sets the client timeout for commands
func (c *Client) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// SendCommand sends a command and waits for the response
func (c *Client) SendCommand(cmd Command) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to taskgate server (is it running?): %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}

	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return nil, fmt.Errorf("failed to send command: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &resp, nil
}

// call sends cmd and turns an unsuccessful response into an error
func (c *Client) call(cmd Command) (*Response, error) {
	cmd.Timestamp = time.Now()
	resp, err := c.SendCommand(cmd)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return resp, fmt.Errorf("%s failed: %s", cmd.Type, resp.Error)
	}
	return resp, nil
}

// Validate runs a payload through the server's pipeline
func (c *Client) Validate(payload types.Payload, agentID string, dryRun bool) (*types.PipelineResult, error) {
	resp, err := c.call(Command{Type: CmdValidate, Payload: payload, AgentID: agentID, DryRun: dryRun})
	if err != nil {
		return nil, err
	}
	var result types.PipelineResult
	if err := resp.Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode validation result: %w", err)
	}
	return &result, nil
}

// FlushCache empties the server's task-type cache
func (c *Client) FlushCache() error {
	_, err := c.call(Command{Type: CmdFlushCache})
	return err
}

// ResetAgent clears an agent's failure streak
func (c *Client) ResetAgent(agentID string) error {
	_, err := c.call(Command{Type: CmdResetAgent, AgentID: agentID})
	return err
}

// Status returns the server's pipeline counters
func (c *Client) Status() (*pipeline.Stats, error) {
	resp, err := c.call(Command{Type: CmdStatus})
	if err != nil {
		return nil, err
	}
	var stats pipeline.Stats
	if err := resp.Decode(&stats); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}
	return &stats, nil
}
