// Package control is the admin plane of a running taskgate server: a unix
// socket speaking one JSON command and one JSON response per connection.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/steveyegge/taskgate/internal/types"
)

// Command types
const (
	CmdValidate   = "validate"
	CmdFlushCache = "flush_cache"
	CmdResetAgent = "reset_agent"
	CmdStatus     = "status"
)

// Command represents a control command sent to the server
type Command struct {
	Type      string        `json:"type"`
	AgentID   string        `json:"agent_id,omitempty"` // validate, reset_agent
	Payload   types.Payload `json:"payload,omitempty"`  // validate
	DryRun    bool          `json:"dry_run,omitempty"`  // validate
	Timestamp time.Time     `json:"timestamp"`
}

// Response represents a response to a control command
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Decode unmarshals the response data into v
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("response has no data")
	}
	return json.Unmarshal(r.Data, v)
}

// HandlerFunc executes a command and returns JSON-encodable data
type HandlerFunc func(ctx context.Context, cmd Command) (any, error)

// Server manages the control socket
type Server struct {
	socketPath string
	listener   net.Listener
	mu         sync.RWMutex
	running    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	logger     *slog.Logger

	onCommand HandlerFunc
}

// NewServer creates a new control server. A stale socket file left by a
// crashed instance is removed.
func NewServer(socketPath string, onCommand HandlerFunc, logger *slog.Logger) (*Server, error) {
	if onCommand == nil {
		return nil, errors.New("command handler is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}
	if err := os.RemoveAll(socketPath); err != nil {
		return nil, fmt.Errorf("failed to remove existing socket: %w", err)
	}

	return &Server{
		socketPath: socketPath,
		onCommand:  onCommand,
		logger:     logger,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}, nil
}

// Start begins listening for control commands
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("control server already running")
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to create control socket: %w", err)
	}

	s.listener = listener
	s.running = true
	s.mu.Unlock()

	s.logger.Info("control server listening", "socket", s.socketPath)

	go s.acceptLoop(ctx)
	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer close(s.doneCh)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		// Accept timeout lets the loop observe stopCh
		if err := s.listener.(*net.UnixListener).SetDeadline(time.Now().Add(1 * time.Second)); err != nil {
			s.logger.Warn("control: failed to set deadline", "error", err)
			continue
		}

		conn, err := s.listener.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			select {
			case <-s.stopCh:
				return
			default:
			}
			s.logger.Warn("control: accept error", "error", err)
			continue
		}

		go s.handleConnection(ctx, conn)
	}
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		s.logger.Warn("control: failed to set read deadline", "error", err)
		return
	}

	var cmd Command
	if err := json.NewDecoder(conn).Decode(&cmd); err != nil {
		s.sendError(conn, fmt.Sprintf("failed to decode command: %v", err))
		return
	}
	if cmd.Timestamp.IsZero() {
		cmd.Timestamp = time.Now()
	}

	var resp Response
	data, err := s.onCommand(ctx, cmd)
	if err != nil {
		resp = Response{
			Success: false,
			Message: fmt.Sprintf("Command failed: %v", err),
			Error:   err.Error(),
		}
	} else {
		resp = Response{
			Success: true,
			Message: fmt.Sprintf("Command '%s' completed successfully", cmd.Type),
		}
		if data != nil {
			raw, err := json.Marshal(data)
			if err != nil {
				s.sendError(conn, fmt.Sprintf("failed to encode response data: %v", err))
				return
			}
			resp.Data = raw
		}
	}

	if err := s.sendResponse(conn, resp); err != nil {
		s.logger.Warn("control: failed to send response", "error", err)
	}
}

func (s *Server) sendError(conn net.Conn, message string) {
	_ = s.sendResponse(conn, Response{
		Success: false,
		Message: message,
		Error:   message,
	})
}

func (s *Server) sendResponse(conn net.Conn, resp Response) error {
	return json.NewEncoder(conn).Encode(resp)
}

// Stop stops the control server and removes the socket file
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)

	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			s.logger.Warn("control: error closing listener", "error", err)
		}
	}

	select {
	case <-s.doneCh:
	case <-time.After(5 * time.Second):
		s.logger.Warn("control: timeout waiting for server shutdown")
	}

	if err := os.RemoveAll(s.socketPath); err != nil {
		s.logger.Warn("control: failed to remove socket file", "error", err)
	}

	s.logger.Info("control server stopped")
	return nil
}

// IsRunning returns whether the server is currently running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// SocketPath returns the path to the control socket
func (s *Server) SocketPath() string {
	return s.socketPath
}
