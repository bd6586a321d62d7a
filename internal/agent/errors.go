// errors.go — Error taxonomy for agent dispatch failures.
// These are the internal tags; the JSON-RPC layer maps them to wire codes.
package agent

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoPeer means no browser agent session is healthy enough to take
	// the action.
	ErrNoPeer = errors.New("no browser extensions connected")

	// ErrPeerGone means the session was evicted while the call was pending.
	ErrPeerGone = errors.New("browser agent disconnected before replying")

	// ErrPeerCongested means the session writer queue stayed full past the
	// write timeout. Never retried here; the caller's deadline governs.
	ErrPeerCongested = errors.New("browser agent send queue is congested")
)

// TimeoutError reports that the per-action deadline fired before a reply.
type TimeoutError struct {
	Action  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for %s reply after %s", e.Action, e.Timeout)
}

// AgentError wraps an error reply sent by the agent, preserving its text.
type AgentError struct {
	Text string
}

func (e *AgentError) Error() string {
	return "browser agent error: " + e.Text
}
