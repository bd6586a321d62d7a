// server.go — HTTP bridge server state and construction.
package server

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/browserlink/browserlink/internal/agent"
	"github.com/browserlink/browserlink/internal/cache"
	"github.com/browserlink/browserlink/internal/config"
	"github.com/browserlink/browserlink/internal/pagination"
	"github.com/browserlink/browserlink/internal/shape"
	"github.com/browserlink/browserlink/internal/types"
)

// Version is reported in the initialize handshake and on connection frames.
const Version = "1.2.0"

// ServerName identifies this bridge in the MCP handshake.
const ServerName = "browserlink"

// Dispatcher sends one action frame to the current agent session and blocks
// for the correlated reply. Satisfied by agent.Mux; stubbed in tests.
type Dispatcher interface {
	Dispatch(ctx context.Context, action string, tabID int, params map[string]any, timeoutOverride time.Duration) (json.RawMessage, error)
}

// Server owns the client-facing HTTP surface: JSON-RPC on /mcp, the agent
// WebSocket upgrade on /ws, and the operational endpoints.
type Server struct {
	cfg      config.Config
	logger   logrus.FieldLogger
	registry *agent.Registry
	dispatch Dispatcher
	resolver agent.Resolver
	cache    *cache.Store

	consoleCursors *pagination.Store[types.ConsoleMessage]
	networkCursors *pagination.Store[shape.ShapedRequest]
}

// New wires the server against a live multiplexer. The mux serves double
// duty: tool dispatch for /mcp and reply correlation for /ws sessions.
func New(cfg config.Config, logger logrus.FieldLogger, registry *agent.Registry, mux *agent.Mux, store *cache.Store) *Server {
	return &Server{
		cfg:            cfg,
		logger:         logger,
		registry:       registry,
		dispatch:       mux,
		resolver:       mux,
		cache:          store,
		consoleCursors: pagination.NewStore[types.ConsoleMessage](cfg.CursorTTL),
		networkCursors: pagination.NewStore[shape.ShapedRequest](cfg.CursorTTL),
	}
}

// SweepCursors expires stale pagination cursors. Called from the shared
// periodic sweep alongside the stale-session pass.
func (s *Server) SweepCursors() {
	s.consoleCursors.Sweep()
	s.networkCursors.Sweep()
}

// port extracts the numeric port from the configured bind address for the
// health report. Returns 0 when the address has no parseable port.
func (s *Server) port() int {
	_, portStr, err := net.SplitHostPort(s.cfg.Addr)
	if err != nil {
		return 0
	}
	p, err := net.LookupPort("tcp", portStr)
	if err != nil {
		return 0
	}
	return p
}
