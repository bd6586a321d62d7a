// handler.go — JSON-RPC method dispatch for POST /mcp.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/browserlink/browserlink/internal/agent"
	"github.com/browserlink/browserlink/internal/bound"
	"github.com/browserlink/browserlink/internal/mcp"
	"github.com/browserlink/browserlink/internal/util"
)

// maxRequestBytes bounds the /mcp request body.
const maxRequestBytes = 1 << 20

// paramError is a schema validation failure; it maps to -32602.
type paramError struct {
	msg string
}

func (e *paramError) Error() string { return e.msg }

func badParams(format string, args ...any) error {
	return &paramError{msg: fmt.Sprintf(format, args...)}
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		util.WriteJSON(s.logger, w, http.StatusOK,
			mcp.NewError(nil, mcp.CodeInvalidParams, "unreadable request body", errData("INVALID-PARAMS", err.Error())))
		return
	}

	var req mcp.JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		util.WriteJSON(s.logger, w, http.StatusOK,
			mcp.NewError(nil, mcp.CodeInvalidParams, "malformed JSON-RPC request", errData("INVALID-PARAMS", err.Error())))
		return
	}

	// Notifications get no JSON-RPC body back.
	if req.Method == "notifications/initialized" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if req.HasInvalidID() {
		util.WriteJSON(s.logger, w, http.StatusOK,
			mcp.NewError(nil, mcp.CodeInvalidParams, "request id must be a string or number", errData("INVALID-PARAMS", "")))
		return
	}
	// A request without an id is a notification for any method; it expects
	// no response.
	if !req.HasID() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	result, err := s.dispatchMethod(r, req)
	if err != nil {
		code, message, data := rpcError(err)
		util.WriteJSON(s.logger, w, http.StatusOK, mcp.NewError(req.ID, code, message, data))
		return
	}
	s.logger.WithFields(logrus.Fields{
		"method":      req.Method,
		"resultBytes": bound.SizeOf(result),
	}).Debug("rpc dispatched")
	util.WriteJSON(s.logger, w, http.StatusOK, mcp.NewResult(req.ID, result))
}

func (s *Server) dispatchMethod(r *http.Request, req mcp.JSONRPCRequest) (json.RawMessage, error) {
	switch req.Method {
	case "initialize":
		return mcp.SafeMarshal(mcp.InitializeResult{
			ProtocolVersion: mcp.ProtocolVersion,
			ServerInfo:      mcp.ServerInfo{Name: ServerName, Version: Version},
		}), nil
	case "tools/list":
		return mcp.SafeMarshal(mcp.ListToolsResult{Tools: toolCatalog()}), nil
	case "resources/list":
		return mcp.SafeMarshal(mcp.ListResourcesResult{Resources: s.listResources()}), nil
	case "resources/read":
		var params struct {
			URI string `json:"uri"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil || params.URI == "" {
			return nil, badParams("resources/read requires a uri parameter")
		}
		return s.readResource(params.URI)
	case "tools/call":
		var params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			return nil, badParams("tools/call requires a tool name")
		}
		return s.callTool(r.Context(), params.Name, params.Arguments)
	default:
		return nil, &unknownMethodError{method: req.Method}
	}
}

type unknownMethodError struct {
	method string
}

func (e *unknownMethodError) Error() string {
	return fmt.Sprintf("method not found: %s", e.method)
}

func errData(tag, message string) map[string]any {
	data := map[string]any{"tag": tag}
	if message != "" {
		data["message"] = message
	}
	return data
}

// rpcError maps internal failures onto the JSON-RPC error surface. Every
// core error lands on -32603 with a tag so clients can tell the classes
// apart; validation failures are -32602; unknown methods -32601.
func rpcError(err error) (code int, message string, data map[string]any) {
	var unknown *unknownMethodError
	var invalid *paramError
	var timeout *agent.TimeoutError
	var agentErr *agent.AgentError
	switch {
	case errors.As(err, &unknown):
		return mcp.CodeMethodNotFound, unknown.Error(), errData("UNKNOWN-METHOD", "")
	case errors.As(err, &invalid):
		return mcp.CodeInvalidParams, invalid.Error(), errData("INVALID-PARAMS", "")
	case errors.Is(err, agent.ErrNoPeer):
		return mcp.CodeInternalError, err.Error(), errData("NO-PEER", "")
	case errors.Is(err, agent.ErrPeerGone):
		return mcp.CodeInternalError, err.Error(), errData("PEER-GONE", "")
	case errors.Is(err, agent.ErrPeerCongested):
		return mcp.CodeInternalError, err.Error(), errData("PEER-CONGESTED", "")
	case errors.As(err, &timeout):
		return mcp.CodeInternalError, timeout.Error(), errData("TIMEOUT", timeout.Error())
	case errors.As(err, &agentErr):
		return mcp.CodeInternalError, agentErr.Text, errData("AGENT-ERROR", agentErr.Text)
	case errors.Is(err, ErrInvalidURI):
		return mcp.CodeInternalError, err.Error(), errData("INVALID-URI", "")
	case errors.Is(err, ErrNotFound):
		return mcp.CodeInternalError, err.Error(), errData("NOT-FOUND", "")
	default:
		return mcp.CodeInternalError, err.Error(), nil
	}
}
