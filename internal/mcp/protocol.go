// protocol.go — MCP JSON-RPC 2.0 protocol types.
package mcp

import (
	"bytes"
	"encoding/json"
)

// JSON-RPC 2.0 error codes used at the client boundary.
const (
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// JSONRPCRequest represents an incoming JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	// any: JSON-RPC 2.0 allows ID to be string, number, or null
	ID        any             `json:"id"`
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
	idPresent bool
	idInvalid bool
}

// UnmarshalJSON captures whether id was present and whether it had a legal
// form, so notifications and malformed ids can be told apart.
func (r *JSONRPCRequest) UnmarshalJSON(data []byte) error {
	type rawRequest struct {
		JSONRPC string          `json:"jsonrpc"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}
	var raw rawRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil {
		return err
	}

	r.JSONRPC = raw.JSONRPC
	r.Method = raw.Method
	r.Params = raw.Params
	r.ID = nil
	r.idInvalid = false

	rawID, ok := object["id"]
	r.idPresent = ok
	if !ok {
		return nil
	}
	trimmed := bytes.TrimSpace(rawID)
	if bytes.Equal(trimmed, []byte("null")) {
		r.idInvalid = true
		return nil
	}
	var parsed any
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	switch parsed.(type) {
	case string, float64:
		r.ID = parsed
	default:
		r.idInvalid = true
	}
	return nil
}

// HasID reports whether the request carries an id (i.e. expects a response).
func (r JSONRPCRequest) HasID() bool { return r.idPresent }

// HasInvalidID reports whether the id was present but null or malformed.
func (r JSONRPCRequest) HasInvalidID() bool { return r.idInvalid }

// JSONRPCResponse represents an outgoing JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object. Data carries the
// internal error tag so clients can distinguish failure classes.
type JSONRPCError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// NewResult builds a success response bound to the request id.
func NewResult(id any, result json.RawMessage) JSONRPCResponse {
	return JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
}

// NewError builds an error response bound to the request id.
func NewError(id any, code int, message string, data map[string]any) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &JSONRPCError{Code: code, Message: message, Data: data},
	}
}
