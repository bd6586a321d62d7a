// types.go — MCP result types for initialize, tools, and resources.
package mcp

import "encoding/json"

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2024-11-05"

// ServerInfo identifies the server in the initialize handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Capabilities advertises the feature surfaces the server supports.
// Emitted as empty objects per the MCP handshake shape.
type Capabilities struct {
	Tools     struct{} `json:"tools"`
	Resources struct{} `json:"resources"`
}

// InitializeResult is the payload returned for the initialize method.
type InitializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
	Capabilities    Capabilities `json:"capabilities"`
}

// Tool describes a callable tool with its JSON Schema input contract.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// ListToolsResult is the payload returned for tools/list.
type ListToolsResult struct {
	Tools []Tool `json:"tools"`
}

// Resource describes an addressable piece of captured browser state.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ListResourcesResult is the payload returned for resources/list.
type ListResourcesResult struct {
	Resources []Resource `json:"resources"`
}

// ResourceContent is one entry in a resources/read reply.
type ResourceContent struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

// ReadResourceResult is the payload returned for resources/read.
type ReadResourceResult struct {
	Contents []ResourceContent `json:"contents"`
}

// ContentBlock is one element of a tool call result.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ToolResult is the payload returned for tools/call.
type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// SafeMarshal marshals v, substituting an internal-error envelope when
// marshaling itself fails so a response is always produced.
func SafeMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{"error":"marshal failure"}`)
	}
	return data
}

// TextResult wraps plain text in a single-block tool result.
func TextResult(text string) json.RawMessage {
	return SafeMarshal(ToolResult{Content: []ContentBlock{{Type: "text", Text: text}}})
}

// JSONResult marshals v and wraps it as a text content block, the shape
// MCP clients expect for structured tool output.
func JSONResult(v any) json.RawMessage {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return TextResult(`{"error":"marshal failure"}`)
	}
	return TextResult(string(data))
}
