package mcp

import (
	"encoding/json"
	"errors"

	"github.com/iksnae/claude-memory/internal"
)

// JSON-RPC and MCP error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeNotFound       = -32001
	CodeNotInitialized = -32002
	CodeStorageTimeout = -32003
)

const jsonrpcVersion = "2.0"

// ProtocolVersions lists the MCP revisions this server speaks, newest first
var ProtocolVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// notification reports whether the request expects no response
func (r *request) notification() bool {
	return len(r.ID) == 0
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var nullID = json.RawMessage("null")

func newResult(id json.RawMessage, result any) *response {
	return &response{JSONRPC: jsonrpcVersion, ID: id, Result: result}
}

func newError(id json.RawMessage, code int, message string) *response {
	if len(id) == 0 {
		id = nullID
	}
	return &response{JSONRPC: jsonrpcVersion, ID: id, Error: &rpcError{Code: code, Message: message}}
}

// errorCode maps a handler error onto its JSON-RPC code
func errorCode(err error) int {
	var (
		validation *internal.ValidationError
		schema     *internal.SchemaViolationError
		notFound   *internal.NotFoundError
		timeout    *internal.StorageTimeoutError
		unknown    *internal.UnknownMethodError
	)
	switch {
	case errors.As(err, &unknown):
		return CodeMethodNotFound
	case errors.As(err, &schema), errors.As(err, &validation):
		return CodeInvalidParams
	case errors.As(err, &notFound):
		return CodeNotFound
	case errors.As(err, &timeout):
		return CodeStorageTimeout
	default:
		return CodeInternalError
	}
}

type initializeParams struct {
	ProtocolVersion string `json:"protocolVersion"`
	ClientInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}

type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      serverInfo     `json:"serverInfo"`
	Instructions    string         `json:"instructions,omitempty"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type toolResult struct {
	Content           []content `json:"content"`
	StructuredContent any       `json:"structuredContent,omitempty"`
}

func negotiateVersion(requested string) string {
	for _, v := range ProtocolVersions {
		if v == requested {
			return v
		}
	}
	return ProtocolVersions[0]
}
