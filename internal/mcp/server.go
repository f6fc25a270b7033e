// Package mcp serves the memory tools over line-delimited JSON-RPC 2.0.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/iksnae/claude-memory/internal"
)

// MaxLineBytes is the longest request line accepted before the transport
// is considered broken.
const MaxLineBytes = 16 << 20

// Server dispatches requests to the tool registry one at a time
type Server struct {
	name    string
	version string
	maxLine int

	tools       map[string]*Tool
	order       []*Tool
	initialized bool
}

// Option configures a Server
type Option func(*Server)

// WithVersion sets the version reported in serverInfo
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithMaxLineBytes overrides MaxLineBytes
func WithMaxLineBytes(n int) Option {
	return func(s *Server) { s.maxLine = n }
}

// NewServer builds the tool registry on top of r
func NewServer(r Recaller, opts ...Option) (*Server, error) {
	s := &Server{
		name:    "claude-memory",
		version: "dev",
		maxLine: MaxLineBytes,
		tools:   make(map[string]*Tool),
	}
	for _, opt := range opts {
		opt(s)
	}

	tools, err := newTools(r)
	if err != nil {
		return nil, err
	}
	for _, t := range tools {
		s.tools[t.Name] = t
		s.order = append(s.order, t)
	}
	return s, nil
}

// Tools returns the registry in advertised order
func (s *Server) Tools() []*Tool {
	return s.order
}

// Run reads requests from r and writes responses to w until EOF, a
// transport error, or ctx is cancelled.
func (s *Server) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	initial := 64 * 1024
	if initial > s.maxLine {
		initial = s.maxLine
	}
	scanner.Buffer(make([]byte, initial), s.maxLine)

	out := bufio.NewWriter(w)
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		resp := s.handle(ctx, line)
		if resp == nil {
			continue
		}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
		if err := out.Flush(); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return &internal.ProtocolFramingError{Err: fmt.Errorf("request line exceeds %d bytes", s.maxLine)}
		}
		return &internal.ProtocolFramingError{Err: err}
	}
	return nil
}

func (s *Server) handle(ctx context.Context, line []byte) *response {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		if !json.Valid(line) {
			internal.Logger().Warn("unparseable request", "err", err)
			return newError(nullID, CodeParseError, "parse error: "+err.Error())
		}
		// valid JSON of the wrong shape keeps its id when it has one
		var envelope struct {
			ID json.RawMessage `json:"id"`
		}
		_ = json.Unmarshal(line, &envelope)
		internal.Logger().Warn("invalid request", "err", err)
		return newError(envelope.ID, CodeInvalidRequest, "invalid request: "+err.Error())
	}
	if req.Method == "" {
		if req.notification() {
			return nil
		}
		return newError(req.ID, CodeInvalidRequest, "missing method")
	}

	log := internal.Logger().With("method", req.Method)
	log.Debug("request")

	if req.notification() {
		// notifications/initialized and friends need no reply
		return nil
	}

	switch req.Method {
	case "initialize":
		return s.initialize(req)
	case "ping":
		return newResult(req.ID, struct{}{})
	}

	if !s.initialized {
		return newError(req.ID, CodeNotInitialized, "server not initialized")
	}

	var (
		result any
		err    error
	)
	switch req.Method {
	case "tools/list":
		result = map[string]any{"tools": s.order}
	case "tools/call":
		var p callParams
		if err := json.Unmarshal(orEmptyObject(req.Params), &p); err != nil {
			return newError(req.ID, CodeInvalidParams, "invalid params: "+err.Error())
		}
		result, err = s.call(ctx, p.Name, p.Arguments)
	default:
		result, err = s.call(ctx, req.Method, req.Params)
	}

	if err != nil {
		code := errorCode(err)
		if code == CodeInternalError || code == CodeStorageTimeout {
			log.Error("request failed", "err", err)
		} else {
			log.Debug("request rejected", "code", code, "err", err)
		}
		return newError(req.ID, code, err.Error())
	}
	return newResult(req.ID, result)
}

func (s *Server) initialize(req request) *response {
	var p initializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return newError(req.ID, CodeInvalidParams, "invalid params: "+err.Error())
		}
	}
	s.initialized = true
	internal.Logger().Info("client connected", "client", p.ClientInfo.Name, "protocol", p.ProtocolVersion)

	return newResult(req.ID, initializeResult{
		ProtocolVersion: negotiateVersion(p.ProtocolVersion),
		Capabilities:    map[string]any{"tools": map[string]any{"listChanged": false}},
		ServerInfo:      serverInfo{Name: s.name, Version: s.version},
		Instructions:    "Use recall to search past sessions of this project before starting work, and log_note to record decisions worth keeping.",
	})
}

func (s *Server) call(ctx context.Context, name string, args json.RawMessage) (any, error) {
	t, ok := s.tools[name]
	if !ok {
		return nil, &internal.UnknownMethodError{Method: name}
	}
	args, err := t.arguments(args)
	if err != nil {
		return nil, err
	}
	text, structured, err := t.handle(ctx, t.decoder(args))
	if err != nil {
		return nil, err
	}
	return toolResult{
		Content:           []content{{Type: "text", Text: text}},
		StructuredContent: structured,
	}, nil
}

func orEmptyObject(raw json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return json.RawMessage("{}")
	}
	return raw
}
