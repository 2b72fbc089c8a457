// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package tool

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPTransport is a session-oriented endpoint speaking the Model Context
// Protocol. It keeps one persistent session; on a failed call the session
// is invalidated and the next attempt reconnects, so the Gateway's retry
// loop doubles as the reconnect loop.
type MCPTransport struct {
	name    string
	client  *mcp.Client
	dial    func(ctx context.Context) (mcp.Transport, error)
	logger  *slog.Logger
	metrics *Metrics

	mu      sync.Mutex
	session *mcp.ClientSession
}

// MCPOption configures an MCPTransport.
type MCPOption func(*MCPTransport)

// WithMCPLogger sets the logger.
func WithMCPLogger(l *slog.Logger) MCPOption {
	return func(t *MCPTransport) { t.logger = l }
}

// WithMCPMetrics sets the collectors used for reconnect counting.
func WithMCPMetrics(m *Metrics) MCPOption {
	return func(t *MCPTransport) { t.metrics = m }
}

// NewMCPCommandTransport creates an endpoint that spawns a subprocess tool
// server over stdio. makeCmd is invoked on every (re)connect because an
// exec.Cmd cannot be started twice.
func NewMCPCommandTransport(name, clientVersion string, makeCmd func() *exec.Cmd, opts ...MCPOption) *MCPTransport {
	return newMCPTransport(name, clientVersion, func(context.Context) (mcp.Transport, error) {
		return &mcp.CommandTransport{Command: makeCmd()}, nil
	}, opts...)
}

// NewMCPHTTPTransport creates an endpoint that talks to a streamable HTTP
// tool server.
func NewMCPHTTPTransport(name, clientVersion, url string, opts ...MCPOption) *MCPTransport {
	return newMCPTransport(name, clientVersion, func(context.Context) (mcp.Transport, error) {
		return &mcp.StreamableClientTransport{Endpoint: url}, nil
	}, opts...)
}

func newMCPTransport(name, clientVersion string, dial func(ctx context.Context) (mcp.Transport, error), opts ...MCPOption) *MCPTransport {
	t := &MCPTransport{
		name:   name,
		client: mcp.NewClient(&mcp.Implementation{Name: "daid", Version: clientVersion}, nil),
		dial:   dial,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the endpoint name.
func (t *MCPTransport) Name() string { return t.name }

// Call executes the named tool over the persistent session, connecting on
// first use. Any failure invalidates the session so the next attempt
// reconnects.
func (t *MCPTransport) Call(ctx context.Context, tool string, args map[string]any) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, err := t.ensureSessionLocked(ctx)
	if err != nil {
		return Result{}, err
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      tool,
		Arguments: args,
	})
	if err != nil {
		t.invalidateLocked()
		return Result{}, err
	}
	return fromCallToolResult(res), nil
}

// Close tears down the session.
func (t *MCPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return nil
	}
	err := t.session.Close()
	t.session = nil
	return err
}

func (t *MCPTransport) ensureSessionLocked(ctx context.Context) (*mcp.ClientSession, error) {
	if t.session != nil {
		return t.session, nil
	}

	transport, err := t.dial(ctx)
	if err != nil {
		return nil, err
	}
	session, err := t.client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, err
	}
	t.session = session
	if t.metrics != nil {
		t.metrics.Reconnects.WithLabelValues(t.name).Inc()
	}
	t.logger.Info("tool endpoint connected", "endpoint", t.name)
	return session, nil
}

func (t *MCPTransport) invalidateLocked() {
	if t.session == nil {
		return
	}
	if err := t.session.Close(); err != nil {
		t.logger.Debug("error closing failed session", "endpoint", t.name, "error", err)
	}
	t.session = nil
	t.logger.Warn("tool endpoint session invalidated", "endpoint", t.name)
}

// fromCallToolResult flattens MCP content blocks into the gateway Result.
func fromCallToolResult(res *mcp.CallToolResult) Result {
	var texts []string
	for _, content := range res.Content {
		if tc, ok := content.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	out := Result{
		Text:    strings.Join(texts, "\n"),
		IsError: res.IsError,
	}
	if data, ok := res.StructuredContent.(map[string]any); ok {
		out.Data = data
	}
	return out
}
