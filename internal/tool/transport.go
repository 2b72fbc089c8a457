// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package tool

import "context"

// Result is the outcome of one tool call, transport-independent. Data
// carries the structured payload when the transport provides one; Text is
// the flattened form relayed back to the calling actor.
type Result struct {
	Text    string         `json:"text"`
	Data    map[string]any `json:"data,omitempty"`
	IsError bool           `json:"is_error"`
}

// Transport is one tool endpoint: a persistent channel calls are dispatched
// over. Session-oriented transports (MCP) reconnect internally; one-shot
// transports (in-process, script) treat every call independently. The
// Gateway guarantees at most one in-flight call per transport.
type Transport interface {
	// Name identifies the endpoint for routing and metrics.
	Name() string
	// Call executes the named tool. Errors it returns are treated as
	// transient and retried by the Gateway; a Result with IsError set is
	// final and relayed to the caller.
	Call(ctx context.Context, tool string, args map[string]any) (Result, error)
	// Close releases the channel.
	Close() error
}
