// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package tool

import (
	"context"
	"encoding/json"
	"fmt"
)

// Handler executes one in-process tool.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// LocalTransport hosts tools implemented inside the process, one handler
// per tool name. It is the endpoint for the store-mutation and combat
// tools.
type LocalTransport struct {
	name     string
	handlers map[string]Handler
}

// NewLocalTransport creates an in-process endpoint with the given name.
func NewLocalTransport(name string) *LocalTransport {
	return &LocalTransport{
		name:     name,
		handlers: make(map[string]Handler),
	}
}

// Name returns the endpoint name.
func (t *LocalTransport) Name() string { return t.name }

// Handle registers a handler for the named tool.
func (t *LocalTransport) Handle(name string, h Handler) {
	t.handlers[name] = h
}

// Call runs the named handler. Domain errors (validation, not-found,
// terminal state) become an IsError result relayed to the caller rather
// than a transport failure, matching how remote endpoints report tool
// errors in-band.
func (t *LocalTransport) Call(ctx context.Context, tool string, args map[string]any) (Result, error) {
	h, ok := t.handlers[tool]
	if !ok {
		return Result{}, notFoundErr(tool)
	}

	out, err := h(ctx, args)
	if err != nil {
		return Result{
			Text:    err.Error(),
			IsError: true,
		}, nil
	}
	return marshalResult(out)
}

// Close is a no-op; in-process tools hold no channel.
func (t *LocalTransport) Close() error { return nil }

// marshalResult flattens a handler's return value into a Result with both
// text and structured forms.
func marshalResult(out any) (Result, error) {
	raw, err := json.Marshal(out)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal tool result: %w", err)
	}
	res := Result{Text: string(raw)}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err == nil {
		res.Data = data
	}
	return res, nil
}

// decodeArgs round-trips a sanitized argument map into the tool's typed
// argument struct.
func decodeArgs(args map[string]any, into any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, into)
}
