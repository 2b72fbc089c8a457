// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DAID Contributors

package tool

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

const (
	// DefaultCallTimeout bounds one synchronous Call end to end.
	DefaultCallTimeout = 60 * time.Second
	// defaultWorkers sizes the dispatch pool.
	defaultWorkers = 4
	// maxAttempts bounds dispatch retries on transport failure.
	maxAttempts = 4
	// retryBase is the initial backoff between dispatch attempts.
	retryBase = 250 * time.Millisecond
)

// Gateway parses, sanitizes, validates, and dispatches tool calls. Dispatch
// runs on a bounded worker pool; Call is synchronous and blocks on a reply
// channel so callers that cannot suspend still invoke tools without holding
// the dispatch loop. Each endpoint has exactly one transport guarded by a
// per-endpoint lock, so at most one call is in flight per channel.
type Gateway struct {
	registry   *Registry
	sanitizer  Sanitizer
	transports map[string]Transport
	locks      map[string]*sync.Mutex

	aclMu sync.RWMutex
	acl   map[string][]glob.Glob

	tasks chan *task
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once

	timeout time.Duration
	logger  *slog.Logger
	metrics *Metrics
}

type task struct {
	ctx    context.Context
	caller string
	desc   *Descriptor
	args   map[string]any
	reply  chan outcome
}

type outcome struct {
	res Result
	err error
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithWorkers sets the dispatch pool size.
func WithWorkers(n int) GatewayOption {
	return func(g *Gateway) {
		if n > 0 {
			g.tasks = make(chan *task, n)
		}
	}
}

// WithCallTimeout sets the synchronous call timeout.
func WithCallTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithGatewayLogger sets the logger.
func WithGatewayLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) { g.logger = l }
}

// WithGatewayMetrics sets the Prometheus collectors.
func WithGatewayMetrics(m *Metrics) GatewayOption {
	return func(g *Gateway) { g.metrics = m }
}

// NewGateway creates a gateway over the given registry and transports and
// starts its worker pool. Callers own the registry; transports are closed
// by Close.
func NewGateway(reg *Registry, san Sanitizer, transports []Transport, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		registry:   reg,
		sanitizer:  san,
		transports: make(map[string]Transport, len(transports)),
		locks:      make(map[string]*sync.Mutex, len(transports)),
		acl:        make(map[string][]glob.Glob),
		done:       make(chan struct{}),
		timeout:    DefaultCallTimeout,
		logger:     slog.Default(),
	}
	for _, tr := range transports {
		g.transports[tr.Name()] = tr
		g.locks[tr.Name()] = &sync.Mutex{}
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.tasks == nil {
		g.tasks = make(chan *task, defaultWorkers)
	}

	workers := cap(g.tasks)
	g.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go g.worker()
	}
	return g
}

// Allow grants a caller the given tool-name glob patterns. Patterns are
// compiled before the grant is stored, so a bad pattern leaves existing
// grants untouched. Once any grant exists, callers without one are denied.
func (g *Gateway) Allow(caller string, patterns ...string) error {
	compiled := make([]glob.Glob, len(patterns))
	for i, pattern := range patterns {
		p, err := glob.Compile(pattern)
		if err != nil {
			return oops.With("pattern", pattern).Wrapf(err, "invalid tool pattern for caller %q", caller)
		}
		compiled[i] = p
	}

	g.aclMu.Lock()
	defer g.aclMu.Unlock()
	g.acl[caller] = compiled
	return nil
}

// allowed reports whether the caller may invoke the tool. With no grants
// configured the gateway is open; with grants it fails closed.
func (g *Gateway) allowed(caller, toolName string) bool {
	g.aclMu.RLock()
	defer g.aclMu.RUnlock()

	if len(g.acl) == 0 {
		return true
	}
	for _, p := range g.acl[caller] {
		if p.Match(toolName) {
			return true
		}
	}
	return false
}

// Call executes one tool invocation synchronously: authorization, registry
// lookup, sanitization, schema validation, then dispatch on the worker
// pool with a bounded overall timeout.
func (g *Gateway) Call(ctx context.Context, caller, toolName string, args map[string]any) (Result, error) {
	start := time.Now()

	if !g.allowed(caller, toolName) {
		g.metrics.recordCall(toolName, OutcomeForbidden)
		return Result{}, forbiddenErr(caller, toolName)
	}

	desc, ok := g.registry.Get(toolName)
	if !ok {
		g.metrics.recordCall(toolName, OutcomeNotFound)
		return Result{}, notFoundErr(toolName)
	}

	if args == nil {
		args = map[string]any{}
	}
	sanitized := g.sanitizer.Sanitize(desc, args)
	if err := desc.Validate(sanitized); err != nil {
		g.metrics.recordCall(toolName, OutcomeSchema)
		return Result{}, err
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	t := &task{
		ctx:    callCtx,
		caller: caller,
		desc:   desc,
		args:   sanitized,
		reply:  make(chan outcome, 1),
	}
	select {
	case g.tasks <- t:
	case <-g.done:
		return Result{}, transportErr(desc.Endpoint, context.Canceled)
	case <-callCtx.Done():
		g.metrics.recordCall(toolName, OutcomeTimeout)
		return Result{}, timeoutErr(toolName, callCtx.Err())
	}

	select {
	case out := <-t.reply:
		g.observe(toolName, start, out)
		return out.res, out.err
	case <-callCtx.Done():
		g.metrics.recordCall(toolName, OutcomeTimeout)
		return Result{}, timeoutErr(toolName, callCtx.Err())
	}
}

// CallText parses actor text and executes the embedded invocation, if any.
// The bool reports whether an invocation was found and executed.
func (g *Gateway) CallText(ctx context.Context, caller, text string) (Invocation, Result, bool, error) {
	inv, err := Parse(text)
	if err != nil {
		g.logger.Debug("unparseable tool fragment ignored", "caller", caller, "error", err)
		return inv, Result{}, false, nil
	}
	if inv.Kind == KindNone {
		return inv, Result{}, false, nil
	}
	res, err := g.Call(ctx, caller, inv.Name, inv.Arguments)
	return inv, res, true, err
}

func (g *Gateway) observe(toolName string, start time.Time, out outcome) {
	if g.metrics != nil {
		g.metrics.Duration.WithLabelValues(toolName).Observe(time.Since(start).Seconds())
	}
	switch {
	case out.err != nil:
		g.metrics.recordCall(toolName, OutcomeTransport)
	case out.res.IsError:
		g.metrics.recordCall(toolName, OutcomeToolError)
	default:
		g.metrics.recordCall(toolName, OutcomeSuccess)
	}
}

func (g *Gateway) worker() {
	defer g.wg.Done()
	for {
		select {
		case <-g.done:
			return
		case t := <-g.tasks:
			res, err := g.dispatch(t)
			t.reply <- outcome{res: res, err: err}
		}
	}
}

// dispatch runs one call on its endpoint's channel, holding the endpoint
// lock for the duration and retrying transient failures with exponential
// backoff.
func (g *Gateway) dispatch(t *task) (Result, error) {
	tr, ok := g.transports[t.desc.Endpoint]
	if !ok {
		return Result{}, transportErr(t.desc.Endpoint, oops.Errorf("no transport for endpoint"))
	}

	lock := g.locks[t.desc.Endpoint]
	lock.Lock()
	defer lock.Unlock()

	var res Result
	backoff := retry.WithMaxRetries(maxAttempts-1, retry.NewExponential(retryBase))
	err := retry.Do(t.ctx, backoff, func(ctx context.Context) error {
		var callErr error
		res, callErr = tr.Call(ctx, t.desc.Name, t.args)
		if callErr != nil {
			g.metrics.recordRetry(t.desc.Endpoint)
			g.logger.Warn("tool dispatch failed, will retry",
				"tool", t.desc.Name,
				"endpoint", t.desc.Endpoint,
				"caller", t.caller,
				"error", callErr)
			return retry.RetryableError(callErr)
		}
		return nil
	})
	if err != nil {
		return Result{}, transportErr(t.desc.Endpoint, err)
	}
	return res, nil
}

// Close stops the worker pool and closes all transports. Safe to call more
// than once.
func (g *Gateway) Close() error {
	var firstErr error
	g.once.Do(func() {
		close(g.done)
		g.wg.Wait()
		for _, tr := range g.transports {
			if err := tr.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
