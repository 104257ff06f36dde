/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	correlationPrefix = "tenant-"

	defaultSessionAcquireTimeout = time.Second
)

var (
	// ErrSessionAcquireTimeout is returned when no session or tenant lock could be acquired in time.
	ErrSessionAcquireTimeout = errors.New("timed out acquiring tenant session")
	// ErrInvalidTenantID is returned for ids that are already correlation ids, and the reverse.
	ErrInvalidTenantID = errors.New("invalid tenant id")
	// ErrCoordinatorClosed is returned to sessions whose context was still being created when the
	// coordinator was closed.
	ErrCoordinatorClosed = errors.New("tenant coordinator closed")
)

// AgentContext is what the coordinator keeps alive per tenant.
type AgentContext interface {
	Close() error
}

// Destroyer is implemented by agent contexts that can remove their storage when their tenant is deleted.
type Destroyer interface {
	Destroy() error
}

// Factory creates the agent context of a tenant. It may be slow.
type Factory[C AgentContext] func(ctx context.Context, tenant *Record) (C, error)

// Option configures a Coordinator.
type Option func(opts *options)

type options struct {
	sessionLimit          int64
	sessionAcquireTimeout time.Duration
}

// WithSessionLimit bounds the number of open sessions over all tenants. Zero means unbounded.
func WithSessionLimit(limit int64) Option {
	return func(opts *options) {
		opts.sessionLimit = limit
	}
}

// WithSessionAcquireTimeout bounds how long ContextForSession waits for a free session or for another
// caller's initialization of the same tenant. Zero means the caller's context alone bounds the wait.
func WithSessionAcquireTimeout(timeout time.Duration) Option {
	return func(opts *options) {
		opts.sessionAcquireTimeout = timeout
	}
}

// entry is Initializing until ready is closed, Ready afterwards.
type entry[C AgentContext] struct {
	ready    chan struct{}
	context  C
	err      error
	sessions int
}

func (e *entry[C]) initialized() bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}

// Coordinator hands out reference counted agent contexts per tenant, creating each one once no matter
// how many sessions ask for it concurrently. A context is closed when its last session ends.
type Coordinator[C AgentContext] struct {
	create         Factory[C]
	sessions       *semaphore.Weighted
	acquireTimeout time.Duration

	mu      sync.Mutex
	entries map[string]*entry[C]
}

// NewCoordinator returns a Coordinator creating contexts with create.
func NewCoordinator[C AgentContext](create Factory[C], opts ...Option) *Coordinator[C] {
	o := &options{sessionAcquireTimeout: defaultSessionAcquireTimeout}

	for _, opt := range opts {
		opt(o)
	}

	c := &Coordinator[C]{
		create:         create,
		acquireTimeout: o.sessionAcquireTimeout,
		entries:        make(map[string]*entry[C]),
	}

	if o.sessionLimit > 0 {
		c.sessions = semaphore.NewWeighted(o.sessionLimit)
	}

	return c
}

// Session is one use of a tenant's agent context. End must be called exactly once.
type Session[C AgentContext] struct {
	Context       C
	CorrelationID string

	coordinator *Coordinator[C]
	entry       *entry[C]
	once        sync.Once
}

// End releases the session; the context is closed when it was the last one.
func (s *Session[C]) End() error {
	var err error

	s.once.Do(func() {
		err = s.coordinator.endSession(s.CorrelationID, s.entry)
	})

	return err
}

// CorrelationID returns the context correlation id of a tenant.
func CorrelationID(tenantID string) (string, error) {
	if tenantID == "" || strings.HasPrefix(tenantID, correlationPrefix) {
		return "", fmt.Errorf("%q: %w", tenantID, ErrInvalidTenantID)
	}

	return correlationPrefix + tenantID, nil
}

// TenantID returns the tenant id of a context correlation id.
func TenantID(correlationID string) (string, error) {
	id := strings.TrimPrefix(correlationID, correlationPrefix)
	if id == correlationID || id == "" {
		return "", fmt.Errorf("correlation id %q: %w", correlationID, ErrInvalidTenantID)
	}

	return id, nil
}

// ContextForSession opens a session on the tenant's agent context, creating the context on first use.
// Concurrent callers for a tenant without a context wait for the single initialization and share its
// result: the context, or the error it failed with.
func (c *Coordinator[C]) ContextForSession(ctx context.Context, tenant *Record) (*Session[C], error) {
	id, err := CorrelationID(tenant.ID)
	if err != nil {
		return nil, err
	}

	waitCtx := ctx

	if c.acquireTimeout > 0 {
		var cancel context.CancelFunc

		waitCtx, cancel = context.WithTimeout(ctx, c.acquireTimeout)
		defer cancel()
	}

	if c.sessions != nil {
		if err = c.sessions.Acquire(waitCtx, 1); err != nil {
			return nil, fmt.Errorf("%s: %w: %s", id, ErrSessionAcquireTimeout, err)
		}
	}

	e, err := c.open(ctx, waitCtx, id, tenant)
	if err != nil {
		c.releaseSession()

		return nil, err
	}

	return &Session[C]{Context: e.context, CorrelationID: id, coordinator: c, entry: e}, nil
}

func (c *Coordinator[C]) open(ctx, waitCtx context.Context, id string, tenant *Record) (*entry[C], error) {
	for {
		c.mu.Lock()

		e, ok := c.entries[id]
		if !ok {
			e = &entry[C]{ready: make(chan struct{})}
			c.entries[id] = e
			c.mu.Unlock()

			return c.initialize(ctx, id, tenant, e)
		}

		if e.initialized() {
			e.sessions++
			logger.Debugf("session count of %s increased to %d", id, e.sessions)
			c.mu.Unlock()

			return e, nil
		}

		c.mu.Unlock()

		logger.Debugf("waiting for initialization of %s", id)

		select {
		case <-e.ready:
			if e.err != nil {
				return nil, e.err
			}
		case <-waitCtx.Done():
			return nil, fmt.Errorf("%s: %w: %s", id, ErrSessionAcquireTimeout, waitCtx.Err())
		}
	}
}

func (c *Coordinator[C]) initialize(ctx context.Context, id string, tenant *Record, e *entry[C]) (*entry[C], error) {
	logger.Debugf("creating agent context for %s", id)

	agentCtx, err := c.create(ctx, tenant)

	c.mu.Lock()
	defer c.mu.Unlock()

	installed := c.entries[id] == e

	if err != nil {
		e.err = fmt.Errorf("create agent context for %s: %w", id, err)

		if installed {
			delete(c.entries, id)
		}

		close(e.ready)

		return nil, e.err
	}

	// Close ran while the context was created, nothing would ever close it.
	if !installed {
		e.err = fmt.Errorf("create agent context for %s: %w", id, ErrCoordinatorClosed)
		close(e.ready)

		logger.Debugf("closing agent context of %s created after coordinator close", id)

		if closeErr := agentCtx.Close(); closeErr != nil {
			logger.Warnf("close agent context of %s: %s", id, closeErr)
		}

		return nil, e.err
	}

	e.context = agentCtx
	e.sessions = 1
	close(e.ready)

	return e, nil
}

func (c *Coordinator[C]) endSession(id string, e *entry[C]) error {
	defer c.releaseSession()

	c.mu.Lock()
	defer c.mu.Unlock()

	e.sessions--
	logger.Debugf("session count of %s decreased to %d", id, e.sessions)

	if e.sessions > 0 || c.entries[id] != e {
		return nil
	}

	delete(c.entries, id)

	logger.Debugf("closing agent context of %s", id)

	if err := e.context.Close(); err != nil {
		return fmt.Errorf("close agent context of %s: %w", id, err)
	}

	return nil
}

func (c *Coordinator[C]) releaseSession() {
	if c.sessions != nil {
		c.sessions.Release(1)
	}
}

// DeleteContext closes the tenant's context, destroying its storage if the context supports it, whether
// or not sessions are still open. Open sessions must still be ended.
func (c *Coordinator[C]) DeleteContext(ctx context.Context, tenantID string) error {
	id, err := CorrelationID(tenantID)
	if err != nil {
		return err
	}

	for {
		c.mu.Lock()

		e, ok := c.entries[id]
		if !ok {
			c.mu.Unlock()

			return nil
		}

		if e.initialized() {
			delete(c.entries, id)
			sessions := e.sessions
			c.mu.Unlock()

			logger.Debugf("deleting agent context of %s with %d open sessions", id, sessions)

			return destroy(e.context)
		}

		c.mu.Unlock()

		select {
		case <-e.ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func destroy(agentCtx AgentContext) error {
	if d, ok := agentCtx.(Destroyer); ok {
		return d.Destroy()
	}

	return agentCtx.Close()
}

// SessionCount returns the number of open sessions of a tenant.
func (c *Coordinator[C]) SessionCount(tenantID string) int {
	id, err := CorrelationID(tenantID)
	if err != nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[id]; ok && e.initialized() {
		return e.sessions
	}

	return 0
}

// Close closes every open context.
func (c *Coordinator[C]) Close() error {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]*entry[C])
	c.mu.Unlock()

	var errs []error

	for id, e := range entries {
		if !e.initialized() || e.err != nil {
			continue
		}

		if err := e.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close agent context of %s: %w", id, err))
		}
	}

	return errors.Join(errs...)
}
