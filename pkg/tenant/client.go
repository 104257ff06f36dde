/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package tenant manages tenants of a multi-tenant agent: their records in the root agent's storage
// and the agent contexts their sessions run in.
package tenant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

var logger = log.New("aries-agent/tenant")

// Client creates tenants and opens sessions on their agent contexts.
type Client[C AgentContext] struct {
	repo        *record.Repository[Record, *Record]
	coordinator *Coordinator[C]
}

// NewClient returns a Client storing tenant records in svc and creating agent contexts with create.
func NewClient[C AgentContext](svc *record.Service, create Factory[C], opts ...Option) *Client[C] {
	return &Client[C]{
		repo:        record.NewRepository[Record](svc),
		coordinator: NewCoordinator(create, opts...),
	}
}

// Coordinator returns the session coordinator.
func (c *Client[C]) Coordinator() *Coordinator[C] {
	return c.coordinator
}

// CreateTenant stores a new tenant and provisions its agent context.
func (c *Client[C]) CreateTenant(ctx context.Context, label string) (*Record, error) {
	rec := &Record{BaseRecord: record.NewBaseRecord(uuid.New().String()), Label: label}

	if err := c.repo.Save(rec); err != nil {
		return nil, fmt.Errorf("save tenant: %w", err)
	}

	session, err := c.coordinator.ContextForSession(ctx, rec)
	if err != nil {
		if delErr := c.repo.Delete(rec); delErr != nil {
			logger.Errorf("failed to remove tenant %s after provisioning failed: %s", rec.ID, delErr)
		}

		return nil, fmt.Errorf("provision tenant: %w", err)
	}

	logger.Infof("created tenant %s (%s)", rec.ID, label)

	return rec, session.End()
}

// GetTenant returns a tenant or an error wrapping record.ErrRecordNotFound.
func (c *Client[C]) GetTenant(id string) (*Record, error) {
	return c.repo.GetByID(id)
}

// GetTenants returns every tenant.
func (c *Client[C]) GetTenants() ([]*Record, error) {
	return c.repo.FindAll()
}

// GetTenantAgent opens a session on the tenant's agent context. The caller ends it.
func (c *Client[C]) GetTenantAgent(ctx context.Context, id string) (*Session[C], error) {
	rec, err := c.repo.GetByID(id)
	if err != nil {
		return nil, err
	}

	return c.coordinator.ContextForSession(ctx, rec)
}

// WithTenantAgent runs fn in a session on the tenant's agent context.
func (c *Client[C]) WithTenantAgent(ctx context.Context, id string, fn func(agent C) error) error {
	session, err := c.GetTenantAgent(ctx, id)
	if err != nil {
		return err
	}

	fnErr := fn(session.Context)

	if err = session.End(); err != nil {
		logger.Errorf("failed to end session of tenant %s: %s", id, err)
	}

	return fnErr
}

// DeleteTenant deletes the tenant's agent context and record.
func (c *Client[C]) DeleteTenant(ctx context.Context, id string) error {
	rec, err := c.repo.GetByID(id)
	if err != nil {
		return err
	}

	// the context is opened so its storage can be destroyed even when no session holds it
	session, err := c.coordinator.ContextForSession(ctx, rec)
	if err != nil {
		return fmt.Errorf("open agent context of tenant %s: %w", id, err)
	}

	defer func() {
		if endErr := session.End(); endErr != nil {
			logger.Warnf("failed to end session of deleted tenant %s: %s", id, endErr)
		}
	}()

	if err = c.coordinator.DeleteContext(ctx, rec.ID); err != nil {
		return fmt.Errorf("delete agent context of tenant %s: %w", id, err)
	}

	logger.Infof("deleted tenant %s", id)

	return c.repo.Delete(rec)
}

// Close closes every open tenant context.
func (c *Client[C]) Close() error {
	return c.coordinator.Close()
}
