/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacyconnection

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/legacyconnection"
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
)

var errEmptyInvitation = errors.New("received an empty invitation")

type (
	// Invitation is the message an inviter hands out to start a connection.
	Invitation = legacyconnection.Invitation
	// Options are the optional settings of a new connection.
	Options = legacyconnection.Options
	// Connection is a pairwise connection record.
	Connection = connection.Record
)

// Provider contains dependencies for the connection client and is typically created by using aries.Context().
type Provider interface {
	ConnectionService() *legacyconnection.Service
	Outbound() dispatcher.Outbound
}

// Client enable access to legacyconnection API.
type Client struct {
	service  *legacyconnection.Service
	outbound dispatcher.Outbound
}

// New return new instance of legacyconnection client.
func New(ctx Provider) (*Client, error) {
	svc := ctx.ConnectionService()
	if svc == nil {
		return nil, errors.New("connection service is not available")
	}

	if ctx.Outbound() == nil {
		return nil, errors.New("outbound dispatcher is not available")
	}

	return &Client{service: svc, outbound: ctx.Outbound()}, nil
}

// CreateInvitation creates an invitation and the inviter's connection waiting for the request.
func (c *Client) CreateInvitation(opts *Options) (*Invitation, *Connection, error) {
	invitation, rec, err := c.service.CreateInvitation(opts)
	if err != nil {
		return nil, nil, fmt.Errorf("create invitation: %w", err)
	}

	return invitation, rec, nil
}

// ReceiveInvitation stores a received invitation. The invitation is accepted right away when the
// connection auto accepts.
func (c *Client) ReceiveInvitation(ctx context.Context, invitation *Invitation, opts *Options) (*Connection,
	error) {
	if invitation == nil {
		return nil, errEmptyInvitation
	}

	rec, err := c.service.ProcessInvitation(invitation, opts)
	if err != nil {
		return nil, fmt.Errorf("receive invitation: %w", err)
	}

	if !rec.AutoAccept {
		return rec, nil
	}

	return c.AcceptInvitation(ctx, rec.ID, opts)
}

// AcceptInvitation sends the connection request of a received invitation.
func (c *Client) AcceptInvitation(ctx context.Context, connectionID string, opts *Options) (*Connection, error) {
	request, rec, err := c.service.CreateRequest(connectionID, opts)
	if err != nil {
		return nil, fmt.Errorf("accept invitation: %w", err)
	}

	if err = c.send(ctx, rec, request); err != nil {
		return nil, err
	}

	return rec, nil
}

// AcceptRequest sends the connection response to a received request.
func (c *Client) AcceptRequest(ctx context.Context, connectionID string) (*Connection, error) {
	response, rec, err := c.service.CreateResponse(connectionID)
	if err != nil {
		return nil, fmt.Errorf("accept request: %w", err)
	}

	if err = c.send(ctx, rec, response); err != nil {
		return nil, err
	}

	return rec, nil
}

// AcceptResponse acknowledges a received connection response, completing the connection.
func (c *Client) AcceptResponse(ctx context.Context, connectionID string) (*Connection, error) {
	ack, rec, err := c.service.CreateAck(connectionID)
	if err != nil {
		return nil, fmt.Errorf("accept response: %w", err)
	}

	if err = c.send(ctx, rec, ack); err != nil {
		return nil, err
	}

	return rec, nil
}

// SendTrustPing pings the peer of a connection.
func (c *Client) SendTrustPing(ctx context.Context, connectionID string, responseRequested bool) error {
	ping, rec, err := c.service.CreateTrustPing(connectionID, responseRequested)
	if err != nil {
		return fmt.Errorf("trust ping: %w", err)
	}

	return c.send(ctx, rec, ping)
}

// WaitForConnection blocks until the connection is ready or ctx is done.
func (c *Client) WaitForConnection(ctx context.Context, connectionID string) (*Connection, error) {
	return c.service.ReturnWhenIsConnected(ctx, connectionID)
}

// GetConnection returns a connection.
func (c *Client) GetConnection(connectionID string) (*Connection, error) {
	return c.service.GetByID(connectionID)
}

// QueryConnections returns the connections, filtered by state unless state is empty.
func (c *Client) QueryConnections(state connection.State) ([]*Connection, error) {
	records, err := c.service.GetAll()
	if err != nil {
		return nil, err
	}

	if state == "" {
		return records, nil
	}

	var result []*Connection

	for _, rec := range records {
		if rec.Status.State() == state {
			result = append(result, rec)
		}
	}

	return result, nil
}

// RemoveConnection removes a connection.
func (c *Client) RemoveConnection(connectionID string) error {
	return c.service.DeleteByID(connectionID)
}

func (c *Client) send(ctx context.Context, rec *Connection, payload interface{}) error {
	if err := c.outbound.Send(ctx, &dispatcher.OutboundMessage{Connection: rec, Payload: payload}); err != nil {
		return fmt.Errorf("send to connection %s: %w", rec.ID, err)
	}

	return nil
}
