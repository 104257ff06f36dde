/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
)

var (
	// ErrConnectionNotFound is returned by handlers that need a connection and got none.
	ErrConnectionNotFound = errors.New("connection not found")
	// ErrNoHandler is returned for message types nothing is registered for.
	ErrNoHandler = errors.New("no handler for message type")
)

// InboundMessageContext is a decoded inbound message with the keys it was exchanged with and the
// connection it was resolved to, if any.
type InboundMessageContext struct {
	Message      service.DIDCommMsgMap
	Connection   *connection.Record
	SenderKey    string
	RecipientKey string
}

// RequireConnection returns the resolved connection or ErrConnectionNotFound.
func (c *InboundMessageContext) RequireConnection() (*connection.Record, error) {
	if c.Connection == nil {
		return nil, fmt.Errorf("%s message %s from %q: %w", c.Message.Type(), c.Message.ID(), c.SenderKey,
			ErrConnectionNotFound)
	}

	return c.Connection, nil
}

// RequireReadyConnection returns the resolved connection if it is ready.
func (c *InboundMessageContext) RequireReadyConnection() (*connection.Record, error) {
	conn, err := c.RequireConnection()
	if err != nil {
		return nil, err
	}

	if err = conn.AssertReady(); err != nil {
		return nil, err
	}

	return conn, nil
}

// OutboundMessage is a message to send over a connection.
type OutboundMessage struct {
	Connection *connection.Record
	Payload    interface{}
}

// Handler processes the inbound messages of the types it supports and may reply.
type Handler interface {
	SupportedMessageTypes() []string
	Handle(ctx context.Context, msg *InboundMessageContext) (*OutboundMessage, error)
}

//go:generate mockgen -destination ../../internal/gomocks/didcomm/dispatcher/mocks.gen.go -package dispatcher github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher Outbound

// Outbound sends messages over connections.
type Outbound interface {
	Send(ctx context.Context, msg *OutboundMessage) error
}

// HandlerFunc adapts a function to a Handler for a fixed set of types.
type HandlerFunc struct {
	Types []string
	Fn    func(ctx context.Context, msg *InboundMessageContext) (*OutboundMessage, error)
}

// SupportedMessageTypes returns the handled types.
func (h *HandlerFunc) SupportedMessageTypes() []string {
	return h.Types
}

// Handle calls Fn.
func (h *HandlerFunc) Handle(ctx context.Context, msg *InboundMessageContext) (*OutboundMessage, error) {
	return h.Fn(ctx, msg)
}
