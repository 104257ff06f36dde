/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport

import (
	"context"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
)

// Envelope holds an unpacked message and the keys it was exchanged between.
type Envelope struct {
	Message []byte
	// FromKey is the base58 verkey of the sender, empty for anonymous messages.
	FromKey string
	// ToKey is the base58 verkey the message was addressed to.
	ToKey string
}

//go:generate mockgen -destination ../../internal/gomocks/didcomm/transport/mocks.gen.go -package transport github.com/hyperledger/aries-agent-go/pkg/didcomm/transport OutboundTransport

// OutboundTransport interface definition for transport layer
// This is the client side of the agent
type OutboundTransport interface {
	// Send sends a packed envelope to the destination endpoint and returns the synchronous reply, if any.
	Send(ctx context.Context, data []byte, destination *service.Destination) (string, error)
	// Accept reports whether the transport handles the endpoint url.
	Accept(url string) bool
}

// InboundMessageHandler handles the inbound requests. The handler unpacks the envelope.
type InboundMessageHandler func(ctx context.Context, envelope []byte) error
