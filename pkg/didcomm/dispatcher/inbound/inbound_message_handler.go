/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package inbound

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/packer"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport"
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
)

const loggerModule = "aries-agent/dispatcher/inbound"

var logger = log.New(loggerModule)

const (
	connectionCacheSize = 1000
	connectionCacheTTL  = 10 * time.Minute
)

// ConnectionLookup resolves the connection an inbound message belongs to.
type ConnectionLookup interface {
	FindByKeys(senderKey, recipientKey string) (*connection.Record, error)
	FindByID(id string) (*connection.Record, error)
}

type provider interface {
	Packer() packer.Packer
	ConnectionStore() *connection.Store
	MessageRegistry() *dispatcher.Registry
	Outbound() dispatcher.Outbound
}

// MessageHandler handles inbound envelopes, unpacking then dispatching them to the handler registered
// for the message type.
type MessageHandler struct {
	packer      packer.Packer
	connections ConnectionLookup
	registry    *dispatcher.Registry
	outbound    dispatcher.Outbound
	// sender|recipient key pair to connection ID
	resolved gcache.Cache
}

// NewInboundMessageHandler creates an inbound message handler.
func NewInboundMessageHandler(p provider) *MessageHandler {
	return &MessageHandler{
		packer:      p.Packer(),
		connections: p.ConnectionStore(),
		registry:    p.MessageRegistry(),
		outbound:    p.Outbound(),
		resolved:    gcache.New(connectionCacheSize).LRU().Expiration(connectionCacheTTL).Build(),
	}
}

// HandlerFunc returns the MessageHandler's transport.InboundMessageHandler function.
func (handler *MessageHandler) HandlerFunc() transport.InboundMessageHandler {
	return handler.HandleInboundEnvelope
}

// HandleInboundEnvelope unpacks an envelope, dispatches the message and sends back the reply if the
// handler produced one.
func (handler *MessageHandler) HandleInboundEnvelope(ctx context.Context, raw []byte) error {
	envelope, err := handler.packer.Unpack(raw)
	if err != nil {
		return fmt.Errorf("unpack envelope: %w", err)
	}

	msg, err := service.ParseDIDCommMsgMap(envelope.Message)
	if err != nil {
		return err
	}

	conn, err := handler.resolveConnection(envelope.FromKey, envelope.ToKey)
	if err != nil {
		return fmt.Errorf("resolve connection: %w", err)
	}

	out, err := handler.registry.Dispatch(ctx, &dispatcher.InboundMessageContext{
		Message:      msg,
		Connection:   conn,
		SenderKey:    envelope.FromKey,
		RecipientKey: envelope.ToKey,
	})
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	if out.Connection == nil {
		out.Connection = conn
	}

	if err = handler.outbound.Send(ctx, out); err != nil {
		return fmt.Errorf("reply to %s message %s: %w", msg.Type(), msg.ID(), err)
	}

	return nil
}

// resolveConnection returns the connection for the key pair, or nil for messages outside any connection.
// Cached IDs are always re-read since the record changes as the connection progresses.
func (handler *MessageHandler) resolveConnection(senderKey, recipientKey string) (*connection.Record, error) {
	cacheKey := senderKey + "|" + recipientKey

	cached, err := handler.resolved.Get(cacheKey)

	switch {
	case err == nil:
		rec, findErr := handler.connections.FindByID(cached.(string))
		if findErr != nil {
			return nil, findErr
		}

		if rec != nil && (rec.TheirKey == "" || rec.TheirKey == senderKey) {
			return rec, nil
		}

		handler.resolved.Remove(cacheKey)
	case !errors.Is(err, gcache.KeyNotFoundError):
		return nil, err
	}

	rec, err := handler.connections.FindByKeys(senderKey, recipientKey)
	if err != nil || rec == nil {
		return nil, err
	}

	if err = handler.resolved.Set(cacheKey, rec.ID); err != nil {
		logger.Warnf("failed to cache connection %s: %s", rec.ID, err)
	}

	return rec, nil
}
