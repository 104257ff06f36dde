/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package outbound

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/packer"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport"
)

// ForwardMsgType is the routing forward message type.
const ForwardMsgType = "https://didcomm.org/routing/1.0/forward"

// provider interface for outbound ctx.
type provider interface {
	Packer() packer.Packer
	OutboundTransports() []transport.OutboundTransport
	OutboundRetries() uint64
	OutboundRetryInterval() time.Duration
}

// Dispatcher dispatch msgs to destination.
type Dispatcher struct {
	outboundTransports []transport.OutboundTransport
	packer             packer.Packer
	retries            uint64
	retryInterval      time.Duration
}

// forward wraps a packed message for the next mediator on the route.
type forward struct {
	Type string          `json:"@type,omitempty"`
	ID   string          `json:"@id,omitempty"`
	To   string          `json:"to,omitempty"`
	Msg  json.RawMessage `json:"msg,omitempty"`
}

var logger = log.New("aries-agent/didcomm/dispatcher")

// NewOutbound return new dispatcher outbound instance.
func NewOutbound(prov provider) *Dispatcher {
	return &Dispatcher{
		outboundTransports: prov.OutboundTransports(),
		packer:             prov.Packer(),
		retries:            prov.OutboundRetries(),
		retryInterval:      prov.OutboundRetryInterval(),
	}
}

// Send packs the payload from the connection key to the peer and delivers it, retrying failed deliveries.
func (o *Dispatcher) Send(ctx context.Context, msg *dispatcher.OutboundMessage) error {
	if msg == nil || msg.Connection == nil {
		return fmt.Errorf("outboundDispatcher.Send: %w", dispatcher.ErrConnectionNotFound)
	}

	des, err := msg.Connection.TheirDestination()
	if err != nil {
		return fmt.Errorf("outboundDispatcher.Send: %w", err)
	}

	if len(des.RecipientKeys) == 0 {
		return fmt.Errorf("outboundDispatcher.Send: connection %s destination has no recipient keys",
			msg.Connection.ID)
	}

	outboundTransport := o.transportFor(des.ServiceEndpoint)
	if outboundTransport == nil {
		return fmt.Errorf("outboundDispatcher.Send: no transport found for destination: %+v", des)
	}

	req, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("outboundDispatcher.Send: failed marshal to bytes: %w", err)
	}

	packedMsg, err := o.packer.Pack(req, msg.Connection.Verkey, des.RecipientKeys)
	if err != nil {
		return fmt.Errorf("outboundDispatcher.Send: failed to pack msg: %w", err)
	}

	packedMsg, err = o.createForwardMessage(packedMsg, des)
	if err != nil {
		return fmt.Errorf("outboundDispatcher.Send: failed to create forward msg: %w", err)
	}

	err = o.deliver(ctx, outboundTransport, packedMsg, des)
	if err != nil {
		return fmt.Errorf("outboundDispatcher.Send: failed to send msg using outbound transport: %w", err)
	}

	return nil
}

func (o *Dispatcher) transportFor(uri string) transport.OutboundTransport {
	for _, v := range o.outboundTransports {
		if v.Accept(uri) {
			return v
		}
	}

	return nil
}

func (o *Dispatcher) deliver(ctx context.Context, t transport.OutboundTransport, data []byte,
	des *service.Destination) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(o.retryInterval), o.retries), ctx)

	return backoff.RetryNotify(func() error {
		_, err := t.Send(ctx, data, des)

		return err
	}, policy, func(err error, next time.Duration) {
		logger.Warnf("send to %s failed, retrying in %s: %s", des.ServiceEndpoint, next, err)
	})
}

// createForwardMessage wraps the message once per routing key, innermost first, each layer addressed
// to the previous key and packed anonymously for the next.
func (o *Dispatcher) createForwardMessage(msg []byte, des *service.Destination) ([]byte, error) {
	if len(des.RoutingKeys) == 0 {
		return msg, nil
	}

	fwdKeys := append([]string{des.RecipientKeys[0]}, des.RoutingKeys...)

	for i := 0; i+1 < len(fwdKeys); i++ {
		req, err := json.Marshal(&forward{
			Type: ForwardMsgType,
			ID:   uuid.New().String(),
			To:   fwdKeys[i],
			Msg:  msg,
		})
		if err != nil {
			return nil, fmt.Errorf("failed marshal to bytes: %w", err)
		}

		msg, err = o.packer.Pack(req, "", []string{fwdKeys[i+1]})
		if err != nil {
			return nil, fmt.Errorf("failed to pack forward msg: %w", err)
		}
	}

	return msg, nil
}
