/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"context"
	"encoding/json"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
)

// StatesTopicSuffix is appended to the protocol name to form the topic of state events.
const StatesTopicSuffix = "_states"

const (
	eventBufferSize = 64
	eventQueueSize  = 256
)

// StateEvent is the notification payload of a state transition.
type StateEvent struct {
	ProtocolName  string                 `json:"protocol"`
	RecordID      string                 `json:"record_id"`
	ThreadID      string                 `json:"thread_id,omitempty"`
	PreviousState string                 `json:"previous_state,omitempty"`
	State         string                 `json:"state"`
	Properties    map[string]interface{} `json:"properties,omitempty"`
}

// Observer forwards state events to a notifier.
type Observer struct {
	notifier Notifier
}

// NewObserver returns an Observer publishing through notifier.
func NewObserver(notifier Notifier) *Observer {
	return &Observer{notifier: notifier}
}

// Observe forwards every event published on events until the returned stop function is called.
// Events are queued for delivery without blocking the publisher; when the queue is full they are dropped.
func (o *Observer) Observe(events *service.Message) (func(), error) {
	ch := make(chan service.StateMsg, eventBufferSize)

	if err := events.RegisterMsgEvent(ch); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	queue := make(chan service.StateMsg, eventQueueSize)
	received := make(chan struct{})
	delivered := make(chan struct{})

	go func() {
		defer close(received)

		for msg := range ch {
			select {
			case queue <- msg:
			default:
				logger.Warnf("state event queue full, dropping %s event of record %s", msg.ProtocolName, msg.RecordID)
			}
		}
	}()

	go func() {
		defer close(delivered)

		for msg := range queue {
			if ctx.Err() != nil {
				continue
			}

			o.notify(ctx, msg)
		}
	}()

	return func() {
		cancel()

		_ = events.UnregisterMsgEvent(ch) // nolint: errcheck

		close(ch)
		<-received
		close(queue)
		<-delivered
	}, nil
}

// RegisterStateMsg forwards events read from ch under topic until ch is closed.
func (o *Observer) RegisterStateMsg(topic string, ch <-chan service.StateMsg) {
	go func() {
		for msg := range ch {
			o.send(context.Background(), topic, msg)
		}
	}()
}

func (o *Observer) notify(ctx context.Context, msg service.StateMsg) {
	o.send(ctx, msg.ProtocolName+StatesTopicSuffix, msg)
}

func (o *Observer) send(ctx context.Context, topic string, msg service.StateMsg) {
	event := StateEvent{
		ProtocolName:  msg.ProtocolName,
		RecordID:      msg.RecordID,
		ThreadID:      msg.ThreadID,
		PreviousState: msg.PreviousState,
		State:         msg.StateID,
	}

	if msg.Properties != nil {
		event.Properties = msg.Properties.All()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("state event marshal: %s", err)

		return
	}

	if err := o.notifier.Notify(ctx, topic, payload); err != nil {
		logger.Warnf("state event notification on %s: %s", topic, err)
	}
}
