/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

import (
	"context"
	"errors"
	"sync"
)

// ErrNilChannel is returned when a nil channel is registered.
var ErrNilChannel = errors.New("callback channel cannot be nil")

// EventProperties carries protocol specific event data.
type EventProperties interface {
	All() map[string]interface{}
}

// Properties is a plain EventProperties map.
type Properties map[string]interface{}

// All returns the properties.
func (p Properties) All() map[string]interface{} {
	return p
}

// StateMsg is emitted after a state transition has been persisted.
type StateMsg struct {
	// Name of the protocol.
	ProtocolName string
	// RecordID of the protocol record.
	RecordID string
	ThreadID string
	// PreviousState is empty for a newly created record.
	PreviousState string
	StateID       string
	Properties    EventProperties
}

// Message thread-safe message event register.
//
// Publish blocks until every registered channel accepted the event; consumers must keep draining their channel.
type Message struct {
	mu     sync.RWMutex
	events []chan<- StateMsg
}

// MsgEvents returns event message channels.
func (m *Message) MsgEvents() []chan<- StateMsg {
	m.mu.RLock()
	events := append(m.events[:0:0], m.events...)
	m.mu.RUnlock()

	return events
}

// RegisterMsgEvent registers a channel for state change events.
func (m *Message) RegisterMsgEvent(ch chan<- StateMsg) error {
	if ch == nil {
		return ErrNilChannel
	}

	m.mu.Lock()
	m.events = append(m.events, ch)
	m.mu.Unlock()

	return nil
}

// UnregisterMsgEvent on protocol messages. Refer RegisterMsgEvent().
// Once it returns no further event is sent to ch.
func (m *Message) UnregisterMsgEvent(ch chan<- StateMsg) error {
	m.mu.Lock()

	for i := 0; i < len(m.events); i++ {
		if m.events[i] == ch {
			m.events = append(m.events[:i], m.events[i+1:]...)
			i--
		}
	}

	m.mu.Unlock()

	return nil
}

// Publish sends msg to every registered channel.
func (m *Message) Publish(msg StateMsg) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ch := range m.events {
		ch <- msg
	}
}

// WaitFor blocks until an event satisfies match or ctx is done.
// satisfied is checked after subscribing, so a condition already met before the call is not missed.
func WaitFor(ctx context.Context, reg *Message, match func(StateMsg) bool, satisfied func() (bool, error)) error {
	ch := make(chan StateMsg)
	matched := make(chan struct{}, 1)

	if err := reg.RegisterMsgEvent(ch); err != nil {
		return err
	}

	drained := make(chan struct{})

	go func() {
		defer close(drained)

		for msg := range ch {
			if match(msg) {
				select {
				case matched <- struct{}{}:
				default:
				}
			}
		}
	}()

	defer func() {
		_ = reg.UnregisterMsgEvent(ch) // nolint: errcheck
		close(ch)
		<-drained
	}()

	ok, err := satisfied()
	if err != nil {
		return err
	}

	if ok {
		return nil
	}

	select {
	case <-matched:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
