/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package dispatcher routes inbound messages to the handler registered for their type.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperledger/aries-framework-go/component/log"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var logger = log.New("aries-agent/dispatcher")

// Registry maps message types to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds handlers. A message type can only have one handler.
func (r *Registry) Register(handlers ...Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range handlers {
		for _, msgType := range h.SupportedMessageTypes() {
			if _, exists := r.handlers[msgType]; exists {
				return fmt.Errorf("handler for %s already registered", msgType)
			}
		}
	}

	for _, h := range handlers {
		for _, msgType := range h.SupportedMessageTypes() {
			r.handlers[msgType] = h
		}
	}

	return nil
}

// SupportedMessageTypes returns every registered message type, sorted.
func (r *Registry) SupportedMessageTypes() []string {
	r.mu.RLock()
	types := maps.Keys(r.handlers)
	r.mu.RUnlock()

	slices.Sort(types)

	return types
}

// Dispatch invokes the handler registered for the message type.
func (r *Registry) Dispatch(ctx context.Context, msg *InboundMessageContext) (*OutboundMessage, error) {
	msgType := msg.Message.Type()

	r.mu.RLock()
	h, ok := r.handlers[msgType]
	r.mu.RUnlock()

	if !ok {
		logger.Warnf("no handler for message type %s", msgType)

		return nil, fmt.Errorf("%s: %w", msgType, ErrNoHandler)
	}

	logger.Debugf("dispatching %s message %s", msgType, msg.Message.ID())

	out, err := h.Handle(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("handle %s message %s: %w", msgType, msg.Message.ID(), err)
	}

	return out, nil
}
