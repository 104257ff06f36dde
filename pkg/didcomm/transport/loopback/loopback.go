/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package loopback delivers envelopes between agents running in the same process.
package loopback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport"
)

// Scheme prefixes the endpoints served by a Hub.
const Scheme = "mem://"

var logger = log.New("aries-agent/transport/loopback")

// ErrUnknownEndpoint is returned when nothing is registered for a destination.
var ErrUnknownEndpoint = errors.New("no agent registered at endpoint")

// Hub routes envelopes to the handlers registered for their endpoints. Delivery is asynchronous, as it
// would be over a network; Wait blocks until everything sent so far has been handled.
type Hub struct {
	mu       sync.RWMutex
	handlers map[string]transport.InboundMessageHandler
	prefixes map[string]func(suffix string) transport.InboundMessageHandler
	pending  sync.WaitGroup

	errMu  sync.Mutex
	errors []error
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{
		handlers: map[string]transport.InboundMessageHandler{},
		prefixes: map[string]func(string) transport.InboundMessageHandler{},
	}
}

// Register serves endpoint with handler.
func (h *Hub) Register(endpoint string, handler transport.InboundMessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.handlers[endpoint] = handler
}

// RegisterPrefix serves every endpoint starting with prefix with the handler route returns for the rest
// of the endpoint.
func (h *Hub) RegisterPrefix(prefix string, route func(suffix string) transport.InboundMessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.prefixes[prefix] = route
}

func (h *Hub) handlerFor(endpoint string) (transport.InboundMessageHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if handler, ok := h.handlers[endpoint]; ok {
		return handler, true
	}

	for prefix, route := range h.prefixes {
		if strings.HasPrefix(endpoint, prefix) {
			return route(strings.TrimPrefix(endpoint, prefix)), true
		}
	}

	return nil, false
}

// Accept reports whether url is a loopback endpoint.
func (h *Hub) Accept(url string) bool {
	return strings.HasPrefix(url, Scheme)
}

// Send hands data to the handler of the destination endpoint.
func (h *Hub) Send(_ context.Context, data []byte, destination *service.Destination) (string, error) {
	if destination == nil {
		return "", errors.New("destination is required")
	}

	handler, ok := h.handlerFor(destination.ServiceEndpoint)
	if !ok {
		return "", fmt.Errorf("%s: %w", destination.ServiceEndpoint, ErrUnknownEndpoint)
	}

	envelope := append([]byte(nil), data...)

	h.pending.Add(1)

	go func() {
		defer h.pending.Done()

		if err := handler(context.Background(), envelope); err != nil {
			logger.Warnf("loopback delivery to %s failed: %s", destination.ServiceEndpoint, err)

			h.errMu.Lock()
			h.errors = append(h.errors, err)
			h.errMu.Unlock()
		}
	}()

	return "", nil
}

// Wait blocks until all envelopes sent so far were handled, including those sent while handling them.
func (h *Hub) Wait() {
	h.pending.Wait()
}

// Errors returns the errors inbound handlers failed with.
func (h *Hub) Errors() []error {
	h.errMu.Lock()
	defer h.errMu.Unlock()

	return append([]error(nil), h.errors...)
}

var _ transport.OutboundTransport = (*Hub)(nil)
