/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"context"
	"net/http"
	"sync"

	"nhooyr.io/websocket"

	"github.com/hyperledger/aries-agent-go/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-agent-go/pkg/controller/rest"
)

// WSNotifier pushes notifications to connected websocket clients.
type WSNotifier struct {
	conns     map[*websocket.Conn]struct{}
	connsLock sync.RWMutex
	handlers  []rest.Handler
}

// NewWSNotifier returns a WSNotifier accepting clients on path.
func NewWSNotifier(path string) *WSNotifier {
	n := &WSNotifier{conns: map[*websocket.Conn]struct{}{}}

	n.handlers = []rest.Handler{
		cmdutil.NewHTTPHandler(path, http.MethodGet, n.handleWS),
	}

	return n
}

// Notify writes the topic message to every connected client.
func (n *WSNotifier) Notify(ctx context.Context, topic string, message []byte) error {
	topicMsg, err := PrepareTopicMessage(topic, message)
	if err != nil {
		return err
	}

	n.connsLock.RLock()
	conns := make([]*websocket.Conn, 0, len(n.conns))

	for conn := range n.conns {
		conns = append(conns, conn)
	}
	n.connsLock.RUnlock()

	var allErrs error

	for _, conn := range conns {
		allErrs = appendError(allErrs, notifyWS(ctx, conn, topicMsg))
	}

	return allErrs
}

func notifyWS(parent context.Context, conn *websocket.Conn, message []byte) error {
	ctx, cancel := context.WithTimeout(parent, notificationSendTimeout)
	defer cancel()

	return conn.Write(ctx, websocket.MessageText, message)
}

func (n *WSNotifier) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		logger.Infof("failed to upgrade the websocket notification connection : %v", err)

		return
	}

	logger.Debugf("websocket notification client connected")

	n.connsLock.Lock()
	n.conns[conn] = struct{}{}
	n.connsLock.Unlock()

	n.monitorWSConn(r.Context(), conn)
}

// monitorWSConn blocks until the client goes away. Clients are not expected to send anything.
func (n *WSNotifier) monitorWSConn(ctx context.Context, conn *websocket.Conn) {
	_, _, err := conn.Reader(ctx)
	if err != nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
		logger.Infof("reading from websocket notification client failed: %v", err)
	}

	if err = conn.Close(websocket.StatusPolicyViolation, "unexpected message"); err != nil {
		logger.Debugf("closing websocket notification client failed: %v", err)
	}

	n.connsLock.Lock()
	delete(n.conns, conn)
	n.connsLock.Unlock()

	logger.Debugf("websocket notification client dropped")
}

// GetRESTHandlers returns the websocket subscription handler.
func (n *WSNotifier) GetRESTHandlers() []rest.Handler {
	return n.handlers
}
