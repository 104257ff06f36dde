/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ws is the DIDComm websocket transport. Every envelope written by the sender is answered with one
// text message: empty on success, a failure notice otherwise.
package ws

import (
	"errors"
	"net/http"

	"github.com/hyperledger/aries-framework-go/component/log"
	"nhooyr.io/websocket"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport"
)

var logger = log.New("aries-agent/transport/ws")

const processFailureErrMsg = "failed to process the message"

// NewInboundHandler returns an http.Handler upgrading requests to websockets and handing every
// envelope read to msgHandler.
func NewInboundHandler(msgHandler transport.InboundMessageHandler) (http.Handler, error) {
	if msgHandler == nil {
		logger.Errorf("Error creating a new inbound handler: message handler function is nil")

		return nil, errors.New("creation of inbound handler failed")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		processRequest(w, r, msgHandler)
	}), nil
}

func processRequest(w http.ResponseWriter, r *http.Request, msgHandler transport.InboundMessageHandler) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Errorf("failed to upgrade the connection : %v", err)

		return
	}

	defer func() {
		if err := c.Close(websocket.StatusNormalClosure, "closing the connection"); err != nil &&
			websocket.CloseStatus(err) != websocket.StatusNormalClosure {
			logger.Errorf("failed to close connection: %v", err)
		}
	}()

	ctx := r.Context()

	for {
		_, message, err := c.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				logger.Debugf("websocket read ended: %v", err)
			}

			return
		}

		resp := ""

		if err = msgHandler(ctx, message); err != nil {
			logger.Errorf("incoming msg processing failed: %v", err)

			resp = processFailureErrMsg
		}

		if err = c.Write(ctx, websocket.MessageText, []byte(resp)); err != nil {
			logger.Errorf("error writing the message: %v", err)

			return
		}
	}
}
