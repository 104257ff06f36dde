/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package http is the DIDComm http transport: envelopes are POSTed and accepted with 202.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/pkg/errors"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport"
)

var logger = log.New("aries-agent/transport/http")

// maxEnvelopeSize bounds the accepted request body.
const maxEnvelopeSize = 10 << 20

// NewInboundHandler will create a new handler to enforce Did-Comm HTTP transport specs
// then routes processing to the mandatory 'msgHandler' argument.
//
// The envelope is handed over after the request is answered with 202 Accepted, with its own context.
func NewInboundHandler(msgHandler transport.InboundMessageHandler) (http.Handler, error) {
	if msgHandler == nil {
		logger.Errorf("Error creating a new inbound handler: message handler function is nil")

		return nil, errors.New("creation of inbound handler failed")
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		processPOSTRequest(w, r, msgHandler)
	}), nil
}

func processPOSTRequest(w http.ResponseWriter, r *http.Request, msgHandler transport.InboundMessageHandler) {
	if valid := validateHTTPMethod(w, r); !valid {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEnvelopeSize))
	if err != nil {
		logger.Errorf("Error reading request body: %s - returning Code: %d", err, http.StatusInternalServerError)
		http.Error(w, "Failed to read payload", http.StatusInternalServerError)

		return
	}

	if len(body) == 0 {
		http.Error(w, "Empty payload", http.StatusBadRequest)

		return
	}

	w.WriteHeader(http.StatusAccepted)

	go func() {
		if err := msgHandler(context.Background(), body); err != nil {
			logger.Errorf("incoming msg processing failed: %v", err)
		}
	}()
}

// validateHTTPMethod validate HTTP method and content-type
func validateHTTPMethod(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "HTTP Method not allowed", http.StatusMethodNotAllowed)

		return false
	}

	ct := r.Header.Get("Content-type")
	if !transport.IsEnvelopeMediaType(ct) {
		http.Error(w, fmt.Sprintf("Unsupported Content-type \"%s\"", ct), http.StatusUnsupportedMediaType)

		return false
	}

	return true
}
