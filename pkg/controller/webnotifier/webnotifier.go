/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package webnotifier publishes agent events to webhook subscribers and websocket clients.
package webnotifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-agent-go/pkg/controller/rest"
)

var logger = log.New("aries-agent/webnotifier")

const (
	emptyTopicErrMsg     = "cannot notify with an empty topic"
	emptyMessageErrMsg   = "cannot notify with an empty message"
	failedToCreateErrMsg = "failed to create topic message : %w"

	notificationSendTimeout = 10 * time.Second
)

// Notifier sends a message on a topic.
//
//go:generate mockgen -destination ../../internal/gomocks/controller/webnotifier/mocks.gen.go -package webnotifier github.com/hyperledger/aries-agent-go/pkg/controller/webnotifier Notifier
type Notifier interface {
	Notify(ctx context.Context, topic string, message []byte) error
}

// WebNotifier fans notifications out to webhook URLs and websocket clients.
type WebNotifier struct {
	notifiers []Notifier
	handlers  []rest.Handler
}

// New returns a WebNotifier serving websocket clients on wsPath and posting to webhookURLs.
func New(wsPath string, webhookURLs []string, opts ...HTTPOption) *WebNotifier {
	ws := NewWSNotifier(wsPath)

	return &WebNotifier{
		notifiers: []Notifier{ws, NewHTTPNotifier(webhookURLs, opts...)},
		handlers:  ws.GetRESTHandlers(),
	}
}

// Notify sends the message to every subscriber. All failures are returned together.
func (n *WebNotifier) Notify(ctx context.Context, topic string, message []byte) error {
	var allErrs error

	for _, notifier := range n.notifiers {
		allErrs = appendError(allErrs, notifier.Notify(ctx, topic, message))
	}

	return allErrs
}

// GetRESTHandlers returns the websocket subscription handler.
func (n *WebNotifier) GetRESTHandlers() []rest.Handler {
	return n.handlers
}

type topicMessage struct {
	ID      string          `json:"id"`
	Topic   string          `json:"topic"`
	Message json.RawMessage `json:"message"`
}

// PrepareTopicMessage wraps message in an envelope carrying the topic and a fresh id.
func PrepareTopicMessage(topic string, message []byte) ([]byte, error) {
	if topic == "" {
		return nil, errors.New(emptyTopicErrMsg)
	}

	if len(message) == 0 {
		return nil, errors.New(emptyMessageErrMsg)
	}

	msg, err := json.Marshal(&topicMessage{
		ID:      uuid.New().String(),
		Topic:   topic,
		Message: message,
	})
	if err != nil {
		return nil, fmt.Errorf(failedToCreateErrMsg, err)
	}

	return msg, nil
}

func appendError(errList, err error) error {
	if errList == nil {
		return err
	}

	if err == nil {
		return errList
	}

	return errors.Join(errList, err)
}
