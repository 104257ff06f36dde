/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultWebhookRetries  = 3
	defaultWebhookInterval = 500 * time.Millisecond
)

// HTTPOption configures an HTTPNotifier.
type HTTPOption func(n *HTTPNotifier)

// WithHTTPClient sets the client used to post notifications.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(n *HTTPNotifier) {
		n.client = client
	}
}

// WithRetries sets how often a failed webhook post is retried and the initial wait between attempts.
func WithRetries(retries uint64, interval time.Duration) HTTPOption {
	return func(n *HTTPNotifier) {
		n.retries = retries
		n.interval = interval
	}
}

// HTTPNotifier posts notifications to webhook URLs.
type HTTPNotifier struct {
	urls     []string
	client   *http.Client
	retries  uint64
	interval time.Duration
}

// NewHTTPNotifier returns a new instance of an HTTPNotifier.
func NewHTTPNotifier(webhookURLs []string, opts ...HTTPOption) *HTTPNotifier {
	n := &HTTPNotifier{
		urls:     webhookURLs,
		client:   http.DefaultClient,
		retries:  defaultWebhookRetries,
		interval: defaultWebhookInterval,
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// Notify posts the topic message to every webhook URL.
// A URL answering with a client error is not retried.
func (n *HTTPNotifier) Notify(ctx context.Context, topic string, message []byte) error {
	topicMsg, err := PrepareTopicMessage(topic, message)
	if err != nil {
		return err
	}

	var allErrs error

	for _, webhookURL := range n.urls {
		allErrs = appendError(allErrs, n.notifyWithRetry(ctx, webhookURL, topicMsg))
	}

	return allErrs
}

func (n *HTTPNotifier) notifyWithRetry(ctx context.Context, destination string, message []byte) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = n.interval

	return backoff.Retry(func() error {
		return n.notify(ctx, destination, message)
	}, backoff.WithContext(backoff.WithMaxRetries(b, n.retries), ctx))
}

func (n *HTTPNotifier) notify(parent context.Context, destination string, message []byte) error {
	ctx, cancel := context.WithTimeout(parent, notificationSendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(message))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create new http post request for %s: %w", destination, err))
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post notification to %s: %w", destination, err)
	}

	defer closeResponse(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated ||
		resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusNoContent:
		logger.Debugf("notification sent to %s", destination)

		return nil
	case resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError:
		return backoff.Permanent(fmt.Errorf("notification was sent to %s, but %s was received",
			destination, resp.Status))
	default:
		return fmt.Errorf("notification was sent to %s, but %s was received", destination, resp.Status)
	}
}

func closeResponse(c io.Closer) {
	if err := c.Close(); err != nil {
		logger.Errorf("Failed to close response body: %s", err)
	}
}
