/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport"
)

// outboundCommHTTPOpts holds options for the HTTP transport implementation of CommTransport
// it has an http.Client instance
type outboundCommHTTPOpts struct {
	client *http.Client
}

// OutboundHTTPOpt is an outbound HTTP transport option
type OutboundHTTPOpt func(opts *outboundCommHTTPOpts)

// WithOutboundHTTPClient option is for creating an Outbound HTTP transport using an http.Client instance
func WithOutboundHTTPClient(client *http.Client) OutboundHTTPOpt {
	return func(opts *outboundCommHTTPOpts) {
		opts.client = client
	}
}

// WithOutboundTimeout option is for creating an Outbound HTTP transport using a client timeout value
func WithOutboundTimeout(timeout time.Duration) OutboundHTTPOpt {
	return func(opts *outboundCommHTTPOpts) {
		opts.client.Timeout = timeout
	}
}

// WithOutboundTLSConfig option is for creating an Outbound HTTP transport using a tls.Config instance
func WithOutboundTLSConfig(tlsConfig *tls.Config) OutboundHTTPOpt {
	return func(opts *outboundCommHTTPOpts) {
		opts.client = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
			},
		}
	}
}

// OutboundHTTPClient represents the Outbound HTTP transport instance
type OutboundHTTPClient struct {
	client *http.Client
}

// NewOutbound creates a new instance of Outbound HTTP transport to Post requests to other Agents.
// An http.Client or tls.Config options is mandatory to create a transport instance.
func NewOutbound(opts ...OutboundHTTPOpt) (*OutboundHTTPClient, error) {
	clOpts := &outboundCommHTTPOpts{}
	// Apply options
	for _, opt := range opts {
		opt(clOpts)
	}

	if clOpts.client == nil {
		return nil, errors.New("creation of outbound transport requires an HTTP client")
	}

	return &OutboundHTTPClient{client: clOpts.client}, nil
}

// Send posts a packed envelope to the destination endpoint (client side).
func (cs *OutboundHTTPClient) Send(ctx context.Context, data []byte, destination *service.Destination) (string,
	error) {
	if destination == nil || destination.ServiceEndpoint == "" {
		return "", errors.New("destination endpoint is mandatory")
	}

	url := destination.ServiceEndpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrapf(err, "build request to %s", url)
	}

	req.Header.Set("Content-Type", transport.MediaTypeEnvelope)

	resp, err := cs.client.Do(req)
	if err != nil {
		logger.Errorf("posting DID envelope to agent at [%s] failed: %v", url, err)

		return "", errors.Wrapf(err, "post to %s", url)
	}

	defer func() {
		if e := resp.Body.Close(); e != nil {
			logger.Errorf("closing response body failed: %v", e)
		}
	}()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("received non success POST HTTP status from agent at [%s]: status: %v", url,
			resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "read response body")
	}

	return string(body), nil
}

// Accept reports whether url is an http(s) endpoint.
func (cs *OutboundHTTPClient) Accept(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}
