/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/presentproof"
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
)

var errEmptyRequest = errors.New("received an empty proof request")

type (
	// Exchange is a presentation exchange record.
	Exchange = presentproof.Record
	// ProofRequest describes the attributes and predicates a verifier asks for.
	ProofRequest = presentproof.ProofRequest
	// PresentationPreview describes what a prover proposes to present.
	PresentationPreview = presentproof.PresentationPreview
	// RequestedCredentials maps requested referents to held credentials.
	RequestedCredentials = presentproof.RequestedCredentials
	// Description explains why an exchange was declined.
	Description = presentproof.Description
)

// Provider contains dependencies for the presentproof client and is typically created by using aries.Context().
type Provider interface {
	PresentProofService() *presentproof.Service
	ConnectionStore() *connection.Store
	Outbound() dispatcher.Outbound
}

// Client enable access to presentproof API.
type Client struct {
	service     *presentproof.Service
	connections *connection.Store
	outbound    dispatcher.Outbound
}

// New return new instance of the presentproof client.
func New(ctx Provider) (*Client, error) {
	svc := ctx.PresentProofService()
	if svc == nil {
		return nil, errors.New("present proof service is not available")
	}

	if ctx.Outbound() == nil {
		return nil, errors.New("outbound dispatcher is not available")
	}

	return &Client{
		service:     svc,
		connections: ctx.ConnectionStore(),
		outbound:    ctx.Outbound(),
	}, nil
}

// SendRequest is used by the Verifier to request a proof.
func (c *Client) SendRequest(ctx context.Context, connectionID string, request *ProofRequest, comment string) (
	*Exchange, error) {
	if request == nil {
		return nil, errEmptyRequest
	}

	conn, err := c.connections.GetByID(connectionID)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	msg, rec, err := c.service.CreateRequest(conn, request, comment)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	return rec, c.sendOn(ctx, conn, msg)
}

// SendProposal is used by the Prover to propose a presentation.
func (c *Client) SendProposal(ctx context.Context, connectionID string, preview PresentationPreview,
	comment string) (*Exchange, error) {
	conn, err := c.connections.GetByID(connectionID)
	if err != nil {
		return nil, fmt.Errorf("send proposal: %w", err)
	}

	msg, rec, err := c.service.CreateProposal(conn, preview, comment)
	if err != nil {
		return nil, fmt.Errorf("send proposal: %w", err)
	}

	return rec, c.sendOn(ctx, conn, msg)
}

// AcceptProposal is used by the Verifier to answer a proposal with a request. A nil request asks for what
// was proposed.
func (c *Client) AcceptProposal(ctx context.Context, exchangeID string, request *ProofRequest, comment string) (
	*Exchange, error) {
	msg, rec, err := c.service.CreateRequestAsResponse(exchangeID, request, comment)
	if err != nil {
		return nil, fmt.Errorf("accept proposal: %w", err)
	}

	return rec, c.send(ctx, rec, msg)
}

// NegotiateRequest is used by the Prover to answer a request with a counter proposal.
func (c *Client) NegotiateRequest(ctx context.Context, exchangeID string, preview PresentationPreview,
	comment string) (*Exchange, error) {
	msg, rec, err := c.service.CreateProposalAsResponse(exchangeID, preview, comment)
	if err != nil {
		return nil, fmt.Errorf("negotiate request: %w", err)
	}

	return rec, c.send(ctx, rec, msg)
}

// RequestedCredentials returns the held credentials that would answer the exchange's proof request.
func (c *Client) RequestedCredentials(exchangeID string) (*RequestedCredentials, error) {
	return c.service.GetRequestedCredentialsForProofRequest(exchangeID)
}

// AcceptRequest is used by the Prover to present a proof. Nil credentials are selected from the wallet.
func (c *Client) AcceptRequest(ctx context.Context, exchangeID string, credentials *RequestedCredentials,
	comment string) (*Exchange, error) {
	msg, rec, err := c.service.CreatePresentation(exchangeID, credentials, comment)
	if err != nil {
		return nil, fmt.Errorf("accept request: %w", err)
	}

	return rec, c.send(ctx, rec, msg)
}

// AcceptPresentation is used by the Verifier to acknowledge a verified presentation.
func (c *Client) AcceptPresentation(ctx context.Context, exchangeID string) (*Exchange, error) {
	ack, rec, err := c.service.CreateAck(exchangeID)
	if err != nil {
		return nil, fmt.Errorf("accept presentation: %w", err)
	}

	return rec, c.send(ctx, rec, ack)
}

// DeclineExchange abandons an exchange and tells the peer why.
func (c *Client) DeclineExchange(ctx context.Context, exchangeID string, description Description) (*Exchange,
	error) {
	report, rec, err := c.service.CreateProblemReport(exchangeID, description)
	if err != nil {
		return nil, fmt.Errorf("decline exchange: %w", err)
	}

	return rec, c.send(ctx, rec, report)
}

// GetExchange returns a presentation exchange.
func (c *Client) GetExchange(exchangeID string) (*Exchange, error) {
	return c.service.GetByID(exchangeID)
}

// GetExchanges returns the presentation exchanges, filtered by state unless state is empty.
func (c *Client) GetExchanges(state presentproof.State) ([]*Exchange, error) {
	records, err := c.service.GetAll()
	if err != nil {
		return nil, err
	}

	if state == "" {
		return records, nil
	}

	var result []*Exchange

	for _, rec := range records {
		if rec.Status.State() == state {
			result = append(result, rec)
		}
	}

	return result, nil
}

// RemoveExchange removes a presentation exchange.
func (c *Client) RemoveExchange(exchangeID string) error {
	return c.service.DeleteByID(exchangeID)
}

func (c *Client) send(ctx context.Context, rec *Exchange, payload interface{}) error {
	conn, err := c.connections.GetByID(rec.ConnectionID)
	if err != nil {
		return fmt.Errorf("connection of presentation exchange %s: %w", rec.ID, err)
	}

	return c.sendOn(ctx, conn, payload)
}

func (c *Client) sendOn(ctx context.Context, conn *connection.Record, payload interface{}) error {
	if err := c.outbound.Send(ctx, &dispatcher.OutboundMessage{Connection: conn, Payload: payload}); err != nil {
		return fmt.Errorf("send to connection %s: %w", conn.ID, err)
	}

	return nil
}
