/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package issuecredential provides the issuer and holder API of the issue credential protocol. Every call
// moves the local exchange record and sends the resulting message over the exchange's connection.
package issuecredential

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
	"github.com/hyperledger/aries-agent-go/pkg/wallet/attrib"
)

var (
	errEmptyOffer    = errors.New("received an empty offer")
	errEmptyProposal = errors.New("received an empty proposal")
	errNoWallet      = errors.New("wallet is not available")
)

type (
	// Exchange is a credential exchange record.
	Exchange = issuecredential.Record
	// OfferTemplate describes a credential offer.
	OfferTemplate = issuecredential.OfferTemplate
	// ProposalOptions describe a credential proposal.
	ProposalOptions = issuecredential.ProposalOptions
	// RequestOptions describe a credential request.
	RequestOptions = issuecredential.RequestOptions
	// Description explains why an exchange was declined.
	Description = issuecredential.Description
	// Credential is a credential held by the wallet.
	Credential = attrib.CredentialRecord
)

// Provider contains dependencies for the issuecredential client and is typically created by using aries.Context().
type Provider interface {
	IssueCredentialService() *issuecredential.Service
	ConnectionStore() *connection.Store
	Outbound() dispatcher.Outbound
	Wallet() *attrib.Wallet
}

// Client enable access to issuecredential API.
type Client struct {
	service     *issuecredential.Service
	connections *connection.Store
	outbound    dispatcher.Outbound
	wallet      *attrib.Wallet
}

// New return new instance of the issuecredential client.
func New(ctx Provider) (*Client, error) {
	svc := ctx.IssueCredentialService()
	if svc == nil {
		return nil, errors.New("issue credential service is not available")
	}

	if ctx.Outbound() == nil {
		return nil, errors.New("outbound dispatcher is not available")
	}

	return &Client{
		service:     svc,
		connections: ctx.ConnectionStore(),
		outbound:    ctx.Outbound(),
		wallet:      ctx.Wallet(),
	}, nil
}

// CreateCredentialDefinition creates an issuer key for schemaID and returns the credential definition id
// offers refer to.
func (c *Client) CreateCredentialDefinition(schemaID, tag string) (string, error) {
	if c.wallet == nil {
		return "", errNoWallet
	}

	return c.wallet.CreateCredentialDefinition(schemaID, tag)
}

// SendProposal is used by the Holder to send a proposal.
func (c *Client) SendProposal(ctx context.Context, connectionID string, opts *ProposalOptions) (*Exchange, error) {
	if opts == nil {
		return nil, errEmptyProposal
	}

	conn, err := c.connections.GetByID(connectionID)
	if err != nil {
		return nil, fmt.Errorf("send proposal: %w", err)
	}

	proposal, rec, err := c.service.CreateProposal(conn, opts)
	if err != nil {
		return nil, fmt.Errorf("send proposal: %w", err)
	}

	return rec, c.sendOn(ctx, conn, proposal)
}

// SendOffer is used by the Issuer to send an offer.
func (c *Client) SendOffer(ctx context.Context, connectionID string, template *OfferTemplate) (*Exchange, error) {
	if template == nil {
		return nil, errEmptyOffer
	}

	conn, err := c.connections.GetByID(connectionID)
	if err != nil {
		return nil, fmt.Errorf("send offer: %w", err)
	}

	offer, rec, err := c.service.CreateOffer(conn, template)
	if err != nil {
		return nil, fmt.Errorf("send offer: %w", err)
	}

	return rec, c.sendOn(ctx, conn, offer)
}

// AcceptProposal is used when the Issuer is willing to accept the proposal. A nil template offers what
// was proposed.
func (c *Client) AcceptProposal(ctx context.Context, exchangeID string, template *OfferTemplate) (*Exchange,
	error) {
	offer, rec, err := c.service.CreateOfferAsResponse(exchangeID, template)
	if err != nil {
		return nil, fmt.Errorf("accept proposal: %w", err)
	}

	return rec, c.send(ctx, rec, offer)
}

// NegotiateOffer is used by the Holder to answer an offer with a counter proposal.
func (c *Client) NegotiateOffer(ctx context.Context, exchangeID string, opts *ProposalOptions) (*Exchange,
	error) {
	proposal, rec, err := c.service.CreateProposalAsResponse(exchangeID, opts)
	if err != nil {
		return nil, fmt.Errorf("negotiate offer: %w", err)
	}

	return rec, c.send(ctx, rec, proposal)
}

// AcceptOffer is used when the Holder is willing to accept the offer.
func (c *Client) AcceptOffer(ctx context.Context, exchangeID string, opts *RequestOptions) (*Exchange, error) {
	request, rec, err := c.service.CreateRequest(exchangeID, opts)
	if err != nil {
		return nil, fmt.Errorf("accept offer: %w", err)
	}

	return rec, c.send(ctx, rec, request)
}

// AcceptRequest is used by the Issuer to issue the requested credential.
func (c *Client) AcceptRequest(ctx context.Context, exchangeID, comment string) (*Exchange, error) {
	issue, rec, err := c.service.CreateCredential(exchangeID, comment)
	if err != nil {
		return nil, fmt.Errorf("accept request: %w", err)
	}

	return rec, c.send(ctx, rec, issue)
}

// AcceptCredential is used by the Holder to acknowledge a stored credential.
func (c *Client) AcceptCredential(ctx context.Context, exchangeID string) (*Exchange, error) {
	ack, rec, err := c.service.CreateAck(exchangeID)
	if err != nil {
		return nil, fmt.Errorf("accept credential: %w", err)
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

// GetExchange returns a credential exchange.
func (c *Client) GetExchange(exchangeID string) (*Exchange, error) {
	return c.service.GetByID(exchangeID)
}

// GetExchanges returns the credential exchanges, filtered by state unless state is empty.
func (c *Client) GetExchanges(state issuecredential.State) ([]*Exchange, error) {
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

// RemoveExchange removes a credential exchange.
func (c *Client) RemoveExchange(exchangeID string) error {
	return c.service.DeleteByID(exchangeID)
}

// GetCredential returns a held credential.
func (c *Client) GetCredential(id string) (*Credential, error) {
	if c.wallet == nil {
		return nil, errNoWallet
	}

	return c.wallet.GetCredential(id)
}

// GetCredentials returns the held credentials.
func (c *Client) GetCredentials() ([]*Credential, error) {
	if c.wallet == nil {
		return nil, errNoWallet
	}

	return c.wallet.GetCredentials()
}

func (c *Client) send(ctx context.Context, rec *Exchange, payload interface{}) error {
	conn, err := c.connections.GetByID(rec.ConnectionID)
	if err != nil {
		return fmt.Errorf("connection of credential exchange %s: %w", rec.ID, err)
	}

	return c.sendOn(ctx, conn, payload)
}

func (c *Client) sendOn(ctx context.Context, conn *connection.Record, payload interface{}) error {
	if err := c.outbound.Send(ctx, &dispatcher.OutboundMessage{Connection: conn, Payload: payload}); err != nil {
		return fmt.Errorf("send to connection %s: %w", conn.ID, err)
	}

	return nil
}
