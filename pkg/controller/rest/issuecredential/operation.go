/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package issuecredential exposes the issue credential protocol over REST.
package issuecredential

import (
	"fmt"
	"net/http"

	client "github.com/hyperledger/aries-agent-go/pkg/client/issuecredential"
	command "github.com/hyperledger/aries-agent-go/pkg/controller/command/issuecredential"
	"github.com/hyperledger/aries-agent-go/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-agent-go/pkg/controller/rest"
)

// constants for issue credential operations.
const (
	OperationID                    = "/issuecredential"
	CreateCredentialDefinitionPath = OperationID + "/credential-definitions"
	SendProposalPath               = OperationID + "/send-proposal"
	SendOfferPath                  = OperationID + "/send-offer"
	AcceptProposalPath             = OperationID + "/{piid}/accept-proposal"
	NegotiateOfferPath             = OperationID + "/{piid}/negotiate-offer"
	AcceptOfferPath                = OperationID + "/{piid}/accept-offer"
	AcceptRequestPath              = OperationID + "/{piid}/accept-request"
	AcceptCredentialPath           = OperationID + "/{piid}/accept-credential"
	DeclinePath                    = OperationID + "/{piid}/decline"
	ExchangesPath                  = OperationID + "/exchanges"
	ExchangePath                   = ExchangesPath + "/{piid}"
	RemoveExchangePath             = ExchangePath + "/remove"
	CredentialsPath                = OperationID + "/credentials"
	CredentialPath                 = CredentialsPath + "/{id}"

	piid = "piid"
)

// Operation is controller REST service controller for issue credential.
type Operation struct {
	command  *command.Command
	handlers []rest.Handler
}

// New returns new issue credential rest client protocol instance.
func New(ctx client.Provider) (*Operation, error) {
	cmd, err := command.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("issue credential command : %w", err)
	}

	o := &Operation{command: cmd}
	o.registerHandler()

	return o, nil
}

// GetRESTHandlers get all controller API handler available for this protocol service.
func (c *Operation) GetRESTHandlers() []rest.Handler {
	return c.handlers
}

// registerHandler register handlers to be exposed from this protocol service as REST API endpoints.
func (c *Operation) registerHandler() {
	c.handlers = []rest.Handler{
		cmdutil.NewHTTPHandler(CreateCredentialDefinitionPath, http.MethodPost, c.CreateCredentialDefinition),
		cmdutil.NewHTTPHandler(SendProposalPath, http.MethodPost, c.SendProposal),
		cmdutil.NewHTTPHandler(SendOfferPath, http.MethodPost, c.SendOffer),
		cmdutil.NewHTTPHandler(AcceptProposalPath, http.MethodPost, c.AcceptProposal),
		cmdutil.NewHTTPHandler(NegotiateOfferPath, http.MethodPost, c.NegotiateOffer),
		cmdutil.NewHTTPHandler(AcceptOfferPath, http.MethodPost, c.AcceptOffer),
		cmdutil.NewHTTPHandler(AcceptRequestPath, http.MethodPost, c.AcceptRequest),
		cmdutil.NewHTTPHandler(AcceptCredentialPath, http.MethodPost, c.AcceptCredential),
		cmdutil.NewHTTPHandler(DeclinePath, http.MethodPost, c.Decline),
		cmdutil.NewHTTPHandler(ExchangesPath, http.MethodGet, c.GetExchanges),
		cmdutil.NewHTTPHandler(ExchangePath, http.MethodGet, c.GetExchange),
		cmdutil.NewHTTPHandler(RemoveExchangePath, http.MethodPost, c.RemoveExchange),
		cmdutil.NewHTTPHandler(CredentialsPath, http.MethodGet, c.GetCredentials),
		cmdutil.NewHTTPHandler(CredentialPath, http.MethodGet, c.GetCredential),
	}
}

// CreateCredentialDefinition swagger:route POST /issuecredential/credential-definitions issue-credential issueCredentialCreateCredDef
//
// Creates a credential definition for a schema.
func (c *Operation) CreateCredentialDefinition(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CreateCredentialDefinition, rw, req.Body)
}

// SendProposal swagger:route POST /issuecredential/send-proposal issue-credential issueCredentialSendProposal
//
// Sends a credential proposal.
func (c *Operation) SendProposal(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.SendProposal, rw, req.Body)
}

// SendOffer swagger:route POST /issuecredential/send-offer issue-credential issueCredentialSendOffer
//
// Sends a credential offer.
func (c *Operation) SendOffer(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.SendOffer, rw, req.Body)
}

// AcceptProposal swagger:route POST /issuecredential/{piid}/accept-proposal issue-credential issueCredentialAcceptProposal
//
// Accepts a proposal by sending an offer.
func (c *Operation) AcceptProposal(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.AcceptProposal, rw, req, piid)
}

// NegotiateOffer swagger:route POST /issuecredential/{piid}/negotiate-offer issue-credential issueCredentialNegotiateOffer
//
// Answers an offer with a counter proposal.
func (c *Operation) NegotiateOffer(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.NegotiateOffer, rw, req, piid)
}

// AcceptOffer swagger:route POST /issuecredential/{piid}/accept-offer issue-credential issueCredentialAcceptOffer
//
// Accepts an offer by sending a request.
func (c *Operation) AcceptOffer(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.AcceptOffer, rw, req, piid)
}

// AcceptRequest swagger:route POST /issuecredential/{piid}/accept-request issue-credential issueCredentialAcceptRequest
//
// Issues the requested credential.
func (c *Operation) AcceptRequest(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.AcceptRequest, rw, req, piid)
}

// AcceptCredential swagger:route POST /issuecredential/{piid}/accept-credential issue-credential issueCredentialAcceptCredential
//
// Stores a received credential and acknowledges it.
func (c *Operation) AcceptCredential(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.AcceptCredential, rw, req, piid)
}

// Decline swagger:route POST /issuecredential/{piid}/decline issue-credential issueCredentialDecline
//
// Abandons an exchange.
func (c *Operation) Decline(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.Decline, rw, req, piid)
}

// GetExchanges swagger:route GET /issuecredential/exchanges issue-credential issueCredentialExchanges
//
// Lists exchanges, optionally filtered by state.
func (c *Operation) GetExchanges(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithQuery(c.command.GetExchanges, rw, req, "state")
}

// GetExchange swagger:route GET /issuecredential/exchanges/{piid} issue-credential issueCredentialExchange
//
// Fetches a single exchange.
func (c *Operation) GetExchange(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.GetExchange, rw, req, piid)
}

// RemoveExchange swagger:route POST /issuecredential/exchanges/{piid}/remove issue-credential issueCredentialRemoveExchange
//
// Removes an exchange record.
func (c *Operation) RemoveExchange(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.RemoveExchange, rw, req, piid)
}

// GetCredentials swagger:route GET /issuecredential/credentials issue-credential issueCredentialCredentials
//
// Lists held credentials.
func (c *Operation) GetCredentials(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.GetCredentials, rw, req.Body)
}

// GetCredential swagger:route GET /issuecredential/credentials/{id} issue-credential issueCredentialCredential
//
// Fetches a held credential.
func (c *Operation) GetCredential(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.GetCredential, rw, req, "id")
}
