/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package presentproof exposes the present proof protocol over REST.
package presentproof

import (
	"fmt"
	"net/http"

	client "github.com/hyperledger/aries-agent-go/pkg/client/presentproof"
	command "github.com/hyperledger/aries-agent-go/pkg/controller/command/presentproof"
	"github.com/hyperledger/aries-agent-go/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-agent-go/pkg/controller/rest"
)

// constants for the present proof operations.
const (
	OperationID                      = "/presentproof"
	SendRequestPresentationPath      = OperationID + "/send-request-presentation"
	SendProposePresentationPath      = OperationID + "/send-propose-presentation"
	AcceptProposePresentationPath    = OperationID + "/{piid}/accept-propose-presentation"
	NegotiateRequestPresentationPath = OperationID + "/{piid}/negotiate-request-presentation"
	RequestedCredentialsPath         = OperationID + "/{piid}/requested-credentials"
	AcceptRequestPresentationPath    = OperationID + "/{piid}/accept-request-presentation"
	AcceptPresentationPath           = OperationID + "/{piid}/accept-presentation"
	DeclinePath                      = OperationID + "/{piid}/decline"
	ExchangesPath                    = OperationID + "/exchanges"
	ExchangePath                     = ExchangesPath + "/{piid}"
	RemoveExchangePath               = ExchangePath + "/remove"

	piid = "piid"
)

// Operation is controller REST service controller for present proof.
type Operation struct {
	command  *command.Command
	handlers []rest.Handler
}

// New returns new present proof rest client protocol instance.
func New(ctx client.Provider) (*Operation, error) {
	cmd, err := command.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("present proof command : %w", err)
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
		cmdutil.NewHTTPHandler(SendRequestPresentationPath, http.MethodPost, c.SendRequestPresentation),
		cmdutil.NewHTTPHandler(SendProposePresentationPath, http.MethodPost, c.SendProposePresentation),
		cmdutil.NewHTTPHandler(AcceptProposePresentationPath, http.MethodPost, c.AcceptProposePresentation),
		cmdutil.NewHTTPHandler(NegotiateRequestPresentationPath, http.MethodPost, c.NegotiateRequestPresentation),
		cmdutil.NewHTTPHandler(RequestedCredentialsPath, http.MethodGet, c.RequestedCredentials),
		cmdutil.NewHTTPHandler(AcceptRequestPresentationPath, http.MethodPost, c.AcceptRequestPresentation),
		cmdutil.NewHTTPHandler(AcceptPresentationPath, http.MethodPost, c.AcceptPresentation),
		cmdutil.NewHTTPHandler(DeclinePath, http.MethodPost, c.Decline),
		cmdutil.NewHTTPHandler(ExchangesPath, http.MethodGet, c.GetExchanges),
		cmdutil.NewHTTPHandler(ExchangePath, http.MethodGet, c.GetExchange),
		cmdutil.NewHTTPHandler(RemoveExchangePath, http.MethodPost, c.RemoveExchange),
	}
}

// SendRequestPresentation swagger:route POST /presentproof/send-request-presentation present-proof presentProofSendRequestPresentation
//
// Sends a request presentation.
func (c *Operation) SendRequestPresentation(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.SendRequestPresentation, rw, req.Body)
}

// SendProposePresentation swagger:route POST /presentproof/send-propose-presentation present-proof presentProofSendProposePresentation
//
// Sends a propose presentation.
func (c *Operation) SendProposePresentation(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.SendProposePresentation, rw, req.Body)
}

// AcceptProposePresentation swagger:route POST /presentproof/{piid}/accept-propose-presentation present-proof presentProofAcceptProposePresentation
//
// Accepts a propose presentation by sending a request.
func (c *Operation) AcceptProposePresentation(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.AcceptProposePresentation, rw, req, piid)
}

// NegotiateRequestPresentation swagger:route POST /presentproof/{piid}/negotiate-request-presentation present-proof presentProofNegotiateRequestPresentation
//
// Answers a request presentation with a counter proposal.
func (c *Operation) NegotiateRequestPresentation(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.NegotiateRequestPresentation, rw, req, piid)
}

// RequestedCredentials swagger:route GET /presentproof/{piid}/requested-credentials present-proof presentProofRequestedCredentials
//
// Selects held credentials that satisfy a received request.
func (c *Operation) RequestedCredentials(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.RequestedCredentials, rw, req, piid)
}

// AcceptRequestPresentation swagger:route POST /presentproof/{piid}/accept-request-presentation present-proof presentProofAcceptRequestPresentation
//
// Accepts a request presentation by sending a presentation.
func (c *Operation) AcceptRequestPresentation(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.AcceptRequestPresentation, rw, req, piid)
}

// AcceptPresentation swagger:route POST /presentproof/{piid}/accept-presentation present-proof presentProofAcceptPresentation
//
// Acknowledges a verified presentation.
func (c *Operation) AcceptPresentation(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.AcceptPresentation, rw, req, piid)
}

// Decline swagger:route POST /presentproof/{piid}/decline present-proof presentProofDecline
//
// Abandons an exchange.
func (c *Operation) Decline(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.Decline, rw, req, piid)
}

// GetExchanges swagger:route GET /presentproof/exchanges present-proof presentProofExchanges
//
// Lists exchanges, optionally filtered by state.
func (c *Operation) GetExchanges(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithQuery(c.command.GetExchanges, rw, req, "state")
}

// GetExchange swagger:route GET /presentproof/exchanges/{piid} present-proof presentProofExchange
//
// Fetches a single exchange.
func (c *Operation) GetExchange(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.GetExchange, rw, req, piid)
}

// RemoveExchange swagger:route POST /presentproof/exchanges/{piid}/remove present-proof presentProofRemoveExchange
//
// Removes an exchange record.
func (c *Operation) RemoveExchange(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.RemoveExchange, rw, req, piid)
}
