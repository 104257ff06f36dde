/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package legacyconnection exposes the connection protocol over REST.
package legacyconnection

import (
	"fmt"
	"net/http"

	client "github.com/hyperledger/aries-agent-go/pkg/client/legacyconnection"
	command "github.com/hyperledger/aries-agent-go/pkg/controller/command/legacyconnection"
	"github.com/hyperledger/aries-agent-go/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-agent-go/pkg/controller/rest"
)

const (
	operationID           = "/connections"
	createInvitationPath  = operationID + "/create-invitation"
	receiveInvitationPath = operationID + "/receive-invitation"
	acceptInvitationPath  = operationID + "/{id}/accept-invitation"
	acceptRequestPath     = operationID + "/{id}/accept-request"
	acceptResponsePath    = operationID + "/{id}/accept-response"
	trustPingPath         = operationID + "/{id}/trust-ping"
	connections           = operationID
	connectionsByID       = operationID + "/{id}"
	removeConnection      = operationID + "/{id}/remove"
)

// Operation is controller REST service controller for connections.
type Operation struct {
	command  *command.Command
	handlers []rest.Handler
}

// New returns new connection rest client protocol instance.
func New(ctx client.Provider) (*Operation, error) {
	cmd, err := command.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create legacy-connection command : %w", err)
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
		cmdutil.NewHTTPHandler(connections, http.MethodGet, c.QueryConnections),
		cmdutil.NewHTTPHandler(connectionsByID, http.MethodGet, c.QueryConnectionByID),
		cmdutil.NewHTTPHandler(createInvitationPath, http.MethodPost, c.CreateInvitation),
		cmdutil.NewHTTPHandler(receiveInvitationPath, http.MethodPost, c.ReceiveInvitation),
		cmdutil.NewHTTPHandler(acceptInvitationPath, http.MethodPost, c.AcceptInvitation),
		cmdutil.NewHTTPHandler(acceptRequestPath, http.MethodPost, c.AcceptConnectionRequest),
		cmdutil.NewHTTPHandler(acceptResponsePath, http.MethodPost, c.AcceptConnectionResponse),
		cmdutil.NewHTTPHandler(trustPingPath, http.MethodPost, c.SendTrustPing),
		cmdutil.NewHTTPHandler(removeConnection, http.MethodPost, c.RemoveConnection),
	}
}

// CreateInvitation swagger:route POST /connections/create-invitation legacy-connection createInvitation
//
// Creates a new connection invitation....
func (c *Operation) CreateInvitation(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CreateInvitation, rw, req.Body)
}

// ReceiveInvitation swagger:route POST /connections/receive-invitation legacy-connection receiveInvitation
//
// Receive a new connection invitation....
func (c *Operation) ReceiveInvitation(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.ReceiveInvitation, rw, req.Body)
}

// AcceptInvitation swagger:route POST /connections/{id}/accept-invitation legacy-connection acceptInvitation
//
// Accept a stored connection invitation....
func (c *Operation) AcceptInvitation(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.AcceptInvitation, rw, req, "id")
}

// AcceptConnectionRequest swagger:route POST /connections/{id}/accept-request legacy-connection acceptRequest
//
// Accepts a stored connection request.
func (c *Operation) AcceptConnectionRequest(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.AcceptConnectionRequest, rw, req, "id")
}

// AcceptConnectionResponse swagger:route POST /connections/{id}/accept-response legacy-connection acceptResponse
//
// Acknowledges a received connection response.
func (c *Operation) AcceptConnectionResponse(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.AcceptConnectionResponse, rw, req, "id")
}

// SendTrustPing swagger:route POST /connections/{id}/trust-ping legacy-connection trustPing
//
// Sends a trust ping over a connection.
func (c *Operation) SendTrustPing(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.SendTrustPing, rw, req, "id")
}

// QueryConnections swagger:route GET /connections legacy-connection queryConnections
//
// query agent to agent connections.
func (c *Operation) QueryConnections(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithQuery(c.command.QueryConnections, rw, req, "state")
}

// QueryConnectionByID swagger:route GET /connections/{id} legacy-connection getConnection
//
// Fetch a single connection record.
func (c *Operation) QueryConnectionByID(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.QueryConnectionByID, rw, req, "id")
}

// RemoveConnection swagger:route POST /connections/{id}/remove legacy-connection removeConnection
//
// Removes given connection record.
func (c *Operation) RemoveConnection(rw http.ResponseWriter, req *http.Request) {
	rest.ExecuteWithPathVars(c.command.RemoveConnection, rw, req, "id")
}
