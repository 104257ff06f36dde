/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package tenant exposes tenant management over REST.
package tenant

import (
	"fmt"
	"net/http"

	"github.com/hyperledger/aries-agent-go/pkg/controller/command"
	tenantcmd "github.com/hyperledger/aries-agent-go/pkg/controller/command/tenant"
	"github.com/hyperledger/aries-agent-go/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-agent-go/pkg/controller/rest"
	"github.com/hyperledger/aries-agent-go/pkg/tenant"
)

// constants for tenant operations.
const (
	OperationID           = "/tenants"
	TenantPath            = OperationID + "/{id}"
	CreateInvitationPath  = TenantPath + "/create-invitation"
	ReceiveInvitationPath = TenantPath + "/receive-invitation"
	ConnectionsPath       = TenantPath + "/connections"
)

// Operation is controller REST service controller for tenants.
type Operation[C tenantcmd.Agent] struct {
	command  *tenantcmd.Command[C]
	handlers []rest.Handler
}

// New returns new tenant rest operation instance.
func New[C tenantcmd.Agent](tenants *tenant.Client[C]) (*Operation[C], error) {
	cmd, err := tenantcmd.New(tenants)
	if err != nil {
		return nil, fmt.Errorf("tenant command : %w", err)
	}

	o := &Operation[C]{command: cmd}
	o.registerHandler()

	return o, nil
}

// GetRESTHandlers get all controller API handler available for tenants.
func (c *Operation[C]) GetRESTHandlers() []rest.Handler {
	return c.handlers
}

func (c *Operation[C]) registerHandler() {
	c.handlers = []rest.Handler{
		cmdutil.NewHTTPHandler(OperationID, http.MethodPost, c.CreateTenant),
		cmdutil.NewHTTPHandler(OperationID, http.MethodGet, c.GetTenants),
		cmdutil.NewHTTPHandler(TenantPath, http.MethodGet, c.GetTenant),
		cmdutil.NewHTTPHandler(TenantPath, http.MethodDelete, c.DeleteTenant),
		cmdutil.NewHTTPHandler(CreateInvitationPath, http.MethodPost, c.CreateInvitation),
		cmdutil.NewHTTPHandler(ReceiveInvitationPath, http.MethodPost, c.ReceiveInvitation),
		cmdutil.NewHTTPHandler(ConnectionsPath, http.MethodGet, c.QueryConnections),
	}
}

// CreateTenant swagger:route POST /tenants tenant createTenant
//
// Creates a tenant with its own wallet.
func (c *Operation[C]) CreateTenant(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.CreateTenant, rw, req.Body)
}

// GetTenants swagger:route GET /tenants tenant getTenants
//
// Lists tenants.
func (c *Operation[C]) GetTenants(rw http.ResponseWriter, req *http.Request) {
	rest.Execute(c.command.GetTenants, rw, req.Body)
}

// GetTenant swagger:route GET /tenants/{id} tenant getTenant
//
// Fetches a tenant.
func (c *Operation[C]) GetTenant(rw http.ResponseWriter, req *http.Request) {
	executeForTenant(c.command.GetTenant, rw, req)
}

// DeleteTenant swagger:route DELETE /tenants/{id} tenant deleteTenant
//
// Deletes a tenant and its wallet.
func (c *Operation[C]) DeleteTenant(rw http.ResponseWriter, req *http.Request) {
	executeForTenant(c.command.DeleteTenant, rw, req)
}

// CreateInvitation swagger:route POST /tenants/{id}/create-invitation tenant tenantCreateInvitation
//
// Creates a connection invitation from the tenant's agent.
func (c *Operation[C]) CreateInvitation(rw http.ResponseWriter, req *http.Request) {
	executeForTenant(c.command.CreateInvitation, rw, req)
}

// ReceiveInvitation swagger:route POST /tenants/{id}/receive-invitation tenant tenantReceiveInvitation
//
// Receives a connection invitation into the tenant's agent.
func (c *Operation[C]) ReceiveInvitation(rw http.ResponseWriter, req *http.Request) {
	executeForTenant(c.command.ReceiveInvitation, rw, req)
}

// QueryConnections swagger:route GET /tenants/{id}/connections tenant tenantConnections
//
// Lists the connections of the tenant's agent.
func (c *Operation[C]) QueryConnections(rw http.ResponseWriter, req *http.Request) {
	executeForTenant(c.command.QueryConnections, rw, req)
}

func executeForTenant(exec command.Exec, rw http.ResponseWriter, req *http.Request) {
	body, err := rest.WithPathVars(req, "id")
	if err != nil {
		rest.SendHTTPStatusError(rw, http.StatusBadRequest, tenantcmd.InvalidRequestErrorCode, err)

		return
	}

	rw.Header().Set("Content-Type", "application/json")

	if cmdErr := exec(rw, body); cmdErr != nil {
		if cmdErr.Code() == tenantcmd.TenantNotFoundErrorCode {
			rest.SendHTTPStatusError(rw, http.StatusNotFound, cmdErr.Code(), cmdErr)

			return
		}

		rest.SendError(rw, cmdErr)
	}
}
