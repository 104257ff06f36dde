/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package tenant provides controller commands managing the tenants of a multi-tenant agent.
package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-agent-go/pkg/client/legacyconnection"
	"github.com/hyperledger/aries-agent-go/pkg/controller/command"
	"github.com/hyperledger/aries-agent-go/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-agent-go/pkg/internal/logutil"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
	"github.com/hyperledger/aries-agent-go/pkg/tenant"
)

var logger = log.New("aries-agent/controller/tenant")

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.Tenant)
	// CreateTenantErrorCode is for failures in create tenant command.
	CreateTenantErrorCode
	// GetTenantErrorCode is for failures in tenant queries.
	GetTenantErrorCode
	// DeleteTenantErrorCode is for failures in delete tenant command.
	DeleteTenantErrorCode
	// TenantNotFoundErrorCode is returned when the tenant does not exist.
	TenantNotFoundErrorCode
	// TenantConnectionErrorCode is for failures of connection commands run by a tenant.
	TenantConnectionErrorCode
)

// constants for tenant commands.
const (
	CommandName = "tenant"

	CreateTenant           = "CreateTenant"
	GetTenant              = "GetTenant"
	GetTenants             = "GetTenants"
	DeleteTenant           = "DeleteTenant"
	CreateInvitation       = "CreateInvitation"
	ReceiveInvitation      = "ReceiveInvitation"
	QueryTenantConnections = "QueryConnections"

	// error messages.
	errEmptyTenantID   = "empty tenant ID"
	errEmptyInvitation = "empty invitation"

	// log constants.
	tenantIDString = "tenantID"
	successString  = "success"

	tenantOperationTimeout = 30 * time.Second
)

// Agent is the agent context of a tenant.
type Agent interface {
	tenant.AgentContext
	legacyconnection.Provider
}

// Command is controller command for tenants.
type Command[C Agent] struct {
	tenants *tenant.Client[C]
}

// New returns new tenant controller command instance.
func New[C Agent](tenants *tenant.Client[C]) (*Command[C], error) {
	if tenants == nil {
		return nil, errors.New("tenant client is not available")
	}

	return &Command[C]{tenants: tenants}, nil
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command[C]) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, CreateTenant, c.CreateTenant),
		cmdutil.NewCommandHandler(CommandName, GetTenant, c.GetTenant),
		cmdutil.NewCommandHandler(CommandName, GetTenants, c.GetTenants),
		cmdutil.NewCommandHandler(CommandName, DeleteTenant, c.DeleteTenant),
		cmdutil.NewCommandHandler(CommandName, CreateInvitation, c.CreateInvitation),
		cmdutil.NewCommandHandler(CommandName, ReceiveInvitation, c.ReceiveInvitation),
		cmdutil.NewCommandHandler(CommandName, QueryTenantConnections, c.QueryConnections),
	}
}

// CreateTenant creates a tenant and provisions its agent.
func (c *Command[C]) CreateTenant(rw io.Writer, req io.Reader) command.Error {
	var args CreateTenantArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, CreateTenant, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), tenantOperationTimeout)
	defer cancel()

	rec, err := c.tenants.CreateTenant(ctx, args.Label)
	if err != nil {
		logutil.LogError(logger, CommandName, CreateTenant, err.Error())

		return command.NewExecuteError(CreateTenantErrorCode, err)
	}

	command.WriteNillableResponse(rw, &TenantResponse{Result: rec}, logger)

	logutil.LogDebug(logger, CommandName, CreateTenant, successString,
		logutil.CreateKeyValueString(tenantIDString, rec.ID))

	return nil
}

// GetTenant returns a tenant.
func (c *Command[C]) GetTenant(rw io.Writer, req io.Reader) command.Error {
	args, cmdErr := decodeTenantID(req, GetTenant)
	if cmdErr != nil {
		return cmdErr
	}

	rec, err := c.tenants.GetTenant(args.ID)
	if err != nil {
		logutil.LogError(logger, CommandName, GetTenant, err.Error(),
			logutil.CreateKeyValueString(tenantIDString, args.ID))

		return tenantError(GetTenantErrorCode, err)
	}

	command.WriteNillableResponse(rw, &TenantResponse{Result: rec}, logger)

	return nil
}

// GetTenants returns every tenant.
func (c *Command[C]) GetTenants(rw io.Writer, _ io.Reader) command.Error {
	records, err := c.tenants.GetTenants()
	if err != nil {
		logutil.LogError(logger, CommandName, GetTenants, err.Error())

		return command.NewExecuteError(GetTenantErrorCode, err)
	}

	command.WriteNillableResponse(rw, &TenantsResponse{Results: records}, logger)

	return nil
}

// DeleteTenant deletes a tenant together with its agent data.
func (c *Command[C]) DeleteTenant(rw io.Writer, req io.Reader) command.Error {
	args, cmdErr := decodeTenantID(req, DeleteTenant)
	if cmdErr != nil {
		return cmdErr
	}

	ctx, cancel := context.WithTimeout(context.Background(), tenantOperationTimeout)
	defer cancel()

	if err := c.tenants.DeleteTenant(ctx, args.ID); err != nil {
		logutil.LogError(logger, CommandName, DeleteTenant, err.Error(),
			logutil.CreateKeyValueString(tenantIDString, args.ID))

		return tenantError(DeleteTenantErrorCode, err)
	}

	command.WriteNillableResponse(rw, nil, logger)

	logutil.LogDebug(logger, CommandName, DeleteTenant, successString,
		logutil.CreateKeyValueString(tenantIDString, args.ID))

	return nil
}

// CreateInvitation creates a connection invitation from the tenant's agent.
func (c *Command[C]) CreateInvitation(rw io.Writer, req io.Reader) command.Error {
	var args CreateInvitationArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, CreateInvitation, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.ID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyTenantID))
	}

	var response CreateInvitationResponse

	err := c.withConnections(args.ID, func(_ context.Context, connections *legacyconnection.Client) error {
		invitation, conn, err := connections.CreateInvitation(&legacyconnection.Options{
			Alias:      args.Alias,
			AutoAccept: args.AutoAccept,
		})
		if err != nil {
			return err
		}

		response = CreateInvitationResponse{Invitation: invitation, ConnectionID: conn.ID}

		return nil
	})
	if err != nil {
		logutil.LogError(logger, CommandName, CreateInvitation, err.Error(),
			logutil.CreateKeyValueString(tenantIDString, args.ID))

		return tenantError(TenantConnectionErrorCode, err)
	}

	command.WriteNillableResponse(rw, &response, logger)

	return nil
}

// ReceiveInvitation receives a connection invitation with the tenant's agent.
func (c *Command[C]) ReceiveInvitation(rw io.Writer, req io.Reader) command.Error {
	var args ReceiveInvitationArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, ReceiveInvitation, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.ID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyTenantID))
	}

	if args.Invitation == nil {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyInvitation))
	}

	var conn *legacyconnection.Connection

	err := c.withConnections(args.ID, func(ctx context.Context, connections *legacyconnection.Client) error {
		var err error

		conn, err = connections.ReceiveInvitation(ctx, args.Invitation, &legacyconnection.Options{
			Alias:      args.Alias,
			AutoAccept: args.AutoAccept,
		})

		return err
	})
	if err != nil {
		logutil.LogError(logger, CommandName, ReceiveInvitation, err.Error(),
			logutil.CreateKeyValueString(tenantIDString, args.ID))

		return tenantError(TenantConnectionErrorCode, err)
	}

	command.WriteNillableResponse(rw, &ConnectionResponse{Result: conn}, logger)

	return nil
}

// QueryConnections returns the connections of the tenant's agent.
func (c *Command[C]) QueryConnections(rw io.Writer, req io.Reader) command.Error {
	args, cmdErr := decodeTenantID(req, QueryTenantConnections)
	if cmdErr != nil {
		return cmdErr
	}

	var results []*legacyconnection.Connection

	err := c.withConnections(args.ID, func(_ context.Context, connections *legacyconnection.Client) error {
		var err error

		results, err = connections.QueryConnections("")

		return err
	})
	if err != nil {
		logutil.LogError(logger, CommandName, QueryTenantConnections, err.Error(),
			logutil.CreateKeyValueString(tenantIDString, args.ID))

		return tenantError(TenantConnectionErrorCode, err)
	}

	command.WriteNillableResponse(rw, &ConnectionsResponse{Results: results}, logger)

	return nil
}

func (c *Command[C]) withConnections(tenantID string,
	fn func(ctx context.Context, connections *legacyconnection.Client) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), tenantOperationTimeout)
	defer cancel()

	return c.tenants.WithTenantAgent(ctx, tenantID, func(agent C) error {
		connections, err := legacyconnection.New(agent)
		if err != nil {
			return err
		}

		return fn(ctx, connections)
	})
}

func decodeTenantID(req io.Reader, method string) (*TenantIDArgs, command.Error) {
	var args TenantIDArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, method, err.Error())

		return nil, command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.ID == "" {
		logutil.LogDebug(logger, CommandName, method, errEmptyTenantID)

		return nil, command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyTenantID))
	}

	return &args, nil
}

// tenantError reports unknown tenants with their own code.
func tenantError(code command.Code, err error) command.Error {
	if record.IsNotFound(err) {
		return command.NewExecuteError(TenantNotFoundErrorCode, err)
	}

	return command.NewExecuteError(code, err)
}
