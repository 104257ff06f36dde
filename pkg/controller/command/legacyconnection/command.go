/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacyconnection

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
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
)

var logger = log.New("aries-agent/controller/legacy-connection")

// constants for endpoints of legacy-connection.
const (
	CommandName = "legacyconnection"

	// error messages.
	errEmptyConnID     = "empty connection ID"
	errEmptyInvitation = "empty invitation"

	CreateInvitationCommandMethod  = "CreateInvitation"
	ReceiveInvitationCommandMethod = "ReceiveInvitation"
	AcceptInvitationCommandMethod  = "AcceptInvitation"
	AcceptRequestCommandMethod     = "AcceptConnectionRequest"
	AcceptResponseCommandMethod    = "AcceptConnectionResponse"
	SendTrustPingCommandMethod     = "SendTrustPing"
	QueryConnectionByIDMethod      = "QueryConnectionByID"
	QueryConnectionsCommandMethod  = "QueryConnections"
	RemoveConnectionCommandMethod  = "RemoveConnection"

	// log constants.
	connectionIDString = "connectionID"
	successString      = "success"

	sendTimeout = 30 * time.Second
)

const (
	// InvalidRequestErrorCode is typically a code for validation errors
	// for invalid legacy-connection controller requests.
	InvalidRequestErrorCode = command.Code(iota + command.Connection)

	// CreateInvitationErrorCode is for failures in create invitation command.
	CreateInvitationErrorCode

	// ReceiveInvitationErrorCode is for failures in receive invitation command.
	ReceiveInvitationErrorCode

	// AcceptInvitationErrorCode is for failures in accept invitation command.
	AcceptInvitationErrorCode

	// AcceptConnectionRequestErrorCode is for failures in accept connection request command.
	AcceptConnectionRequestErrorCode

	// AcceptConnectionResponseErrorCode is for failures in accept connection response command.
	AcceptConnectionResponseErrorCode

	// SendTrustPingErrorCode is for failures in send trust ping command.
	SendTrustPingErrorCode

	// QueryConnectionsErrorCode is for failures in query connection command.
	QueryConnectionsErrorCode

	// RemoveConnectionErrorCode is for failures in remove connection command.
	RemoveConnectionErrorCode
)

// New returns new legacy-connection controller command instance.
func New(ctx legacyconnection.Provider) (*Command, error) {
	client, err := legacyconnection.New(ctx)
	if err != nil {
		return nil, err
	}

	return &Command{client: client}, nil
}

// Command is controller command for legacy-connection.
type Command struct {
	client *legacyconnection.Client
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, CreateInvitationCommandMethod, c.CreateInvitation),
		cmdutil.NewCommandHandler(CommandName, ReceiveInvitationCommandMethod, c.ReceiveInvitation),
		cmdutil.NewCommandHandler(CommandName, AcceptInvitationCommandMethod, c.AcceptInvitation),
		cmdutil.NewCommandHandler(CommandName, AcceptRequestCommandMethod, c.AcceptConnectionRequest),
		cmdutil.NewCommandHandler(CommandName, AcceptResponseCommandMethod, c.AcceptConnectionResponse),
		cmdutil.NewCommandHandler(CommandName, SendTrustPingCommandMethod, c.SendTrustPing),
		cmdutil.NewCommandHandler(CommandName, QueryConnectionByIDMethod, c.QueryConnectionByID),
		cmdutil.NewCommandHandler(CommandName, QueryConnectionsCommandMethod, c.QueryConnections),
		cmdutil.NewCommandHandler(CommandName, RemoveConnectionCommandMethod, c.RemoveConnection),
	}
}

// CreateInvitation Creates a new connection invitation.
func (c *Command) CreateInvitation(rw io.Writer, req io.Reader) command.Error {
	var request CreateInvitationArgs

	if err := json.NewDecoder(req).Decode(&request); err != nil {
		logutil.LogInfo(logger, CommandName, CreateInvitationCommandMethod, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	invitation, conn, err := c.client.CreateInvitation(&legacyconnection.Options{
		Alias:      request.Alias,
		Label:      request.Label,
		AutoAccept: request.AutoAccept,
	})
	if err != nil {
		logutil.LogError(logger, CommandName, CreateInvitationCommandMethod, err.Error())

		return command.NewExecuteError(CreateInvitationErrorCode, err)
	}

	command.WriteNillableResponse(rw, &CreateInvitationResponse{
		Invitation:   invitation,
		ConnectionID: conn.ID,
		Alias:        request.Alias,
	}, logger)

	logutil.LogDebug(logger, CommandName, CreateInvitationCommandMethod, successString,
		logutil.CreateKeyValueString(connectionIDString, conn.ID))

	return nil
}

// ReceiveInvitation receives a connection invitation and accepts it when the connection auto accepts.
func (c *Command) ReceiveInvitation(rw io.Writer, req io.Reader) command.Error {
	var request ReceiveInvitationArgs

	if err := json.NewDecoder(req).Decode(&request); err != nil {
		logutil.LogInfo(logger, CommandName, ReceiveInvitationCommandMethod, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if request.Invitation == nil {
		logutil.LogDebug(logger, CommandName, ReceiveInvitationCommandMethod, errEmptyInvitation)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyInvitation))
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	conn, err := c.client.ReceiveInvitation(ctx, request.Invitation, &legacyconnection.Options{
		Alias:      request.Alias,
		AutoAccept: request.AutoAccept,
	})
	if err != nil {
		logutil.LogError(logger, CommandName, ReceiveInvitationCommandMethod, err.Error(),
			logutil.CreateKeyValueString("invitationID", request.Invitation.ID))

		return command.NewExecuteError(ReceiveInvitationErrorCode, err)
	}

	command.WriteNillableResponse(rw, &ConnectionResponse{Result: conn}, logger)

	logutil.LogDebug(logger, CommandName, ReceiveInvitationCommandMethod, successString,
		logutil.CreateKeyValueString(connectionIDString, conn.ID))

	return nil
}

// AcceptInvitation accepts a stored connection invitation.
func (c *Command) AcceptInvitation(rw io.Writer, req io.Reader) command.Error {
	var request AcceptInvitationArgs

	if err := json.NewDecoder(req).Decode(&request); err != nil {
		logutil.LogInfo(logger, CommandName, AcceptInvitationCommandMethod, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if request.ID == "" {
		logutil.LogDebug(logger, CommandName, AcceptInvitationCommandMethod, errEmptyConnID)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyConnID))
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	conn, err := c.client.AcceptInvitation(ctx, request.ID, &legacyconnection.Options{Label: request.Label})
	if err != nil {
		logutil.LogError(logger, CommandName, AcceptInvitationCommandMethod, err.Error(),
			logutil.CreateKeyValueString(connectionIDString, request.ID))

		return command.NewExecuteError(AcceptInvitationErrorCode, err)
	}

	command.WriteNillableResponse(rw, &ConnectionResponse{Result: conn}, logger)

	logutil.LogDebug(logger, CommandName, AcceptInvitationCommandMethod, successString,
		logutil.CreateKeyValueString(connectionIDString, request.ID))

	return nil
}

// AcceptConnectionRequest accepts a stored connection request.
func (c *Command) AcceptConnectionRequest(rw io.Writer, req io.Reader) command.Error {
	return c.acceptStep(rw, req, AcceptRequestCommandMethod, AcceptConnectionRequestErrorCode,
		c.client.AcceptRequest)
}

// AcceptConnectionResponse acknowledges a received connection response.
func (c *Command) AcceptConnectionResponse(rw io.Writer, req io.Reader) command.Error {
	return c.acceptStep(rw, req, AcceptResponseCommandMethod, AcceptConnectionResponseErrorCode,
		c.client.AcceptResponse)
}

func (c *Command) acceptStep(rw io.Writer, req io.Reader, method string, code command.Code,
	accept func(context.Context, string) (*legacyconnection.Connection, error)) command.Error {
	var request ConnectionIDArg

	if err := json.NewDecoder(req).Decode(&request); err != nil {
		logutil.LogInfo(logger, CommandName, method, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if request.ID == "" {
		logutil.LogDebug(logger, CommandName, method, errEmptyConnID)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyConnID))
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	conn, err := accept(ctx, request.ID)
	if err != nil {
		logutil.LogError(logger, CommandName, method, err.Error(),
			logutil.CreateKeyValueString(connectionIDString, request.ID))

		return command.NewExecuteError(code, err)
	}

	command.WriteNillableResponse(rw, &ConnectionResponse{Result: conn}, logger)

	logutil.LogDebug(logger, CommandName, method, successString,
		logutil.CreateKeyValueString(connectionIDString, request.ID))

	return nil
}

// SendTrustPing sends a trust ping over a connection.
func (c *Command) SendTrustPing(rw io.Writer, req io.Reader) command.Error {
	var request TrustPingArgs

	if err := json.NewDecoder(req).Decode(&request); err != nil {
		logutil.LogInfo(logger, CommandName, SendTrustPingCommandMethod, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if request.ID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyConnID))
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := c.client.SendTrustPing(ctx, request.ID, request.ResponseRequested); err != nil {
		logutil.LogError(logger, CommandName, SendTrustPingCommandMethod, err.Error(),
			logutil.CreateKeyValueString(connectionIDString, request.ID))

		return command.NewExecuteError(SendTrustPingErrorCode, err)
	}

	command.WriteNillableResponse(rw, nil, logger)

	return nil
}

// QueryConnectionByID fetches a single connection record by connection ID.
func (c *Command) QueryConnectionByID(rw io.Writer, req io.Reader) command.Error {
	var request ConnectionIDArg

	if err := json.NewDecoder(req).Decode(&request); err != nil {
		logutil.LogInfo(logger, CommandName, QueryConnectionByIDMethod, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if request.ID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyConnID))
	}

	conn, err := c.client.GetConnection(request.ID)
	if err != nil {
		logutil.LogError(logger, CommandName, QueryConnectionByIDMethod, err.Error(),
			logutil.CreateKeyValueString(connectionIDString, request.ID))

		return command.NewExecuteError(QueryConnectionsErrorCode, err)
	}

	command.WriteNillableResponse(rw, &ConnectionResponse{Result: conn}, logger)

	return nil
}

// QueryConnections queries agent to agent connections.
func (c *Command) QueryConnections(rw io.Writer, req io.Reader) command.Error {
	var request QueryConnectionsArgs

	if err := json.NewDecoder(req).Decode(&request); err != nil {
		logutil.LogInfo(logger, CommandName, QueryConnectionsCommandMethod, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	results, err := c.client.QueryConnections(connection.State(request.State))
	if err != nil {
		logutil.LogError(logger, CommandName, QueryConnectionsCommandMethod, err.Error())

		return command.NewExecuteError(QueryConnectionsErrorCode, err)
	}

	command.WriteNillableResponse(rw, &QueryConnectionsResponse{Results: results}, logger)

	logutil.LogDebug(logger, CommandName, QueryConnectionsCommandMethod, successString)

	return nil
}

// RemoveConnection removes given connection record.
func (c *Command) RemoveConnection(rw io.Writer, req io.Reader) command.Error {
	var request ConnectionIDArg

	if err := json.NewDecoder(req).Decode(&request); err != nil {
		logutil.LogInfo(logger, CommandName, RemoveConnectionCommandMethod, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if request.ID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyConnID))
	}

	if err := c.client.RemoveConnection(request.ID); err != nil {
		logutil.LogError(logger, CommandName, RemoveConnectionCommandMethod, err.Error(),
			logutil.CreateKeyValueString(connectionIDString, request.ID))

		return command.NewExecuteError(RemoveConnectionErrorCode, err)
	}

	command.WriteNillableResponse(rw, nil, logger)

	logutil.LogDebug(logger, CommandName, RemoveConnectionCommandMethod, successString,
		logutil.CreateKeyValueString(connectionIDString, request.ID))

	return nil
}
