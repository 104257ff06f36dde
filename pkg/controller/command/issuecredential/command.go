/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"

	client "github.com/hyperledger/aries-agent-go/pkg/client/issuecredential"
	"github.com/hyperledger/aries-agent-go/pkg/controller/command"
	"github.com/hyperledger/aries-agent-go/pkg/controller/internal/cmdutil"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/exchange"
	protocol "github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-agent-go/pkg/internal/logutil"
)

var logger = log.New("aries-agent/controller/issuecredential")

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.IssueCredential)
	// CreateCredentialDefinitionErrorCode is for failures in create credential definition command.
	CreateCredentialDefinitionErrorCode
	// SendProposalErrorCode is for failures in send proposal command.
	SendProposalErrorCode
	// SendOfferErrorCode is for failures in send offer command.
	SendOfferErrorCode
	// AcceptProposalErrorCode is for failures in accept proposal command.
	AcceptProposalErrorCode
	// NegotiateOfferErrorCode is for failures in negotiate offer command.
	NegotiateOfferErrorCode
	// AcceptOfferErrorCode is for failures in accept offer command.
	AcceptOfferErrorCode
	// AcceptRequestErrorCode is for failures in accept request command.
	AcceptRequestErrorCode
	// AcceptCredentialErrorCode is for failures in accept credential command.
	AcceptCredentialErrorCode
	// DeclineErrorCode is for failures in decline command.
	DeclineErrorCode
	// GetExchangesErrorCode is for failures in exchange queries.
	GetExchangesErrorCode
	// RemoveExchangeErrorCode is for failures in remove exchange command.
	RemoveExchangeErrorCode
	// GetCredentialsErrorCode is for failures in credential queries.
	GetCredentialsErrorCode
)

// constants for issue credential commands.
const (
	// command name.
	CommandName = "issuecredential"

	CreateCredentialDefinition = "CreateCredentialDefinition"
	SendProposal               = "SendProposal"
	SendOffer                  = "SendOffer"
	AcceptProposal             = "AcceptProposal"
	NegotiateOffer             = "NegotiateOffer"
	AcceptOffer                = "AcceptOffer"
	AcceptRequest              = "AcceptRequest"
	AcceptCredential           = "AcceptCredential"
	Decline                    = "Decline"
	GetExchange                = "GetExchange"
	GetExchanges               = "GetExchanges"
	RemoveExchange             = "RemoveExchange"
	GetCredential              = "GetCredential"
	GetCredentials             = "GetCredentials"

	// error messages.
	errEmptySchemaID     = "empty schema ID"
	errEmptyConnectionID = "empty connection ID"
	errEmptyCredDefID    = "empty credential definition ID"
	errEmptyPIID         = "empty PIID"
	errEmptyCredentialID = "empty credential ID"

	// log constants.
	piidString    = "piid"
	successString = "success"

	sendTimeout = 30 * time.Second
)

// Command is controller command for issue credential.
type Command struct {
	client *client.Client
}

// New returns new issue credential controller command instance.
func New(ctx client.Provider) (*Command, error) {
	c, err := client.New(ctx)
	if err != nil {
		return nil, err
	}

	return &Command{client: c}, nil
}

// GetHandlers returns list of all commands supported by this controller command.
func (c *Command) GetHandlers() []command.Handler {
	return []command.Handler{
		cmdutil.NewCommandHandler(CommandName, CreateCredentialDefinition, c.CreateCredentialDefinition),
		cmdutil.NewCommandHandler(CommandName, SendProposal, c.SendProposal),
		cmdutil.NewCommandHandler(CommandName, SendOffer, c.SendOffer),
		cmdutil.NewCommandHandler(CommandName, AcceptProposal, c.AcceptProposal),
		cmdutil.NewCommandHandler(CommandName, NegotiateOffer, c.NegotiateOffer),
		cmdutil.NewCommandHandler(CommandName, AcceptOffer, c.AcceptOffer),
		cmdutil.NewCommandHandler(CommandName, AcceptRequest, c.AcceptRequest),
		cmdutil.NewCommandHandler(CommandName, AcceptCredential, c.AcceptCredential),
		cmdutil.NewCommandHandler(CommandName, Decline, c.Decline),
		cmdutil.NewCommandHandler(CommandName, GetExchange, c.GetExchange),
		cmdutil.NewCommandHandler(CommandName, GetExchanges, c.GetExchanges),
		cmdutil.NewCommandHandler(CommandName, RemoveExchange, c.RemoveExchange),
		cmdutil.NewCommandHandler(CommandName, GetCredential, c.GetCredential),
		cmdutil.NewCommandHandler(CommandName, GetCredentials, c.GetCredentials),
	}
}

// CreateCredentialDefinition creates an issuer key for a schema.
func (c *Command) CreateCredentialDefinition(rw io.Writer, req io.Reader) command.Error {
	var args CreateCredentialDefinitionArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, CreateCredentialDefinition, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.SchemaID == "" {
		logutil.LogDebug(logger, CommandName, CreateCredentialDefinition, errEmptySchemaID)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptySchemaID))
	}

	credDefID, err := c.client.CreateCredentialDefinition(args.SchemaID, args.Tag)
	if err != nil {
		logutil.LogError(logger, CommandName, CreateCredentialDefinition, err.Error())

		return command.NewExecuteError(CreateCredentialDefinitionErrorCode, err)
	}

	command.WriteNillableResponse(rw, &CreateCredentialDefinitionResponse{CredDefID: credDefID}, logger)

	logutil.LogDebug(logger, CommandName, CreateCredentialDefinition, successString,
		logutil.CreateKeyValueString("credDefID", credDefID))

	return nil
}

// SendProposal is used by the Holder to send a proposal.
func (c *Command) SendProposal(rw io.Writer, req io.Reader) command.Error {
	var args SendProposalArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, SendProposal, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.ConnectionID == "" {
		logutil.LogDebug(logger, CommandName, SendProposal, errEmptyConnectionID)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyConnectionID))
	}

	opts := &client.ProposalOptions{
		Comment:   args.Comment,
		SchemaID:  args.SchemaID,
		CredDefID: args.CredDefID,
	}

	if args.AutoAccept != "" {
		autoAccept, err := exchange.ParseAutoAccept(args.AutoAccept)
		if err != nil {
			return command.NewValidationError(InvalidRequestErrorCode, err)
		}

		opts.AutoAccept = autoAccept
	}

	if len(args.Attributes) > 0 {
		preview := protocol.NewPreview(args.Attributes...)
		opts.Preview = &preview
	}

	return c.exchange(rw, SendProposal, SendProposalErrorCode, "", func(ctx context.Context) (*client.Exchange,
		error) {
		return c.client.SendProposal(ctx, args.ConnectionID, opts)
	})
}

// SendOffer is used by the Issuer to send an offer.
func (c *Command) SendOffer(rw io.Writer, req io.Reader) command.Error {
	var args SendOfferArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, SendOffer, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.ConnectionID == "" {
		logutil.LogDebug(logger, CommandName, SendOffer, errEmptyConnectionID)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyConnectionID))
	}

	if args.CredDefID == "" {
		logutil.LogDebug(logger, CommandName, SendOffer, errEmptyCredDefID)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyCredDefID))
	}

	template := &client.OfferTemplate{
		CredDefID: args.CredDefID,
		Comment:   args.Comment,
		Preview:   protocol.NewPreview(args.Attributes...),
	}

	if args.AutoAccept != "" {
		autoAccept, err := exchange.ParseAutoAccept(args.AutoAccept)
		if err != nil {
			return command.NewValidationError(InvalidRequestErrorCode, err)
		}

		template.AutoAccept = autoAccept
	}

	return c.exchange(rw, SendOffer, SendOfferErrorCode, "", func(ctx context.Context) (*client.Exchange, error) {
		return c.client.SendOffer(ctx, args.ConnectionID, template)
	})
}

// AcceptProposal is used when the Issuer is willing to accept the proposal.
func (c *Command) AcceptProposal(rw io.Writer, req io.Reader) command.Error {
	var args AcceptProposalArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, AcceptProposal, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.PIID == "" {
		logutil.LogDebug(logger, CommandName, AcceptProposal, errEmptyPIID)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyPIID))
	}

	var template *client.OfferTemplate

	if args.CredDefID != "" || len(args.Attributes) > 0 {
		template = &client.OfferTemplate{
			CredDefID: args.CredDefID,
			Comment:   args.Comment,
			Preview:   protocol.NewPreview(args.Attributes...),
		}
	}

	return c.exchange(rw, AcceptProposal, AcceptProposalErrorCode, args.PIID,
		func(ctx context.Context) (*client.Exchange, error) {
			return c.client.AcceptProposal(ctx, args.PIID, template)
		})
}

// NegotiateOffer is used by the Holder to answer an offer with a counter proposal.
func (c *Command) NegotiateOffer(rw io.Writer, req io.Reader) command.Error {
	var args NegotiateOfferArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, NegotiateOffer, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.PIID == "" {
		logutil.LogDebug(logger, CommandName, NegotiateOffer, errEmptyPIID)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyPIID))
	}

	preview := protocol.NewPreview(args.Attributes...)
	opts := &client.ProposalOptions{Comment: args.Comment, Preview: &preview}

	return c.exchange(rw, NegotiateOffer, NegotiateOfferErrorCode, args.PIID,
		func(ctx context.Context) (*client.Exchange, error) {
			return c.client.NegotiateOffer(ctx, args.PIID, opts)
		})
}

// AcceptOffer is used when the Holder is willing to accept the offer.
func (c *Command) AcceptOffer(rw io.Writer, req io.Reader) command.Error {
	var args AcceptOfferArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, AcceptOffer, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.PIID == "" {
		logutil.LogDebug(logger, CommandName, AcceptOffer, errEmptyPIID)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyPIID))
	}

	opts := &client.RequestOptions{Comment: args.Comment, HolderDID: args.HolderDID}

	return c.exchange(rw, AcceptOffer, AcceptOfferErrorCode, args.PIID,
		func(ctx context.Context) (*client.Exchange, error) {
			return c.client.AcceptOffer(ctx, args.PIID, opts)
		})
}

// AcceptRequest is used by the Issuer to issue the requested credential.
func (c *Command) AcceptRequest(rw io.Writer, req io.Reader) command.Error {
	var args AcceptRequestArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, AcceptRequest, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.PIID == "" {
		logutil.LogDebug(logger, CommandName, AcceptRequest, errEmptyPIID)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyPIID))
	}

	return c.exchange(rw, AcceptRequest, AcceptRequestErrorCode, args.PIID,
		func(ctx context.Context) (*client.Exchange, error) {
			return c.client.AcceptRequest(ctx, args.PIID, args.Comment)
		})
}

// AcceptCredential is used by the Holder to acknowledge a stored credential.
func (c *Command) AcceptCredential(rw io.Writer, req io.Reader) command.Error {
	var args PIIDArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, AcceptCredential, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.PIID == "" {
		logutil.LogDebug(logger, CommandName, AcceptCredential, errEmptyPIID)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyPIID))
	}

	return c.exchange(rw, AcceptCredential, AcceptCredentialErrorCode, args.PIID,
		func(ctx context.Context) (*client.Exchange, error) {
			return c.client.AcceptCredential(ctx, args.PIID)
		})
}

// Decline abandons an exchange and sends a problem report to the peer.
func (c *Command) Decline(rw io.Writer, req io.Reader) command.Error {
	var args DeclineArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, Decline, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.PIID == "" {
		logutil.LogDebug(logger, CommandName, Decline, errEmptyPIID)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyPIID))
	}

	description := client.Description{Code: args.Code, En: args.Reason}
	if description.Code == "" {
		description.Code = "rejected"
	}

	return c.exchange(rw, Decline, DeclineErrorCode, args.PIID, func(ctx context.Context) (*client.Exchange, error) {
		return c.client.DeclineExchange(ctx, args.PIID, description)
	})
}

// GetExchange returns a credential exchange.
func (c *Command) GetExchange(rw io.Writer, req io.Reader) command.Error {
	var args PIIDArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, GetExchange, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.PIID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyPIID))
	}

	rec, err := c.client.GetExchange(args.PIID)
	if err != nil {
		logutil.LogError(logger, CommandName, GetExchange, err.Error(),
			logutil.CreateKeyValueString(piidString, args.PIID))

		return command.NewExecuteError(GetExchangesErrorCode, err)
	}

	command.WriteNillableResponse(rw, &ExchangeResponse{Result: rec}, logger)

	return nil
}

// GetExchanges returns the credential exchanges, optionally filtered by state.
func (c *Command) GetExchanges(rw io.Writer, req io.Reader) command.Error {
	var args GetExchangesArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, GetExchanges, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	records, err := c.client.GetExchanges(protocol.State(args.State))
	if err != nil {
		logutil.LogError(logger, CommandName, GetExchanges, err.Error())

		return command.NewExecuteError(GetExchangesErrorCode, err)
	}

	command.WriteNillableResponse(rw, &ExchangesResponse{Results: records}, logger)

	logutil.LogDebug(logger, CommandName, GetExchanges, successString)

	return nil
}

// RemoveExchange removes a credential exchange.
func (c *Command) RemoveExchange(rw io.Writer, req io.Reader) command.Error {
	var args PIIDArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, RemoveExchange, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.PIID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyPIID))
	}

	if err := c.client.RemoveExchange(args.PIID); err != nil {
		logutil.LogError(logger, CommandName, RemoveExchange, err.Error(),
			logutil.CreateKeyValueString(piidString, args.PIID))

		return command.NewExecuteError(RemoveExchangeErrorCode, err)
	}

	command.WriteNillableResponse(rw, nil, logger)

	return nil
}

// GetCredential returns a held credential.
func (c *Command) GetCredential(rw io.Writer, req io.Reader) command.Error {
	var args CredentialIDArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, GetCredential, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.ID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyCredentialID))
	}

	credential, err := c.client.GetCredential(args.ID)
	if err != nil {
		logutil.LogError(logger, CommandName, GetCredential, err.Error())

		return command.NewExecuteError(GetCredentialsErrorCode, err)
	}

	command.WriteNillableResponse(rw, &CredentialResponse{Result: credential}, logger)

	return nil
}

// GetCredentials returns the held credentials.
func (c *Command) GetCredentials(rw io.Writer, _ io.Reader) command.Error {
	credentials, err := c.client.GetCredentials()
	if err != nil {
		logutil.LogError(logger, CommandName, GetCredentials, err.Error())

		return command.NewExecuteError(GetCredentialsErrorCode, err)
	}

	command.WriteNillableResponse(rw, &CredentialsResponse{Results: credentials}, logger)

	return nil
}

// exchange runs a step of the protocol and writes the resulting exchange record.
func (c *Command) exchange(rw io.Writer, method string, code command.Code, piid string,
	step func(ctx context.Context) (*client.Exchange, error)) command.Error {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	rec, err := step(ctx)
	if err != nil {
		logutil.LogError(logger, CommandName, method, err.Error(), logutil.CreateKeyValueString(piidString, piid))

		return command.NewExecuteError(code, err)
	}

	command.WriteNillableResponse(rw, &ExchangeResponse{Result: rec}, logger)

	logutil.LogDebug(logger, CommandName, method, successString,
		logutil.CreateKeyValueString(piidString, rec.ID))

	return nil
}
