/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"

	client "github.com/hyperledger/aries-agent-go/pkg/client/presentproof"
	"github.com/hyperledger/aries-agent-go/pkg/controller/command"
	"github.com/hyperledger/aries-agent-go/pkg/controller/internal/cmdutil"
	protocol "github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/presentproof"
	"github.com/hyperledger/aries-agent-go/pkg/internal/logutil"
)

var logger = log.New("aries-agent/controller/presentproof")

const (
	// InvalidRequestErrorCode is typically a code for invalid requests.
	InvalidRequestErrorCode = command.Code(iota + command.PresentProof)
	// SendRequestErrorCode is for failures in send request command.
	SendRequestErrorCode
	// SendProposalErrorCode is for failures in send proposal command.
	SendProposalErrorCode
	// AcceptProposalErrorCode is for failures in accept proposal command.
	AcceptProposalErrorCode
	// NegotiateRequestErrorCode is for failures in negotiate request command.
	NegotiateRequestErrorCode
	// AcceptRequestErrorCode is for failures in accept request command.
	AcceptRequestErrorCode
	// AcceptPresentationErrorCode is for failures in accept presentation command.
	AcceptPresentationErrorCode
	// DeclineErrorCode is for failures in decline command.
	DeclineErrorCode
	// GetExchangesErrorCode is for failures in exchange queries.
	GetExchangesErrorCode
	// RemoveExchangeErrorCode is for failures in remove exchange command.
	RemoveExchangeErrorCode
	// RequestedCredentialsErrorCode is for failures selecting credentials for a request.
	RequestedCredentialsErrorCode
)

// constants for present proof commands.
const (
	// command name.
	CommandName = "presentproof"

	SendRequest          = "SendRequestPresentation"
	SendProposal         = "SendProposePresentation"
	AcceptProposal       = "AcceptProposePresentation"
	NegotiateRequest     = "NegotiateRequestPresentation"
	RequestedCredentials = "RequestedCredentials"
	AcceptRequest        = "AcceptRequestPresentation"
	AcceptPresentation   = "AcceptPresentation"
	Decline              = "Decline"
	GetExchange          = "GetExchange"
	GetExchanges         = "GetExchanges"
	RemoveExchange       = "RemoveExchange"

	// error messages.
	errEmptyConnectionID = "empty connection ID"
	errEmptyProofRequest = "empty proof request"
	errEmptyPIID         = "empty PIID"

	// log constants.
	piidString    = "piid"
	successString = "success"

	sendTimeout = 30 * time.Second
)

// Command is controller command for present proof.
type Command struct {
	client *client.Client
}

// New returns new present proof controller command instance.
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
		cmdutil.NewCommandHandler(CommandName, SendRequest, c.SendRequestPresentation),
		cmdutil.NewCommandHandler(CommandName, SendProposal, c.SendProposePresentation),
		cmdutil.NewCommandHandler(CommandName, AcceptProposal, c.AcceptProposePresentation),
		cmdutil.NewCommandHandler(CommandName, NegotiateRequest, c.NegotiateRequestPresentation),
		cmdutil.NewCommandHandler(CommandName, RequestedCredentials, c.RequestedCredentials),
		cmdutil.NewCommandHandler(CommandName, AcceptRequest, c.AcceptRequestPresentation),
		cmdutil.NewCommandHandler(CommandName, AcceptPresentation, c.AcceptPresentation),
		cmdutil.NewCommandHandler(CommandName, Decline, c.Decline),
		cmdutil.NewCommandHandler(CommandName, GetExchange, c.GetExchange),
		cmdutil.NewCommandHandler(CommandName, GetExchanges, c.GetExchanges),
		cmdutil.NewCommandHandler(CommandName, RemoveExchange, c.RemoveExchange),
	}
}

// SendRequestPresentation is used by the Verifier to request a proof over a connection.
func (c *Command) SendRequestPresentation(rw io.Writer, req io.Reader) command.Error {
	var args SendRequestArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, SendRequest, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.ConnectionID == "" {
		logutil.LogDebug(logger, CommandName, SendRequest, errEmptyConnectionID)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyConnectionID))
	}

	if args.ProofRequest == nil {
		logutil.LogDebug(logger, CommandName, SendRequest, errEmptyProofRequest)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyProofRequest))
	}

	return c.exchange(rw, SendRequest, SendRequestErrorCode, "", func(ctx context.Context) (*client.Exchange, error) {
		return c.client.SendRequest(ctx, args.ConnectionID, args.ProofRequest, args.Comment)
	})
}

// SendProposePresentation is used by the Prover to propose a presentation over a connection.
func (c *Command) SendProposePresentation(rw io.Writer, req io.Reader) command.Error {
	var args SendProposalArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, SendProposal, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.ConnectionID == "" {
		logutil.LogDebug(logger, CommandName, SendProposal, errEmptyConnectionID)

		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyConnectionID))
	}

	return c.exchange(rw, SendProposal, SendProposalErrorCode, "", func(ctx context.Context) (*client.Exchange,
		error) {
		return c.client.SendProposal(ctx, args.ConnectionID, args.Preview, args.Comment)
	})
}

// AcceptProposePresentation is used by the Verifier to answer a proposal with a request.
func (c *Command) AcceptProposePresentation(rw io.Writer, req io.Reader) command.Error {
	var args AcceptProposalArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, AcceptProposal, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.PIID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyPIID))
	}

	return c.exchange(rw, AcceptProposal, AcceptProposalErrorCode, args.PIID,
		func(ctx context.Context) (*client.Exchange, error) {
			return c.client.AcceptProposal(ctx, args.PIID, args.ProofRequest, args.Comment)
		})
}

// NegotiateRequestPresentation is used by the Prover to answer a request with a counter proposal.
func (c *Command) NegotiateRequestPresentation(rw io.Writer, req io.Reader) command.Error {
	var args NegotiateRequestArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, NegotiateRequest, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.PIID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyPIID))
	}

	return c.exchange(rw, NegotiateRequest, NegotiateRequestErrorCode, args.PIID,
		func(ctx context.Context) (*client.Exchange, error) {
			return c.client.NegotiateRequest(ctx, args.PIID, args.Preview, args.Comment)
		})
}

// RequestedCredentials returns the held credentials that would answer the proof request of an exchange.
func (c *Command) RequestedCredentials(rw io.Writer, req io.Reader) command.Error {
	var args PIIDArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, RequestedCredentials, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.PIID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyPIID))
	}

	credentials, err := c.client.RequestedCredentials(args.PIID)
	if err != nil {
		logutil.LogError(logger, CommandName, RequestedCredentials, err.Error(),
			logutil.CreateKeyValueString(piidString, args.PIID))

		return command.NewExecuteError(RequestedCredentialsErrorCode, err)
	}

	command.WriteNillableResponse(rw, &RequestedCredentialsResponse{Result: credentials}, logger)

	return nil
}

// AcceptRequestPresentation is used by the Prover to present a proof.
func (c *Command) AcceptRequestPresentation(rw io.Writer, req io.Reader) command.Error {
	var args AcceptRequestArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, AcceptRequest, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.PIID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyPIID))
	}

	return c.exchange(rw, AcceptRequest, AcceptRequestErrorCode, args.PIID,
		func(ctx context.Context) (*client.Exchange, error) {
			return c.client.AcceptRequest(ctx, args.PIID, args.RequestedCredentials, args.Comment)
		})
}

// AcceptPresentation is used by the Verifier to acknowledge a verified presentation.
func (c *Command) AcceptPresentation(rw io.Writer, req io.Reader) command.Error {
	var args PIIDArgs

	if err := json.NewDecoder(req).Decode(&args); err != nil {
		logutil.LogInfo(logger, CommandName, AcceptPresentation, err.Error())

		return command.NewValidationError(InvalidRequestErrorCode, err)
	}

	if args.PIID == "" {
		return command.NewValidationError(InvalidRequestErrorCode, errors.New(errEmptyPIID))
	}

	return c.exchange(rw, AcceptPresentation, AcceptPresentationErrorCode, args.PIID,
		func(ctx context.Context) (*client.Exchange, error) {
			return c.client.AcceptPresentation(ctx, args.PIID)
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

// GetExchange returns a proof exchange.
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

// GetExchanges returns the proof exchanges, optionally filtered by state.
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

	return nil
}

// RemoveExchange removes a proof exchange.
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
