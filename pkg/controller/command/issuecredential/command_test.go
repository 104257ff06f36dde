/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-agent-go/pkg/controller/command"
	"github.com/hyperledger/aries-agent-go/pkg/controller/command/issuecredential"
	protocol "github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport/loopback"
	ariescontext "github.com/hyperledger/aries-agent-go/pkg/framework/context"
	"github.com/hyperledger/aries-agent-go/pkg/internal/testagent"
)

const schemaID = "WgWxqztrNooG92RXvxSTWv:2:employee:1.0"

func exec(t *testing.T, fn command.Exec, request string, response interface{}) command.Error {
	t.Helper()

	var b bytes.Buffer

	cmdErr := fn(&b, bytes.NewBufferString(request))
	if cmdErr == nil && response != nil {
		require.NoError(t, json.Unmarshal(b.Bytes(), response))
	}

	return cmdErr
}

func newCommand(t *testing.T, agent *testagent.Agent) *issuecredential.Command {
	t.Helper()

	cmd, err := issuecredential.New(agent.Context)
	require.NoError(t, err)

	return cmd
}

func onlyExchange(t *testing.T, cmd *issuecredential.Command, state protocol.State) *issuecredential.ExchangeResponse {
	t.Helper()

	var list issuecredential.ExchangesResponse
	require.Nil(t, exec(t, cmd.GetExchanges, fmt.Sprintf(`{"state":%q}`, state), &list))
	require.Len(t, list.Results, 1)

	return &issuecredential.ExchangeResponse{Result: list.Results[0]}
}

func TestNew(t *testing.T) {
	t.Run("test new command - missing services", func(t *testing.T) {
		ctx, err := ariescontext.New()
		require.NoError(t, err)

		_, err = issuecredential.New(ctx)
		require.Error(t, err)
	})

	t.Run("test new command - handlers", func(t *testing.T) {
		cmd := newCommand(t, testagent.New(t, loopback.NewHub(), "issuer"))
		require.Len(t, cmd.GetHandlers(), 14)
	})
}

func TestCommand_IssueCredential(t *testing.T) {
	hub := loopback.NewHub()
	issuerAgent := testagent.New(t, hub, "issuer")
	holderAgent := testagent.New(t, hub, "holder")
	issuerConn, _ := testagent.Connect(t, hub, issuerAgent, holderAgent)

	issuer := newCommand(t, issuerAgent)
	holder := newCommand(t, holderAgent)

	var credDef issuecredential.CreateCredentialDefinitionResponse
	require.Nil(t, exec(t, issuer.CreateCredentialDefinition,
		fmt.Sprintf(`{"schema_id":%q,"tag":"default"}`, schemaID), &credDef))
	require.NotEmpty(t, credDef.CredDefID)

	var offered issuecredential.ExchangeResponse
	require.Nil(t, exec(t, issuer.SendOffer, fmt.Sprintf(`{
		"connection_id":%q,
		"cred_def_id":%q,
		"attributes":[{"name":"name","value":"Alice"},{"name":"role","value":"engineer"}]
	}`, issuerConn.ID, credDef.CredDefID), &offered))
	require.Equal(t, protocol.StateOfferSent, offered.Result.Status.State())
	hub.Wait()

	received := onlyExchange(t, holder, protocol.StateOfferReceived)
	require.Nil(t, exec(t, holder.AcceptOffer, fmt.Sprintf(`{"piid":%q}`, received.Result.ID), nil))
	hub.Wait()

	requested := onlyExchange(t, issuer, protocol.StateRequestReceived)
	require.Equal(t, offered.Result.ID, requested.Result.ID)
	require.Nil(t, exec(t, issuer.AcceptRequest, fmt.Sprintf(`{"piid":%q,"comment":"welcome"}`, offered.Result.ID), nil))
	hub.Wait()

	issued := onlyExchange(t, holder, protocol.StateCredentialReceived)
	require.NotEmpty(t, issued.Result.CredentialID)
	require.Nil(t, exec(t, holder.AcceptCredential, fmt.Sprintf(`{"piid":%q}`, issued.Result.ID), nil))
	hub.Wait()
	require.Empty(t, hub.Errors())

	var done issuecredential.ExchangeResponse
	require.Nil(t, exec(t, issuer.GetExchange, fmt.Sprintf(`{"piid":%q}`, offered.Result.ID), &done))
	require.Equal(t, protocol.StateDone, done.Result.Status.State())

	var credentials issuecredential.CredentialsResponse
	require.Nil(t, exec(t, holder.GetCredentials, `{}`, &credentials))
	require.Len(t, credentials.Results, 1)
	require.Equal(t, credDef.CredDefID, credentials.Results[0].CredDefID)

	var credential issuecredential.CredentialResponse
	require.Nil(t, exec(t, holder.GetCredential, fmt.Sprintf(`{"id":%q}`, issued.Result.CredentialID), &credential))
	require.Equal(t, schemaID, credential.Result.SchemaID)

	require.Nil(t, exec(t, issuer.RemoveExchange, fmt.Sprintf(`{"piid":%q}`, offered.Result.ID), nil))
	require.NotNil(t, exec(t, issuer.GetExchange, fmt.Sprintf(`{"piid":%q}`, offered.Result.ID), nil))
}

func TestCommand_ProposalAndDecline(t *testing.T) {
	hub := loopback.NewHub()
	issuerAgent := testagent.New(t, hub, "issuer")
	holderAgent := testagent.New(t, hub, "holder")
	_, holderConn := testagent.Connect(t, hub, issuerAgent, holderAgent)

	issuer := newCommand(t, issuerAgent)
	holder := newCommand(t, holderAgent)

	var credDef issuecredential.CreateCredentialDefinitionResponse
	require.Nil(t, exec(t, issuer.CreateCredentialDefinition, fmt.Sprintf(`{"schema_id":%q}`, schemaID), &credDef))

	require.Nil(t, exec(t, holder.SendProposal, fmt.Sprintf(`{
		"connection_id":%q,
		"cred_def_id":%q,
		"attributes":[{"name":"name","value":"Alice"}]
	}`, holderConn.ID, credDef.CredDefID), nil))
	hub.Wait()

	proposal := onlyExchange(t, issuer, protocol.StateProposalReceived)
	require.Nil(t, exec(t, issuer.AcceptProposal, fmt.Sprintf(`{"piid":%q}`, proposal.Result.ID), nil))
	hub.Wait()

	offer := onlyExchange(t, holder, protocol.StateOfferReceived)
	require.Nil(t, exec(t, holder.NegotiateOffer, fmt.Sprintf(`{
		"piid":%q,
		"attributes":[{"name":"name","value":"Alice Smith"}]
	}`, offer.Result.ID), nil))
	hub.Wait()

	counter := onlyExchange(t, issuer, protocol.StateProposalReceived)

	var declined issuecredential.ExchangeResponse
	require.Nil(t, exec(t, issuer.Decline, fmt.Sprintf(`{"piid":%q,"reason":"no"}`, counter.Result.ID), &declined))
	require.Equal(t, protocol.StateAbandoned, declined.Result.Status.State())
	hub.Wait()
	require.Empty(t, hub.Errors())

	onlyExchange(t, holder, protocol.StateAbandoned)
}

func TestCommand_Errors(t *testing.T) {
	cmd := newCommand(t, testagent.New(t, loopback.NewHub(), "issuer"))

	t.Run("invalid request", func(t *testing.T) {
		for _, fn := range []command.Exec{
			cmd.CreateCredentialDefinition, cmd.SendProposal, cmd.SendOffer, cmd.AcceptProposal, cmd.NegotiateOffer,
			cmd.AcceptOffer, cmd.AcceptRequest, cmd.AcceptCredential, cmd.Decline, cmd.GetExchange, cmd.GetExchanges,
			cmd.RemoveExchange, cmd.GetCredential,
		} {
			cmdErr := exec(t, fn, "--", nil)
			require.NotNil(t, cmdErr)
			require.Equal(t, command.ValidationError, cmdErr.Type())
			require.Equal(t, issuecredential.InvalidRequestErrorCode, cmdErr.Code())
		}
	})

	t.Run("missing piid", func(t *testing.T) {
		for _, fn := range []command.Exec{
			cmd.AcceptProposal, cmd.NegotiateOffer, cmd.AcceptOffer, cmd.AcceptRequest, cmd.AcceptCredential,
			cmd.Decline, cmd.GetExchange, cmd.RemoveExchange,
		} {
			cmdErr := exec(t, fn, `{}`, nil)
			require.NotNil(t, cmdErr)
			require.Contains(t, cmdErr.Error(), "empty PIID")
		}
	})

	t.Run("missing arguments", func(t *testing.T) {
		cmdErr := exec(t, cmd.CreateCredentialDefinition, `{}`, nil)
		require.NotNil(t, cmdErr)
		require.Contains(t, cmdErr.Error(), "empty schema ID")

		cmdErr = exec(t, cmd.SendOffer, `{}`, nil)
		require.NotNil(t, cmdErr)
		require.Contains(t, cmdErr.Error(), "empty connection ID")

		cmdErr = exec(t, cmd.SendOffer, `{"connection_id":"c1"}`, nil)
		require.NotNil(t, cmdErr)
		require.Contains(t, cmdErr.Error(), "empty credential definition ID")

		cmdErr = exec(t, cmd.SendProposal, `{"connection_id":"c1","auto_accept":"sometimes"}`, nil)
		require.NotNil(t, cmdErr)
		require.Equal(t, command.ValidationError, cmdErr.Type())

		cmdErr = exec(t, cmd.GetCredential, `{}`, nil)
		require.NotNil(t, cmdErr)
		require.Contains(t, cmdErr.Error(), "empty credential ID")
	})

	t.Run("unknown exchange", func(t *testing.T) {
		cmdErr := exec(t, cmd.AcceptRequest, `{"piid":"unknown"}`, nil)
		require.NotNil(t, cmdErr)
		require.Equal(t, command.ExecuteError, cmdErr.Type())
		require.Equal(t, issuecredential.AcceptRequestErrorCode, cmdErr.Code())

		cmdErr = exec(t, cmd.SendOffer, `{"connection_id":"unknown","cred_def_id":"x"}`, nil)
		require.NotNil(t, cmdErr)
		require.Equal(t, issuecredential.SendOfferErrorCode, cmdErr.Code())
	})
}
