/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	command "github.com/hyperledger/aries-agent-go/pkg/controller/command/issuecredential"
	"github.com/hyperledger/aries-agent-go/pkg/controller/internal/resttest"
	protocol "github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport/loopback"
	ariescontext "github.com/hyperledger/aries-agent-go/pkg/framework/context"
	"github.com/hyperledger/aries-agent-go/pkg/internal/testagent"
)

const schemaID = "WgWxqztrNooG92RXvxSTWv:2:employee:1.0"

func serve(t *testing.T, op *Operation, method, path, url, body string, response interface{}) int {
	t.Helper()

	handler := resttest.HandlerLookup(t, op.GetRESTHandlers(), path, method)
	buf, code := resttest.SendRequestToHandler(t, handler, bytes.NewBufferString(body), url)

	if code == http.StatusOK && response != nil {
		require.NoError(t, json.Unmarshal(buf.Bytes(), response))
	}

	return code
}

func withPIID(path, id string) string {
	return strings.Replace(path, "{piid}", id, 1)
}

func onlyExchange(t *testing.T, op *Operation, state protocol.State) *command.ExchangeResponse {
	t.Helper()

	var list command.ExchangesResponse
	require.Equal(t, http.StatusOK, serve(t, op, http.MethodGet, ExchangesPath,
		ExchangesPath+"?state="+string(state), "", &list))
	require.Len(t, list.Results, 1)

	return &command.ExchangeResponse{Result: list.Results[0]}
}

func TestNew(t *testing.T) {
	ctx, err := ariescontext.New()
	require.NoError(t, err)

	_, err = New(ctx)
	require.Error(t, err)

	op, err := New(testagent.New(t, loopback.NewHub(), "issuer").Context)
	require.NoError(t, err)
	require.Len(t, op.GetRESTHandlers(), 14)
}

func TestOperation_IssueCredential(t *testing.T) {
	hub := loopback.NewHub()
	issuerAgent := testagent.New(t, hub, "issuer")
	holderAgent := testagent.New(t, hub, "holder")
	issuerConn, _ := testagent.Connect(t, hub, issuerAgent, holderAgent)

	issuer, err := New(issuerAgent.Context)
	require.NoError(t, err)

	holder, err := New(holderAgent.Context)
	require.NoError(t, err)

	var credDef command.CreateCredentialDefinitionResponse
	require.Equal(t, http.StatusOK, serve(t, issuer, http.MethodPost, CreateCredentialDefinitionPath,
		CreateCredentialDefinitionPath, fmt.Sprintf(`{"schema_id":%q}`, schemaID), &credDef))
	require.NotEmpty(t, credDef.CredDefID)

	var offered command.ExchangeResponse
	require.Equal(t, http.StatusOK, serve(t, issuer, http.MethodPost, SendOfferPath, SendOfferPath,
		fmt.Sprintf(`{"connection_id":%q,"cred_def_id":%q,"attributes":[{"name":"name","value":"Alice"}]}`,
			issuerConn.ID, credDef.CredDefID), &offered))
	require.Equal(t, protocol.StateOfferSent, offered.Result.Status.State())
	hub.Wait()

	received := onlyExchange(t, holder, protocol.StateOfferReceived)
	require.Equal(t, http.StatusOK, serve(t, holder, http.MethodPost, AcceptOfferPath,
		withPIID(AcceptOfferPath, received.Result.ID), "", nil))
	hub.Wait()

	require.Equal(t, http.StatusOK, serve(t, issuer, http.MethodPost, AcceptRequestPath,
		withPIID(AcceptRequestPath, offered.Result.ID), `{"comment":"welcome"}`, nil))
	hub.Wait()

	issued := onlyExchange(t, holder, protocol.StateCredentialReceived)
	require.Equal(t, http.StatusOK, serve(t, holder, http.MethodPost, AcceptCredentialPath,
		withPIID(AcceptCredentialPath, issued.Result.ID), "", nil))
	hub.Wait()
	require.Empty(t, hub.Errors())

	var done command.ExchangeResponse
	require.Equal(t, http.StatusOK, serve(t, issuer, http.MethodGet, ExchangePath,
		withPIID(ExchangePath, offered.Result.ID), "", &done))
	require.Equal(t, protocol.StateDone, done.Result.Status.State())

	var credentials command.CredentialsResponse
	require.Equal(t, http.StatusOK, serve(t, holder, http.MethodGet, CredentialsPath, CredentialsPath, "",
		&credentials))
	require.Len(t, credentials.Results, 1)

	var credential command.CredentialResponse
	require.Equal(t, http.StatusOK, serve(t, holder, http.MethodGet, CredentialPath,
		CredentialsPath+"/"+credentials.Results[0].ID, "", &credential))
	require.Equal(t, credDef.CredDefID, credential.Result.CredDefID)

	require.Equal(t, http.StatusOK, serve(t, issuer, http.MethodPost, RemoveExchangePath,
		withPIID(RemoveExchangePath, offered.Result.ID), "", nil))
	require.Equal(t, http.StatusInternalServerError, serve(t, issuer, http.MethodGet, ExchangePath,
		withPIID(ExchangePath, offered.Result.ID), "", nil))
}

func TestOperation_ProposalAndDecline(t *testing.T) {
	hub := loopback.NewHub()
	issuerAgent := testagent.New(t, hub, "issuer")
	holderAgent := testagent.New(t, hub, "holder")
	_, holderConn := testagent.Connect(t, hub, issuerAgent, holderAgent)

	issuer, err := New(issuerAgent.Context)
	require.NoError(t, err)

	holder, err := New(holderAgent.Context)
	require.NoError(t, err)

	var credDef command.CreateCredentialDefinitionResponse
	require.Equal(t, http.StatusOK, serve(t, issuer, http.MethodPost, CreateCredentialDefinitionPath,
		CreateCredentialDefinitionPath, fmt.Sprintf(`{"schema_id":%q}`, schemaID), &credDef))

	require.Equal(t, http.StatusOK, serve(t, holder, http.MethodPost, SendProposalPath, SendProposalPath,
		fmt.Sprintf(`{"connection_id":%q,"cred_def_id":%q,"attributes":[{"name":"name","value":"Alice"}]}`,
			holderConn.ID, credDef.CredDefID), nil))
	hub.Wait()

	proposal := onlyExchange(t, issuer, protocol.StateProposalReceived)
	require.Equal(t, http.StatusOK, serve(t, issuer, http.MethodPost, AcceptProposalPath,
		withPIID(AcceptProposalPath, proposal.Result.ID), "", nil))
	hub.Wait()

	offer := onlyExchange(t, holder, protocol.StateOfferReceived)
	require.Equal(t, http.StatusOK, serve(t, holder, http.MethodPost, NegotiateOfferPath,
		withPIID(NegotiateOfferPath, offer.Result.ID), `{"attributes":[{"name":"name","value":"Al"}]}`, nil))
	hub.Wait()

	counter := onlyExchange(t, issuer, protocol.StateProposalReceived)
	require.Equal(t, http.StatusOK, serve(t, issuer, http.MethodPost, DeclinePath,
		withPIID(DeclinePath, counter.Result.ID), `{"reason":"no"}`, nil))
	hub.Wait()
	require.Empty(t, hub.Errors())

	onlyExchange(t, holder, protocol.StateAbandoned)
}

func TestOperation_Errors(t *testing.T) {
	op, err := New(testagent.New(t, loopback.NewHub(), "issuer").Context)
	require.NoError(t, err)

	require.Equal(t, http.StatusBadRequest, serve(t, op, http.MethodPost, SendOfferPath, SendOfferPath, "--", nil))
	require.Equal(t, http.StatusBadRequest, serve(t, op, http.MethodPost, CreateCredentialDefinitionPath,
		CreateCredentialDefinitionPath, "{}", nil))
	require.Equal(t, http.StatusBadRequest, serve(t, op, http.MethodPost, AcceptOfferPath,
		withPIID(AcceptOfferPath, "x"), "[]", nil))
	require.Equal(t, http.StatusInternalServerError, serve(t, op, http.MethodPost, AcceptRequestPath,
		withPIID(AcceptRequestPath, "unknown"), "", nil))
}
