/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-agent-go/pkg/client/issuecredential"
	"github.com/hyperledger/aries-agent-go/pkg/client/presentproof"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/exchange"
	credentialprotocol "github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/issuecredential"
	protocol "github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/presentproof"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport/loopback"
	"github.com/hyperledger/aries-agent-go/pkg/framework/aries"
	ariescontext "github.com/hyperledger/aries-agent-go/pkg/framework/context"
	"github.com/hyperledger/aries-agent-go/pkg/internal/testagent"
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
)

const schemaID = "WgWxqztrNooG92RXvxSTWv:2:employee:1.0"

type setup struct {
	hub           *loopback.Hub
	verifier      *presentproof.Client
	prover        *presentproof.Client
	verifierConn  *connection.Record
	proverConn    *connection.Record
	credDefID     string
	proverCredIDs []string
}

// newSetup connects a verifier and a prover and issues the prover an employee credential from the verifier.
func newSetup(t *testing.T, proofs exchange.AutoAccept) *setup {
	t.Helper()

	hub := loopback.NewHub()
	verifierAgent := testagent.New(t, hub, "verifier", aries.WithAutoAccept(exchange.AutoAcceptAlways, proofs))
	proverAgent := testagent.New(t, hub, "prover", aries.WithAutoAccept(exchange.AutoAcceptAlways, proofs))
	verifierConn, proverConn := testagent.Connect(t, hub, verifierAgent, proverAgent)

	issuer, err := issuecredential.New(verifierAgent.Context)
	require.NoError(t, err)

	holder, err := issuecredential.New(proverAgent.Context)
	require.NoError(t, err)

	credDefID, err := issuer.CreateCredentialDefinition(schemaID, "default")
	require.NoError(t, err)

	_, err = issuer.SendOffer(context.Background(), verifierConn.ID, &issuecredential.OfferTemplate{
		CredDefID: credDefID,
		Preview: credentialprotocol.NewPreview(
			credentialprotocol.Attribute{Name: "name", Value: "Alice"},
			credentialprotocol.Attribute{Name: "age", Value: "30"},
		),
	})
	require.NoError(t, err)
	hub.Wait()
	require.Empty(t, hub.Errors())

	held, err := holder.GetCredentials()
	require.NoError(t, err)
	require.Len(t, held, 1)

	s := &setup{hub: hub, verifierConn: verifierConn, proverConn: proverConn, credDefID: credDefID}
	s.proverCredIDs = append(s.proverCredIDs, held[0].ID)

	s.verifier, err = presentproof.New(verifierAgent.Context)
	require.NoError(t, err)

	s.prover, err = presentproof.New(proverAgent.Context)
	require.NoError(t, err)

	return s
}

func proofRequest(credDefID string) *presentproof.ProofRequest {
	return &presentproof.ProofRequest{
		Name:    "employment",
		Version: "1.0",
		Nonce:   "1234567890",
		RequestedAttributes: map[string]protocol.AttributeInfo{
			"attr_0": {Name: "name", Restrictions: []protocol.AttributeFilter{{CredDefID: credDefID}}},
		},
		RequestedPredicates: map[string]protocol.PredicateInfo{
			"pred_0": {Name: "age", PredicateType: ">=", PredicateValue: 18},
		},
	}
}

func TestNew(t *testing.T) {
	ctx, err := ariescontext.New()
	require.NoError(t, err)

	_, err = presentproof.New(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "present proof service is not available")
}

func TestClient_PresentProof(t *testing.T) {
	s := newSetup(t, exchange.AutoAcceptNever)
	ctx := context.Background()

	requested, err := s.verifier.SendRequest(ctx, s.verifierConn.ID, proofRequest(s.credDefID), "prove employment")
	require.NoError(t, err)
	require.Equal(t, protocol.StateRequestSent, requested.Status.State())
	s.hub.Wait()

	requests, err := s.prover.GetExchanges(protocol.StateRequestReceived)
	require.NoError(t, err)
	require.Len(t, requests, 1)

	credentials, err := s.prover.RequestedCredentials(requests[0].ID)
	require.NoError(t, err)
	require.Equal(t, s.proverCredIDs[0], credentials.Attributes["attr_0"])
	require.Equal(t, s.proverCredIDs[0], credentials.Predicates["pred_0"])

	presented, err := s.prover.AcceptRequest(ctx, requests[0].ID, credentials, "")
	require.NoError(t, err)
	require.Equal(t, protocol.StatePresentationSent, presented.Status.State())
	s.hub.Wait()

	received, err := s.verifier.GetExchange(requested.ID)
	require.NoError(t, err)
	require.Equal(t, protocol.StatePresentationReceived, received.Status.State())
	require.True(t, received.IsVerified)

	_, err = s.verifier.AcceptPresentation(ctx, requested.ID)
	require.NoError(t, err)
	s.hub.Wait()
	require.Empty(t, s.hub.Errors())

	done, err := s.prover.GetExchanges(protocol.StateDone)
	require.NoError(t, err)
	require.Len(t, done, 1)

	require.NoError(t, s.verifier.RemoveExchange(requested.ID))

	_, err = s.verifier.GetExchange(requested.ID)
	require.Error(t, err)
}

func TestClient_AutoAccept(t *testing.T) {
	s := newSetup(t, exchange.AutoAcceptAlways)

	_, err := s.prover.SendProposal(context.Background(), s.proverConn.ID, presentproof.PresentationPreview{
		Attributes: []protocol.Attribute{{Name: "name", CredDefID: s.credDefID}},
	}, "")
	require.NoError(t, err)
	s.hub.Wait()
	require.Empty(t, s.hub.Errors())

	verifierDone, err := s.verifier.GetExchanges(protocol.StateDone)
	require.NoError(t, err)
	require.Len(t, verifierDone, 1)
	require.True(t, verifierDone[0].IsVerified)

	proverDone, err := s.prover.GetExchanges(protocol.StateDone)
	require.NoError(t, err)
	require.Len(t, proverDone, 1)
}

func TestClient_Negotiation(t *testing.T) {
	s := newSetup(t, exchange.AutoAcceptNever)
	ctx := context.Background()

	_, err := s.verifier.SendRequest(ctx, s.verifierConn.ID, proofRequest(s.credDefID), "")
	require.NoError(t, err)
	s.hub.Wait()

	requests, err := s.prover.GetExchanges(protocol.StateRequestReceived)
	require.NoError(t, err)
	require.Len(t, requests, 1)

	_, err = s.prover.NegotiateRequest(ctx, requests[0].ID, presentproof.PresentationPreview{
		Attributes: []protocol.Attribute{{Name: "name"}},
	}, "only my name")
	require.NoError(t, err)
	s.hub.Wait()

	proposals, err := s.verifier.GetExchanges(protocol.StateProposalReceived)
	require.NoError(t, err)
	require.Len(t, proposals, 1)

	_, err = s.verifier.AcceptProposal(ctx, proposals[0].ID, nil, "")
	require.NoError(t, err)
	s.hub.Wait()

	requests, err = s.prover.GetExchanges(protocol.StateRequestReceived)
	require.NoError(t, err)
	require.Len(t, requests, 1)

	declined, err := s.prover.DeclineExchange(ctx, requests[0].ID, presentproof.Description{Code: "rejected"})
	require.NoError(t, err)
	require.Equal(t, protocol.StateAbandoned, declined.Status.State())
	s.hub.Wait()
	require.Empty(t, s.hub.Errors())

	abandoned, err := s.verifier.GetExchanges(protocol.StateAbandoned)
	require.NoError(t, err)
	require.Len(t, abandoned, 1)
}

func TestClient_Errors(t *testing.T) {
	s := newSetup(t, exchange.AutoAcceptNever)
	ctx := context.Background()

	_, err := s.verifier.SendRequest(ctx, s.verifierConn.ID, nil, "")
	require.Error(t, err)

	_, err = s.verifier.SendRequest(ctx, "unknown", proofRequest(s.credDefID), "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "send request")

	_, err = s.prover.AcceptRequest(ctx, "unknown", nil, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "accept request")

	_, err = s.verifier.AcceptPresentation(ctx, "unknown")
	require.Error(t, err)
}
