/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	client "github.com/hyperledger/aries-agent-go/pkg/client/presentproof"
)

// SendRequestArgs model
//
// This is used for sending a request for presentation.
type SendRequestArgs struct {
	// ConnectionID of the connection to the prover
	ConnectionID string               `json:"connection_id"`
	ProofRequest *client.ProofRequest `json:"proof_request"`
	Comment      string               `json:"comment,omitempty"`
}

// SendProposalArgs model
//
// This is used for sending a presentation proposal.
type SendProposalArgs struct {
	// ConnectionID of the connection to the verifier
	ConnectionID string                     `json:"connection_id"`
	Preview      client.PresentationPreview `json:"presentation_proposal"`
	Comment      string                     `json:"comment,omitempty"`
}

// AcceptProposalArgs model
//
// This is used when the verifier answers a proposal with a request.
type AcceptProposalArgs struct {
	// PIID Protocol instance ID
	PIID string `json:"piid"`
	// ProofRequest replaces what was proposed when set
	ProofRequest *client.ProofRequest `json:"proof_request,omitempty"`
	Comment      string               `json:"comment,omitempty"`
}

// NegotiateRequestArgs model
//
// This is used when the prover answers a request with a counter proposal.
type NegotiateRequestArgs struct {
	// PIID Protocol instance ID
	PIID    string                     `json:"piid"`
	Preview client.PresentationPreview `json:"presentation_proposal"`
	Comment string                     `json:"comment,omitempty"`
}

// AcceptRequestArgs model
//
// This is used when the prover is willing to present a proof.
type AcceptRequestArgs struct {
	// PIID Protocol instance ID
	PIID string `json:"piid"`
	// RequestedCredentials are selected from the wallet when not set
	RequestedCredentials *client.RequestedCredentials `json:"requested_credentials,omitempty"`
	Comment              string                       `json:"comment,omitempty"`
}

// PIIDArgs model
//
// This is used for operations on a single exchange.
type PIIDArgs struct {
	// PIID Protocol instance ID
	PIID string `json:"piid"`
}

// DeclineArgs model
//
// This is used when an exchange is abandoned.
type DeclineArgs struct {
	// PIID Protocol instance ID
	PIID string `json:"piid"`
	// Code of the problem report sent to the peer
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// GetExchangesArgs model
//
// This is used for listing exchanges.
type GetExchangesArgs struct {
	// State of the exchanges, all exchanges when empty
	State string `json:"state,omitempty"`
}

// ExchangeResponse model
//
// Represents a single exchange.
type ExchangeResponse struct {
	Result *client.Exchange `json:"result"`
}

// ExchangesResponse model
//
// Represents a list of exchanges.
type ExchangesResponse struct {
	Results []*client.Exchange `json:"results"`
}

// RequestedCredentialsResponse model
//
// Represents the credentials that would answer a proof request.
type RequestedCredentialsResponse struct {
	Result *client.RequestedCredentials `json:"result"`
}
