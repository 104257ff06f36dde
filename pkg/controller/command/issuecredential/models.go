/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	client "github.com/hyperledger/aries-agent-go/pkg/client/issuecredential"
	protocol "github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/issuecredential"
)

// CreateCredentialDefinitionArgs model
//
// This is used for creating the issuer key of a schema.
type CreateCredentialDefinitionArgs struct {
	SchemaID string `json:"schema_id"`
	Tag      string `json:"tag,omitempty"`
}

// CreateCredentialDefinitionResponse model
//
// Represents a CreateCredentialDefinition response message.
type CreateCredentialDefinitionResponse struct {
	CredDefID string `json:"cred_def_id"`
}

// SendProposalArgs model
//
// This is used for sending a proposal to initiate the protocol.
type SendProposalArgs struct {
	// ConnectionID of the connection to the issuer
	ConnectionID string               `json:"connection_id"`
	Comment      string               `json:"comment,omitempty"`
	SchemaID     string               `json:"schema_id,omitempty"`
	CredDefID    string               `json:"cred_def_id,omitempty"`
	Attributes   []protocol.Attribute `json:"attributes,omitempty"`
	// AutoAccept policy of the exchange, the agent policy when empty
	AutoAccept string `json:"auto_accept,omitempty"`
}

// SendOfferArgs model
//
// This is used for sending an offer.
type SendOfferArgs struct {
	// ConnectionID of the connection to the holder
	ConnectionID string               `json:"connection_id"`
	CredDefID    string               `json:"cred_def_id"`
	Comment      string               `json:"comment,omitempty"`
	Attributes   []protocol.Attribute `json:"attributes"`
	// AutoAccept policy of the exchange, the agent policy when empty
	AutoAccept string `json:"auto_accept,omitempty"`
}

// AcceptProposalArgs model
//
// This is used when the issuer is willing to accept the proposal.
type AcceptProposalArgs struct {
	// PIID Protocol instance ID
	PIID    string `json:"piid"`
	Comment string `json:"comment,omitempty"`
	// CredDefID and Attributes replace what was proposed when set
	CredDefID  string               `json:"cred_def_id,omitempty"`
	Attributes []protocol.Attribute `json:"attributes,omitempty"`
}

// NegotiateOfferArgs model
//
// This is used when the holder wants to negotiate about an offer it received.
type NegotiateOfferArgs struct {
	// PIID Protocol instance ID
	PIID       string               `json:"piid"`
	Comment    string               `json:"comment,omitempty"`
	Attributes []protocol.Attribute `json:"attributes"`
}

// AcceptOfferArgs model
//
// This is used when the holder is willing to accept the offer.
type AcceptOfferArgs struct {
	// PIID Protocol instance ID
	PIID    string `json:"piid"`
	Comment string `json:"comment,omitempty"`
	// HolderDID defaults to the DID of the connection
	HolderDID string `json:"holder_did,omitempty"`
}

// AcceptRequestArgs model
//
// This is used when the issuer is willing to issue the requested credential.
type AcceptRequestArgs struct {
	// PIID Protocol instance ID
	PIID    string `json:"piid"`
	Comment string `json:"comment,omitempty"`
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

// CredentialIDArgs model
//
// This is used for fetching a held credential.
type CredentialIDArgs struct {
	ID string `json:"id"`
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

// CredentialResponse model
//
// Represents a held credential.
type CredentialResponse struct {
	Result *client.Credential `json:"result"`
}

// CredentialsResponse model
//
// Represents the held credentials.
type CredentialsResponse struct {
	Results []*client.Credential `json:"results"`
}
