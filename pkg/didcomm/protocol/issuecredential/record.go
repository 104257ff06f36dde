/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	"encoding/json"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

// RecordType is the name credential exchange records are stored under.
const RecordType = "credentialExchange"

// State of a credential exchange.
type State string

// Role of the local agent in a credential exchange.
type Role string

const (
	// StateProposalSent proposal sent by the holder.
	StateProposalSent State = "proposal-sent"
	// StateProposalReceived proposal received by the issuer.
	StateProposalReceived State = "proposal-received"
	// StateOfferSent offer sent by the issuer.
	StateOfferSent State = "offer-sent"
	// StateOfferReceived offer received by the holder.
	StateOfferReceived State = "offer-received"
	// StateRequestSent request sent by the holder.
	StateRequestSent State = "request-sent"
	// StateRequestReceived request received by the issuer.
	StateRequestReceived State = "request-received"
	// StateCredentialIssued credential sent by the issuer.
	StateCredentialIssued State = "credential-issued"
	// StateCredentialReceived credential received and stored by the holder.
	StateCredentialReceived State = "credential-received"
	// StateDone exchange completed.
	StateDone State = "done"
	// StateAbandoned exchange stopped by a problem report.
	StateAbandoned State = "abandoned"

	// RoleIssuer issues the credential.
	RoleIssuer Role = "issuer"
	// RoleHolder receives the credential.
	RoleHolder Role = "holder"
)

const tagCredentialID = "credentialId"

// Record is a credential exchange.
type Record struct {
	record.BaseRecord
	Status exchange.Status[State, Role] `json:"status"`

	ConnectionID string              `json:"connectionId"`
	ThreadID     string              `json:"threadId"`
	AutoAccept   exchange.AutoAccept `json:"autoAccept,omitempty"`

	ProposalMessage   *ProposeCredential `json:"proposalMessage,omitempty"`
	OfferMessage      *OfferCredential   `json:"offerMessage,omitempty"`
	RequestMessage    *RequestCredential `json:"requestMessage,omitempty"`
	CredentialMessage *IssueCredential   `json:"credentialMessage,omitempty"`

	// CredentialAttributes are the values negotiated so far.
	CredentialAttributes []Attribute `json:"credentialAttributes,omitempty"`

	CredDefID       string          `json:"credDefId,omitempty"`
	SchemaID        string          `json:"schemaId,omitempty"`
	RequestMetadata json.RawMessage `json:"requestMetadata,omitempty"`
	CredentialID    string          `json:"credentialId,omitempty"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
}

// RecordType returns the record type.
func (r *Record) RecordType() string {
	return RecordType
}

// ExchangeStatus returns the exchange status.
func (r *Record) ExchangeStatus() *exchange.Status[State, Role] {
	return &r.Status
}

// GetThreadID returns the thread of the exchange.
func (r *Record) GetThreadID() string {
	return r.ThreadID
}

// GetConnectionID returns the connection the exchange runs over.
func (r *Record) GetConnectionID() string {
	return r.ConnectionID
}

// ToTags projects the indexed attributes.
func (r *Record) ToTags() record.Tags {
	tags := r.CustomTags()
	r.Status.ToTags(tags)
	tags[exchange.TagThreadID] = r.ThreadID
	tags[exchange.TagConnectionID] = r.ConnectionID
	tags[tagCredentialID] = r.CredentialID

	return tags
}

// FromTags restores the indexed attributes.
func (r *Record) FromTags(tags record.Tags) error {
	r.Status.Restore(tags)
	r.ThreadID = tags[exchange.TagThreadID]
	r.ConnectionID = tags[exchange.TagConnectionID]
	r.CredentialID = tags[tagCredentialID]
	r.SetCustomTags(tags, exchange.TagState, exchange.TagRole, exchange.TagThreadID, exchange.TagConnectionID,
		tagCredentialID)

	return nil
}

// Values returns the negotiated attribute values keyed by name.
func (r *Record) Values() map[string]string {
	return Values(r.CredentialAttributes)
}

func (r *Record) offer() (*Offer, error) {
	if r.OfferMessage == nil {
		return nil, exchange.MissingField(OfferCredentialMsgType, "record offer")
	}

	return offerFrom(r.OfferMessage)
}

func (r *Record) request() (*Request, error) {
	if r.RequestMessage == nil {
		return nil, exchange.MissingField(RequestCredentialMsgType, "record request")
	}

	return requestFrom(r.RequestMessage)
}
