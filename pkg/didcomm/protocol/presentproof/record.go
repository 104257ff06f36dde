/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"strconv"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

// RecordType is the name presentation exchange records are stored under.
const RecordType = "presentationExchange"

// State of a presentation exchange.
type State string

// Role of the local agent in a presentation exchange.
type Role string

const (
	// StateProposalSent proposal sent by the prover.
	StateProposalSent State = "proposal-sent"
	// StateProposalReceived proposal received by the verifier.
	StateProposalReceived State = "proposal-received"
	// StateRequestSent request sent by the verifier.
	StateRequestSent State = "request-sent"
	// StateRequestReceived request received by the prover.
	StateRequestReceived State = "request-received"
	// StatePresentationSent presentation sent by the prover.
	StatePresentationSent State = "presentation-sent"
	// StatePresentationReceived presentation received and checked by the verifier.
	StatePresentationReceived State = "presentation-received"
	// StateDone exchange completed.
	StateDone State = "done"
	// StateAbandoned exchange stopped by a problem report.
	StateAbandoned State = "abandoned"

	// RoleProver presents the proof.
	RoleProver Role = "prover"
	// RoleVerifier requests and checks the proof.
	RoleVerifier Role = "verifier"
)

const tagIsVerified = "isVerified"

// Record is a presentation exchange.
type Record struct {
	record.BaseRecord
	Status exchange.Status[State, Role] `json:"status"`

	ConnectionID string              `json:"connectionId"`
	ThreadID     string              `json:"threadId"`
	AutoAccept   exchange.AutoAccept `json:"autoAccept,omitempty"`

	ProposalMessage     *ProposePresentation `json:"proposalMessage,omitempty"`
	RequestMessage      *RequestPresentation `json:"requestMessage,omitempty"`
	PresentationMessage *Presentation        `json:"presentationMessage,omitempty"`

	// IsVerified is set once a received presentation passed verification.
	IsVerified   bool   `json:"isVerified,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
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

	if r.IsVerified {
		tags[tagIsVerified] = strconv.FormatBool(r.IsVerified)
	}

	return tags
}

// FromTags restores the indexed attributes.
func (r *Record) FromTags(tags record.Tags) error {
	r.Status.Restore(tags)
	r.ThreadID = tags[exchange.TagThreadID]
	r.ConnectionID = tags[exchange.TagConnectionID]
	r.IsVerified = tags[tagIsVerified] == "true"
	r.SetCustomTags(tags, exchange.TagState, exchange.TagRole, exchange.TagThreadID, exchange.TagConnectionID,
		tagIsVerified)

	return nil
}

// ProofRequest returns the proof request of the exchange.
func (r *Record) ProofRequest() (*ProofRequest, error) {
	if r.RequestMessage == nil {
		return nil, exchange.MissingField(RequestPresentationMsgType, "record request")
	}

	return proofRequestFrom(r.RequestMessage)
}
