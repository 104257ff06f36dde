/*
 *
 * Copyright SecureKey Technologies Inc. All Rights Reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 * /
 *
 */

// Package connection stores the pairwise connections established by the connection protocol.
package connection

import (
	"errors"
	"fmt"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-agent-go/pkg/doc/did"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

// RecordType is the name connection records are stored under.
const RecordType = "connection"

// State of a connection.
type State string

// Role of the local agent in a connection.
type Role string

const (
	// StateInvited invitation created or received.
	StateInvited State = "invited"
	// StateRequested connection request sent or received.
	StateRequested State = "requested"
	// StateResponded connection response sent or received.
	StateResponded State = "responded"
	// StateComplete connection confirmed by both sides.
	StateComplete State = "complete"

	// RoleInviter created the invitation.
	RoleInviter Role = "inviter"
	// RoleInvitee accepted an invitation.
	RoleInvitee Role = "invitee"
)

const (
	tagVerkey        = "verkey"
	tagTheirKey      = "theirKey"
	tagInvitationKey = "invitationKey"
	tagDID           = "did"
	tagTheirDID      = "theirDid"
)

// ErrConnectionNotReady is returned when a connection that is not ready is used by another protocol.
var ErrConnectionNotReady = errors.New("connection is not ready")

// Record is a pairwise connection.
type Record struct {
	record.BaseRecord
	Status exchange.Status[State, Role] `json:"status"`

	ThreadID      string `json:"threadId,omitempty"`
	Alias         string `json:"alias,omitempty"`
	TheirLabel    string `json:"theirLabel,omitempty"`
	AutoAccept    bool   `json:"autoAccept,omitempty"`
	InvitationKey string `json:"invitationKey,omitempty"`

	DID         string   `json:"did"`
	DIDDoc      *did.Doc `json:"didDoc,omitempty"`
	Verkey      string   `json:"verkey"`
	TheirDID    string   `json:"theirDid,omitempty"`
	TheirDIDDoc *did.Doc `json:"theirDidDoc,omitempty"`
	TheirKey    string   `json:"theirKey,omitempty"`

	Invitation service.DIDCommMsgMap `json:"invitation,omitempty"`
}

// RecordType returns the record type.
func (r *Record) RecordType() string {
	return RecordType
}

// ExchangeStatus returns the connection status.
func (r *Record) ExchangeStatus() *exchange.Status[State, Role] {
	return &r.Status
}

// GetThreadID returns the thread of the connection protocol exchange.
func (r *Record) GetThreadID() string {
	return r.ThreadID
}

// GetConnectionID returns the connection id, which is the record id.
func (r *Record) GetConnectionID() string {
	return r.ID
}

// ToTags projects the indexed attributes.
func (r *Record) ToTags() record.Tags {
	tags := r.CustomTags()
	r.Status.ToTags(tags)
	tags[exchange.TagThreadID] = r.ThreadID
	tags[tagVerkey] = r.Verkey
	tags[tagTheirKey] = r.TheirKey
	tags[tagInvitationKey] = r.InvitationKey
	tags[tagDID] = r.DID
	tags[tagTheirDID] = r.TheirDID

	return tags
}

// FromTags restores the indexed attributes.
func (r *Record) FromTags(tags record.Tags) error {
	r.Status.Restore(tags)
	r.ThreadID = tags[exchange.TagThreadID]
	r.Verkey = tags[tagVerkey]
	r.TheirKey = tags[tagTheirKey]
	r.InvitationKey = tags[tagInvitationKey]
	r.DID = tags[tagDID]
	r.TheirDID = tags[tagTheirDID]
	r.SetCustomTags(tags, exchange.TagState, exchange.TagRole, exchange.TagThreadID,
		tagVerkey, tagTheirKey, tagInvitationKey, tagDID, tagTheirDID)

	return nil
}

// IsReady reports whether the connection can carry other protocols.
func (r *Record) IsReady() bool {
	s := r.Status.State()

	return s == StateResponded || s == StateComplete
}

// AssertReady fails unless the connection is ready.
func (r *Record) AssertReady() error {
	if !r.IsReady() {
		return fmt.Errorf("connection %s in state %q: %w", r.ID, r.Status.State(), ErrConnectionNotReady)
	}

	return nil
}

// TheirEndpoint returns the remote DIDComm service.
func (r *Record) TheirEndpoint() (*did.Service, error) {
	return r.TheirDIDDoc.DIDCommService()
}

// TheirDestination returns where messages for the peer go: its DID document service once known,
// the invitation before that.
func (r *Record) TheirDestination() (*service.Destination, error) {
	if r.TheirDIDDoc != nil {
		s, err := r.TheirDIDDoc.DIDCommService()
		if err != nil {
			return nil, err
		}

		return &service.Destination{
			RecipientKeys:   s.RecipientKeys,
			ServiceEndpoint: s.ServiceEndpoint,
			RoutingKeys:     s.RoutingKeys,
		}, nil
	}

	if r.Invitation != nil && r.Status.Role() == RoleInvitee {
		var dest service.Destination

		if err := r.Invitation.Decode(&dest); err != nil {
			return nil, fmt.Errorf("connection %s invitation: %w", r.ID, err)
		}

		if len(dest.RecipientKeys) > 0 && dest.ServiceEndpoint != "" {
			return &dest, nil
		}
	}

	return nil, fmt.Errorf("connection %s has no destination: %w", r.ID, did.ErrNoDIDCommService)
}
