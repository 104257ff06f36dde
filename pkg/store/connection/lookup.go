/*
 *
 * Copyright SecureKey Technologies Inc. All Rights Reserved.
 *
 * SPDX-License-Identifier: Apache-2.0
 * /
 *
 */

package connection

import (
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

// ProtocolName is the connection protocol name used in events.
const ProtocolName = "connections"

var transitions = exchange.Transitions[State]{
	StateInvited:   {StateRequested},
	StateRequested: {StateResponded},
	StateResponded: {StateComplete},
}

// Store is the connection record state machine plus its lookups.
type Store struct {
	*exchange.Machine[State, Role, Record, *Record]
}

// NewStore returns a connection Store over svc emitting to events.
func NewStore(svc *record.Service, events *service.Message) *Store {
	return &Store{Machine: exchange.NewMachine[State, Role, Record](ProtocolName, svc, transitions, events)}
}

// GetByID returns a connection or an error wrapping record.ErrRecordNotFound.
func (s *Store) GetByID(id string) (*Record, error) {
	return s.Repository().GetByID(id)
}

// FindByID returns a connection or nil.
func (s *Store) FindByID(id string) (*Record, error) {
	return s.Repository().FindByID(id)
}

// GetAll returns every connection.
func (s *Store) GetAll() ([]*Record, error) {
	return s.Repository().FindAll()
}

// FindByQuery returns connections matching every tag of query.
func (s *Store) FindByQuery(query record.Tags) ([]*Record, error) {
	return s.Repository().FindByQuery(query)
}

// DeleteByID deletes a connection.
func (s *Store) DeleteByID(id string) error {
	return s.Repository().DeleteByID(id)
}

// FindByVerkey returns the connection that uses verkey locally, or nil.
func (s *Store) FindByVerkey(verkey string) (*Record, error) {
	return s.Repository().FindSingleByQuery(record.Tags{tagVerkey: verkey})
}

// FindByTheirKey returns the connection whose peer uses theirKey, or nil.
func (s *Store) FindByTheirKey(theirKey string) (*Record, error) {
	return s.Repository().FindSingleByQuery(record.Tags{tagTheirKey: theirKey})
}

// FindByInvitationKey returns the connections created from an invitation with the given recipient key.
func (s *Store) FindByInvitationKey(key string) ([]*Record, error) {
	return s.Repository().FindByQuery(record.Tags{tagInvitationKey: key})
}

// GetByThreadID returns the connection of a connection protocol thread.
func (s *Store) GetByThreadID(threadID string) (*Record, error) {
	return s.Repository().GetSingleByQuery(record.Tags{exchange.TagThreadID: threadID})
}

// FindByKeys resolves the connection an inbound message belongs to. The connection using recipientKey with
// theirKey equal to senderKey wins; otherwise a connection using recipientKey without a peer yet is returned.
func (s *Store) FindByKeys(senderKey, recipientKey string) (*Record, error) {
	if senderKey != "" {
		rec, err := s.Repository().FindSingleByQuery(record.Tags{tagVerkey: recipientKey, tagTheirKey: senderKey})
		if err != nil || rec != nil {
			return rec, err
		}
	}

	return s.Repository().FindSingleByQuery(record.Tags{tagVerkey: recipientKey, tagTheirKey: ""})
}
