/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"encoding/json"

	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

const (
	// TagState is the tag holding the exchange state.
	TagState = "state"
	// TagRole is the tag holding the exchange role.
	TagRole = "role"
	// TagThreadID is the tag holding the thread id.
	TagThreadID = "threadId"
	// TagConnectionID is the tag holding the connection the exchange runs over.
	TagConnectionID = "connectionId"
)

// Status is the state and role of a record in an exchange. Only a Machine moves the state.
type Status[S, R ~string] struct {
	state S
	role  R
}

// State returns the current state.
func (s Status[S, R]) State() S {
	return s.state
}

// Role returns the side of the exchange the record represents.
func (s Status[S, R]) Role() R {
	return s.role
}

// ToTags projects the status into tags.
func (s Status[S, R]) ToTags(tags record.Tags) {
	tags[TagState] = string(s.state)
	tags[TagRole] = string(s.role)
}

// Restore reads the status back from tags. It is the inverse of ToTags.
func (s *Status[S, R]) Restore(tags record.Tags) {
	s.state = S(tags[TagState])
	s.role = R(tags[TagRole])
}

type statusJSON struct {
	State string `json:"state,omitempty"`
	Role  string `json:"role,omitempty"`
}

// MarshalJSON marshals the status.
func (s Status[S, R]) MarshalJSON() ([]byte, error) {
	return json.Marshal(statusJSON{State: string(s.state), Role: string(s.role)})
}

// UnmarshalJSON unmarshals the status.
func (s *Status[S, R]) UnmarshalJSON(data []byte) error {
	var raw statusJSON

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.state, s.role = S(raw.State), R(raw.Role)

	return nil
}
