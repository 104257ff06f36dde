/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package exchange is the correlated exchange engine shared by the protocol services.
//
// An exchange is a record with a state and a role, correlated with its peer's record by a thread id.
// A Machine checks the record against a transition table, persists every state change and emits a
// service.StateMsg once the change has been written.
package exchange

import (
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/log"
	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

var logger = log.New("aries-agent/exchange")

// Record is a record taking part in an exchange.
type Record[S, R ~string] interface {
	record.Record
	ExchangeStatus() *Status[S, R]
	GetThreadID() string
	GetConnectionID() string
}

// Transitions lists for each state the states it may move to.
type Transitions[S ~string] map[S][]S

// Machine drives records of one protocol.
type Machine[S, R ~string, T any, P interface {
	*T
	Record[S, R]
}] struct {
	protocol    string
	repo        *record.Repository[T, P]
	transitions Transitions[S]
	events      *service.Message
}

// NewMachine returns a Machine for protocol storing its records in svc and emitting to events.
func NewMachine[S, R ~string, T any, P interface {
	*T
	Record[S, R]
}](protocol string, svc *record.Service, transitions Transitions[S], events *service.Message) *Machine[S, R, T, P] {
	return &Machine[S, R, T, P]{
		protocol:    protocol,
		repo:        record.NewRepository[T, P](svc),
		transitions: transitions,
		events:      events,
	}
}

// Repository returns the typed record repository.
func (m *Machine[S, R, T, P]) Repository() *record.Repository[T, P] {
	return m.repo
}

// Events returns the event register state changes are published to.
func (m *Machine[S, R, T, P]) Events() *service.Message {
	return m.events
}

// AssertState fails with a StateError unless rec is in one of states.
func (m *Machine[S, R, T, P]) AssertState(rec P, states ...S) error {
	current := rec.ExchangeStatus().state
	if slices.Contains(states, current) {
		return nil
	}

	return &StateError{
		Protocol: m.protocol,
		RecordID: rec.GetID(),
		Field:    "state",
		Current:  string(current),
		Expected: toStrings(states),
	}
}

// AssertRole fails with a StateError unless rec plays one of roles.
func (m *Machine[S, R, T, P]) AssertRole(rec P, roles ...R) error {
	current := rec.ExchangeStatus().role
	if slices.Contains(roles, current) {
		return nil
	}

	return &StateError{
		Protocol: m.protocol,
		RecordID: rec.GetID(),
		Field:    "role",
		Current:  string(current),
		Expected: toStrings(roles),
	}
}

// Assert checks both the state and the role of rec.
func (m *Machine[S, R, T, P]) Assert(rec P, role R, states ...S) error {
	if err := m.AssertState(rec, states...); err != nil {
		return err
	}

	return m.AssertRole(rec, role)
}

// Create stores a new record in state with role and emits a state change without previous state.
// A record whose thread already has a record of this protocol is a duplicate.
func (m *Machine[S, R, T, P]) Create(rec P, state S, role R) error {
	status := rec.ExchangeStatus()
	status.state, status.role = state, role

	var err error
	if thid := rec.GetThreadID(); thid != "" {
		err = m.repo.SaveUnique(rec, record.Tags{TagThreadID: thid})
	} else {
		err = m.repo.Save(rec)
	}

	if err != nil {
		status.state, status.role = "", ""

		return fmt.Errorf("create %s record for thread %s: %w", m.protocol, rec.GetThreadID(), err)
	}

	m.emit(rec, "")

	return nil
}

// Transition moves rec to state, persists it and emits a state change.
// On a write failure the in-memory state is restored and no event is emitted.
func (m *Machine[S, R, T, P]) Transition(rec P, to S) error {
	status := rec.ExchangeStatus()
	from := status.state

	if !slices.Contains(m.transitions[from], to) {
		return &StateError{
			Protocol: m.protocol,
			RecordID: rec.GetID(),
			Field:    "state",
			Current:  string(from),
			Expected: toStrings(m.sources(to)),
		}
	}

	status.state = to

	if err := m.repo.Update(rec); err != nil {
		status.state = from

		return fmt.Errorf("%s record %s transition %s -> %s: %w", m.protocol, rec.GetID(), from, to, err)
	}

	logger.Debugf("%s record %s: %s -> %s", m.protocol, rec.GetID(), from, to)

	m.emit(rec, string(from))

	return nil
}

// Update persists changes to rec that do not move its state.
func (m *Machine[S, R, T, P]) Update(rec P) error {
	return m.repo.Update(rec)
}

// FindByThread returns the record of thread threadID, or nil. More than one record is a duplicate error.
func (m *Machine[S, R, T, P]) FindByThread(threadID string) (P, error) {
	rec, err := m.repo.FindSingleByQuery(record.Tags{TagThreadID: threadID})
	if err != nil {
		return nil, fmt.Errorf("%s exchange for thread %s: %w", m.protocol, threadID, err)
	}

	return rec, nil
}

// GetByThread returns the record of thread threadID. When connectionID is set the record must belong to it.
func (m *Machine[S, R, T, P]) GetByThread(threadID, connectionID string) (P, error) {
	rec, err := m.repo.GetSingleByQuery(record.Tags{TagThreadID: threadID})
	if err != nil {
		return nil, fmt.Errorf("%s exchange for thread %s: %w", m.protocol, threadID, err)
	}

	if connectionID != "" && rec.GetConnectionID() != connectionID {
		return nil, fmt.Errorf("%s exchange for thread %s runs over connection %s, not %s: %w",
			m.protocol, threadID, rec.GetConnectionID(), connectionID, ErrConnectionMismatch)
	}

	return rec, nil
}

// FindExchange returns the record of thread threadID, or nil when the thread is new.
// A record of another connection is an error wrapping ErrConnectionMismatch.
func (m *Machine[S, R, T, P]) FindExchange(threadID, connectionID string) (P, error) {
	rec, err := m.FindByThread(threadID)
	if err != nil || rec == nil {
		return nil, err
	}

	if rec.GetConnectionID() != connectionID {
		return nil, fmt.Errorf("%s exchange for thread %s runs over connection %s, not %s: %w",
			m.protocol, threadID, rec.GetConnectionID(), connectionID, ErrConnectionMismatch)
	}

	return rec, nil
}

func (m *Machine[S, R, T, P]) emit(rec P, previous string) {
	if m.events == nil {
		return
	}

	status := rec.ExchangeStatus()

	m.events.Publish(service.StateMsg{
		ProtocolName:  m.protocol,
		RecordID:      rec.GetID(),
		ThreadID:      rec.GetThreadID(),
		PreviousState: previous,
		StateID:       string(status.state),
		Properties: service.Properties{
			TagRole:         string(status.role),
			TagConnectionID: rec.GetConnectionID(),
		},
	})
}

func (m *Machine[S, R, T, P]) sources(to S) []S {
	var from []S

	for s, next := range m.transitions {
		if slices.Contains(next, to) {
			from = append(from, s)
		}
	}

	slices.Sort(from)

	return from
}

func toStrings[S ~string](values []S) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}

	return out
}
