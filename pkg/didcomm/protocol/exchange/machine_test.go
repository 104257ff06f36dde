/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	mockstorage "github.com/hyperledger/aries-framework-go/component/storageutil/mock"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

type testState string

type testRole string

const (
	stateOffered  testState = "offered"
	stateAccepted testState = "accepted"
	stateDone     testState = "done"

	roleSender   testRole = "sender"
	roleReceiver testRole = "receiver"
)

var testTransitions = Transitions[testState]{
	stateOffered:  {stateAccepted},
	stateAccepted: {stateDone},
}

type testRecord struct {
	record.BaseRecord
	Status       Status[testState, testRole] `json:"status"`
	ThreadID     string                      `json:"threadId,omitempty"`
	ConnectionID string                      `json:"connectionId,omitempty"`
}

func (r *testRecord) RecordType() string { return "testexchange" }

func (r *testRecord) ExchangeStatus() *Status[testState, testRole] { return &r.Status }

func (r *testRecord) GetThreadID() string { return r.ThreadID }

func (r *testRecord) GetConnectionID() string { return r.ConnectionID }

func (r *testRecord) ToTags() record.Tags {
	tags := r.CustomTags()
	r.Status.ToTags(tags)
	tags[TagThreadID] = r.ThreadID
	tags[TagConnectionID] = r.ConnectionID

	return tags
}

func (r *testRecord) FromTags(tags record.Tags) error {
	r.Status.Restore(tags)
	r.ThreadID = tags[TagThreadID]
	r.ConnectionID = tags[TagConnectionID]
	r.SetCustomTags(tags, TagState, TagRole, TagThreadID, TagConnectionID)

	return nil
}

func newTestRecord(id, thid string) *testRecord {
	return &testRecord{BaseRecord: record.NewBaseRecord(id), ThreadID: thid, ConnectionID: "conn-1"}
}

func newMachine(t *testing.T, p storage.Provider) (*Machine[testState, testRole, testRecord, *testRecord],
	chan service.StateMsg) {
	t.Helper()

	events := &service.Message{}
	ch := make(chan service.StateMsg, 10)
	require.NoError(t, events.RegisterMsgEvent(ch))

	return NewMachine[testState, testRole, testRecord](
		"test-protocol", record.NewService(p), testTransitions, events), ch
}

func TestMachine_CreateAndTransition(t *testing.T) {
	m, events := newMachine(t, mem.NewProvider())

	rec := newTestRecord("r1", "thread-1")
	require.NoError(t, m.Create(rec, stateOffered, roleSender))

	msg := <-events
	require.Equal(t, "", msg.PreviousState)
	require.Equal(t, string(stateOffered), msg.StateID)
	require.Equal(t, "thread-1", msg.ThreadID)
	require.Equal(t, string(roleSender), msg.Properties.All()[TagRole])

	require.NoError(t, m.Transition(rec, stateAccepted))

	msg = <-events
	require.Equal(t, string(stateOffered), msg.PreviousState)
	require.Equal(t, string(stateAccepted), msg.StateID)

	stored, err := m.GetByThread("thread-1", "conn-1")
	require.NoError(t, err)
	require.Equal(t, stateAccepted, stored.Status.State())
	require.Equal(t, roleSender, stored.Status.Role())

	t.Run("illegal transition", func(t *testing.T) {
		err := m.Transition(rec, stateOffered)
		require.ErrorIs(t, err, ErrStateViolation)

		var stateErr *StateError
		require.True(t, errors.As(err, &stateErr))
		require.Equal(t, string(stateAccepted), stateErr.Current)
		require.Empty(t, stateErr.Expected)

		err = m.Transition(newTestRecord("r9", ""), stateDone)
		require.True(t, errors.As(err, &stateErr))
		require.Equal(t, []string{string(stateAccepted)}, stateErr.Expected)

		require.Len(t, events, 0)
	})

	t.Run("duplicate thread on create", func(t *testing.T) {
		err := m.Create(newTestRecord("r2", "thread-1"), stateOffered, roleReceiver)
		require.ErrorIs(t, err, record.ErrRecordDuplicate)
		require.Len(t, events, 0)
	})

	t.Run("connection mismatch", func(t *testing.T) {
		_, err := m.GetByThread("thread-1", "conn-2")
		require.ErrorIs(t, err, ErrConnectionMismatch)
	})

	t.Run("thread not found", func(t *testing.T) {
		_, err := m.GetByThread("unknown", "")
		require.True(t, record.IsNotFound(err))

		rec, err := m.FindByThread("unknown")
		require.NoError(t, err)
		require.Nil(t, rec)
	})

	t.Run("find exchange", func(t *testing.T) {
		rec, err := m.FindExchange("unknown", "conn-1")
		require.NoError(t, err)
		require.Nil(t, rec)

		rec, err = m.FindExchange("thread-1", "conn-1")
		require.NoError(t, err)
		require.Equal(t, "r1", rec.ID)

		_, err = m.FindExchange("thread-1", "conn-2")
		require.ErrorIs(t, err, ErrConnectionMismatch)
	})
}

func TestMachine_ThreadUniqueness(t *testing.T) {
	m, _ := newMachine(t, mem.NewProvider())

	// written around the machine, as a corrupted store would hold them
	require.NoError(t, m.Repository().Save(newTestRecord("a", "thread-dup")))
	require.NoError(t, m.Repository().Save(newTestRecord("b", "thread-dup")))

	_, err := m.FindByThread("thread-dup")
	require.ErrorIs(t, err, record.ErrRecordDuplicate)

	_, err = m.GetByThread("thread-dup", "conn-1")
	require.ErrorIs(t, err, record.ErrRecordDuplicate)
}

func TestMachine_ConcurrentCreateOnThread(t *testing.T) {
	const creators = 16

	events := &service.Message{}
	ch := make(chan service.StateMsg, creators)
	require.NoError(t, events.RegisterMsgEvent(ch))

	m := NewMachine[testState, testRole, testRecord](
		"test-protocol", record.NewService(mem.NewProvider()), testTransitions, events)

	var wg sync.WaitGroup

	errs := make(chan error, creators)

	for i := 0; i < creators; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			errs <- m.Create(newTestRecord(fmt.Sprintf("r%d", i), "thread-race"), stateOffered, roleSender)
		}(i)
	}

	wg.Wait()
	close(errs)

	created := 0

	for err := range errs {
		if err == nil {
			created++

			continue
		}

		require.ErrorIs(t, err, record.ErrRecordDuplicate)
	}

	require.Equal(t, 1, created)
	require.Len(t, ch, 1)

	rec, err := m.FindByThread("thread-race")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, stateOffered, rec.Status.State())
}

func TestMachine_Assert(t *testing.T) {
	m, _ := newMachine(t, mem.NewProvider())

	rec := newTestRecord("r1", "thread-1")
	require.NoError(t, m.Create(rec, stateOffered, roleSender))

	require.NoError(t, m.Assert(rec, roleSender, stateOffered, stateAccepted))

	err := m.AssertState(rec, stateDone)
	require.ErrorIs(t, err, ErrStateViolation)
	require.Contains(t, err.Error(), `state "offered"`)
	require.Contains(t, err.Error(), "done")

	err = m.AssertRole(rec, roleReceiver)
	require.ErrorIs(t, err, ErrStateViolation)
	require.Contains(t, err.Error(), `role "sender"`)
}

func TestMachine_WriteFailure(t *testing.T) {
	store := &mockstorage.Store{ErrGet: storage.ErrDataNotFound, QueryReturn: &mockstorage.Iterator{}}
	m, events := newMachine(t, &mockstorage.Provider{OpenStoreReturn: store})

	rec := newTestRecord("r1", "thread-1")

	store.ErrPut = errors.New("put failed")
	require.ErrorContains(t, m.Create(rec, stateOffered, roleSender), "put failed")
	require.Equal(t, testState(""), rec.Status.State())
	require.Len(t, events, 0)

	rec.Status.state = stateOffered
	store.ErrGet = nil
	require.ErrorContains(t, m.Transition(rec, stateAccepted), "put failed")
	require.Equal(t, stateOffered, rec.Status.State())
	require.Len(t, events, 0)
}

func TestStatusJSON(t *testing.T) {
	rec := newTestRecord("r1", "thread-1")
	rec.Status.state, rec.Status.role = stateDone, roleReceiver

	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"status":{"state":"done","role":"receiver"}`)

	var decoded testRecord
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, rec.Status, decoded.Status)

	var restored testRecord
	require.NoError(t, restored.FromTags(rec.ToTags()))
	require.Equal(t, rec.Status, restored.Status)
	require.Equal(t, rec.ThreadID, restored.ThreadID)
}
