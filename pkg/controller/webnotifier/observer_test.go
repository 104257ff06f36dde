/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
	mocks "github.com/hyperledger/aries-agent-go/pkg/internal/gomocks/controller/webnotifier"
)

func stateMsg() service.StateMsg {
	return service.StateMsg{
		ProtocolName:  "issue-credential",
		RecordID:      "r1",
		ThreadID:      "t1",
		PreviousState: "offer-sent",
		StateID:       "request-received",
		Properties:    service.Properties{"connectionID": "c1"},
	}
}

func expectedPayload(t *testing.T) []byte {
	t.Helper()

	src, err := json.Marshal(StateEvent{
		ProtocolName:  "issue-credential",
		RecordID:      "r1",
		ThreadID:      "t1",
		PreviousState: "offer-sent",
		State:         "request-received",
		Properties:    map[string]interface{}{"connectionID": "c1"},
	})
	require.NoError(t, err)

	return src
}

func TestObserver_Observe(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	done := make(chan struct{})
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(gomock.Any(), "issue-credential"+StatesTopicSuffix, expectedPayload(t)).
		Do(func(interface{}, string, []byte) { close(done) })

	events := &service.Message{}

	stop, err := NewObserver(notifier).Observe(events)
	require.NoError(t, err)
	require.Len(t, events.MsgEvents(), 1)

	events.Publish(stateMsg())
	<-done

	stop()
	require.Empty(t, events.MsgEvents())
}

func TestObserver_RegisterStateMsg(t *testing.T) {
	const topic = "test"

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	done := make(chan struct{})
	notifier := mocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(gomock.Any(), topic, expectedPayload(t)).
		Do(func(interface{}, string, []byte) { close(done) })

	states := make(chan service.StateMsg, 1)
	states <- stateMsg()

	NewObserver(notifier).RegisterStateMsg(topic, states)

	<-done
	close(states)
}

type stalledNotifier struct {
	release chan struct{}
}

func (n *stalledNotifier) Notify(ctx context.Context, _ string, _ []byte) error {
	select {
	case <-n.release:
	case <-ctx.Done():
	}

	return nil
}

func TestObserver_ObserveWithStalledNotifier(t *testing.T) {
	const published = eventBufferSize + eventQueueSize + 100

	notifier := &stalledNotifier{release: make(chan struct{})}
	events := &service.Message{}

	stop, err := NewObserver(notifier).Observe(events)
	require.NoError(t, err)

	done := make(chan struct{})

	go func() {
		defer close(done)

		for i := 0; i < published; i++ {
			events.Publish(stateMsg())
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "publishing blocked on a stalled notifier")
	}

	close(notifier.release)
	stop()
	require.Empty(t, events.MsgEvents())
}
