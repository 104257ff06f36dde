/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-agent-go/pkg/controller/rest"
	"github.com/hyperledger/aries-agent-go/pkg/controller/webnotifier"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport/loopback"
	ariescontext "github.com/hyperledger/aries-agent-go/pkg/framework/context"
	mocknotifier "github.com/hyperledger/aries-agent-go/pkg/internal/gomocks/controller/webnotifier"
	"github.com/hyperledger/aries-agent-go/pkg/internal/testagent"
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
)

func hasHandler(handlers []rest.Handler, path, method string) bool {
	for _, h := range handlers {
		if h.Path() == path && h.Method() == method {
			return true
		}
	}

	return false
}

func TestNew(t *testing.T) {
	t.Run("missing services", func(t *testing.T) {
		ctx, err := ariescontext.New()
		require.NoError(t, err)

		_, err = New(ctx)
		require.Error(t, err)
	})

	t.Run("default notifier", func(t *testing.T) {
		agent := testagent.New(t, loopback.NewHub(), "alice")

		c, err := New(agent.Context, WithWebhookURLs("http://localhost:9999"))
		require.NoError(t, err)

		defer c.Close()

		require.Len(t, c.GetCommandHandlers(), 9+14+11)
		require.True(t, hasHandler(c.GetRESTHandlers(), DefaultWSPath, http.MethodGet))
		require.True(t, hasHandler(c.GetRESTHandlers(), "/connections", http.MethodGet))
		require.True(t, hasHandler(c.GetRESTHandlers(), "/issuecredential/send-offer", http.MethodPost))
		require.True(t, hasHandler(c.GetRESTHandlers(), "/presentproof/send-request-presentation", http.MethodPost))
		require.False(t, hasHandler(c.GetRESTHandlers(), "/tenants", http.MethodPost))
	})

	t.Run("tenants and custom ws path", func(t *testing.T) {
		agent := testagent.New(t, loopback.NewHub(), "root")

		c, err := New(agent.Context, WithTenants(agent.Framework.Tenants()), WithWSPath("/events"),
			WithWebhookOptions(webnotifier.WithRetries(1, 0)))
		require.NoError(t, err)

		defer c.Close()

		require.Len(t, c.GetCommandHandlers(), 9+14+11+7)
		require.True(t, hasHandler(c.GetRESTHandlers(), "/tenants", http.MethodPost))
		require.True(t, hasHandler(c.GetRESTHandlers(), "/events", http.MethodGet))
		require.False(t, hasHandler(c.GetRESTHandlers(), DefaultWSPath, http.MethodGet))
	})
}

func TestController_StateNotifications(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hub := loopback.NewHub()
	inviter := testagent.New(t, hub, "faber")
	invitee := testagent.New(t, hub, "alice")

	events := make(chan webnotifier.StateEvent, 16)

	notifier := mocknotifier.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(gomock.Any(), connection.ProtocolName+webnotifier.StatesTopicSuffix, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, message []byte) error {
			var event webnotifier.StateEvent
			require.NoError(t, json.Unmarshal(message, &event))

			events <- event

			return nil
		}).AnyTimes()

	c, err := New(inviter.Context, WithNotifier(notifier))
	require.NoError(t, err)

	require.False(t, hasHandler(c.GetRESTHandlers(), DefaultWSPath, http.MethodGet))

	inviterConn, _ := testagent.Connect(t, hub, inviter, invitee)

	c.Close()
	close(events)

	var states []string

	for event := range events {
		require.Equal(t, inviterConn.ID, event.RecordID)
		require.Equal(t, connection.ProtocolName, event.ProtocolName)

		states = append(states, event.State)
	}

	require.Contains(t, states, string(connection.StateComplete))
}
