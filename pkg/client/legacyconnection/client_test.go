/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacyconnection_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-agent-go/pkg/client/legacyconnection"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport/loopback"
	"github.com/hyperledger/aries-agent-go/pkg/framework/aries"
	ariescontext "github.com/hyperledger/aries-agent-go/pkg/framework/context"
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
)

func newAgent(t *testing.T, hub *loopback.Hub, name string, autoAccept bool) *legacyconnection.Client {
	t.Helper()

	endpoint := loopback.Scheme + name

	framework, err := aries.New(
		aries.WithLabel(name),
		aries.WithEndpoint(endpoint),
		aries.WithOutboundTransports(hub),
		aries.WithAutoAcceptConnections(autoAccept),
		aries.WithOutboundRetries(0, time.Millisecond),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, framework.Close())
	})

	ctx, err := framework.Context()
	require.NoError(t, err)

	hub.Register(endpoint, ctx.InboundMessageHandler())

	client, err := legacyconnection.New(ctx)
	require.NoError(t, err)

	return client
}

func TestNew(t *testing.T) {
	t.Run("test error from missing services", func(t *testing.T) {
		ctx, err := ariescontext.New()
		require.NoError(t, err)

		_, err = legacyconnection.New(ctx)
		require.Error(t, err)
		require.Contains(t, err.Error(), "connection service is not available")
	})
}

func TestClient_AutoAccept(t *testing.T) {
	hub := loopback.NewHub()
	alice := newAgent(t, hub, "alice", true)
	bob := newAgent(t, hub, "bob", true)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	invitation, inviterConn, err := alice.CreateInvitation(&legacyconnection.Options{Alias: "bob"})
	require.NoError(t, err)
	require.Equal(t, "alice", invitation.Label)
	require.Equal(t, loopback.Scheme+"alice", invitation.ServiceEndpoint)
	require.Equal(t, connection.StateInvited, inviterConn.Status.State())

	inviteeConn, err := bob.ReceiveInvitation(ctx, invitation, nil)
	require.NoError(t, err)
	require.Equal(t, connection.StateRequested, inviteeConn.Status.State())

	ready, err := bob.WaitForConnection(ctx, inviteeConn.ID)
	require.NoError(t, err)
	require.True(t, ready.IsReady())

	_, err = alice.WaitForConnection(ctx, inviterConn.ID)
	require.NoError(t, err)

	hub.Wait()
	require.Empty(t, hub.Errors())

	aliceSide, err := alice.GetConnection(inviterConn.ID)
	require.NoError(t, err)
	require.Equal(t, connection.StateComplete, aliceSide.Status.State())
	require.Equal(t, "bob", aliceSide.TheirLabel)
	require.Equal(t, "bob", aliceSide.Alias)

	bobSide, err := bob.GetConnection(inviteeConn.ID)
	require.NoError(t, err)
	require.Equal(t, connection.StateComplete, bobSide.Status.State())
	require.Equal(t, aliceSide.Verkey, bobSide.TheirKey)
	require.Equal(t, bobSide.Verkey, aliceSide.TheirKey)

	complete, err := alice.QueryConnections(connection.StateComplete)
	require.NoError(t, err)
	require.Len(t, complete, 1)

	invited, err := alice.QueryConnections(connection.StateInvited)
	require.NoError(t, err)
	require.Empty(t, invited)

	require.NoError(t, bob.SendTrustPing(ctx, bobSide.ID, true))
	hub.Wait()
	require.Empty(t, hub.Errors())
}

func TestClient_ManualAccept(t *testing.T) {
	hub := loopback.NewHub()
	alice := newAgent(t, hub, "alice", false)
	bob := newAgent(t, hub, "bob", false)

	ctx := context.Background()

	invitation, inviterConn, err := alice.CreateInvitation(nil)
	require.NoError(t, err)

	inviteeConn, err := bob.ReceiveInvitation(ctx, invitation, nil)
	require.NoError(t, err)
	require.Equal(t, connection.StateInvited, inviteeConn.Status.State())

	_, err = bob.AcceptInvitation(ctx, inviteeConn.ID, nil)
	require.NoError(t, err)
	hub.Wait()

	requested, err := alice.GetConnection(inviterConn.ID)
	require.NoError(t, err)
	require.Equal(t, connection.StateRequested, requested.Status.State())

	_, err = alice.AcceptRequest(ctx, inviterConn.ID)
	require.NoError(t, err)
	hub.Wait()

	responded, err := bob.GetConnection(inviteeConn.ID)
	require.NoError(t, err)
	require.Equal(t, connection.StateResponded, responded.Status.State())

	_, err = bob.AcceptResponse(ctx, inviteeConn.ID)
	require.NoError(t, err)
	hub.Wait()
	require.Empty(t, hub.Errors())

	completed, err := alice.GetConnection(inviterConn.ID)
	require.NoError(t, err)
	require.Equal(t, connection.StateComplete, completed.Status.State())

	t.Run("test accepting twice fails", func(t *testing.T) {
		_, err = alice.AcceptRequest(ctx, inviterConn.ID)
		require.Error(t, err)
		require.Contains(t, err.Error(), "accept request")
	})

	t.Run("test remove connection", func(t *testing.T) {
		require.NoError(t, bob.RemoveConnection(inviteeConn.ID))

		_, err = bob.GetConnection(inviteeConn.ID)
		require.Error(t, err)
	})
}

func TestClient_Errors(t *testing.T) {
	hub := loopback.NewHub()
	bob := newAgent(t, hub, "bob", true)

	ctx := context.Background()

	t.Run("test empty invitation", func(t *testing.T) {
		_, err := bob.ReceiveInvitation(ctx, nil, nil)
		require.Error(t, err)
	})

	t.Run("test invalid invitation", func(t *testing.T) {
		_, err := bob.ReceiveInvitation(ctx, &legacyconnection.Invitation{ServiceEndpoint: "mem://x"}, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "receive invitation")
	})

	t.Run("test unreachable inviter", func(t *testing.T) {
		_, err := bob.ReceiveInvitation(ctx, &legacyconnection.Invitation{
			RecipientKeys:   []string{"8HH5gYEeNc3z7PYXmd54d4x6qAfCNrqQqEB3nS7Zfu7K"},
			ServiceEndpoint: loopback.Scheme + "nobody",
		}, nil)
		require.ErrorIs(t, err, loopback.ErrUnknownEndpoint)
	})

	t.Run("test unknown connection", func(t *testing.T) {
		_, err := bob.AcceptInvitation(ctx, "unknown", nil)
		require.Error(t, err)

		require.Error(t, bob.SendTrustPing(ctx, "unknown", false))

		_, err = bob.WaitForConnection(ctx, "unknown")
		require.Error(t, err)
	})
}
