/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package testagent runs agents wired to each other in process for tests.
package testagent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport/loopback"
	"github.com/hyperledger/aries-agent-go/pkg/framework/aries"
	ariescontext "github.com/hyperledger/aries-agent-go/pkg/framework/context"
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
)

// Agent is a framework instance reachable through a loopback hub.
type Agent struct {
	Name      string
	Endpoint  string
	Framework *aries.Aries
	Context   *ariescontext.Provider
}

// New starts an agent named name on hub. It is closed when the test ends.
func New(t *testing.T, hub *loopback.Hub, name string, opts ...aries.Option) *Agent {
	t.Helper()

	endpoint := loopback.Scheme + name

	opts = append([]aries.Option{
		aries.WithLabel(name),
		aries.WithEndpoint(endpoint),
		aries.WithOutboundTransports(hub),
		aries.WithOutboundRetries(0, time.Millisecond),
	}, opts...)

	framework, err := aries.New(opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, framework.Close())
	})

	ctx, err := framework.Context()
	require.NoError(t, err)

	hub.Register(endpoint, ctx.InboundMessageHandler())

	return &Agent{Name: name, Endpoint: endpoint, Framework: framework, Context: ctx}
}

// Connect establishes a connection from inviter to invitee and returns both sides of it.
func Connect(t *testing.T, hub *loopback.Hub, inviter, invitee *Agent) (*connection.Record, *connection.Record) {
	t.Helper()

	ctx := context.Background()

	inviterSvc := inviter.Context.ConnectionService()
	inviteeSvc := invitee.Context.ConnectionService()

	invitation, inviterConn, err := inviterSvc.CreateInvitation(nil)
	require.NoError(t, err)

	inviteeConn, err := inviteeSvc.ProcessInvitation(invitation, nil)
	require.NoError(t, err)

	request, inviteeConn, err := inviteeSvc.CreateRequest(inviteeConn.ID, nil)
	require.NoError(t, err)
	require.NoError(t, send(ctx, invitee, inviteeConn, request))
	hub.Wait()

	inviterConn, err = inviterSvc.GetByID(inviterConn.ID)
	require.NoError(t, err)

	if inviterConn.Status.State() == connection.StateRequested {
		response, rec, e := inviterSvc.CreateResponse(inviterConn.ID)
		require.NoError(t, e)
		require.NoError(t, send(ctx, inviter, rec, response))
		hub.Wait()
	}

	inviteeConn, err = inviteeSvc.GetByID(inviteeConn.ID)
	require.NoError(t, err)

	if inviteeConn.Status.State() == connection.StateResponded {
		ping, rec, e := inviteeSvc.CreateTrustPing(inviteeConn.ID, false)
		require.NoError(t, e)
		require.NoError(t, send(ctx, invitee, rec, ping))
		hub.Wait()
	}

	require.Empty(t, hub.Errors())

	inviterConn, err = inviterSvc.GetByID(inviterConn.ID)
	require.NoError(t, err)
	require.Equal(t, connection.StateComplete, inviterConn.Status.State())

	inviteeConn, err = inviteeSvc.GetByID(inviteeConn.ID)
	require.NoError(t, err)
	require.Equal(t, connection.StateComplete, inviteeConn.Status.State())

	return inviterConn, inviteeConn
}

func send(ctx context.Context, from *Agent, conn *connection.Record, payload interface{}) error {
	return from.Context.Outbound().Send(ctx, &dispatcher.OutboundMessage{Connection: conn, Payload: payload})
}
