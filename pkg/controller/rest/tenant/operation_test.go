/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tenant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-agent-go/pkg/client/legacyconnection"
	tenantcmd "github.com/hyperledger/aries-agent-go/pkg/controller/command/tenant"
	"github.com/hyperledger/aries-agent-go/pkg/controller/internal/resttest"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport/loopback"
	"github.com/hyperledger/aries-agent-go/pkg/framework/aries"
	ariescontext "github.com/hyperledger/aries-agent-go/pkg/framework/context"
	"github.com/hyperledger/aries-agent-go/pkg/internal/testagent"
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
)

func newRoot(t *testing.T, hub *loopback.Hub) *Operation[*ariescontext.Provider] {
	t.Helper()

	root := testagent.New(t, hub, "root", aries.WithAutoAcceptConnections(true))
	tenants := root.Framework.Tenants()

	hub.RegisterPrefix(root.Endpoint+aries.TenantPathPrefix, func(tenantID string) transport.InboundMessageHandler {
		return func(ctx context.Context, envelope []byte) error {
			return tenants.WithTenantAgent(ctx, tenantID, func(agent *ariescontext.Provider) error {
				return agent.InboundMessageHandler()(ctx, envelope)
			})
		}
	})

	op, err := New(tenants)
	require.NoError(t, err)

	return op
}

func serve(t *testing.T, op *Operation[*ariescontext.Provider], method, path, url, body string,
	response interface{}) int {
	t.Helper()

	handler := resttest.HandlerLookup(t, op.GetRESTHandlers(), path, method)
	buf, code := resttest.SendRequestToHandler(t, handler, bytes.NewBufferString(body), url)

	if code == http.StatusOK && response != nil {
		require.NoError(t, json.Unmarshal(buf.Bytes(), response))
	}

	return code
}

func withID(path, id string) string {
	return strings.Replace(path, "{id}", id, 1)
}

func TestNew(t *testing.T) {
	_, err := New[*ariescontext.Provider](nil)
	require.Error(t, err)

	op := newRoot(t, loopback.NewHub())
	require.Len(t, op.GetRESTHandlers(), 7)
}

func TestOperation_TenantLifecycle(t *testing.T) {
	hub := loopback.NewHub()
	op := newRoot(t, hub)
	faber := testagent.New(t, hub, "faber", aries.WithAutoAcceptConnections(true))

	var created tenantcmd.TenantResponse
	require.Equal(t, http.StatusOK, serve(t, op, http.MethodPost, OperationID, OperationID,
		`{"label":"acme"}`, &created))
	require.NotEmpty(t, created.Result.ID)

	tenantID := created.Result.ID

	var all tenantcmd.TenantsResponse
	require.Equal(t, http.StatusOK, serve(t, op, http.MethodGet, OperationID, OperationID, "", &all))
	require.Len(t, all.Results, 1)

	var fetched tenantcmd.TenantResponse
	require.Equal(t, http.StatusOK, serve(t, op, http.MethodGet, TenantPath, withID(TenantPath, tenantID), "",
		&fetched))
	require.Equal(t, "acme", fetched.Result.Label)

	faberConnections, err := legacyconnection.New(faber.Context)
	require.NoError(t, err)

	invitation, faberConn, err := faberConnections.CreateInvitation(nil)
	require.NoError(t, err)

	raw, err := json.Marshal(invitation)
	require.NoError(t, err)

	var received tenantcmd.ConnectionResponse
	require.Equal(t, http.StatusOK, serve(t, op, http.MethodPost, ReceiveInvitationPath,
		withID(ReceiveInvitationPath, tenantID), fmt.Sprintf(`{"invitation":%s,"auto_accept":true}`, raw),
		&received))
	hub.Wait()
	require.Empty(t, hub.Errors())

	conn, err := faberConnections.GetConnection(faberConn.ID)
	require.NoError(t, err)
	require.Equal(t, connection.StateComplete, conn.Status.State())

	var connections tenantcmd.ConnectionsResponse
	require.Equal(t, http.StatusOK, serve(t, op, http.MethodGet, ConnectionsPath,
		withID(ConnectionsPath, tenantID), "", &connections))
	require.Len(t, connections.Results, 1)
	require.Equal(t, received.Result.ID, connections.Results[0].ID)

	var created2 tenantcmd.CreateInvitationResponse
	require.Equal(t, http.StatusOK, serve(t, op, http.MethodPost, CreateInvitationPath,
		withID(CreateInvitationPath, tenantID), "", &created2))
	require.Equal(t, "acme", created2.Invitation.Label)

	require.Equal(t, http.StatusOK, serve(t, op, http.MethodDelete, TenantPath, withID(TenantPath, tenantID), "",
		nil))
	require.Equal(t, http.StatusNotFound, serve(t, op, http.MethodGet, TenantPath, withID(TenantPath, tenantID),
		"", nil))
}

func TestOperation_Errors(t *testing.T) {
	op := newRoot(t, loopback.NewHub())

	require.Equal(t, http.StatusBadRequest, serve(t, op, http.MethodPost, OperationID, OperationID, "--", nil))
	require.Equal(t, http.StatusBadRequest, serve(t, op, http.MethodPost, CreateInvitationPath,
		withID(CreateInvitationPath, "t1"), "[]", nil))
	require.Equal(t, http.StatusBadRequest, serve(t, op, http.MethodPost, ReceiveInvitationPath,
		withID(ReceiveInvitationPath, "t1"), "{}", nil))
	require.Equal(t, http.StatusNotFound, serve(t, op, http.MethodGet, ConnectionsPath,
		withID(ConnectionsPath, "unknown"), "", nil))
	require.Equal(t, http.StatusNotFound, serve(t, op, http.MethodDelete, TenantPath,
		withID(TenantPath, "unknown"), "", nil))
}
