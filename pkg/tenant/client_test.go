/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

func TestClient(t *testing.T) {
	f := newFactory()
	client := NewClient(record.NewService(mem.NewProvider()), f.create)

	tenant, err := client.CreateTenant(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "alice", tenant.Label)
	require.EqualValues(t, 1, f.calls.Load())
	require.Equal(t, 0, client.Coordinator().SessionCount(tenant.ID))

	t.Run("get tenant", func(t *testing.T) {
		got, err := client.GetTenant(tenant.ID)
		require.NoError(t, err)
		require.Equal(t, "alice", got.Label)

		all, err := client.GetTenants()
		require.NoError(t, err)
		require.Len(t, all, 1)

		_, err = client.GetTenant("unknown")
		require.ErrorIs(t, err, record.ErrRecordNotFound)

		_, err = client.GetTenantAgent(context.Background(), "unknown")
		require.ErrorIs(t, err, record.ErrRecordNotFound)
	})

	t.Run("with tenant agent", func(t *testing.T) {
		var seen *agentContext

		require.NoError(t, client.WithTenantAgent(context.Background(), tenant.ID, func(agent *agentContext) error {
			seen = agent
			require.Equal(t, 1, client.Coordinator().SessionCount(tenant.ID))

			return nil
		}))
		require.Equal(t, tenant.ID, seen.tenantID)
		require.EqualValues(t, 1, seen.closed.Load())

		errFn := errors.New("failed")
		err := client.WithTenantAgent(context.Background(), tenant.ID, func(*agentContext) error { return errFn })
		require.ErrorIs(t, err, errFn)
		require.Equal(t, 0, client.Coordinator().SessionCount(tenant.ID))
	})

	t.Run("delete tenant", func(t *testing.T) {
		session, err := client.GetTenantAgent(context.Background(), tenant.ID)
		require.NoError(t, err)

		require.NoError(t, client.DeleteTenant(context.Background(), tenant.ID))
		require.EqualValues(t, 1, session.Context.destroyed.Load())
		require.NoError(t, session.End())

		_, err = client.GetTenant(tenant.ID)
		require.ErrorIs(t, err, record.ErrRecordNotFound)
		require.ErrorIs(t, client.DeleteTenant(context.Background(), tenant.ID), record.ErrRecordNotFound)
	})

	t.Run("failed provisioning removes the tenant", func(t *testing.T) {
		f.err = errors.New("no storage")
		defer func() { f.err = nil }()

		_, err := client.CreateTenant(context.Background(), "bob")
		require.ErrorIs(t, err, f.err)

		all, err := client.GetTenants()
		require.NoError(t, err)
		require.Empty(t, all)
	})

	require.NoError(t, client.Close())
}
