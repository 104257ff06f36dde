/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aries

import (
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/packer/noop"
)

func TestDefaultFramework(t *testing.T) {
	t.Run("test default framework - success", func(t *testing.T) {
		aries := &Aries{}

		err := defFrameworkOpts(aries)
		require.NoError(t, err)
		require.Len(t, aries.outboundTransports, 1)
		require.NotNil(t, aries.storeProvider)
		require.NotNil(t, aries.tenantStorage)
		require.IsType(t, &noop.Packer{}, aries.packer)
		require.Equal(t, defaultLabel, aries.label)
		require.Equal(t, defaultEndpoint, aries.endpoint)
	})

	t.Run("test default framework - options kept", func(t *testing.T) {
		store := mem.NewProvider()

		aries := &Aries{storeProvider: store, label: "agent", endpoint: "http://agent.example.com"}

		err := defFrameworkOpts(aries)
		require.NoError(t, err)
		require.Same(t, store, aries.storeProvider)
		require.Equal(t, "agent", aries.label)
		require.Equal(t, "http://agent.example.com", aries.endpoint)
	})
}

func TestMemTenantStorage(t *testing.T) {
	s := &memTenantStorage{}

	first, err := s.Open("t1")
	require.NoError(t, err)

	store, err := first.OpenStore("records")
	require.NoError(t, err)
	require.NoError(t, store.Put("k", []byte("v")))

	require.NoError(t, first.Close())

	reopened, err := s.Open("t1")
	require.NoError(t, err)

	store, err = reopened.OpenStore("records")
	require.NoError(t, err)

	value, err := store.Get("k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), value)

	require.NoError(t, s.Remove("t1"))
	require.NoError(t, s.Remove("unknown"))

	fresh, err := s.Open("t1")
	require.NoError(t, err)

	store, err = fresh.OpenStore("records")
	require.NoError(t, err)

	_, err = store.Get("k")
	require.Error(t, err)
}
