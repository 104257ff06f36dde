/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package localkms

import (
	"errors"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	mockstorage "github.com/hyperledger/aries-framework-go/component/storageutil/mock"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-agent-go/pkg/kms"
)

func TestLocalKMS(t *testing.T) {
	k, err := New(mem.NewProvider())
	require.NoError(t, err)

	t.Run("sign and verify", func(t *testing.T) {
		verkey, err := k.CreateKey()
		require.NoError(t, err)
		require.NotEmpty(t, verkey)

		sig, err := k.Sign([]byte("message"), verkey)
		require.NoError(t, err)
		require.NoError(t, k.Verify(sig, []byte("message"), verkey))
		require.ErrorIs(t, k.Verify(sig, []byte("other"), verkey), ErrInvalidSignature)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := k.Sign([]byte("message"), "unknown")
		require.ErrorIs(t, err, kms.ErrKeyNotFound)
	})

	t.Run("invalid verkey", func(t *testing.T) {
		require.Error(t, Verify([]byte("sig"), []byte("message"), "abc"))
	})

	t.Run("store errors", func(t *testing.T) {
		_, err := New(&mockstorage.Provider{ErrOpenStore: errors.New("open failed")})
		require.ErrorContains(t, err, "open failed")

		k, err := New(&mockstorage.Provider{OpenStoreReturn: &mockstorage.Store{ErrPut: errors.New("put failed")}})
		require.NoError(t, err)

		_, err = k.CreateKey()
		require.ErrorContains(t, err, "put failed")
	})
}
