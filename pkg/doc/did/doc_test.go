/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package did

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/require"
)

func TestNewPairwiseDoc(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	verkey := base58.Encode(pub)

	doc, err := NewPairwiseDoc(verkey, "http://alice.example:8080", nil)
	require.NoError(t, err)
	require.Equal(t, base58.Encode(pub[:16]), doc.ID)
	require.Equal(t, verkey, doc.PublicKey[0].PublicKeyBase58)
	require.Len(t, doc.Service, 2)

	svc, err := doc.DIDCommService()
	require.NoError(t, err)
	require.Equal(t, DIDCommServiceType, svc.Type)
	require.Equal(t, "http://alice.example:8080", svc.ServiceEndpoint)

	key, err := doc.RecipientKey()
	require.NoError(t, err)
	require.Equal(t, verkey, key)

	t.Run("priority", func(t *testing.T) {
		doc.Service[0].Priority = 5

		svc, err := doc.DIDCommService()
		require.NoError(t, err)
		require.Equal(t, IndyAgentServiceType, svc.Type)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := NewPairwiseDoc("abc", "http://x", nil)
		require.Error(t, err)

		_, err = (&Doc{ID: "x"}).DIDCommService()
		require.ErrorIs(t, err, ErrNoDIDCommService)

		var nilDoc *Doc
		_, err = nilDoc.RecipientKey()
		require.ErrorIs(t, err, ErrNoDIDCommService)
	})
}
