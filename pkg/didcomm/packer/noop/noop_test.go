/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package noop

import (
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/require"
)

func TestPacker(t *testing.T) {
	p := New()
	require.Equal(t, "NOOP", p.EncodingType())

	sender, recipient := base58.Encode([]byte("sender key")), base58.Encode([]byte("recipient key"))

	t.Run("pack and unpack", func(t *testing.T) {
		packed, err := p.Pack([]byte(`{"@type":"ping"}`), sender, []string{recipient, "other"})
		require.NoError(t, err)

		env, err := p.Unpack(packed)
		require.NoError(t, err)
		require.Equal(t, `{"@type":"ping"}`, string(env.Message))
		require.Equal(t, sender, env.FromKey)
		require.Equal(t, recipient, env.ToKey)
	})

	t.Run("anonymous sender", func(t *testing.T) {
		packed, err := p.Pack([]byte("msg"), "", []string{recipient})
		require.NoError(t, err)

		env, err := p.Unpack(packed)
		require.NoError(t, err)
		require.Empty(t, env.FromKey)
	})

	t.Run("no recipients", func(t *testing.T) {
		_, err := p.Pack([]byte("msg"), sender, nil)
		require.EqualError(t, err, "no recipients")
	})

	t.Run("invalid key", func(t *testing.T) {
		_, err := p.Pack([]byte("msg"), "0OIl", []string{recipient})
		require.ErrorIs(t, err, ErrInvalidKey)
	})

	t.Run("invalid envelopes", func(t *testing.T) {
		_, err := p.Unpack([]byte("not json"))
		require.Error(t, err)

		_, err = p.Unpack([]byte(`{"protected":"!!"}`))
		require.Error(t, err)

		_, err = p.Unpack([]byte(`{"protected":"eyJ0eXAiOiJKV00ifQ==","kid":"abc"}`))
		require.ErrorContains(t, err, "unsupported envelope type")
	})
}
