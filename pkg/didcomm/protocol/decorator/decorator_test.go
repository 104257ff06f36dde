/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package decorator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttachment(t *testing.T) {
	att, err := NewAttachment("offer-0", map[string]string{"name": "Alice"})
	require.NoError(t, err)
	require.Equal(t, MimeTypeJSON, att.MimeType)

	found, err := FindAttachment([]Attachment{{ID: "other"}, att}, "offer-0")
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, found.Decode(&out))
	require.Equal(t, "Alice", out["name"])

	_, err = FindAttachment([]Attachment{att}, "missing")
	require.ErrorIs(t, err, ErrAttachmentNotFound)

	inline := Attachment{ID: "inline", Data: AttachmentData{JSON: map[string]interface{}{"age": 30}}}
	var age map[string]int
	require.NoError(t, inline.Decode(&age))
	require.Equal(t, 30, age["age"])

	empty := Attachment{ID: "empty"}
	require.Error(t, empty.Decode(&out))
}

func TestDecodeAttachment(t *testing.T) {
	att, err := NewAttachment("cred-0", map[string]string{"name": "Alice"})
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, DecodeAttachment([]Attachment{att}, "cred-0", &out))
	require.Equal(t, "Alice", out["name"])

	require.ErrorIs(t, DecodeAttachment(nil, "cred-0", &out), ErrAttachmentNotFound)
}
