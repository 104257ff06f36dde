/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package transport

import "strings"

const (
	// MediaTypeEnvelope is the content type of packed envelopes exchanged over http.
	MediaTypeEnvelope = "application/didcomm-envelope-enc"
	// MediaTypeV1EncryptedEnvelope is the media type for DIDComm V1 encrypted envelopes as per Aries RFC 0044.
	MediaTypeV1EncryptedEnvelope = "application/didcomm-enc-env"
)

// IsEnvelopeMediaType reports whether contentType announces a packed envelope. Parameters are ignored.
func IsEnvelopeMediaType(contentType string) bool {
	mediaType, _, _ := strings.Cut(contentType, ";")

	switch strings.TrimSpace(strings.ToLower(mediaType)) {
	case MediaTypeEnvelope, MediaTypeV1EncryptedEnvelope:
		return true
	default:
		return false
	}
}
