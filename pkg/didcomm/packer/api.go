/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package packer

import (
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport"
)

// Packer is an Aries envelope packer/unpacker to support
// secure DIDComm exchange of envelopes between Aries agents.
type Packer interface {
	// Pack a payload for the recipient keys, from senderKey. Keys are base58 verkeys.
	Pack(payload []byte, senderKey string, recipientKeys []string) ([]byte, error)
	// Unpack an envelope, returning the message with the keys it was exchanged between.
	Unpack(envelope []byte) (*transport.Envelope, error)

	// EncodingType returns the type of the encoding, as found in the header `Typ` field
	EncodingType() string
}
