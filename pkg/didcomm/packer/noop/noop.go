/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package noop packs messages in plaintext, with only a header naming the format. Never use it in production.
package noop

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport"
)

// ErrInvalidKey is returned for keys that are not base58 encoded.
var ErrInvalidKey = errors.New("invalid base58 key")

type envelope struct {
	Header    string `json:"protected,omitempty"`
	Sender    string `json:"spk,omitempty"`
	Recipient string `json:"kid,omitempty"`
	Message   string `json:"msg,omitempty"`
}

type header struct {
	Type string `json:"typ,omitempty"`
}

// Packer encodes messages using the NO-OP format - sending them as-is, with only a header to indicate message format.
type Packer struct{}

// encodingType is the `typ` string identifier in a message that identifies the format as being noop.
const encodingType string = "NOOP"

// New will create a Packer that transmits messages IN PLAINTEXT.
func New() *Packer {
	return &Packer{}
}

// Pack will wrap the payload in a bit of JSON and send it as plaintext to the first recipient.
func (p *Packer) Pack(payload []byte, senderKey string, recipientKeys []string) ([]byte, error) {
	if len(recipientKeys) == 0 {
		return nil, fmt.Errorf("no recipients")
	}

	for _, key := range append([]string{recipientKeys[0]}, senderKey) {
		if err := checkKey(key); err != nil {
			return nil, err
		}
	}

	headerBytes, err := json.Marshal(&header{Type: encodingType})
	if err != nil {
		return nil, err
	}

	return json.Marshal(&envelope{
		Header:    base64.URLEncoding.EncodeToString(headerBytes),
		Sender:    senderKey,
		Recipient: recipientKeys[0],
		Message:   string(payload),
	})
}

// Unpack will decode the envelope using the NOOP format.
func (p *Packer) Unpack(message []byte) (*transport.Envelope, error) {
	var env envelope

	if err := json.Unmarshal(message, &env); err != nil {
		return nil, fmt.Errorf("noop envelope: %w", err)
	}

	headerBytes, err := base64.URLEncoding.DecodeString(env.Header)
	if err != nil {
		return nil, fmt.Errorf("noop envelope header: %w", err)
	}

	var head header

	if err = json.Unmarshal(headerBytes, &head); err != nil {
		return nil, fmt.Errorf("noop envelope header: %w", err)
	}

	if head.Type != encodingType {
		return nil, fmt.Errorf("unsupported envelope type %q", head.Type)
	}

	if env.Recipient == "" {
		return nil, fmt.Errorf("noop envelope without recipient: %w", ErrInvalidKey)
	}

	for _, key := range []string{env.Sender, env.Recipient} {
		if err = checkKey(key); err != nil {
			return nil, err
		}
	}

	return &transport.Envelope{
		Message: []byte(env.Message),
		FromKey: env.Sender,
		ToKey:   env.Recipient,
	}, nil
}

// EncodingType returns the type of the encoding, as found in the header `Typ` field.
func (p *Packer) EncodingType() string {
	return encodingType
}

// checkKey accepts the empty key of anonymous senders.
func checkKey(key string) error {
	if key != "" && len(base58.Decode(key)) == 0 {
		return fmt.Errorf("%q: %w", key, ErrInvalidKey)
	}

	return nil
}
