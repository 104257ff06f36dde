/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package service holds the message and event types shared by the protocol services.
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

const (
	jsonID     = "@id"
	jsonType   = "@type"
	jsonThread = "~thread"
	jsonThID   = "thid"
	jsonPThID  = "pthid"
)

var (
	// ErrThreadIDNotFound is returned when a message carries neither a thread id nor an id.
	ErrThreadIDNotFound = errors.New("threadID not found")
	// ErrInvalidMessage is returned for payloads that are not DIDComm messages.
	ErrInvalidMessage = errors.New("invalid DIDComm message")
)

// DIDCommMsgMap is a decoded DIDComm message.
type DIDCommMsgMap map[string]interface{}

// ParseDIDCommMsgMap parses a JSON message. The message must have a type.
func ParseDIDCommMsgMap(payload []byte) (DIDCommMsgMap, error) {
	var msg DIDCommMsgMap

	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidMessage)
	}

	if msg.Type() == "" {
		return nil, fmt.Errorf("message has no @type: %w", ErrInvalidMessage)
	}

	return msg, nil
}

// NewDIDCommMsgMap converts a message struct to a DIDCommMsgMap, assigning an id when the struct has none.
func NewDIDCommMsgMap(v interface{}) (DIDCommMsgMap, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	var msg DIDCommMsgMap

	if err = json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}

	if msg.ID() == "" {
		msg[jsonID] = uuid.New().String()
	}

	return msg, nil
}

// ID returns the message id.
func (m DIDCommMsgMap) ID() string {
	return m.str(jsonID)
}

// Type returns the message type.
func (m DIDCommMsgMap) Type() string {
	return m.str(jsonType)
}

// ThreadID returns ~thread.thid, or the message id when the message starts a thread.
func (m DIDCommMsgMap) ThreadID() (string, error) {
	if thid := m.threadField(jsonThID); thid != "" {
		return thid, nil
	}

	if id := m.ID(); id != "" {
		return id, nil
	}

	return "", ErrThreadIDNotFound
}

// ParentThreadID returns ~thread.pthid.
func (m DIDCommMsgMap) ParentThreadID() string {
	return m.threadField(jsonPThID)
}

// Decode decodes the message into a message struct using its json tags.
func (m DIDCommMsgMap) Decode(v interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     v,
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("message decoder: %w", err)
	}

	if err = decoder.Decode(map[string]interface{}(m)); err != nil {
		return fmt.Errorf("decode %s message: %w", m.Type(), err)
	}

	return nil
}

// Clone returns a deep copy of the message.
func (m DIDCommMsgMap) Clone() DIDCommMsgMap {
	if m == nil {
		return nil
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return nil
	}

	var msg DIDCommMsgMap

	if json.Unmarshal(raw, &msg) != nil {
		return nil
	}

	return msg
}

func (m DIDCommMsgMap) str(key string) string {
	if m == nil {
		return ""
	}

	s, _ := m[key].(string) // nolint: errcheck

	return s
}

func (m DIDCommMsgMap) threadField(key string) string {
	if m == nil {
		return ""
	}

	thread, ok := m[jsonThread].(map[string]interface{})
	if !ok {
		return ""
	}

	s, _ := thread[key].(string) // nolint: errcheck

	return s
}
