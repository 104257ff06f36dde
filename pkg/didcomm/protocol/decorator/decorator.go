/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package decorator

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// MimeTypeJSON is the mime type of JSON attachments.
	MimeTypeJSON = "application/json"

	// AckOnReceipt asks the peer to acknowledge as soon as it receives the message.
	AckOnReceipt = "RECEIPT"
	// AckOnOutcome asks the peer to acknowledge once it has acted on the message.
	AckOnOutcome = "OUTCOME"
)

// ErrAttachmentNotFound is returned when a message has no attachment with the requested id.
var ErrAttachmentNotFound = errors.New("attachment not found")

// Thread thread data.
type Thread struct {
	ID  string `json:"thid,omitempty"`
	PID string `json:"pthid,omitempty"`
}

// PleaseAck requests an acknowledgement.
type PleaseAck struct {
	On []string `json:"on,omitempty"`
}

// Attachment is a DIDComm message attachment.
type Attachment struct {
	ID       string         `json:"@id,omitempty"`
	MimeType string         `json:"mime-type,omitempty"`
	Data     AttachmentData `json:"data"`
}

// AttachmentData holds the attachment payload, inline as base64 or JSON.
type AttachmentData struct {
	Base64 string      `json:"base64,omitempty"`
	JSON   interface{} `json:"json,omitempty"`
}

// NewAttachment base64 encodes the JSON form of v.
func NewAttachment(id string, v interface{}) (Attachment, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Attachment{}, fmt.Errorf("marshal attachment %s: %w", id, err)
	}

	return Attachment{
		ID:       id,
		MimeType: MimeTypeJSON,
		Data:     AttachmentData{Base64: base64.StdEncoding.EncodeToString(raw)},
	}, nil
}

// Fetch returns the raw attachment bytes.
func (d AttachmentData) Fetch() ([]byte, error) {
	if d.JSON != nil {
		return json.Marshal(d.JSON)
	}

	if d.Base64 != "" {
		return base64.StdEncoding.DecodeString(d.Base64)
	}

	return nil, errors.New("attachment has no data")
}

// Decode unmarshals the attachment payload into v.
func (a *Attachment) Decode(v interface{}) error {
	raw, err := a.Data.Fetch()
	if err != nil {
		return fmt.Errorf("attachment %s: %w", a.ID, err)
	}

	return json.Unmarshal(raw, v)
}

// FindAttachment returns the attachment with the given id.
func FindAttachment(attachments []Attachment, id string) (*Attachment, error) {
	for i := range attachments {
		if attachments[i].ID == id {
			return &attachments[i], nil
		}
	}

	return nil, fmt.Errorf("%s: %w", id, ErrAttachmentNotFound)
}

// DecodeAttachment unmarshals the payload of the attachment with the given id into v.
func DecodeAttachment(attachments []Attachment, id string, v interface{}) error {
	a, err := FindAttachment(attachments, id)
	if err != nil {
		return err
	}

	return a.Decode(v)
}
