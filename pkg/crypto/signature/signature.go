/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package signature binds a JSON payload to a timestamp and a signer key.
//
// The signed bytes are an 8 byte big-endian unix timestamp followed by the JSON encoding of the payload.
package signature

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// Type of the signature decorator.
	Type = "https://didcomm.org/signature/1.0/ed25519Sha512_single"

	timestampLength = 8
)

// ErrSignatureInvalid is returned when a decorator cannot be decoded or does not verify.
var ErrSignatureInvalid = errors.New("signature invalid")

// Signer signs with the private key behind a verkey.
type Signer interface {
	Sign(msg []byte, verkey string) ([]byte, error)
}

// Verifier verifies a signature made by a verkey.
type Verifier interface {
	Verify(signature, msg []byte, verkey string) error
}

// Decorator is a signed, timestamped payload (the ~sig field decorator).
type Decorator struct {
	Type       string `json:"@type,omitempty"`
	Signature  string `json:"signature,omitempty"`
	SignedData string `json:"sig_data,omitempty"`
	Signer     string `json:"signer,omitempty"`
}

type options struct {
	now    func() time.Time
	maxAge time.Duration
}

// Opt configures Sign and Verify.
type Opt func(*options)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Opt {
	return func(o *options) {
		o.now = now
	}
}

// WithMaxAge makes Verify reject signatures older than d.
func WithMaxAge(d time.Duration) Opt {
	return func(o *options) {
		o.maxAge = d
	}
}

func newOptions(opts []Opt) *options {
	o := &options{now: time.Now}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Sign timestamps and signs the JSON encoding of data with verkey.
func Sign(data interface{}, signer Signer, verkey string, opts ...Opt) (*Decorator, error) {
	o := newOptions(opts)

	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal signed data: %w", err)
	}

	signedData := make([]byte, timestampLength, timestampLength+len(payload))
	binary.BigEndian.PutUint64(signedData, uint64(o.now().Unix()))
	signedData = append(signedData, payload...)

	sig, err := signer.Sign(signedData, verkey)
	if err != nil {
		return nil, fmt.Errorf("sign data: %w", err)
	}

	return &Decorator{
		Type:       Type,
		Signature:  base64.URLEncoding.EncodeToString(sig),
		SignedData: base64.URLEncoding.EncodeToString(signedData),
		Signer:     verkey,
	}, nil
}

// Verify checks the signature against the signer key asserted in the decorator and decodes the payload into out.
// Callers must check separately that dec.Signer is the key they expect.
func Verify(dec *Decorator, verifier Verifier, out interface{}, opts ...Opt) error {
	o := newOptions(opts)

	if dec == nil {
		return fmt.Errorf("missing signature decorator: %w", ErrSignatureInvalid)
	}

	if dec.Signer == "" {
		return fmt.Errorf("missing signer: %w", ErrSignatureInvalid)
	}

	signedData, err := base64.URLEncoding.DecodeString(dec.SignedData)
	if err != nil {
		return fmt.Errorf("decode signed data: %v: %w", err, ErrSignatureInvalid)
	}

	if len(signedData) <= timestampLength {
		return fmt.Errorf("signed data too short: %w", ErrSignatureInvalid)
	}

	sig, err := base64.URLEncoding.DecodeString(dec.Signature)
	if err != nil {
		return fmt.Errorf("decode signature: %v: %w", err, ErrSignatureInvalid)
	}

	if err = verifier.Verify(sig, signedData, dec.Signer); err != nil {
		return fmt.Errorf("verify signature of %s: %v: %w", dec.Signer, err, ErrSignatureInvalid)
	}

	if o.maxAge > 0 {
		signedAt := time.Unix(int64(binary.BigEndian.Uint64(signedData[:timestampLength])), 0)
		if o.now().Sub(signedAt) > o.maxAge {
			return fmt.Errorf("signature from %s is older than %s: %w", signedAt, o.maxAge, ErrSignatureInvalid)
		}
	}

	if err = json.Unmarshal(signedData[timestampLength:], out); err != nil {
		return fmt.Errorf("unmarshal signed data: %w", err)
	}

	return nil
}

// Timestamp returns the signing time carried in the signed data.
func (d *Decorator) Timestamp() (time.Time, error) {
	signedData, err := base64.URLEncoding.DecodeString(d.SignedData)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode signed data: %w", err)
	}

	if len(signedData) < timestampLength {
		return time.Time{}, fmt.Errorf("signed data too short: %w", ErrSignatureInvalid)
	}

	return time.Unix(int64(binary.BigEndian.Uint64(signedData[:timestampLength])), 0), nil
}
