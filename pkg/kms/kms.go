/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package kms defines the key management boundary. Callers address keys by their base58 verkey and never
// hold private key material.
package kms

import "errors"

// ErrKeyNotFound is returned when a verkey has no private key in the key manager.
var ErrKeyNotFound = errors.New("key not found")

// KeyManager creates signing keys and signs with them.
type KeyManager interface {
	// CreateKey creates a new signing key and returns its base58 verkey.
	CreateKey() (string, error)
	// Sign signs msg with the private key behind verkey.
	Sign(msg []byte, verkey string) ([]byte, error)
}

// Verifier checks signatures made by a verkey.
type Verifier interface {
	Verify(signature, msg []byte, verkey string) error
}

// Provider returns the key manager of an agent context.
type Provider interface {
	KMS() KeyManager
}
