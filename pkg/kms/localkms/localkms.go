/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package localkms is a KeyManager keeping ed25519 seeds in a storage provider.
package localkms

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/hyperledger/aries-agent-go/pkg/kms"
)

// Namespace is the store the private keys are kept in.
const Namespace = "kms"

var logger = log.New("aries-agent/kms/localkms")

// ErrInvalidSignature is returned when a signature does not verify.
var ErrInvalidSignature = errors.New("invalid signature")

// LocalKMS stores ed25519 seeds keyed by base58 verkey.
type LocalKMS struct {
	store storage.Store
}

// New opens the kms store of p.
func New(p storage.Provider) (*LocalKMS, error) {
	store, err := p.OpenStore(Namespace)
	if err != nil {
		return nil, fmt.Errorf("open kms store: %w", err)
	}

	return &LocalKMS{store: store}, nil
}

// CreateKey creates an ed25519 key pair and returns the base58 public key.
func (k *LocalKMS) CreateKey() (string, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate ed25519 key: %w", err)
	}

	verkey := base58.Encode(pub)

	if err = k.store.Put(verkey, priv.Seed()); err != nil {
		return "", fmt.Errorf("store key %s: %w", verkey, err)
	}

	logger.Debugf("created key %s", verkey)

	return verkey, nil
}

// Sign signs msg with the key behind verkey.
func (k *LocalKMS) Sign(msg []byte, verkey string) ([]byte, error) {
	seed, err := k.store.Get(verkey)
	if err != nil {
		if errors.Is(err, storage.ErrDataNotFound) {
			return nil, fmt.Errorf("sign with %s: %w", verkey, kms.ErrKeyNotFound)
		}

		return nil, fmt.Errorf("sign with %s: %w", verkey, err)
	}

	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("sign with %s: invalid seed length %d", verkey, len(seed))
	}

	return ed25519.Sign(ed25519.NewKeyFromSeed(seed), msg), nil
}

// Verify checks signature over msg with the base58 verkey.
func (k *LocalKMS) Verify(signature, msg []byte, verkey string) error {
	return Verify(signature, msg, verkey)
}

// Verify checks an ed25519 signature with a base58 public key. No private material is needed.
func Verify(signature, msg []byte, verkey string) error {
	pub := base58.Decode(verkey)
	if len(pub) != ed25519.PublicKeySize {
		return fmt.Errorf("verkey %s: invalid public key length %d", verkey, len(pub))
	}

	if !ed25519.Verify(pub, msg, signature) {
		return ErrInvalidSignature
	}

	return nil
}
