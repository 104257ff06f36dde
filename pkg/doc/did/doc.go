/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package did models the pairwise DID documents exchanged by the connection protocol.
package did

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/exp/slices"
)

const (
	// ContextV0 is the DID document context used by pairwise documents.
	ContextV0 = "https://w3id.org/did/v0.11"

	// Ed25519VerificationKey2018 public key type.
	Ed25519VerificationKey2018 = "Ed25519VerificationKey2018"
	// Ed25519SignatureAuthentication2018 authentication type.
	Ed25519SignatureAuthentication2018 = "Ed25519SignatureAuthentication2018"

	// DIDCommServiceType is the service type of DIDComm endpoints.
	DIDCommServiceType = "did-communication"
	// IndyAgentServiceType is the legacy service type, kept for interop.
	IndyAgentServiceType = "IndyAgent"

	didLength = 16
)

// ErrNoDIDCommService is returned for documents without a usable DIDComm service.
var ErrNoDIDCommService = errors.New("DID document has no DIDComm service")

// Doc DID document.
type Doc struct {
	Context        string           `json:"@context,omitempty"`
	ID             string           `json:"id"`
	PublicKey      []PublicKey      `json:"publicKey,omitempty"`
	Authentication []Authentication `json:"authentication,omitempty"`
	Service        []Service        `json:"service,omitempty"`
}

// PublicKey DID document public key.
type PublicKey struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Controller      string `json:"controller"`
	PublicKeyBase58 string `json:"publicKeyBase58"`
}

// Authentication references a public key usable for authentication.
type Authentication struct {
	Type      string `json:"type"`
	PublicKey string `json:"publicKey"`
}

// Service DID document service endpoint.
type Service struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	Priority        int      `json:"priority,omitempty"`
	RecipientKeys   []string `json:"recipientKeys,omitempty"`
	RoutingKeys     []string `json:"routingKeys,omitempty"`
	ServiceEndpoint string   `json:"serviceEndpoint"`
}

// FromVerkey derives the unqualified pairwise DID of a base58 verkey: the base58 of its first 16 bytes.
func FromVerkey(verkey string) (string, error) {
	raw := base58.Decode(verkey)
	if len(raw) < didLength {
		return "", fmt.Errorf("verkey %s is too short for a DID", verkey)
	}

	return base58.Encode(raw[:didLength]), nil
}

// NewPairwiseDoc builds a DID document for verkey reachable at endpoint.
func NewPairwiseDoc(verkey, endpoint string, routingKeys []string) (*Doc, error) {
	id, err := FromVerkey(verkey)
	if err != nil {
		return nil, err
	}

	keyID := id + "#1"

	return &Doc{
		Context: ContextV0,
		ID:      id,
		PublicKey: []PublicKey{{
			ID:              keyID,
			Type:            Ed25519VerificationKey2018,
			Controller:      id,
			PublicKeyBase58: verkey,
		}},
		Authentication: []Authentication{{Type: Ed25519SignatureAuthentication2018, PublicKey: keyID}},
		Service: []Service{
			{
				ID:              id + "#did-communication",
				Type:            DIDCommServiceType,
				Priority:        0,
				RecipientKeys:   []string{verkey},
				RoutingKeys:     routingKeys,
				ServiceEndpoint: endpoint,
			},
			{
				ID:              id + "#IndyAgentService",
				Type:            IndyAgentServiceType,
				Priority:        1,
				RecipientKeys:   []string{verkey},
				RoutingKeys:     routingKeys,
				ServiceEndpoint: endpoint,
			},
		},
	}, nil
}

// DIDCommService returns the DIDComm service with the lowest priority value.
func (d *Doc) DIDCommService() (*Service, error) {
	if d == nil {
		return nil, ErrNoDIDCommService
	}

	var candidates []Service

	for _, s := range d.Service {
		if (s.Type == DIDCommServiceType || s.Type == IndyAgentServiceType) && len(s.RecipientKeys) > 0 {
			candidates = append(candidates, s)
		}
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%s: %w", d.ID, ErrNoDIDCommService)
	}

	slices.SortStableFunc(candidates, func(a, b Service) int { return a.Priority - b.Priority })

	return &candidates[0], nil
}

// RecipientKey returns the first recipient key of the DIDComm service.
func (d *Doc) RecipientKey() (string, error) {
	s, err := d.DIDCommService()
	if err != nil {
		return "", err
	}

	return s.RecipientKeys[0], nil
}
