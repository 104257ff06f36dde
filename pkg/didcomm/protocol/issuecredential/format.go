/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ErrValuesMismatch is returned when a credential does not carry the values negotiated in its exchange.
var ErrValuesMismatch = errors.New("credential values do not match preview")

// Offer is the format payload of an offer-credential message.
type Offer struct {
	SchemaID  string `json:"schema_id"`
	CredDefID string `json:"cred_def_id"`
	Nonce     string `json:"nonce"`
	// Issuer is the key the credential will be signed with.
	Issuer string `json:"issuer,omitempty"`
}

// Request is the format payload of a request-credential message.
type Request struct {
	CredDefID string `json:"cred_def_id"`
	ProverDID string `json:"prover_did"`
	Nonce     string `json:"nonce"`
}

// Credential is the format payload of an issue-credential message.
type Credential struct {
	SchemaID  string            `json:"schema_id"`
	CredDefID string            `json:"cred_def_id"`
	Values    map[string]string `json:"values"`
	// Proof is the format specific proof over the credential.
	Proof json.RawMessage `json:"proof,omitempty"`
}

// Issuer creates the format payloads of the issuer role.
type Issuer interface {
	CreateOffer(credDefID string) (*Offer, error)
	CreateCredential(offer *Offer, request *Request, values map[string]string) (*Credential, error)
}

// Holder creates the format payloads of the holder role and keeps received credentials.
type Holder interface {
	// CreateRequest returns the request for offer and the metadata needed to store the credential later.
	CreateRequest(holderDID string, offer *Offer) (*Request, json.RawMessage, error)
	// StoreCredential verifies and stores cred, returning its id in the holder's wallet.
	StoreCredential(cred *Credential, requestMetadata json.RawMessage) (string, error)
}

// Values returns the attribute values of a preview keyed by name.
func Values(attrs []Attribute) map[string]string {
	values := make(map[string]string, len(attrs))

	for _, a := range attrs {
		values[a.Name] = a.Value
	}

	return values
}

// CheckValuesMatch reports whether actual and expected hold the same names and values.
func CheckValuesMatch(actual, expected map[string]string) bool {
	return maps.Equal(actual, expected)
}

// AssertValuesMatch fails with ErrValuesMismatch naming the differing attributes.
func AssertValuesMatch(actual, expected map[string]string) error {
	if CheckValuesMatch(actual, expected) {
		return nil
	}

	var diff []string

	for name, v := range expected {
		if got, ok := actual[name]; !ok || got != v {
			diff = append(diff, name)
		}
	}

	for name := range actual {
		if _, ok := expected[name]; !ok {
			diff = append(diff, name)
		}
	}

	slices.Sort(diff)

	return fmt.Errorf("attributes %v: %w", diff, ErrValuesMismatch)
}
