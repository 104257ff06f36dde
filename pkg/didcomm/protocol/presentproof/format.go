/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownPredicate is returned for predicate types other than >=, >, <= and <.
var ErrUnknownPredicate = errors.New("unknown predicate type")

// ProofRequest is the format payload of a request-presentation message.
type ProofRequest struct {
	Name                string                   `json:"name"`
	Version             string                   `json:"version"`
	Nonce               string                   `json:"nonce"`
	RequestedAttributes map[string]AttributeInfo `json:"requested_attributes"`
	RequestedPredicates map[string]PredicateInfo `json:"requested_predicates"`
}

// AttributeInfo requests one attribute, or several that must come from the same credential.
type AttributeInfo struct {
	Name         string            `json:"name,omitempty"`
	Names        []string          `json:"names,omitempty"`
	Restrictions []AttributeFilter `json:"restrictions,omitempty"`
}

// AttributeNames returns the names requested by the attribute info.
func (a AttributeInfo) AttributeNames() []string {
	if a.Name != "" {
		return []string{a.Name}
	}

	return a.Names
}

// PredicateInfo requests proof that an attribute satisfies a comparison.
type PredicateInfo struct {
	Name           string            `json:"name"`
	PredicateType  string            `json:"p_type"`
	PredicateValue int               `json:"p_value"`
	Restrictions   []AttributeFilter `json:"restrictions,omitempty"`
}

// AttributeFilter restricts which credentials may satisfy a requested attribute or predicate.
type AttributeFilter struct {
	SchemaID  string `json:"schema_id,omitempty"`
	CredDefID string `json:"cred_def_id,omitempty"`
}

// Matches reports whether a credential of schemaID and credDefID passes the filter.
func (f AttributeFilter) Matches(schemaID, credDefID string) bool {
	return (f.SchemaID == "" || f.SchemaID == schemaID) && (f.CredDefID == "" || f.CredDefID == credDefID)
}

// MatchesAny reports whether a credential passes at least one filter; no filters match everything.
func MatchesAny(filters []AttributeFilter, schemaID, credDefID string) bool {
	if len(filters) == 0 {
		return true
	}

	for _, f := range filters {
		if f.Matches(schemaID, credDefID) {
			return true
		}
	}

	return false
}

// RequestedCredentials selects for every referent of a proof request the credential answering it.
type RequestedCredentials struct {
	// Attributes maps attribute referents to credential ids.
	Attributes map[string]string `json:"requested_attributes"`
	// Predicates maps predicate referents to credential ids.
	Predicates map[string]string `json:"requested_predicates"`
}

// Proof is the format payload of a presentation message.
type Proof struct {
	Nonce string `json:"nonce"`
	// Revealed maps attribute referents to the disclosed values.
	Revealed map[string]RevealedAttribute `json:"revealed_attrs"`
	// Predicates maps predicate referents to the credential proving them.
	Predicates map[string]int `json:"predicates"`
	// Credentials are the format specific credentials the proof is built from.
	Credentials []json.RawMessage `json:"credentials"`
}

// RevealedAttribute is a disclosed attribute.
type RevealedAttribute struct {
	// Values holds each requested name's value.
	Values          map[string]string `json:"values"`
	CredentialIndex int               `json:"credential_index"`
}

// Prover answers proof requests from the credentials it holds.
type Prover interface {
	// RequestedCredentialsFor selects a credential for each referent of request.
	RequestedCredentialsFor(request *ProofRequest) (*RequestedCredentials, error)
	CreateProof(request *ProofRequest, credentials *RequestedCredentials) (*Proof, error)
}

// Verifier verifies proofs.
type Verifier interface {
	// VerifyProof reports whether proof answers request. An error means the proof could not be checked.
	VerifyProof(request *ProofRequest, proof *Proof) (bool, error)
}

// Satisfies evaluates the predicate "value predicateType threshold".
func Satisfies(value, predicateType string, threshold int) (bool, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return false, fmt.Errorf("predicate on non integer value %q: %w", value, err)
	}

	switch predicateType {
	case ">=":
		return v >= threshold, nil
	case ">":
		return v > threshold, nil
	case "<=":
		return v <= threshold, nil
	case "<":
		return v < threshold, nil
	default:
		return false, fmt.Errorf("%q: %w", predicateType, ErrUnknownPredicate)
	}
}
