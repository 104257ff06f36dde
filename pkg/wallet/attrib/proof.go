/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package attrib

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/presentproof"
)

// ErrNoMatchingCredential is returned when no held credential answers a referent of a proof request.
var ErrNoMatchingCredential = errors.New("no matching credential")

func hasAll(values map[string]string, names []string) bool {
	for _, name := range names {
		if _, ok := values[name]; !ok {
			return false
		}
	}

	return len(names) > 0
}

// RequestedCredentialsFor picks for every referent the first held credential answering it.
func (w *Wallet) RequestedCredentialsFor(request *presentproof.ProofRequest) (*presentproof.RequestedCredentials,
	error) {
	held, err := w.credentials.FindAll()
	if err != nil {
		return nil, err
	}

	slices.SortFunc(held, func(a, b *CredentialRecord) int { return strings.Compare(a.ID, b.ID) })

	selected := &presentproof.RequestedCredentials{
		Attributes: map[string]string{},
		Predicates: map[string]string{},
	}

	for referent, info := range request.RequestedAttributes {
		names := info.AttributeNames()

		i := slices.IndexFunc(held, func(c *CredentialRecord) bool {
			return presentproof.MatchesAny(info.Restrictions, c.SchemaID, c.CredDefID) &&
				hasAll(c.Credential.Values, names)
		})
		if i < 0 {
			return nil, fmt.Errorf("attribute %s %v: %w", referent, names, ErrNoMatchingCredential)
		}

		selected.Attributes[referent] = held[i].ID
	}

	for referent, info := range request.RequestedPredicates {
		i := slices.IndexFunc(held, func(c *CredentialRecord) bool {
			if !presentproof.MatchesAny(info.Restrictions, c.SchemaID, c.CredDefID) {
				return false
			}

			v, ok := c.Credential.Values[info.Name]
			if !ok {
				return false
			}

			satisfied, err := presentproof.Satisfies(v, info.PredicateType, info.PredicateValue)

			return err == nil && satisfied
		})
		if i < 0 {
			return nil, fmt.Errorf("predicate %s on %s: %w", referent, info.Name, ErrNoMatchingCredential)
		}

		selected.Predicates[referent] = held[i].ID
	}

	return selected, nil
}

// CreateProof discloses the requested attributes from the selected credentials.
func (w *Wallet) CreateProof(request *presentproof.ProofRequest,
	selected *presentproof.RequestedCredentials) (*presentproof.Proof, error) {
	proof := &presentproof.Proof{
		Nonce:      request.Nonce,
		Revealed:   map[string]presentproof.RevealedAttribute{},
		Predicates: map[string]int{},
	}

	indexes := map[string]int{}

	include := func(credentialID string) (*CredentialRecord, int, error) {
		rec, err := w.credentials.GetByID(credentialID)
		if err != nil {
			return nil, 0, err
		}

		if i, ok := indexes[credentialID]; ok {
			return rec, i, nil
		}

		raw, err := json.Marshal(rec.Credential)
		if err != nil {
			return nil, 0, err
		}

		indexes[credentialID] = len(proof.Credentials)
		proof.Credentials = append(proof.Credentials, raw)

		return rec, indexes[credentialID], nil
	}

	for _, referent := range sortedKeys(request.RequestedAttributes) {
		info := request.RequestedAttributes[referent]

		credentialID, ok := selected.Attributes[referent]
		if !ok {
			return nil, fmt.Errorf("no credential selected for attribute %s: %w", referent, ErrNoMatchingCredential)
		}

		rec, i, err := include(credentialID)
		if err != nil {
			return nil, err
		}

		revealed := presentproof.RevealedAttribute{Values: map[string]string{}, CredentialIndex: i}

		for _, name := range info.AttributeNames() {
			v, ok := rec.Credential.Values[name]
			if !ok {
				return nil, fmt.Errorf("credential %s lacks %s: %w", credentialID, name, ErrNoMatchingCredential)
			}

			revealed.Values[name] = v
		}

		proof.Revealed[referent] = revealed
	}

	for _, referent := range sortedKeys(request.RequestedPredicates) {
		info := request.RequestedPredicates[referent]

		credentialID, ok := selected.Predicates[referent]
		if !ok {
			return nil, fmt.Errorf("no credential selected for predicate %s: %w", referent, ErrNoMatchingCredential)
		}

		rec, i, err := include(credentialID)
		if err != nil {
			return nil, err
		}

		satisfied, err := presentproof.Satisfies(rec.Credential.Values[info.Name], info.PredicateType,
			info.PredicateValue)
		if err != nil {
			return nil, err
		}

		if !satisfied {
			return nil, fmt.Errorf("credential %s does not satisfy %s %s %d: %w", credentialID, info.Name,
				info.PredicateType, info.PredicateValue, ErrNoMatchingCredential)
		}

		proof.Predicates[referent] = i
	}

	return proof, nil
}

// VerifyProof checks that proof answers request with credentials issued under their credential definitions.
func (w *Wallet) VerifyProof(request *presentproof.ProofRequest, proof *presentproof.Proof) (bool, error) {
	if proof.Nonce != request.Nonce {
		logger.Debugf("proof nonce %s does not match request nonce %s", proof.Nonce, request.Nonce)

		return false, nil
	}

	creds := make([]*issuecredential.Credential, len(proof.Credentials))

	for i, raw := range proof.Credentials {
		var cred issuecredential.Credential

		if err := json.Unmarshal(raw, &cred); err != nil {
			logger.Debugf("proof credential %d: %v", i, err)

			return false, nil
		}

		if err := w.verifyCredential(&cred); err != nil {
			logger.Debugf("proof credential %d: %v", i, err)

			return false, nil
		}

		creds[i] = &cred
	}

	credential := func(i int) *issuecredential.Credential {
		if i < 0 || i >= len(creds) {
			return nil
		}

		return creds[i]
	}

	for referent, info := range request.RequestedAttributes {
		revealed, ok := proof.Revealed[referent]
		if !ok {
			logger.Debugf("attribute %s not revealed", referent)

			return false, nil
		}

		cred := credential(revealed.CredentialIndex)
		if cred == nil || !presentproof.MatchesAny(info.Restrictions, cred.SchemaID, cred.CredDefID) {
			return false, nil
		}

		for _, name := range info.AttributeNames() {
			v, ok := cred.Values[name]
			if !ok || revealed.Values[name] != v {
				logger.Debugf("attribute %s value %s not backed by its credential", referent, name)

				return false, nil
			}
		}
	}

	for referent, info := range request.RequestedPredicates {
		i, ok := proof.Predicates[referent]
		if !ok {
			return false, nil
		}

		cred := credential(i)
		if cred == nil || !presentproof.MatchesAny(info.Restrictions, cred.SchemaID, cred.CredDefID) {
			return false, nil
		}

		satisfied, err := presentproof.Satisfies(cred.Values[info.Name], info.PredicateType, info.PredicateValue)
		if err != nil || !satisfied {
			return false, nil
		}
	}

	return true, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)

	return keys
}
