/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package attrib

import (
	"encoding/json"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-agent-go/pkg/crypto/signature"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/presentproof"
	"github.com/hyperledger/aries-agent-go/pkg/kms/localkms"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

func newWallet(t *testing.T) *Wallet {
	t.Helper()

	provider := mem.NewProvider()

	k, err := localkms.New(provider)
	require.NoError(t, err)

	return New(record.NewService(provider), k, k)
}

// issue runs offer, request and credential between issuer and holder and returns the stored credential id.
func issue(t *testing.T, issuer, holder *Wallet, credDefID string, values map[string]string) string {
	t.Helper()

	offer, err := issuer.CreateOffer(credDefID)
	require.NoError(t, err)

	request, metadata, err := holder.CreateRequest("did:example:holder", offer)
	require.NoError(t, err)

	cred, err := issuer.CreateCredential(offer, request, values)
	require.NoError(t, err)

	id, err := holder.StoreCredential(cred, metadata)
	require.NoError(t, err)

	return id
}

func TestCredentialDefinition(t *testing.T) {
	w := newWallet(t)

	id, err := w.CreateCredentialDefinition("schema:1.0", "default")
	require.NoError(t, err)

	def, err := parseCredDefID(id)
	require.NoError(t, err)
	require.Equal(t, "schema:1.0", def.schemaID)
	require.NotEmpty(t, def.issuer)

	_, err = w.CreateCredentialDefinition("schema", "a:b")
	require.ErrorIs(t, err, ErrInvalidCredDefID)

	_, err = w.CreateOffer("not-a-cred-def")
	require.ErrorIs(t, err, ErrInvalidCredDefID)
}

func TestIssueAndStore(t *testing.T) {
	issuer, holder := newWallet(t), newWallet(t)

	credDefID, err := issuer.CreateCredentialDefinition("degree:1.0", "default")
	require.NoError(t, err)

	t.Run("stored credential", func(t *testing.T) {
		id := issue(t, issuer, holder, credDefID, map[string]string{"name": "Alice", "age": "30"})

		rec, err := holder.GetCredential(id)
		require.NoError(t, err)
		require.Equal(t, credDefID, rec.CredDefID)
		require.Equal(t, "degree:1.0", rec.SchemaID)
		require.Equal(t, "Alice", rec.Credential.Values["name"])

		all, err := holder.GetCredentials()
		require.NoError(t, err)
		require.Len(t, all, 1)
	})

	t.Run("tampered values", func(t *testing.T) {
		offer, err := issuer.CreateOffer(credDefID)
		require.NoError(t, err)

		request, metadata, err := holder.CreateRequest("did:example:holder", offer)
		require.NoError(t, err)

		cred, err := issuer.CreateCredential(offer, request, map[string]string{"name": "Alice"})
		require.NoError(t, err)

		cred.Values["name"] = "Mallory"

		_, err = holder.StoreCredential(cred, metadata)
		require.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("signed by a key other than the issuer", func(t *testing.T) {
		mallory := newWallet(t)
		forgedDef, err := mallory.CreateCredentialDefinition("degree:1.0", "default")
		require.NoError(t, err)

		offer, err := issuer.CreateOffer(credDefID)
		require.NoError(t, err)

		_, metadata, err := holder.CreateRequest("did:example:holder", offer)
		require.NoError(t, err)

		forgedOffer, err := mallory.CreateOffer(forgedDef)
		require.NoError(t, err)

		forged, err := mallory.CreateCredential(forgedOffer, &issuecredential.Request{CredDefID: forgedDef}, nil)
		require.NoError(t, err)

		forged.CredDefID = credDefID

		_, err = holder.StoreCredential(forged, metadata)
		require.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("request for another credential definition", func(t *testing.T) {
		offer, err := issuer.CreateOffer(credDefID)
		require.NoError(t, err)

		request, _, err := holder.CreateRequest("did:example:holder", offer)
		require.NoError(t, err)

		request.CredDefID = "other"

		_, err = issuer.CreateCredential(offer, request, nil)
		require.ErrorIs(t, err, ErrCredDefMismatch)
	})

	t.Run("credential for another credential definition", func(t *testing.T) {
		otherDef, err := issuer.CreateCredentialDefinition("other:1.0", "default")
		require.NoError(t, err)

		offer, err := issuer.CreateOffer(credDefID)
		require.NoError(t, err)

		_, metadata, err := holder.CreateRequest("did:example:holder", offer)
		require.NoError(t, err)

		otherOffer, err := issuer.CreateOffer(otherDef)
		require.NoError(t, err)

		otherRequest, _, err := holder.CreateRequest("did:example:holder", otherOffer)
		require.NoError(t, err)

		cred, err := issuer.CreateCredential(otherOffer, otherRequest, nil)
		require.NoError(t, err)

		_, err = holder.StoreCredential(cred, metadata)
		require.ErrorIs(t, err, ErrCredDefMismatch)
	})

	t.Run("bad proof encoding", func(t *testing.T) {
		offer, err := issuer.CreateOffer(credDefID)
		require.NoError(t, err)

		request, metadata, err := holder.CreateRequest("did:example:holder", offer)
		require.NoError(t, err)

		cred, err := issuer.CreateCredential(offer, request, nil)
		require.NoError(t, err)

		cred.Proof = json.RawMessage(`"nope"`)

		_, err = holder.StoreCredential(cred, metadata)
		require.ErrorIs(t, err, ErrInvalidCredential)
	})
}

func TestProof(t *testing.T) {
	issuer, holder, verifier := newWallet(t), newWallet(t), newWallet(t)

	credDefID, err := issuer.CreateCredentialDefinition("degree:1.0", "default")
	require.NoError(t, err)

	issue(t, issuer, holder, credDefID, map[string]string{"name": "Alice", "degree": "maths", "age": "30"})

	request := &presentproof.ProofRequest{
		Name:    "proof",
		Version: "1.0",
		Nonce:   "1234",
		RequestedAttributes: map[string]presentproof.AttributeInfo{
			"attr_0": {
				Names:        []string{"name", "degree"},
				Restrictions: []presentproof.AttributeFilter{{CredDefID: credDefID}},
			},
		},
		RequestedPredicates: map[string]presentproof.PredicateInfo{
			"pred_0": {Name: "age", PredicateType: ">=", PredicateValue: 18},
		},
	}

	prove := func(t *testing.T) *presentproof.Proof {
		t.Helper()

		selected, err := holder.RequestedCredentialsFor(request)
		require.NoError(t, err)

		proof, err := holder.CreateProof(request, selected)
		require.NoError(t, err)

		return proof
	}

	t.Run("valid proof", func(t *testing.T) {
		proof := prove(t)
		require.Len(t, proof.Credentials, 1)
		require.Equal(t, "maths", proof.Revealed["attr_0"].Values["degree"])

		ok, err := verifier.VerifyProof(request, proof)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("tampered revealed value", func(t *testing.T) {
		proof := prove(t)
		proof.Revealed["attr_0"].Values["degree"] = "physics"

		ok, err := verifier.VerifyProof(request, proof)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("wrong nonce", func(t *testing.T) {
		proof := prove(t)
		proof.Nonce = "other"

		ok, err := verifier.VerifyProof(request, proof)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("credential index out of range", func(t *testing.T) {
		proof := prove(t)
		proof.Predicates["pred_0"] = 7

		ok, err := verifier.VerifyProof(request, proof)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("malformed credential", func(t *testing.T) {
		proof := prove(t)
		proof.Credentials[0] = json.RawMessage(`{`)

		ok, err := verifier.VerifyProof(request, proof)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("unsatisfiable predicate", func(t *testing.T) {
		strict := *request
		strict.RequestedPredicates = map[string]presentproof.PredicateInfo{
			"pred_0": {Name: "age", PredicateType: ">", PredicateValue: 65},
		}

		_, err := holder.RequestedCredentialsFor(&strict)
		require.ErrorIs(t, err, ErrNoMatchingCredential)
	})

	t.Run("restriction excludes every credential", func(t *testing.T) {
		restricted := *request
		restricted.RequestedAttributes = map[string]presentproof.AttributeInfo{
			"attr_0": {Name: "name", Restrictions: []presentproof.AttributeFilter{{SchemaID: "other"}}},
		}

		_, err := holder.RequestedCredentialsFor(&restricted)
		require.ErrorIs(t, err, ErrNoMatchingCredential)
	})

	t.Run("missing selection", func(t *testing.T) {
		_, err := holder.CreateProof(request, &presentproof.RequestedCredentials{})
		require.ErrorIs(t, err, ErrNoMatchingCredential)
	})
}

var _ signature.Verifier = (*localkms.LocalKMS)(nil)
