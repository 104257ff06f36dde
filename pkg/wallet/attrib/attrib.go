/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package attrib is the default credential format: attribute credentials signed by the issuer with the
// signature decorator and disclosed in full when presented.
//
// A credential definition id has the form <issuer verkey>:3:CL:<schema id>:<tag>, so verifiers learn the
// issuer key from the id alone.
package attrib

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"
	"golang.org/x/exp/maps"

	"github.com/hyperledger/aries-agent-go/pkg/crypto/signature"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-agent-go/pkg/kms"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

const credDefMarker = ":3:CL:"

var logger = log.New("aries-agent/wallet/attrib")

var (
	// ErrInvalidCredDefID is returned for credential definition ids not created by this format.
	ErrInvalidCredDefID = errors.New("invalid credential definition id")
	// ErrCredDefMismatch is returned when a request does not answer the offer's credential definition.
	ErrCredDefMismatch = errors.New("credential definition mismatch")
	// ErrInvalidCredential is returned when a credential's proof does not cover its content or issuer.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Wallet issues, holds and presents attribute credentials.
type Wallet struct {
	kms         kms.KeyManager
	verifier    signature.Verifier
	credentials *record.Repository[CredentialRecord, *CredentialRecord]
}

// New returns a Wallet storing held credentials in svc.
func New(svc *record.Service, km kms.KeyManager, verifier signature.Verifier) *Wallet {
	return &Wallet{
		kms:         km,
		verifier:    verifier,
		credentials: record.NewRepository[CredentialRecord](svc),
	}
}

// CreateCredentialDefinition creates an issuer key for schemaID and returns the credential definition id.
func (w *Wallet) CreateCredentialDefinition(schemaID, tag string) (string, error) {
	if schemaID == "" || tag == "" || strings.Contains(tag, ":") {
		return "", fmt.Errorf("schema %q tag %q: %w", schemaID, tag, ErrInvalidCredDefID)
	}

	key, err := w.kms.CreateKey()
	if err != nil {
		return "", fmt.Errorf("create credential definition key: %w", err)
	}

	return key + credDefMarker + schemaID + ":" + tag, nil
}

type credDef struct {
	issuer   string
	schemaID string
}

func parseCredDefID(id string) (*credDef, error) {
	parts := strings.SplitN(id, credDefMarker, 2)
	if len(parts) != 2 || parts[0] == "" {
		return nil, fmt.Errorf("%q: %w", id, ErrInvalidCredDefID)
	}

	i := strings.LastIndex(parts[1], ":")
	if i <= 0 {
		return nil, fmt.Errorf("%q: %w", id, ErrInvalidCredDefID)
	}

	return &credDef{issuer: parts[0], schemaID: parts[1][:i]}, nil
}

// CreateOffer offers a credential of credDefID.
func (w *Wallet) CreateOffer(credDefID string) (*issuecredential.Offer, error) {
	def, err := parseCredDefID(credDefID)
	if err != nil {
		return nil, err
	}

	return &issuecredential.Offer{
		SchemaID:  def.schemaID,
		CredDefID: credDefID,
		Nonce:     uuid.New().String(),
		Issuer:    def.issuer,
	}, nil
}

// credentialBody is what the issuer signs.
type credentialBody struct {
	SchemaID  string            `json:"schema_id"`
	CredDefID string            `json:"cred_def_id"`
	Values    map[string]string `json:"values"`
	ProverDID string            `json:"prover_did,omitempty"`
}

// CreateCredential signs values with the key of the offer's credential definition.
func (w *Wallet) CreateCredential(offer *issuecredential.Offer, request *issuecredential.Request,
	values map[string]string) (*issuecredential.Credential, error) {
	if request.CredDefID != offer.CredDefID {
		return nil, fmt.Errorf("request for %s answers offer of %s: %w", request.CredDefID, offer.CredDefID,
			ErrCredDefMismatch)
	}

	def, err := parseCredDefID(offer.CredDefID)
	if err != nil {
		return nil, err
	}

	body := &credentialBody{
		SchemaID:  def.schemaID,
		CredDefID: offer.CredDefID,
		Values:    values,
		ProverDID: request.ProverDID,
	}

	sig, err := signature.Sign(body, w.kms, def.issuer)
	if err != nil {
		return nil, fmt.Errorf("sign credential: %w", err)
	}

	proof, err := json.Marshal(sig)
	if err != nil {
		return nil, err
	}

	return &issuecredential.Credential{
		SchemaID:  body.SchemaID,
		CredDefID: body.CredDefID,
		Values:    maps.Clone(values),
		Proof:     proof,
	}, nil
}

type requestMetadata struct {
	CredDefID string `json:"cred_def_id"`
	Issuer    string `json:"issuer"`
	Nonce     string `json:"nonce"`
}

// CreateRequest requests the credential of offer for holderDID.
func (w *Wallet) CreateRequest(holderDID string, offer *issuecredential.Offer) (*issuecredential.Request,
	json.RawMessage, error) {
	def, err := parseCredDefID(offer.CredDefID)
	if err != nil {
		return nil, nil, err
	}

	if offer.Issuer != "" && offer.Issuer != def.issuer {
		return nil, nil, fmt.Errorf("offer issuer %s: %w", offer.Issuer, ErrCredDefMismatch)
	}

	request := &issuecredential.Request{
		CredDefID: offer.CredDefID,
		ProverDID: holderDID,
		Nonce:     uuid.New().String(),
	}

	metadata, err := json.Marshal(&requestMetadata{CredDefID: offer.CredDefID, Issuer: def.issuer, Nonce: offer.Nonce})
	if err != nil {
		return nil, nil, err
	}

	return request, metadata, nil
}

// StoreCredential verifies cred against the request it answers and stores it.
func (w *Wallet) StoreCredential(cred *issuecredential.Credential, metadata json.RawMessage) (string, error) {
	var md requestMetadata

	if err := json.Unmarshal(metadata, &md); err != nil {
		return "", fmt.Errorf("request metadata: %w", err)
	}

	if md.CredDefID != cred.CredDefID {
		return "", fmt.Errorf("credential of %s answers request for %s: %w", cred.CredDefID, md.CredDefID,
			ErrCredDefMismatch)
	}

	if err := w.verifyCredential(cred); err != nil {
		return "", err
	}

	rec := &CredentialRecord{
		BaseRecord: record.NewBaseRecord(uuid.New().String()),
		Credential: cred,
		SchemaID:   cred.SchemaID,
		CredDefID:  cred.CredDefID,
	}

	if err := w.credentials.Save(rec); err != nil {
		return "", fmt.Errorf("store credential: %w", err)
	}

	logger.Debugf("stored credential %s of %s", rec.ID, rec.CredDefID)

	return rec.ID, nil
}

// GetCredential returns a held credential.
func (w *Wallet) GetCredential(id string) (*CredentialRecord, error) {
	return w.credentials.GetByID(id)
}

// GetCredentials returns every held credential.
func (w *Wallet) GetCredentials() ([]*CredentialRecord, error) {
	return w.credentials.FindAll()
}

// verifyCredential checks the issuer signature covers cred and was made by the key of its credential definition.
func (w *Wallet) verifyCredential(cred *issuecredential.Credential) error {
	def, err := parseCredDefID(cred.CredDefID)
	if err != nil {
		return err
	}

	var dec signature.Decorator

	if err = json.Unmarshal(cred.Proof, &dec); err != nil {
		return fmt.Errorf("credential proof: %v: %w", err, ErrInvalidCredential)
	}

	var body credentialBody

	if err = signature.Verify(&dec, w.verifier, &body); err != nil {
		return fmt.Errorf("credential proof: %w", err)
	}

	if dec.Signer != def.issuer {
		return fmt.Errorf("credential signed by %s, issuer is %s: %w", dec.Signer, def.issuer, ErrInvalidCredential)
	}

	if body.SchemaID != cred.SchemaID || body.CredDefID != cred.CredDefID || !maps.Equal(body.Values, cred.Values) {
		return fmt.Errorf("credential content differs from signed content: %w", ErrInvalidCredential)
	}

	return nil
}
