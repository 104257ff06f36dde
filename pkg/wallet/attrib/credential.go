/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package attrib

import (
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

// CredentialRecordType is the name held credentials are stored under.
const CredentialRecordType = "attribCredential"

const (
	tagSchemaID  = "schemaId"
	tagCredDefID = "credDefId"
)

// CredentialRecord is a credential held by the wallet.
type CredentialRecord struct {
	record.BaseRecord
	Credential *issuecredential.Credential `json:"credential"`

	SchemaID  string `json:"schemaId"`
	CredDefID string `json:"credDefId"`
}

// RecordType returns the record type.
func (r *CredentialRecord) RecordType() string {
	return CredentialRecordType
}

// ToTags projects the indexed attributes.
func (r *CredentialRecord) ToTags() record.Tags {
	tags := r.CustomTags()
	tags[tagSchemaID] = r.SchemaID
	tags[tagCredDefID] = r.CredDefID

	return tags
}

// FromTags restores the indexed attributes.
func (r *CredentialRecord) FromTags(tags record.Tags) error {
	r.SchemaID = tags[tagSchemaID]
	r.CredDefID = tags[tagCredDefID]
	r.SetCustomTags(tags, tagSchemaID, tagCredDefID)

	return nil
}
