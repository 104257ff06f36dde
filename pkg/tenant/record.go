/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tenant

import (
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

const (
	// RecordType of tenant records in the root agent's storage.
	RecordType = "TenantRecord"

	tagLabel = "label"
)

// Record describes a tenant. Its agent context lives in a storage namespace of its own.
type Record struct {
	record.BaseRecord
	Label string `json:"label"`
}

// RecordType returns the record type.
func (r *Record) RecordType() string {
	return RecordType
}

// ToTags projects the indexed attributes.
func (r *Record) ToTags() record.Tags {
	tags := r.CustomTags()
	tags[tagLabel] = r.Label

	return tags
}

// FromTags restores the indexed attributes.
func (r *Record) FromTags(tags record.Tags) error {
	r.Label = tags[tagLabel]
	r.SetCustomTags(tags, tagLabel)

	return nil
}
