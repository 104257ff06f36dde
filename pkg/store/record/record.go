/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package record persists typed agent records in a storage provider and looks them up by exact tag match.
package record

import (
	"time"

	"golang.org/x/exp/maps"
)

// Tags is the flat, indexed projection of a record's attributes.
type Tags map[string]string

// Clone returns a copy of the tags.
func (t Tags) Clone() Tags {
	if t == nil {
		return Tags{}
	}

	return maps.Clone(t)
}

// Matches reports whether every pair of query is present in t. An absent tag is equal to "".
func (t Tags) Matches(query Tags) bool {
	for name, value := range query {
		if t[name] != value {
			return false
		}
	}

	return true
}

// Record is a value kept by the storage Service.
//
// ToTags and FromTags form an explicit bidirectional projection between the record's
// attributes and its tags; FromTags(ToTags()) must reproduce the projected attributes.
type Record interface {
	GetID() string
	RecordType() string
	ToTags() Tags
	FromTags(tags Tags) error
}

// BaseRecord holds the identity and custom tags shared by all records.
type BaseRecord struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
	// custom tags, kept next to the tags a record type projects from its attributes.
	Tags Tags `json:"tags,omitempty"`
}

// NewBaseRecord creates a BaseRecord for id.
func NewBaseRecord(id string) BaseRecord {
	return BaseRecord{ID: id, CreatedAt: time.Now().UTC(), Tags: Tags{}}
}

// GetID returns the record id.
func (r *BaseRecord) GetID() string {
	return r.ID
}

// GetTag returns the value of a custom tag.
func (r *BaseRecord) GetTag(name string) string {
	return r.Tags[name]
}

// SetTag sets a custom tag.
func (r *BaseRecord) SetTag(name, value string) {
	if r.Tags == nil {
		r.Tags = Tags{}
	}

	r.Tags[name] = value
}

// CustomTags returns a copy of the custom tags, used by record types as the base of ToTags.
func (r *BaseRecord) CustomTags() Tags {
	return r.Tags.Clone()
}

// SetCustomTags restores custom tags, dropping names a record type projects itself.
func (r *BaseRecord) SetCustomTags(tags Tags, projected ...string) {
	custom := tags.Clone()
	delete(custom, RecordTypeTag)

	for _, name := range projected {
		delete(custom, name)
	}

	r.Tags = custom
}

func (r *BaseRecord) touch(now time.Time) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}

	r.UpdatedAt = now
}

type toucher interface {
	touch(now time.Time)
}
