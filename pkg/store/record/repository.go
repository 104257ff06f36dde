/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package record

import (
	"encoding/json"
	"fmt"
)

// Pointer constrains P to be a *T implementing Record.
type Pointer[T any] interface {
	*T
	Record
}

// Repository is a typed view of the Service for a single record type.
type Repository[T any, P Pointer[T]] struct {
	svc        *Service
	recordType string
}

// NewRepository returns a Repository for records of type T.
func NewRepository[T any, P Pointer[T]](svc *Service) *Repository[T, P] {
	return &Repository[T, P]{svc: svc, recordType: P(new(T)).RecordType()}
}

// RecordType returns the name records of this repository are stored under.
func (r *Repository[T, P]) RecordType() string {
	return r.recordType
}

// Save stores a new record.
func (r *Repository[T, P]) Save(rec P) error {
	return r.svc.Save(rec)
}

// SaveUnique stores a new record unless another record already matches query.
func (r *Repository[T, P]) SaveUnique(rec P, query Tags) error {
	return r.svc.SaveUnique(rec, query)
}

// Update overwrites an existing record.
func (r *Repository[T, P]) Update(rec P) error {
	return r.svc.Update(rec)
}

// Delete removes rec.
func (r *Repository[T, P]) Delete(rec P) error {
	return r.svc.Delete(rec)
}

// DeleteByID removes the record with the given id.
func (r *Repository[T, P]) DeleteByID(id string) error {
	return r.svc.DeleteByID(r.recordType, id)
}

// GetByID returns the record with the given id or an error wrapping ErrRecordNotFound.
func (r *Repository[T, P]) GetByID(id string) (P, error) {
	entry, err := r.svc.Get(r.recordType, id)
	if err != nil {
		return nil, err
	}

	return r.decode(entry)
}

// FindByID returns the record with the given id, or nil if there is none.
func (r *Repository[T, P]) FindByID(id string) (P, error) {
	rec, err := r.GetByID(id)
	if IsNotFound(err) {
		return nil, nil
	}

	return rec, err
}

// FindAll returns every record of the type.
func (r *Repository[T, P]) FindAll() ([]P, error) {
	return r.FindByQuery(nil)
}

// FindByQuery returns the records whose tags contain every pair of query.
func (r *Repository[T, P]) FindByQuery(query Tags) ([]P, error) {
	entries, err := r.svc.Query(r.recordType, query)
	if err != nil {
		return nil, err
	}

	records := make([]P, 0, len(entries))

	for _, entry := range entries {
		rec, err := r.decode(entry)
		if err != nil {
			return nil, err
		}

		records = append(records, rec)
	}

	return records, nil
}

// GetSingleByQuery returns the only record matching query. No match wraps ErrRecordNotFound,
// several matches wrap ErrRecordDuplicate.
func (r *Repository[T, P]) GetSingleByQuery(query Tags) (P, error) {
	rec, err := r.FindSingleByQuery(query)
	if err != nil {
		return nil, err
	}

	if rec == nil {
		return nil, fmt.Errorf("%s record matching %v: %w", r.recordType, query, ErrRecordNotFound)
	}

	return rec, nil
}

// FindSingleByQuery returns the only record matching query, or nil if there is none.
// Several matches wrap ErrRecordDuplicate.
func (r *Repository[T, P]) FindSingleByQuery(query Tags) (P, error) {
	records, err := r.FindByQuery(query)
	if err != nil {
		return nil, err
	}

	switch len(records) {
	case 0:
		return nil, nil
	case 1:
		return records[0], nil
	default:
		return nil, fmt.Errorf("%d %s records matching %v: %w", len(records), r.recordType, query, ErrRecordDuplicate)
	}
}

func (r *Repository[T, P]) decode(entry *Entry) (P, error) {
	rec := P(new(T))

	if err := json.Unmarshal(entry.Value, rec); err != nil {
		return nil, fmt.Errorf("unmarshal %s record %s: %w", r.recordType, entry.ID, err)
	}

	if err := rec.FromTags(entry.Tags); err != nil {
		return nil, fmt.Errorf("%s record %s tags: %w", r.recordType, entry.ID, err)
	}

	return rec, nil
}
