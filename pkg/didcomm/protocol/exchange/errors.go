/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStateViolation is wrapped by every StateError.
	ErrStateViolation = errors.New("state violation")
	// ErrMissingField is returned when a message or record lacks data the next step needs.
	ErrMissingField = errors.New("missing required field")
	// ErrConnectionMismatch is returned when an inbound message refers to an exchange of another connection.
	ErrConnectionMismatch = errors.New("exchange belongs to another connection")
	// ErrThreadMismatch is returned when a reply does not refer to the thread it answers.
	ErrThreadMismatch = errors.New("thread mismatch")
)

// StateError reports an operation invoked on a record in the wrong state or role.
type StateError struct {
	Protocol string
	RecordID string
	// Field is "state" or "role".
	Field    string
	Current  string
	Expected []string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s record %s is in %s %q, valid %ss: %s", e.Protocol, e.RecordID, e.Field, e.Current,
		e.Field, strings.Join(e.Expected, ", "))
}

// Unwrap makes errors.Is(err, ErrStateViolation) hold.
func (e *StateError) Unwrap() error {
	return ErrStateViolation
}

// MissingField returns an error wrapping ErrMissingField.
func MissingField(msgType, field string) error {
	return fmt.Errorf("%s: %s: %w", msgType, field, ErrMissingField)
}
