/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package record

import "errors"

// IsNotFound reports whether err wraps ErrRecordNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// IsDuplicate reports whether err wraps ErrRecordDuplicate.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrRecordDuplicate)
}
