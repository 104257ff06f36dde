/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"encoding/json"
	"io"

	"github.com/hyperledger/aries-framework-go/spi/log"
)

// WriteNillableResponse writes v to w as JSON, or an empty object when v is nil.
// Write failures are only logged since the response is already underway.
func WriteNillableResponse(w io.Writer, v interface{}, l log.Logger) {
	if v == nil {
		v = map[string]interface{}{}
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		l.Errorf("failed to write command response: %s", err)
	}
}
