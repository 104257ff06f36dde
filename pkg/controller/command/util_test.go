/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package command

import (
	"bytes"
	"errors"
	"testing"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/stretchr/testify/require"
)

func TestWriteNillableResponse(t *testing.T) {
	logger := log.New("aries-agent/command-test")

	t.Run("test nil response", func(t *testing.T) {
		var b bytes.Buffer

		WriteNillableResponse(&b, nil, logger)
		require.Equal(t, "{}\n", b.String())
	})

	t.Run("test response", func(t *testing.T) {
		var b bytes.Buffer

		WriteNillableResponse(&b, map[string]string{"id": "1"}, logger)
		require.JSONEq(t, `{"id":"1"}`, b.String())
	})
}

func TestErrors(t *testing.T) {
	validation := NewValidationError(Code(Connection), errors.New("invalid"))
	require.Equal(t, ValidationError, validation.Type())
	require.EqualValues(t, Connection, validation.Code())
	require.EqualError(t, validation, "invalid")

	execute := NewExecuteError(Code(Tenant)+1, errors.New("failed"))
	require.Equal(t, ExecuteError, execute.Type())
	require.EqualValues(t, 5001, execute.Code())
}
