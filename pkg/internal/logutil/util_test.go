/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logutil

import (
	"testing"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/stretchr/testify/require"
)

func TestLogUtil(t *testing.T) {
	logger := log.New("aries-agent/logutil-test")

	require.NotPanics(t, func() {
		LogError(logger, "connection", "CreateInvitation", "failed", CreateKeyValueString("alias", "bob"))
		LogDebug(logger, "connection", "CreateInvitation", "success")
		LogInfo(logger, "connection", "CreateInvitation", "started")
	})

	require.Equal(t, "alias=[bob]", CreateKeyValueString("alias", "bob"))
}
