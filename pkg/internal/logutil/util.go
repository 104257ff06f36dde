/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package logutil formats command log lines.
package logutil

import (
	"fmt"
	"strings"

	"github.com/hyperledger/aries-framework-go/component/log"
)

// LogError logs a failed command action.
func LogError(logger *log.Log, command, action, errMsg string, data ...string) {
	logger.Errorf("%s errMsg=[%s]", prefix(command, action, data), errMsg)
}

// LogDebug logs a command action at debug level.
func LogDebug(logger *log.Log, command, action, msg string, data ...string) {
	logger.Debugf("%s msg=[%s]", prefix(command, action, data), msg)
}

// LogInfo logs a command action at info level.
func LogInfo(logger *log.Log, command, action, msg string, data ...string) {
	logger.Infof("%s msg=[%s]", prefix(command, action, data), msg)
}

// CreateKeyValueString formats a key value pair for the data of a log line.
func CreateKeyValueString(key, val string) string {
	return fmt.Sprintf("%s=[%s]", key, val)
}

func prefix(command, action string, data []string) string {
	if len(data) == 0 {
		return fmt.Sprintf("command=[%s] action=[%s]", command, action)
	}

	return fmt.Sprintf("command=[%s] action=[%s] %s", command, action, strings.Join(data, " "))
}
