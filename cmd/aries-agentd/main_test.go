/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"os"
	"testing"
)

// main prints the help text and exits with code 0 when called without arguments.
func TestWithoutUserAgs(t *testing.T) { //nolint: unparam
	setUpArgs()
	main()
}

// Strips out the extra args that the unit test framework adds.
func setUpArgs() {
	os.Args = os.Args[:1]
}
