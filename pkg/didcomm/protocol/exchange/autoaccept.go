/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import "fmt"

// AutoAccept is the policy deciding whether inbound messages are answered without user action.
type AutoAccept string

const (
	// AutoAcceptNever leaves every step to the user.
	AutoAcceptNever AutoAccept = "never"
	// AutoAcceptContentApproved answers when the message agrees with what was negotiated before.
	AutoAcceptContentApproved AutoAccept = "contentApproved"
	// AutoAcceptAlways answers every message.
	AutoAcceptAlways AutoAccept = "always"
)

// ParseAutoAccept parses a policy name; the empty string is AutoAcceptNever.
func ParseAutoAccept(s string) (AutoAccept, error) {
	switch a := AutoAccept(s); a {
	case "":
		return AutoAcceptNever, nil
	case AutoAcceptNever, AutoAcceptContentApproved, AutoAcceptAlways:
		return a, nil
	default:
		return "", fmt.Errorf("unknown auto accept policy %q", s)
	}
}

// ComposeAutoAccept returns the record policy, falling back to the agent policy and then to AutoAcceptNever.
func ComposeAutoAccept(recordPolicy, agentPolicy AutoAccept) AutoAccept {
	if recordPolicy != "" {
		return recordPolicy
	}

	if agentPolicy != "" {
		return agentPolicy
	}

	return AutoAcceptNever
}
