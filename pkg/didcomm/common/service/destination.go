/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package service

// Destination is where and to which keys a message is delivered.
type Destination struct {
	RecipientKeys   []string `json:"recipientKeys"`
	ServiceEndpoint string   `json:"serviceEndpoint"`
	RoutingKeys     []string `json:"routingKeys,omitempty"`
}
