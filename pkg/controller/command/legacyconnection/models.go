/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacyconnection

import (
	"github.com/hyperledger/aries-agent-go/pkg/client/legacyconnection"
)

// CreateInvitationArgs model
//
// This is used for creating invitation.
type CreateInvitationArgs struct {
	// The Alias of the connection to be created
	Alias string `json:"alias,omitempty"`

	// Label presented to the invitee, defaults to the agent label
	Label string `json:"label,omitempty"`

	// AutoAccept overrides the agent auto accept setting for this connection
	AutoAccept *bool `json:"auto_accept,omitempty"`
}

// CreateInvitationResponse model
//
// This is used for returning a create invitation response with a single connection invitation as body.
type CreateInvitationResponse struct {
	Invitation *legacyconnection.Invitation `json:"invitation"`

	ConnectionID string `json:"connection_id"`

	Alias string `json:"alias,omitempty"`
}

// ReceiveInvitationArgs model
//
// This is used for receiving an invitation.
type ReceiveInvitationArgs struct {
	Invitation *legacyconnection.Invitation `json:"invitation"`

	Alias string `json:"alias,omitempty"`

	// AutoAccept overrides the agent auto accept setting for this connection
	AutoAccept *bool `json:"auto_accept,omitempty"`
}

// ConnectionIDArg model
//
// This is used for operations on a single connection.
type ConnectionIDArg struct {
	// The ID of the connection
	ID string `json:"id"`
}

// AcceptInvitationArgs model
//
// This is used for accepting a received invitation.
type AcceptInvitationArgs struct {
	// The ID of the connection
	ID string `json:"id"`

	// Label presented to the inviter, defaults to the agent label
	Label string `json:"label,omitempty"`
}

// TrustPingArgs model
//
// This is used for sending a trust ping over a connection.
type TrustPingArgs struct {
	// The ID of the connection
	ID string `json:"id"`

	ResponseRequested bool `json:"response_requested,omitempty"`
}

// QueryConnectionsArgs model
//
// This is used for querying connections.
type QueryConnectionsArgs struct {
	// State of the connections, all connections when empty
	State string `json:"state,omitempty"`
}

// ConnectionResponse model
//
// This is used for returning a single connection.
type ConnectionResponse struct {
	Result *legacyconnection.Connection `json:"result"`
}

// QueryConnectionsResponse model
//
// This is used for returning query connections results.
type QueryConnectionsResponse struct {
	Results []*legacyconnection.Connection `json:"results"`
}
