/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package tenant

import (
	"github.com/hyperledger/aries-agent-go/pkg/client/legacyconnection"
	"github.com/hyperledger/aries-agent-go/pkg/tenant"
)

// CreateTenantArgs model
//
// This is used for creating a tenant.
type CreateTenantArgs struct {
	Label string `json:"label"`
}

// TenantIDArgs model
//
// This is used for operations on a single tenant.
type TenantIDArgs struct {
	// ID of the tenant
	ID string `json:"id"`
}

// TenantResponse model
//
// Represents a tenant.
type TenantResponse struct {
	Result *tenant.Record `json:"result"`
}

// TenantsResponse model
//
// Represents the tenants of the agent.
type TenantsResponse struct {
	Results []*tenant.Record `json:"results"`
}

// CreateInvitationArgs model
//
// This is used for creating a connection invitation on behalf of a tenant.
type CreateInvitationArgs struct {
	// ID of the tenant
	ID    string `json:"id"`
	Alias string `json:"alias,omitempty"`
	// AutoAccept overrides the agent auto accept setting for this connection
	AutoAccept *bool `json:"auto_accept,omitempty"`
}

// CreateInvitationResponse model
//
// Represents an invitation created by a tenant.
type CreateInvitationResponse struct {
	Invitation   *legacyconnection.Invitation `json:"invitation"`
	ConnectionID string                       `json:"connection_id"`
}

// ReceiveInvitationArgs model
//
// This is used for receiving a connection invitation on behalf of a tenant.
type ReceiveInvitationArgs struct {
	// ID of the tenant
	ID         string                       `json:"id"`
	Invitation *legacyconnection.Invitation `json:"invitation"`
	Alias      string                       `json:"alias,omitempty"`
	// AutoAccept overrides the agent auto accept setting for this connection
	AutoAccept *bool `json:"auto_accept,omitempty"`
}

// ConnectionResponse model
//
// Represents a connection of a tenant.
type ConnectionResponse struct {
	Result *legacyconnection.Connection `json:"result"`
}

// ConnectionsResponse model
//
// Represents the connections of a tenant.
type ConnectionsResponse struct {
	Results []*legacyconnection.Connection `json:"results"`
}
