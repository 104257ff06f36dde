/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacyconnection

import (
	"github.com/hyperledger/aries-agent-go/pkg/crypto/signature"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-agent-go/pkg/doc/did"
)

const (
	// ConnectionSpec is the connection protocol message family.
	ConnectionSpec = "https://didcomm.org/connections/1.0/"
	// InvitationMsgType defines the connection invitation message type.
	InvitationMsgType = ConnectionSpec + "invitation"
	// RequestMsgType defines the connection request message type.
	RequestMsgType = ConnectionSpec + "request"
	// ResponseMsgType defines the connection response message type.
	ResponseMsgType = ConnectionSpec + "response"
	// AckMsgType defines the acknowledgement message type.
	AckMsgType = "https://didcomm.org/notification/1.0/ack"

	// TrustPingMsgType defines the trust ping message type.
	TrustPingMsgType = "https://didcomm.org/trust_ping/1.0/ping"
	// TrustPingResponseMsgType defines the trust ping response message type.
	TrustPingResponseMsgType = "https://didcomm.org/trust_ping/1.0/ping_response"

	ackStatusOK = "OK"
)

// Invitation model
//
// Invitation defines Connection protocol invitation message
// https://github.com/hyperledger/aries-rfcs/tree/main/features/0160-connection-protocol#0-invitation-to-connect
type Invitation struct {
	Type            string   `json:"@type,omitempty"`
	ID              string   `json:"@id,omitempty"`
	Label           string   `json:"label,omitempty"`
	RecipientKeys   []string `json:"recipientKeys,omitempty"`
	ServiceEndpoint string   `json:"serviceEndpoint,omitempty"`
	RoutingKeys     []string `json:"routingKeys,omitempty"`
	ImageURL        string   `json:"imageUrl,omitempty"`
}

// Request defines a2a Connection request
// https://github.com/hyperledger/aries-rfcs/tree/main/features/0160-connection-protocol#1-connection-request
type Request struct {
	Type       string            `json:"@type,omitempty"`
	ID         string            `json:"@id,omitempty"`
	Label      string            `json:"label"`
	Thread     *decorator.Thread `json:"~thread,omitempty"`
	Connection *Connection       `json:"connection,omitempty"`
}

// Response defines a2a Connection response
// https://github.com/hyperledger/aries-rfcs/tree/main/features/0160-connection-protocol#2-connection-response
type Response struct {
	Type                string               `json:"@type,omitempty"`
	ID                  string               `json:"@id,omitempty"`
	ConnectionSignature *signature.Decorator `json:"connection~sig,omitempty"`
	Thread              *decorator.Thread    `json:"~thread,omitempty"`
	PleaseAck           *decorator.PleaseAck `json:"~please_ack,omitempty"`
}

// Connection defines connection body of connection request.
type Connection struct {
	DID    string   `json:"DID,omitempty"`
	DIDDoc *did.Doc `json:"DIDDoc,omitempty"`
}

// Ack acknowledges a connection response.
type Ack struct {
	Type   string            `json:"@type,omitempty"`
	ID     string            `json:"@id,omitempty"`
	Status string            `json:"status,omitempty"`
	Thread *decorator.Thread `json:"~thread,omitempty"`
}

// TrustPing checks that the peer can be reached over the connection.
type TrustPing struct {
	Type              string `json:"@type,omitempty"`
	ID                string `json:"@id,omitempty"`
	Comment           string `json:"comment,omitempty"`
	ResponseRequested bool   `json:"response_requested"`
}

// TrustPingResponse answers a TrustPing.
type TrustPingResponse struct {
	Type    string            `json:"@type,omitempty"`
	ID      string            `json:"@id,omitempty"`
	Comment string            `json:"comment,omitempty"`
	Thread  *decorator.Thread `json:"~thread,omitempty"`
}
