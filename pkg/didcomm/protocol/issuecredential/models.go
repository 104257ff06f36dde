/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import "github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/decorator"

const (
	// Spec defines the issue credential protocol.
	Spec = "https://didcomm.org/issue-credential/1.0/"
	// ProposeCredentialMsgType defines the protocol propose-credential message type.
	ProposeCredentialMsgType = Spec + "propose-credential"
	// OfferCredentialMsgType defines the protocol offer-credential message type.
	OfferCredentialMsgType = Spec + "offer-credential"
	// RequestCredentialMsgType defines the protocol request-credential message type.
	RequestCredentialMsgType = Spec + "request-credential"
	// IssueCredentialMsgType defines the protocol issue-credential message type.
	IssueCredentialMsgType = Spec + "issue-credential"
	// AckMsgType defines the protocol ack message type.
	AckMsgType = Spec + "ack"
	// ProblemReportMsgType defines the protocol problem-report message type.
	ProblemReportMsgType = Spec + "problem-report"
	// CredentialPreviewMsgType defines the protocol credential-preview inner object type.
	CredentialPreviewMsgType = Spec + "credential-preview"

	// OfferAttachmentID is the id of the format offer attached to an offer-credential message.
	OfferAttachmentID = "cred-offer-0"
	// RequestAttachmentID is the id of the format request attached to a request-credential message.
	RequestAttachmentID = "cred-request-0"
	// CredentialAttachmentID is the id of the credential attached to an issue-credential message.
	CredentialAttachmentID = "cred-0"

	ackStatusOK = "OK"
)

// ProposeCredential is an optional message sent by the potential Holder to the Issuer
// to initiate the protocol or in response to a offer-credential message when the Holder
// wants some adjustments made to the credential data offered by Issuer.
type ProposeCredential struct {
	Type    string `json:"@type,omitempty"`
	ID      string `json:"@id,omitempty"`
	Comment string `json:"comment,omitempty"`
	// CredentialProposal represents the credential data that the Holder wants to receive.
	CredentialProposal *PreviewCredential `json:"credential_proposal,omitempty"`
	SchemaID           string             `json:"schema_id,omitempty"`
	CredDefID          string             `json:"cred_def_id,omitempty"`
	Thread             *decorator.Thread  `json:"~thread,omitempty"`
}

// OfferCredential is a message sent by the Issuer to the potential Holder,
// describing the credential they intend to offer.
type OfferCredential struct {
	Type    string `json:"@type,omitempty"`
	ID      string `json:"@id,omitempty"`
	Comment string `json:"comment,omitempty"`
	// CredentialPreview represents the credential data that Issuer is willing to issue.
	CredentialPreview PreviewCredential `json:"credential_preview"`
	// OffersAttach carries the format specific offer.
	OffersAttach []decorator.Attachment `json:"offers~attach,omitempty"`
	Thread       *decorator.Thread      `json:"~thread,omitempty"`
}

// RequestCredential is a message sent by the potential Holder to the Issuer,
// to request the issuance of a credential.
type RequestCredential struct {
	Type           string                 `json:"@type,omitempty"`
	ID             string                 `json:"@id,omitempty"`
	Comment        string                 `json:"comment,omitempty"`
	RequestsAttach []decorator.Attachment `json:"requests~attach,omitempty"`
	Thread         *decorator.Thread      `json:"~thread,omitempty"`
}

// IssueCredential contains as attached payload the credentials being issued.
type IssueCredential struct {
	Type              string                 `json:"@type,omitempty"`
	ID                string                 `json:"@id,omitempty"`
	Comment           string                 `json:"comment,omitempty"`
	CredentialsAttach []decorator.Attachment `json:"credentials~attach,omitempty"`
	Thread            *decorator.Thread      `json:"~thread,omitempty"`
	PleaseAck         *decorator.PleaseAck   `json:"~please_ack,omitempty"`
}

// Ack acknowledges a received credential.
type Ack struct {
	Type   string            `json:"@type,omitempty"`
	ID     string            `json:"@id,omitempty"`
	Status string            `json:"status,omitempty"`
	Thread *decorator.Thread `json:"~thread,omitempty"`
}

// ProblemReport abandons an exchange.
type ProblemReport struct {
	Type        string            `json:"@type,omitempty"`
	ID          string            `json:"@id,omitempty"`
	Description Description       `json:"description"`
	Thread      *decorator.Thread `json:"~thread,omitempty"`
}

// Description of a problem.
type Description struct {
	Code string `json:"code"`
	En   string `json:"en,omitempty"`
}

// PreviewCredential is used to construct a preview of the data for the credential that is to be issued.
type PreviewCredential struct {
	Type       string      `json:"@type,omitempty"`
	Attributes []Attribute `json:"attributes"`
}

// Attribute describes an attribute for a Preview Credential.
type Attribute struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mime-type,omitempty"`
	Value    string `json:"value,omitempty"`
}

// NewPreview returns a credential preview of attrs.
func NewPreview(attrs ...Attribute) PreviewCredential {
	return PreviewCredential{Type: CredentialPreviewMsgType, Attributes: attrs}
}
