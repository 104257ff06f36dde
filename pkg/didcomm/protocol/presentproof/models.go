/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import "github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/decorator"

const (
	// Spec defines the protocol spec
	Spec = "https://didcomm.org/present-proof/1.0/"
	// ProposePresentationMsgType defines the protocol propose-presentation message type.
	ProposePresentationMsgType = Spec + "propose-presentation"
	// RequestPresentationMsgType defines the protocol request-presentation message type.
	RequestPresentationMsgType = Spec + "request-presentation"
	// PresentationMsgType defines the protocol presentation message type.
	PresentationMsgType = Spec + "presentation"
	// AckMsgType defines the protocol ack message type.
	AckMsgType = Spec + "ack"
	// ProblemReportMsgType defines the protocol problem-report message type.
	ProblemReportMsgType = Spec + "problem-report"
	// PresentationPreviewMsgType defines the protocol presentation-preview inner object type.
	PresentationPreviewMsgType = Spec + "presentation-preview"

	// RequestAttachmentID is the id of the proof request attached to a request-presentation message.
	RequestAttachmentID = "proof-request-0"
	// PresentationAttachmentID is the id of the proof attached to a presentation message.
	PresentationAttachmentID = "proof-0"

	ackStatusOK = "OK"
)

// ProposePresentation is an optional message sent by the Prover to the verifier to initiate a proof
// presentation process, or in response to a request-presentation message when the Prover wants to
// propose using a different presentation format.
type ProposePresentation struct {
	Type string `json:"@type,omitempty"`
	ID   string `json:"@id,omitempty"`
	// Comment is a field that provides some human readable information about the proposed presentation.
	Comment string `json:"comment,omitempty"`
	// PresentationProposal represents the presentation example that Prover wants to provide.
	PresentationProposal PresentationPreview `json:"presentation_proposal"`
	Thread               *decorator.Thread   `json:"~thread,omitempty"`
}

// RequestPresentation describes values that need to be revealed and predicates that need to be fulfilled.
type RequestPresentation struct {
	Type    string `json:"@type,omitempty"`
	ID      string `json:"@id,omitempty"`
	Comment string `json:"comment,omitempty"`
	// RequestPresentations is a slice of attachments defining the acceptable formats for the presentation.
	RequestPresentations []decorator.Attachment `json:"request_presentations~attach,omitempty"`
	Thread               *decorator.Thread      `json:"~thread,omitempty"`
}

// Presentation is a response to a RequestPresentation message and contains signed presentations.
type Presentation struct {
	Type    string `json:"@type,omitempty"`
	ID      string `json:"@id,omitempty"`
	Comment string `json:"comment,omitempty"`
	// Presentations is a slice of attachments containing the presentation in the requested format(s).
	Presentations []decorator.Attachment `json:"presentations~attach,omitempty"`
	Thread        *decorator.Thread      `json:"~thread,omitempty"`
	PleaseAck     *decorator.PleaseAck   `json:"~please_ack,omitempty"`
}

// Ack acknowledges a received presentation.
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

// PresentationPreview is used to construct a preview of the data for the presentation.
type PresentationPreview struct {
	Type       string      `json:"@type,omitempty"`
	Attributes []Attribute `json:"attributes,omitempty"`
	Predicates []Predicate `json:"predicates,omitempty"`
}

// Attribute describes an attribute for the PresentationPreview
type Attribute struct {
	Name      string `json:"name"`
	CredDefID string `json:"cred_def_id,omitempty"`
	MimeType  string `json:"mime-type,omitempty"`
	Value     string `json:"value,omitempty"`
	Referent  string `json:"referent,omitempty"`
}

// Predicate describes a predicate for the PresentationPreview
type Predicate struct {
	Name      string `json:"name"`
	CredDefID string `json:"cred_def_id,omitempty"`
	Predicate string `json:"predicate"`
	Threshold int    `json:"threshold"`
}
