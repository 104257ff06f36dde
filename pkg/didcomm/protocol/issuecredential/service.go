/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package issuecredential implements the issue credential protocol (Aries RFC 0036).
package issuecredential

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

// Name defines the protocol name.
const Name = "issue-credential"

var logger = log.New("aries-agent/issuecredential")

var transitions = exchange.Transitions[State]{
	StateProposalSent:       {StateOfferReceived, StateAbandoned},
	StateProposalReceived:   {StateOfferSent, StateAbandoned},
	StateOfferSent:          {StateProposalReceived, StateRequestReceived, StateAbandoned},
	StateOfferReceived:      {StateProposalSent, StateRequestSent, StateAbandoned},
	StateRequestSent:        {StateCredentialReceived, StateAbandoned},
	StateRequestReceived:    {StateCredentialIssued, StateAbandoned},
	StateCredentialIssued:   {StateDone, StateAbandoned},
	StateCredentialReceived: {StateDone, StateAbandoned},
}

// Provider contains dependencies for the issue credential protocol.
type Provider interface {
	RecordService() *record.Service
	StateEvents() *service.Message
	ConnectionStore() *connection.Store
	CredentialIssuer() Issuer
	CredentialHolder() Holder
	AutoAcceptCredentials() exchange.AutoAccept
}

// Service for the issue credential protocol.
type Service struct {
	machine     *exchange.Machine[State, Role, Record, *Record]
	connections *connection.Store
	issuer      Issuer
	holder      Holder
	autoAccept  exchange.AutoAccept
}

// New returns an issue credential Service.
func New(p Provider) *Service {
	return &Service{
		machine:     exchange.NewMachine[State, Role, Record](Name, p.RecordService(), transitions, p.StateEvents()),
		connections: p.ConnectionStore(),
		issuer:      p.CredentialIssuer(),
		holder:      p.CredentialHolder(),
		autoAccept:  p.AutoAcceptCredentials(),
	}
}

// ProposalOptions describe a credential proposal.
type ProposalOptions struct {
	Comment    string
	Preview    *PreviewCredential
	SchemaID   string
	CredDefID  string
	AutoAccept exchange.AutoAccept
}

// OfferTemplate describes a credential offer.
type OfferTemplate struct {
	CredDefID  string
	Comment    string
	Preview    PreviewCredential
	AutoAccept exchange.AutoAccept
}

// RequestOptions describe a credential request.
type RequestOptions struct {
	Comment string
	// HolderDID defaults to the DID of the exchange's connection.
	HolderDID string
}

// CreateProposal starts an exchange as holder by proposing a credential over a ready connection.
func (s *Service) CreateProposal(conn *connection.Record, opts *ProposalOptions) (*ProposeCredential, *Record,
	error) {
	if err := conn.AssertReady(); err != nil {
		return nil, nil, err
	}

	if opts == nil {
		opts = &ProposalOptions{}
	}

	proposal := newProposal(opts)
	proposal.ID = uuid.New().String()

	rec := &Record{
		BaseRecord:      record.NewBaseRecord(uuid.New().String()),
		ConnectionID:    conn.ID,
		ThreadID:        proposal.ID,
		AutoAccept:      opts.AutoAccept,
		ProposalMessage: proposal,
	}

	if proposal.CredentialProposal != nil {
		rec.CredentialAttributes = proposal.CredentialProposal.Attributes
	}

	if err := s.machine.Create(rec, StateProposalSent, RoleHolder); err != nil {
		return nil, nil, err
	}

	return proposal, rec, nil
}

// CreateProposalAsResponse answers a received offer with a counter proposal.
func (s *Service) CreateProposalAsResponse(id string, opts *ProposalOptions) (*ProposeCredential, *Record,
	error) {
	rec, err := s.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	if err = s.machine.Assert(rec, RoleHolder, StateOfferReceived); err != nil {
		return nil, nil, err
	}

	if opts == nil {
		opts = &ProposalOptions{}
	}

	proposal := newProposal(opts)
	proposal.ID = uuid.New().String()
	proposal.Thread = &decorator.Thread{ID: rec.ThreadID}

	rec.ProposalMessage = proposal
	if proposal.CredentialProposal != nil {
		rec.CredentialAttributes = proposal.CredentialProposal.Attributes
	}

	if err = s.machine.Transition(rec, StateProposalSent); err != nil {
		return nil, nil, err
	}

	return proposal, rec, nil
}

// ProcessProposal records a proposal, on the issuer's existing offer exchange or as a new exchange.
func (s *Service) ProcessProposal(msg *dispatcher.InboundMessageContext) (*Record, error) {
	conn, err := msg.RequireReadyConnection()
	if err != nil {
		return nil, err
	}

	var proposal ProposeCredential

	if err = msg.Message.Decode(&proposal); err != nil {
		return nil, err
	}

	threadID, err := msg.Message.ThreadID()
	if err != nil {
		return nil, err
	}

	logger.Debugf("processing credential proposal %s", proposal.ID)

	rec, err := s.machine.FindExchange(threadID, conn.ID)
	if err != nil {
		return nil, err
	}

	if rec != nil {
		if err = s.machine.Assert(rec, RoleIssuer, StateOfferSent); err != nil {
			return nil, err
		}

		rec.ProposalMessage = &proposal
		if proposal.CredentialProposal != nil {
			rec.CredentialAttributes = proposal.CredentialProposal.Attributes
		}

		if err = s.machine.Transition(rec, StateProposalReceived); err != nil {
			return nil, err
		}

		return rec, nil
	}

	rec = &Record{
		BaseRecord:      record.NewBaseRecord(uuid.New().String()),
		ConnectionID:    conn.ID,
		ThreadID:        threadID,
		ProposalMessage: &proposal,
	}

	if proposal.CredentialProposal != nil {
		rec.CredentialAttributes = proposal.CredentialProposal.Attributes
	}

	if err = s.machine.Create(rec, StateProposalReceived, RoleIssuer); err != nil {
		return nil, err
	}

	return rec, nil
}

// CreateOfferAsResponse answers a received proposal with an offer built from template.
func (s *Service) CreateOfferAsResponse(id string, template *OfferTemplate) (*OfferCredential, *Record, error) {
	rec, err := s.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	if err = s.machine.Assert(rec, RoleIssuer, StateProposalReceived); err != nil {
		return nil, nil, err
	}

	if template == nil {
		template, err = offerTemplateFromProposal(rec.ProposalMessage)
		if err != nil {
			return nil, nil, err
		}
	}

	offer, formatOffer, err := s.newOffer(template)
	if err != nil {
		return nil, nil, err
	}

	offer.Thread = &decorator.Thread{ID: rec.ThreadID}

	rec.OfferMessage = offer
	rec.CredentialAttributes = template.Preview.Attributes
	rec.CredDefID, rec.SchemaID = formatOffer.CredDefID, formatOffer.SchemaID

	if err = s.machine.Transition(rec, StateOfferSent); err != nil {
		return nil, nil, err
	}

	return offer, rec, nil
}

// CreateOffer starts an exchange as issuer by offering a credential over a ready connection.
func (s *Service) CreateOffer(conn *connection.Record, template *OfferTemplate) (*OfferCredential, *Record,
	error) {
	if err := conn.AssertReady(); err != nil {
		return nil, nil, err
	}

	if template == nil {
		return nil, nil, exchange.MissingField(OfferCredentialMsgType, "template")
	}

	offer, formatOffer, err := s.newOffer(template)
	if err != nil {
		return nil, nil, err
	}

	rec := &Record{
		BaseRecord:           record.NewBaseRecord(uuid.New().String()),
		ConnectionID:         conn.ID,
		ThreadID:             offer.ID,
		AutoAccept:           template.AutoAccept,
		OfferMessage:         offer,
		CredentialAttributes: template.Preview.Attributes,
		CredDefID:            formatOffer.CredDefID,
		SchemaID:             formatOffer.SchemaID,
	}

	if err = s.machine.Create(rec, StateOfferSent, RoleIssuer); err != nil {
		return nil, nil, err
	}

	return offer, rec, nil
}

// ProcessOffer records an offer, on the holder's existing proposal exchange or as a new exchange.
func (s *Service) ProcessOffer(msg *dispatcher.InboundMessageContext) (*Record, error) {
	conn, err := msg.RequireReadyConnection()
	if err != nil {
		return nil, err
	}

	var offer OfferCredential

	if err = msg.Message.Decode(&offer); err != nil {
		return nil, err
	}

	formatOffer, err := offerFrom(&offer)
	if err != nil {
		return nil, err
	}

	threadID, err := msg.Message.ThreadID()
	if err != nil {
		return nil, err
	}

	logger.Debugf("processing credential offer %s", offer.ID)

	rec, err := s.machine.FindExchange(threadID, conn.ID)
	if err != nil {
		return nil, err
	}

	if rec != nil {
		if err = s.machine.Assert(rec, RoleHolder, StateProposalSent); err != nil {
			return nil, err
		}

		rec.OfferMessage = &offer
		rec.CredentialAttributes = offer.CredentialPreview.Attributes
		rec.CredDefID, rec.SchemaID = formatOffer.CredDefID, formatOffer.SchemaID

		if err = s.machine.Transition(rec, StateOfferReceived); err != nil {
			return nil, err
		}

		return rec, nil
	}

	rec = &Record{
		BaseRecord:           record.NewBaseRecord(uuid.New().String()),
		ConnectionID:         conn.ID,
		ThreadID:             threadID,
		OfferMessage:         &offer,
		CredentialAttributes: offer.CredentialPreview.Attributes,
		CredDefID:            formatOffer.CredDefID,
		SchemaID:             formatOffer.SchemaID,
	}

	if err = s.machine.Create(rec, StateOfferReceived, RoleHolder); err != nil {
		return nil, err
	}

	return rec, nil
}

// CreateRequest accepts a received offer by requesting the credential.
func (s *Service) CreateRequest(id string, opts *RequestOptions) (*RequestCredential, *Record, error) {
	rec, err := s.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	if err = s.machine.Assert(rec, RoleHolder, StateOfferReceived); err != nil {
		return nil, nil, err
	}

	if opts == nil {
		opts = &RequestOptions{}
	}

	formatOffer, err := rec.offer()
	if err != nil {
		return nil, nil, err
	}

	holderDID := opts.HolderDID
	if holderDID == "" {
		holderDID, err = s.connectionDID(rec.ConnectionID)
		if err != nil {
			return nil, nil, err
		}
	}

	formatRequest, metadata, err := s.holder.CreateRequest(holderDID, formatOffer)
	if err != nil {
		return nil, nil, fmt.Errorf("create credential request for %s: %w", rec.ID, err)
	}

	attachment, err := decorator.NewAttachment(RequestAttachmentID, formatRequest)
	if err != nil {
		return nil, nil, err
	}

	request := &RequestCredential{
		Type:           RequestCredentialMsgType,
		ID:             uuid.New().String(),
		Comment:        opts.Comment,
		RequestsAttach: []decorator.Attachment{attachment},
		Thread:         &decorator.Thread{ID: rec.ThreadID},
	}

	rec.RequestMessage = request
	rec.RequestMetadata = metadata

	if err = s.machine.Transition(rec, StateRequestSent); err != nil {
		return nil, nil, err
	}

	return request, rec, nil
}

// ProcessRequest records the holder's request on the issuer's offer exchange.
func (s *Service) ProcessRequest(msg *dispatcher.InboundMessageContext) (*Record, error) {
	conn, err := msg.RequireReadyConnection()
	if err != nil {
		return nil, err
	}

	var request RequestCredential

	if err = msg.Message.Decode(&request); err != nil {
		return nil, err
	}

	if _, err = requestFrom(&request); err != nil {
		return nil, err
	}

	rec, err := s.exchangeOf(msg, conn)
	if err != nil {
		return nil, err
	}

	if err = s.machine.Assert(rec, RoleIssuer, StateOfferSent); err != nil {
		return nil, err
	}

	rec.RequestMessage = &request

	if err = s.machine.Transition(rec, StateRequestReceived); err != nil {
		return nil, err
	}

	return rec, nil
}

// CreateCredential issues the negotiated credential.
func (s *Service) CreateCredential(id, comment string) (*IssueCredential, *Record, error) {
	rec, err := s.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	if err = s.machine.Assert(rec, RoleIssuer, StateRequestReceived); err != nil {
		return nil, nil, err
	}

	if len(rec.CredentialAttributes) == 0 {
		return nil, nil, exchange.MissingField(IssueCredentialMsgType, "credential attributes")
	}

	formatOffer, err := rec.offer()
	if err != nil {
		return nil, nil, err
	}

	formatRequest, err := rec.request()
	if err != nil {
		return nil, nil, err
	}

	cred, err := s.issuer.CreateCredential(formatOffer, formatRequest, rec.Values())
	if err != nil {
		return nil, nil, fmt.Errorf("create credential for %s: %w", rec.ID, err)
	}

	attachment, err := decorator.NewAttachment(CredentialAttachmentID, cred)
	if err != nil {
		return nil, nil, err
	}

	issue := &IssueCredential{
		Type:              IssueCredentialMsgType,
		ID:                uuid.New().String(),
		Comment:           comment,
		CredentialsAttach: []decorator.Attachment{attachment},
		Thread:            &decorator.Thread{ID: rec.ThreadID},
		PleaseAck:         &decorator.PleaseAck{On: []string{decorator.AckOnReceipt}},
	}

	rec.CredentialMessage = issue

	if err = s.machine.Transition(rec, StateCredentialIssued); err != nil {
		return nil, nil, err
	}

	return issue, rec, nil
}

// ProcessCredential checks the received credential against the negotiated values and stores it.
func (s *Service) ProcessCredential(msg *dispatcher.InboundMessageContext) (*Record, error) {
	conn, err := msg.RequireReadyConnection()
	if err != nil {
		return nil, err
	}

	var issue IssueCredential

	if err = msg.Message.Decode(&issue); err != nil {
		return nil, err
	}

	rec, err := s.exchangeOf(msg, conn)
	if err != nil {
		return nil, err
	}

	if err = s.machine.Assert(rec, RoleHolder, StateRequestSent); err != nil {
		return nil, err
	}

	if len(rec.RequestMetadata) == 0 {
		return nil, exchange.MissingField(IssueCredentialMsgType, "record request metadata")
	}

	cred, err := credentialFrom(&issue)
	if err != nil {
		return nil, err
	}

	if len(rec.CredentialAttributes) > 0 {
		if err = AssertValuesMatch(cred.Values, rec.Values()); err != nil {
			return nil, fmt.Errorf("credential exchange %s: %w", rec.ID, err)
		}
	}

	credentialID, err := s.holder.StoreCredential(cred, rec.RequestMetadata)
	if err != nil {
		return nil, fmt.Errorf("store credential of %s: %w", rec.ID, err)
	}

	rec.CredentialID = credentialID
	rec.CredentialMessage = &issue

	if err = s.machine.Transition(rec, StateCredentialReceived); err != nil {
		return nil, err
	}

	return rec, nil
}

// CreateAck acknowledges a received credential, finishing the holder's exchange.
func (s *Service) CreateAck(id string) (*Ack, *Record, error) {
	rec, err := s.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	if err = s.machine.Assert(rec, RoleHolder, StateCredentialReceived); err != nil {
		return nil, nil, err
	}

	if err = s.machine.Transition(rec, StateDone); err != nil {
		return nil, nil, err
	}

	return &Ack{
		Type:   AckMsgType,
		ID:     uuid.New().String(),
		Status: ackStatusOK,
		Thread: &decorator.Thread{ID: rec.ThreadID},
	}, rec, nil
}

// ProcessAck finishes the issuer's exchange.
func (s *Service) ProcessAck(msg *dispatcher.InboundMessageContext) (*Record, error) {
	conn, err := msg.RequireReadyConnection()
	if err != nil {
		return nil, err
	}

	rec, err := s.exchangeOf(msg, conn)
	if err != nil {
		return nil, err
	}

	if err = s.machine.Assert(rec, RoleIssuer, StateCredentialIssued); err != nil {
		return nil, err
	}

	if err = s.machine.Transition(rec, StateDone); err != nil {
		return nil, err
	}

	return rec, nil
}

// CreateProblemReport abandons an exchange and returns the report telling the peer.
func (s *Service) CreateProblemReport(id string, description Description) (*ProblemReport, *Record, error) {
	rec, err := s.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	rec.ErrorMessage = description.Code

	if err = s.machine.Transition(rec, StateAbandoned); err != nil {
		return nil, nil, err
	}

	return &ProblemReport{
		Type:        ProblemReportMsgType,
		ID:          uuid.New().String(),
		Description: description,
		Thread:      &decorator.Thread{ID: rec.ThreadID},
	}, rec, nil
}

// ProcessProblemReport abandons the exchange the peer reported a problem on.
func (s *Service) ProcessProblemReport(msg *dispatcher.InboundMessageContext) (*Record, error) {
	conn, err := msg.RequireConnection()
	if err != nil {
		return nil, err
	}

	var report ProblemReport

	if err = msg.Message.Decode(&report); err != nil {
		return nil, err
	}

	rec, err := s.exchangeOf(msg, conn)
	if err != nil {
		return nil, err
	}

	rec.ErrorMessage = report.Description.Code

	if err = s.machine.Transition(rec, StateAbandoned); err != nil {
		return nil, err
	}

	return rec, nil
}

// GetAll returns every credential exchange.
func (s *Service) GetAll() ([]*Record, error) {
	return s.machine.Repository().FindAll()
}

// GetByID returns a credential exchange.
func (s *Service) GetByID(id string) (*Record, error) {
	return s.machine.Repository().GetByID(id)
}

// FindByID returns a credential exchange or nil.
func (s *Service) FindByID(id string) (*Record, error) {
	return s.machine.Repository().FindByID(id)
}

// GetByThreadAndConnectionID returns the exchange of a thread on a connection.
func (s *Service) GetByThreadAndConnectionID(threadID, connectionID string) (*Record, error) {
	return s.machine.GetByThread(threadID, connectionID)
}

// DeleteByID deletes a credential exchange.
func (s *Service) DeleteByID(id string) error {
	return s.machine.Repository().DeleteByID(id)
}

// Events returns the registry state changes are published to.
func (s *Service) Events() *service.Message {
	return s.machine.Events()
}

func (s *Service) exchangeOf(msg *dispatcher.InboundMessageContext, conn *connection.Record) (*Record, error) {
	threadID, err := msg.Message.ThreadID()
	if err != nil {
		return nil, err
	}

	return s.machine.GetByThread(threadID, conn.ID)
}

func (s *Service) newOffer(template *OfferTemplate) (*OfferCredential, *Offer, error) {
	formatOffer, err := s.issuer.CreateOffer(template.CredDefID)
	if err != nil {
		return nil, nil, fmt.Errorf("create credential offer: %w", err)
	}

	attachment, err := decorator.NewAttachment(OfferAttachmentID, formatOffer)
	if err != nil {
		return nil, nil, err
	}

	preview := template.Preview
	if preview.Type == "" {
		preview.Type = CredentialPreviewMsgType
	}

	return &OfferCredential{
		Type:              OfferCredentialMsgType,
		ID:                uuid.New().String(),
		Comment:           template.Comment,
		CredentialPreview: preview,
		OffersAttach:      []decorator.Attachment{attachment},
	}, formatOffer, nil
}

func (s *Service) connectionDID(connectionID string) (string, error) {
	conn, err := s.connections.GetByID(connectionID)
	if err != nil {
		return "", fmt.Errorf("holder DID: %w", err)
	}

	return conn.DID, nil
}

func newProposal(opts *ProposalOptions) *ProposeCredential {
	proposal := &ProposeCredential{
		Type:      ProposeCredentialMsgType,
		Comment:   opts.Comment,
		SchemaID:  opts.SchemaID,
		CredDefID: opts.CredDefID,
	}

	if opts.Preview != nil {
		preview := *opts.Preview
		if preview.Type == "" {
			preview.Type = CredentialPreviewMsgType
		}

		proposal.CredentialProposal = &preview
	}

	return proposal
}

func offerTemplateFromProposal(proposal *ProposeCredential) (*OfferTemplate, error) {
	if proposal == nil || proposal.CredentialProposal == nil {
		return nil, exchange.MissingField(ProposeCredentialMsgType, "credential_proposal")
	}

	if proposal.CredDefID == "" {
		return nil, exchange.MissingField(ProposeCredentialMsgType, "cred_def_id")
	}

	return &OfferTemplate{CredDefID: proposal.CredDefID, Preview: *proposal.CredentialProposal}, nil
}

func offerFrom(msg *OfferCredential) (*Offer, error) {
	var offer Offer

	if err := decorator.DecodeAttachment(msg.OffersAttach, OfferAttachmentID, &offer); err != nil {
		return nil, missingAttachment(OfferCredentialMsgType, "offers~attach", err)
	}

	return &offer, nil
}

func requestFrom(msg *RequestCredential) (*Request, error) {
	var request Request

	if err := decorator.DecodeAttachment(msg.RequestsAttach, RequestAttachmentID, &request); err != nil {
		return nil, missingAttachment(RequestCredentialMsgType, "requests~attach", err)
	}

	return &request, nil
}

func credentialFrom(msg *IssueCredential) (*Credential, error) {
	var cred Credential

	if err := decorator.DecodeAttachment(msg.CredentialsAttach, CredentialAttachmentID, &cred); err != nil {
		return nil, missingAttachment(IssueCredentialMsgType, "credentials~attach", err)
	}

	return &cred, nil
}

func missingAttachment(msgType, field string, err error) error {
	if errors.Is(err, decorator.ErrAttachmentNotFound) {
		return exchange.MissingField(msgType, field)
	}

	return fmt.Errorf("%s %s: %w", msgType, field, err)
}
