/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package presentproof implements the present proof protocol (Aries RFC 0037).
package presentproof

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

// Name defines the protocol name
const Name = "present-proof"

var logger = log.New("aries-agent/presentproof")

var transitions = exchange.Transitions[State]{
	StateProposalSent:         {StateRequestReceived, StateAbandoned},
	StateProposalReceived:     {StateRequestSent, StateAbandoned},
	StateRequestSent:          {StateProposalReceived, StatePresentationReceived, StateAbandoned},
	StateRequestReceived:      {StateProposalSent, StatePresentationSent, StateAbandoned},
	StatePresentationSent:     {StateDone, StateAbandoned},
	StatePresentationReceived: {StateDone, StateAbandoned},
}

// Provider contains dependencies for the present proof protocol.
type Provider interface {
	RecordService() *record.Service
	StateEvents() *service.Message
	ProofProver() Prover
	ProofVerifier() Verifier
	AutoAcceptProofs() exchange.AutoAccept
}

// Service for the present proof protocol.
type Service struct {
	machine    *exchange.Machine[State, Role, Record, *Record]
	prover     Prover
	verifier   Verifier
	autoAccept exchange.AutoAccept
}

// New returns a present proof Service.
func New(p Provider) *Service {
	return &Service{
		machine:    exchange.NewMachine[State, Role, Record](Name, p.RecordService(), transitions, p.StateEvents()),
		prover:     p.ProofProver(),
		verifier:   p.ProofVerifier(),
		autoAccept: p.AutoAcceptProofs(),
	}
}

// CreateProposal starts an exchange as prover by proposing a presentation over a ready connection.
func (s *Service) CreateProposal(conn *connection.Record, preview PresentationPreview, comment string) (
	*ProposePresentation, *Record, error) {
	if err := conn.AssertReady(); err != nil {
		return nil, nil, err
	}

	proposal := newProposal(preview, comment)

	rec := &Record{
		BaseRecord:      record.NewBaseRecord(uuid.New().String()),
		ConnectionID:    conn.ID,
		ThreadID:        proposal.ID,
		ProposalMessage: proposal,
	}

	if err := s.machine.Create(rec, StateProposalSent, RoleProver); err != nil {
		return nil, nil, err
	}

	return proposal, rec, nil
}

// CreateProposalAsResponse answers a received request with a counter proposal.
func (s *Service) CreateProposalAsResponse(id string, preview PresentationPreview, comment string) (
	*ProposePresentation, *Record, error) {
	rec, err := s.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	if err = s.machine.Assert(rec, RoleProver, StateRequestReceived); err != nil {
		return nil, nil, err
	}

	proposal := newProposal(preview, comment)
	proposal.Thread = &decorator.Thread{ID: rec.ThreadID}

	rec.ProposalMessage = proposal

	if err = s.machine.Transition(rec, StateProposalSent); err != nil {
		return nil, nil, err
	}

	return proposal, rec, nil
}

// ProcessProposal records a proposal, on the verifier's existing request exchange or as a new exchange.
func (s *Service) ProcessProposal(msg *dispatcher.InboundMessageContext) (*Record, error) {
	conn, err := msg.RequireReadyConnection()
	if err != nil {
		return nil, err
	}

	var proposal ProposePresentation

	if err = msg.Message.Decode(&proposal); err != nil {
		return nil, err
	}

	threadID, err := msg.Message.ThreadID()
	if err != nil {
		return nil, err
	}

	logger.Debugf("processing presentation proposal %s", proposal.ID)

	rec, err := s.machine.FindExchange(threadID, conn.ID)
	if err != nil {
		return nil, err
	}

	if rec != nil {
		if err = s.machine.Assert(rec, RoleVerifier, StateRequestSent); err != nil {
			return nil, err
		}

		rec.ProposalMessage = &proposal

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

	if err = s.machine.Create(rec, StateProposalReceived, RoleVerifier); err != nil {
		return nil, err
	}

	return rec, nil
}

// CreateRequestAsResponse answers a received proposal with a proof request.
// A nil request is built from the proposal.
func (s *Service) CreateRequestAsResponse(id string, request *ProofRequest, comment string) (
	*RequestPresentation, *Record, error) {
	rec, err := s.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	if err = s.machine.Assert(rec, RoleVerifier, StateProposalReceived); err != nil {
		return nil, nil, err
	}

	if request == nil {
		if rec.ProposalMessage == nil {
			return nil, nil, exchange.MissingField(ProposePresentationMsgType, "presentation_proposal")
		}

		request = CreateProofRequestFromProposal(rec.ProposalMessage.PresentationProposal, "proof-request", "1.0")
	}

	msg, err := newRequest(request, comment)
	if err != nil {
		return nil, nil, err
	}

	msg.Thread = &decorator.Thread{ID: rec.ThreadID}
	rec.RequestMessage = msg

	if err = s.machine.Transition(rec, StateRequestSent); err != nil {
		return nil, nil, err
	}

	return msg, rec, nil
}

// CreateRequest starts an exchange as verifier by requesting a proof over a ready connection.
func (s *Service) CreateRequest(conn *connection.Record, request *ProofRequest, comment string) (
	*RequestPresentation, *Record, error) {
	if err := conn.AssertReady(); err != nil {
		return nil, nil, err
	}

	if request == nil {
		return nil, nil, exchange.MissingField(RequestPresentationMsgType, "proof request")
	}

	msg, err := newRequest(request, comment)
	if err != nil {
		return nil, nil, err
	}

	rec := &Record{
		BaseRecord:     record.NewBaseRecord(uuid.New().String()),
		ConnectionID:   conn.ID,
		ThreadID:       msg.ID,
		RequestMessage: msg,
	}

	if err = s.machine.Create(rec, StateRequestSent, RoleVerifier); err != nil {
		return nil, nil, err
	}

	return msg, rec, nil
}

// ProcessRequest records a proof request, on the prover's existing proposal exchange or as a new exchange.
func (s *Service) ProcessRequest(msg *dispatcher.InboundMessageContext) (*Record, error) {
	conn, err := msg.RequireReadyConnection()
	if err != nil {
		return nil, err
	}

	var request RequestPresentation

	if err = msg.Message.Decode(&request); err != nil {
		return nil, err
	}

	if _, err = proofRequestFrom(&request); err != nil {
		return nil, err
	}

	threadID, err := msg.Message.ThreadID()
	if err != nil {
		return nil, err
	}

	logger.Debugf("processing presentation request %s", request.ID)

	rec, err := s.machine.FindExchange(threadID, conn.ID)
	if err != nil {
		return nil, err
	}

	if rec != nil {
		if err = s.machine.Assert(rec, RoleProver, StateProposalSent); err != nil {
			return nil, err
		}

		rec.RequestMessage = &request

		if err = s.machine.Transition(rec, StateRequestReceived); err != nil {
			return nil, err
		}

		return rec, nil
	}

	rec = &Record{
		BaseRecord:     record.NewBaseRecord(uuid.New().String()),
		ConnectionID:   conn.ID,
		ThreadID:       threadID,
		RequestMessage: &request,
	}

	if err = s.machine.Create(rec, StateRequestReceived, RoleProver); err != nil {
		return nil, err
	}

	return rec, nil
}

// GetRequestedCredentialsForProofRequest selects held credentials answering the exchange's proof request.
func (s *Service) GetRequestedCredentialsForProofRequest(id string) (*RequestedCredentials, error) {
	rec, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	request, err := rec.ProofRequest()
	if err != nil {
		return nil, err
	}

	return s.prover.RequestedCredentialsFor(request)
}

// CreatePresentation answers the received proof request. Nil credentials are selected automatically.
func (s *Service) CreatePresentation(id string, credentials *RequestedCredentials, comment string) (
	*Presentation, *Record, error) {
	rec, err := s.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	if err = s.machine.Assert(rec, RoleProver, StateRequestReceived); err != nil {
		return nil, nil, err
	}

	request, err := rec.ProofRequest()
	if err != nil {
		return nil, nil, err
	}

	if credentials == nil {
		credentials, err = s.prover.RequestedCredentialsFor(request)
		if err != nil {
			return nil, nil, fmt.Errorf("select credentials for %s: %w", rec.ID, err)
		}
	}

	proof, err := s.prover.CreateProof(request, credentials)
	if err != nil {
		return nil, nil, fmt.Errorf("create proof for %s: %w", rec.ID, err)
	}

	attachment, err := decorator.NewAttachment(PresentationAttachmentID, proof)
	if err != nil {
		return nil, nil, err
	}

	presentation := &Presentation{
		Type:          PresentationMsgType,
		ID:            uuid.New().String(),
		Comment:       comment,
		Presentations: []decorator.Attachment{attachment},
		Thread:        &decorator.Thread{ID: rec.ThreadID},
		PleaseAck:     &decorator.PleaseAck{On: []string{decorator.AckOnOutcome}},
	}

	rec.PresentationMessage = presentation

	if err = s.machine.Transition(rec, StatePresentationSent); err != nil {
		return nil, nil, err
	}

	return presentation, rec, nil
}

// ProcessPresentation verifies the received presentation against the request, recording the outcome.
func (s *Service) ProcessPresentation(msg *dispatcher.InboundMessageContext) (*Record, error) {
	conn, err := msg.RequireReadyConnection()
	if err != nil {
		return nil, err
	}

	var presentation Presentation

	if err = msg.Message.Decode(&presentation); err != nil {
		return nil, err
	}

	rec, err := s.exchangeOf(msg, conn)
	if err != nil {
		return nil, err
	}

	if err = s.machine.Assert(rec, RoleVerifier, StateRequestSent); err != nil {
		return nil, err
	}

	proof, err := proofFrom(&presentation)
	if err != nil {
		return nil, err
	}

	request, err := rec.ProofRequest()
	if err != nil {
		return nil, err
	}

	verified, err := s.verifier.VerifyProof(request, proof)
	if err != nil {
		return nil, fmt.Errorf("verify presentation of %s: %w", rec.ID, err)
	}

	rec.IsVerified = verified
	rec.PresentationMessage = &presentation

	if err = s.machine.Transition(rec, StatePresentationReceived); err != nil {
		return nil, err
	}

	return rec, nil
}

// CreateAck acknowledges a received presentation, finishing the verifier's exchange.
func (s *Service) CreateAck(id string) (*Ack, *Record, error) {
	rec, err := s.GetByID(id)
	if err != nil {
		return nil, nil, err
	}

	if err = s.machine.Assert(rec, RoleVerifier, StatePresentationReceived); err != nil {
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

// ProcessAck finishes the prover's exchange.
func (s *Service) ProcessAck(msg *dispatcher.InboundMessageContext) (*Record, error) {
	conn, err := msg.RequireReadyConnection()
	if err != nil {
		return nil, err
	}

	rec, err := s.exchangeOf(msg, conn)
	if err != nil {
		return nil, err
	}

	if err = s.machine.Assert(rec, RoleProver, StatePresentationSent); err != nil {
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

// GetAll returns every presentation exchange.
func (s *Service) GetAll() ([]*Record, error) {
	return s.machine.Repository().FindAll()
}

// GetByID returns a presentation exchange.
func (s *Service) GetByID(id string) (*Record, error) {
	return s.machine.Repository().GetByID(id)
}

// FindByID returns a presentation exchange or nil.
func (s *Service) FindByID(id string) (*Record, error) {
	return s.machine.Repository().FindByID(id)
}

// GetByThreadAndConnectionID returns the exchange of a thread on a connection.
func (s *Service) GetByThreadAndConnectionID(threadID, connectionID string) (*Record, error) {
	return s.machine.GetByThread(threadID, connectionID)
}

// DeleteByID deletes a presentation exchange.
func (s *Service) DeleteByID(id string) error {
	return s.machine.Repository().DeleteByID(id)
}

// Events returns the registry state changes are published to.
func (s *Service) Events() *service.Message {
	return s.machine.Events()
}

// CreateProofRequestFromProposal builds a proof request asking for what preview proposes.
// Attributes sharing a referent are requested together.
func CreateProofRequestFromProposal(preview PresentationPreview, name, version string) *ProofRequest {
	request := &ProofRequest{
		Name:                name,
		Version:             version,
		Nonce:               uuid.New().String(),
		RequestedAttributes: map[string]AttributeInfo{},
		RequestedPredicates: map[string]PredicateInfo{},
	}

	var referents []string

	byReferent := map[string][]Attribute{}

	for _, a := range preview.Attributes {
		referent := a.Referent
		if referent == "" {
			referent = uuid.New().String()
		}

		if _, ok := byReferent[referent]; !ok {
			referents = append(referents, referent)
		}

		byReferent[referent] = append(byReferent[referent], a)
	}

	for _, referent := range referents {
		attrs := byReferent[referent]
		info := AttributeInfo{Restrictions: restrictionFor(attrs[0].CredDefID)}

		if len(attrs) == 1 {
			info.Name = attrs[0].Name
		} else {
			for _, a := range attrs {
				info.Names = append(info.Names, a.Name)
			}
		}

		request.RequestedAttributes[referent] = info
	}

	for _, p := range preview.Predicates {
		request.RequestedPredicates[uuid.New().String()] = PredicateInfo{
			Name:           p.Name,
			PredicateType:  p.Predicate,
			PredicateValue: p.Threshold,
			Restrictions:   restrictionFor(p.CredDefID),
		}
	}

	return request
}

func restrictionFor(credDefID string) []AttributeFilter {
	if credDefID == "" {
		return nil
	}

	return []AttributeFilter{{CredDefID: credDefID}}
}

func (s *Service) exchangeOf(msg *dispatcher.InboundMessageContext, conn *connection.Record) (*Record, error) {
	threadID, err := msg.Message.ThreadID()
	if err != nil {
		return nil, err
	}

	return s.machine.GetByThread(threadID, conn.ID)
}

func newProposal(preview PresentationPreview, comment string) *ProposePresentation {
	if preview.Type == "" {
		preview.Type = PresentationPreviewMsgType
	}

	return &ProposePresentation{
		Type:                 ProposePresentationMsgType,
		ID:                   uuid.New().String(),
		Comment:              comment,
		PresentationProposal: preview,
	}
}

func newRequest(request *ProofRequest, comment string) (*RequestPresentation, error) {
	attachment, err := decorator.NewAttachment(RequestAttachmentID, request)
	if err != nil {
		return nil, err
	}

	return &RequestPresentation{
		Type:                 RequestPresentationMsgType,
		ID:                   uuid.New().String(),
		Comment:              comment,
		RequestPresentations: []decorator.Attachment{attachment},
	}, nil
}

func proofRequestFrom(msg *RequestPresentation) (*ProofRequest, error) {
	var request ProofRequest

	if err := decorator.DecodeAttachment(msg.RequestPresentations, RequestAttachmentID, &request); err != nil {
		return nil, missingAttachment(RequestPresentationMsgType, "request_presentations~attach", err)
	}

	return &request, nil
}

func proofFrom(msg *Presentation) (*Proof, error) {
	var proof Proof

	if err := decorator.DecodeAttachment(msg.Presentations, PresentationAttachmentID, &proof); err != nil {
		return nil, missingAttachment(PresentationMsgType, "presentations~attach", err)
	}

	return &proof, nil
}

func missingAttachment(msgType, field string, err error) error {
	if errors.Is(err, decorator.ErrAttachmentNotFound) {
		return exchange.MissingField(msgType, field)
	}

	return fmt.Errorf("%s %s: %w", msgType, field, err)
}
