/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package issuecredential

import (
	"context"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher"
)

// Handlers returns the inbound message handlers of the issue credential protocol.
func (s *Service) Handlers() []dispatcher.Handler {
	return []dispatcher.Handler{
		&dispatcher.HandlerFunc{Types: []string{ProposeCredentialMsgType}, Fn: s.handleProposal},
		&dispatcher.HandlerFunc{Types: []string{OfferCredentialMsgType}, Fn: s.handleOffer},
		&dispatcher.HandlerFunc{Types: []string{RequestCredentialMsgType}, Fn: s.handleRequest},
		&dispatcher.HandlerFunc{Types: []string{IssueCredentialMsgType}, Fn: s.handleCredential},
		&dispatcher.HandlerFunc{Types: []string{AckMsgType}, Fn: s.handleAck},
		&dispatcher.HandlerFunc{Types: []string{ProblemReportMsgType}, Fn: s.handleProblemReport},
	}
}

func (s *Service) handleProposal(_ context.Context, msg *dispatcher.InboundMessageContext) (
	*dispatcher.OutboundMessage, error) {
	rec, err := s.ProcessProposal(msg)
	if err != nil || !s.shouldRespondToProposal(rec) {
		return nil, err
	}

	logger.Infof("automatically sending offer for credential exchange %s", rec.ID)

	offer, _, err := s.CreateOfferAsResponse(rec.ID, nil)
	if err != nil {
		return nil, err
	}

	return &dispatcher.OutboundMessage{Connection: msg.Connection, Payload: offer}, nil
}

func (s *Service) handleOffer(_ context.Context, msg *dispatcher.InboundMessageContext) (
	*dispatcher.OutboundMessage, error) {
	rec, err := s.ProcessOffer(msg)
	if err != nil || !s.shouldRespondToOffer(rec) {
		return nil, err
	}

	logger.Infof("automatically sending request for credential exchange %s", rec.ID)

	request, _, err := s.CreateRequest(rec.ID, nil)
	if err != nil {
		return nil, err
	}

	return &dispatcher.OutboundMessage{Connection: msg.Connection, Payload: request}, nil
}

func (s *Service) handleRequest(_ context.Context, msg *dispatcher.InboundMessageContext) (
	*dispatcher.OutboundMessage, error) {
	rec, err := s.ProcessRequest(msg)
	if err != nil || !s.shouldRespondToRequest(rec) {
		return nil, err
	}

	logger.Infof("automatically issuing credential for exchange %s", rec.ID)

	issue, _, err := s.CreateCredential(rec.ID, "")
	if err != nil {
		return nil, err
	}

	return &dispatcher.OutboundMessage{Connection: msg.Connection, Payload: issue}, nil
}

func (s *Service) handleCredential(_ context.Context, msg *dispatcher.InboundMessageContext) (
	*dispatcher.OutboundMessage, error) {
	rec, err := s.ProcessCredential(msg)
	if err != nil || !s.shouldRespondToCredential(rec) {
		return nil, err
	}

	ack, _, err := s.CreateAck(rec.ID)
	if err != nil {
		return nil, err
	}

	return &dispatcher.OutboundMessage{Connection: msg.Connection, Payload: ack}, nil
}

func (s *Service) handleAck(_ context.Context, msg *dispatcher.InboundMessageContext) (
	*dispatcher.OutboundMessage, error) {
	_, err := s.ProcessAck(msg)

	return nil, err
}

func (s *Service) handleProblemReport(_ context.Context, msg *dispatcher.InboundMessageContext) (
	*dispatcher.OutboundMessage, error) {
	rec, err := s.ProcessProblemReport(msg)
	if err != nil {
		return nil, err
	}

	logger.Warnf("credential exchange %s abandoned by peer: %s", rec.ID, rec.ErrorMessage)

	return nil, nil
}
