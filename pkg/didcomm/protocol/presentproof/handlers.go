/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package presentproof

import (
	"context"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher"
)

// Handlers returns the inbound message handlers of the present proof protocol.
func (s *Service) Handlers() []dispatcher.Handler {
	return []dispatcher.Handler{
		&dispatcher.HandlerFunc{Types: []string{ProposePresentationMsgType}, Fn: s.handleProposal},
		&dispatcher.HandlerFunc{Types: []string{RequestPresentationMsgType}, Fn: s.handleRequest},
		&dispatcher.HandlerFunc{Types: []string{PresentationMsgType}, Fn: s.handlePresentation},
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

	logger.Infof("automatically sending proof request for presentation exchange %s", rec.ID)

	request, _, err := s.CreateRequestAsResponse(rec.ID, nil, "")
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

	logger.Infof("automatically presenting proof for presentation exchange %s", rec.ID)

	presentation, _, err := s.CreatePresentation(rec.ID, nil, "")
	if err != nil {
		return nil, err
	}

	return &dispatcher.OutboundMessage{Connection: msg.Connection, Payload: presentation}, nil
}

func (s *Service) handlePresentation(_ context.Context, msg *dispatcher.InboundMessageContext) (
	*dispatcher.OutboundMessage, error) {
	rec, err := s.ProcessPresentation(msg)
	if err != nil {
		return nil, err
	}

	if !rec.IsVerified {
		logger.Warnf("presentation of exchange %s failed verification", rec.ID)
	}

	if !s.shouldRespondToPresentation(rec) {
		return nil, nil
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

	logger.Warnf("presentation exchange %s abandoned by peer: %s", rec.ID, rec.ErrorMessage)

	return nil, nil
}
