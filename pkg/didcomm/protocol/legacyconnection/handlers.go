/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacyconnection

import (
	"context"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher"
)

// Handlers returns the inbound message handlers of the connection protocol.
func (s *Service) Handlers() []dispatcher.Handler {
	return []dispatcher.Handler{
		&dispatcher.HandlerFunc{Types: []string{RequestMsgType}, Fn: s.handleRequest},
		&dispatcher.HandlerFunc{Types: []string{ResponseMsgType}, Fn: s.handleResponse},
		&dispatcher.HandlerFunc{Types: []string{AckMsgType}, Fn: s.handleAck},
		&dispatcher.HandlerFunc{Types: []string{TrustPingMsgType}, Fn: s.handleTrustPing},
		&dispatcher.HandlerFunc{Types: []string{TrustPingResponseMsgType}, Fn: s.handleTrustPingResponse},
	}
}

func (s *Service) handleRequest(_ context.Context, msg *dispatcher.InboundMessageContext) (
	*dispatcher.OutboundMessage, error) {
	rec, err := s.ProcessRequest(msg)
	if err != nil {
		return nil, err
	}

	if !rec.AutoAccept {
		return nil, nil
	}

	response, rec, err := s.CreateResponse(rec.ID)
	if err != nil {
		return nil, err
	}

	return &dispatcher.OutboundMessage{Connection: rec, Payload: response}, nil
}

func (s *Service) handleResponse(_ context.Context, msg *dispatcher.InboundMessageContext) (
	*dispatcher.OutboundMessage, error) {
	rec, err := s.ProcessResponse(msg)
	if err != nil {
		return nil, err
	}

	if !rec.AutoAccept {
		return nil, nil
	}

	ping, rec, err := s.CreateTrustPing(rec.ID, false)
	if err != nil {
		return nil, err
	}

	return &dispatcher.OutboundMessage{Connection: rec, Payload: ping}, nil
}

func (s *Service) handleAck(_ context.Context, msg *dispatcher.InboundMessageContext) (
	*dispatcher.OutboundMessage, error) {
	_, err := s.ProcessAck(msg)

	return nil, err
}

func (s *Service) handleTrustPing(_ context.Context, msg *dispatcher.InboundMessageContext) (
	*dispatcher.OutboundMessage, error) {
	response, err := s.ProcessTrustPing(msg)
	if err != nil || response == nil {
		return nil, err
	}

	return &dispatcher.OutboundMessage{Connection: msg.Connection, Payload: response}, nil
}

func (s *Service) handleTrustPingResponse(_ context.Context, msg *dispatcher.InboundMessageContext) (
	*dispatcher.OutboundMessage, error) {
	if _, err := msg.RequireConnection(); err != nil {
		return nil, err
	}

	logger.Debugf("trust ping response %s on connection %s", msg.Message.ID(), msg.Connection.ID)

	return nil, nil
}
