/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package legacyconnection implements the connection protocol (Aries RFC 0160) that establishes pairwise connections.
package legacyconnection

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-agent-go/pkg/crypto/signature"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-agent-go/pkg/doc/did"
	"github.com/hyperledger/aries-agent-go/pkg/kms"
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

var logger = log.New("aries-agent/legacyconnection")

// ErrSignerMismatch is returned when a connection response is signed by a key other than the invitation key.
var ErrSignerMismatch = errors.New("connection response signer does not match invitation key")

// Provider contains dependencies for the connection protocol.
type Provider interface {
	ConnectionStore() *connection.Store
	KMS() kms.KeyManager
	SignatureVerifier() signature.Verifier
	ServiceEndpoint() string
	RoutingKeys() []string
	Label() string
	AutoAcceptConnections() bool
}

// Service for the connection protocol.
type Service struct {
	store       *connection.Store
	kms         kms.KeyManager
	verifier    signature.Verifier
	endpoint    string
	routingKeys []string
	label       string
	autoAccept  bool
}

// New returns a connection protocol Service.
func New(p Provider) *Service {
	return &Service{
		store:       p.ConnectionStore(),
		kms:         p.KMS(),
		verifier:    p.SignatureVerifier(),
		endpoint:    p.ServiceEndpoint(),
		routingKeys: p.RoutingKeys(),
		label:       p.Label(),
		autoAccept:  p.AutoAcceptConnections(),
	}
}

// Options are the optional settings of a new connection.
type Options struct {
	Alias string
	// Label overrides the agent label presented to the peer.
	Label string
	// AutoAccept overrides the agent-wide auto accept setting.
	AutoAccept *bool
}

func (s *Service) newConnection(opts *Options) (*connection.Record, error) {
	verkey, err := s.kms.CreateKey()
	if err != nil {
		return nil, fmt.Errorf("create connection key: %w", err)
	}

	doc, err := did.NewPairwiseDoc(verkey, s.endpoint, s.routingKeys)
	if err != nil {
		return nil, fmt.Errorf("create connection DID document: %w", err)
	}

	rec := &connection.Record{
		BaseRecord: record.NewBaseRecord(uuid.New().String()),
		DID:        doc.ID,
		DIDDoc:     doc,
		Verkey:     verkey,
		AutoAccept: s.autoAccept,
	}

	if opts != nil {
		rec.Alias = opts.Alias

		if opts.AutoAccept != nil {
			rec.AutoAccept = *opts.AutoAccept
		}
	}

	return rec, nil
}

func (s *Service) myLabel(opts *Options) string {
	if opts != nil && opts.Label != "" {
		return opts.Label
	}

	return s.label
}

// CreateInvitation creates a connection in state invited with role inviter and returns its invitation.
func (s *Service) CreateInvitation(opts *Options) (*Invitation, *connection.Record, error) {
	rec, err := s.newConnection(opts)
	if err != nil {
		return nil, nil, err
	}

	invitation := &Invitation{
		Type:            InvitationMsgType,
		ID:              uuid.New().String(),
		Label:           s.myLabel(opts),
		RecipientKeys:   []string{rec.Verkey},
		ServiceEndpoint: s.endpoint,
		RoutingKeys:     s.routingKeys,
	}

	rec.InvitationKey = rec.Verkey

	rec.Invitation, err = service.NewDIDCommMsgMap(invitation)
	if err != nil {
		return nil, nil, err
	}

	if err = s.store.Create(rec, connection.StateInvited, connection.RoleInviter); err != nil {
		return nil, nil, err
	}

	logger.Debugf("created invitation %s for connection %s", invitation.ID, rec.ID)

	return invitation, rec, nil
}

// ProcessInvitation creates a connection in state invited with role invitee from a received invitation.
func (s *Service) ProcessInvitation(invitation *Invitation, opts *Options) (*connection.Record, error) {
	if len(invitation.RecipientKeys) == 0 || invitation.RecipientKeys[0] == "" {
		return nil, exchange.MissingField(InvitationMsgType, "recipientKeys")
	}

	if invitation.ServiceEndpoint == "" {
		return nil, exchange.MissingField(InvitationMsgType, "serviceEndpoint")
	}

	rec, err := s.newConnection(opts)
	if err != nil {
		return nil, err
	}

	rec.TheirLabel = invitation.Label
	rec.InvitationKey = invitation.RecipientKeys[0]

	rec.Invitation, err = service.NewDIDCommMsgMap(invitation)
	if err != nil {
		return nil, err
	}

	if err = s.store.Create(rec, connection.StateInvited, connection.RoleInvitee); err != nil {
		return nil, err
	}

	return rec, nil
}

// CreateRequest builds the connection request of an invitee and moves the connection to requested.
func (s *Service) CreateRequest(connectionID string, opts *Options) (*Request, *connection.Record, error) {
	rec, err := s.store.GetByID(connectionID)
	if err != nil {
		return nil, nil, err
	}

	if err = s.store.Assert(rec, connection.RoleInvitee, connection.StateInvited); err != nil {
		return nil, nil, err
	}

	request := &Request{
		Type:       RequestMsgType,
		ID:         uuid.New().String(),
		Label:      s.myLabel(opts),
		Connection: &Connection{DID: rec.DID, DIDDoc: rec.DIDDoc},
	}

	rec.ThreadID = request.ID

	if err = s.store.Transition(rec, connection.StateRequested); err != nil {
		return nil, nil, err
	}

	return request, rec, nil
}

// ProcessRequest records the invitee's identity on the inviter's connection and moves it to requested.
func (s *Service) ProcessRequest(msg *dispatcher.InboundMessageContext) (*connection.Record, error) {
	rec, err := msg.RequireConnection()
	if err != nil {
		return nil, err
	}

	if err = s.store.Assert(rec, connection.RoleInviter, connection.StateInvited); err != nil {
		return nil, err
	}

	var request Request

	if err = msg.Message.Decode(&request); err != nil {
		return nil, err
	}

	if request.Connection == nil || request.Connection.DID == "" {
		return nil, exchange.MissingField(RequestMsgType, "connection.DID")
	}

	if request.Connection.DIDDoc == nil {
		return nil, exchange.MissingField(RequestMsgType, "connection.DIDDoc")
	}

	theirKey, err := request.Connection.DIDDoc.RecipientKey()
	if err != nil {
		return nil, exchange.MissingField(RequestMsgType, "connection.DIDDoc.service.recipientKeys")
	}

	rec.TheirDID = request.Connection.DID
	rec.TheirDIDDoc = request.Connection.DIDDoc
	rec.TheirKey = theirKey
	rec.TheirLabel = request.Label
	rec.ThreadID = msg.Message.ID()

	if err = s.store.Transition(rec, connection.StateRequested); err != nil {
		return nil, err
	}

	return rec, nil
}

// CreateResponse signs the inviter's identity with the invitation key and moves the connection to responded.
func (s *Service) CreateResponse(connectionID string) (*Response, *connection.Record, error) {
	rec, err := s.store.GetByID(connectionID)
	if err != nil {
		return nil, nil, err
	}

	if err = s.store.Assert(rec, connection.RoleInviter, connection.StateRequested); err != nil {
		return nil, nil, err
	}

	sig, err := signature.Sign(&Connection{DID: rec.DID, DIDDoc: rec.DIDDoc}, s.kms, rec.InvitationKey)
	if err != nil {
		return nil, nil, fmt.Errorf("sign connection of %s: %w", rec.ID, err)
	}

	response := &Response{
		Type:                ResponseMsgType,
		ID:                  uuid.New().String(),
		ConnectionSignature: sig,
		Thread:              &decorator.Thread{ID: rec.ThreadID},
	}

	if err = s.store.Transition(rec, connection.StateResponded); err != nil {
		return nil, nil, err
	}

	return response, rec, nil
}

// ProcessResponse verifies the inviter's signed identity and moves the invitee's connection to responded.
// The response must be signed with the key of the invitation the connection was created from.
func (s *Service) ProcessResponse(msg *dispatcher.InboundMessageContext) (*connection.Record, error) {
	rec, err := msg.RequireConnection()
	if err != nil {
		return nil, err
	}

	if err = s.store.Assert(rec, connection.RoleInvitee, connection.StateRequested); err != nil {
		return nil, err
	}

	var response Response

	if err = msg.Message.Decode(&response); err != nil {
		return nil, err
	}

	if response.Thread == nil || response.Thread.ID != rec.ThreadID {
		return nil, fmt.Errorf("response thread does not match request %s of connection %s: %w",
			rec.ThreadID, rec.ID, exchange.ErrThreadMismatch)
	}

	if response.ConnectionSignature == nil {
		return nil, exchange.MissingField(ResponseMsgType, "connection~sig")
	}

	var conn Connection

	if err = signature.Verify(response.ConnectionSignature, s.verifier, &conn); err != nil {
		return nil, fmt.Errorf("connection %s response: %w", rec.ID, err)
	}

	if response.ConnectionSignature.Signer != rec.InvitationKey {
		return nil, fmt.Errorf("connection %s response signed by %s, invitation key is %s: %w",
			rec.ID, response.ConnectionSignature.Signer, rec.InvitationKey, ErrSignerMismatch)
	}

	if conn.DID == "" || conn.DIDDoc == nil {
		return nil, exchange.MissingField(ResponseMsgType, "connection")
	}

	theirKey, err := conn.DIDDoc.RecipientKey()
	if err != nil {
		return nil, exchange.MissingField(ResponseMsgType, "connection.DIDDoc.service.recipientKeys")
	}

	rec.TheirDID = conn.DID
	rec.TheirDIDDoc = conn.DIDDoc
	rec.TheirKey = theirKey

	if err = s.store.Transition(rec, connection.StateResponded); err != nil {
		return nil, err
	}

	return rec, nil
}

// CreateTrustPing pings the peer of a ready connection, completing it if it was responded.
func (s *Service) CreateTrustPing(connectionID string, responseRequested bool) (*TrustPing, *connection.Record,
	error) {
	rec, err := s.store.GetByID(connectionID)
	if err != nil {
		return nil, nil, err
	}

	if err = s.store.AssertState(rec, connection.StateResponded, connection.StateComplete); err != nil {
		return nil, nil, err
	}

	if err = s.complete(rec); err != nil {
		return nil, nil, err
	}

	return &TrustPing{
		Type:              TrustPingMsgType,
		ID:                uuid.New().String(),
		ResponseRequested: responseRequested,
	}, rec, nil
}

// CreateAck acknowledges the connection response, completing the connection.
func (s *Service) CreateAck(connectionID string) (*Ack, *connection.Record, error) {
	rec, err := s.store.GetByID(connectionID)
	if err != nil {
		return nil, nil, err
	}

	if err = s.store.AssertState(rec, connection.StateResponded, connection.StateComplete); err != nil {
		return nil, nil, err
	}

	if err = s.complete(rec); err != nil {
		return nil, nil, err
	}

	return &Ack{
		Type:   AckMsgType,
		ID:     uuid.New().String(),
		Status: ackStatusOK,
		Thread: &decorator.Thread{ID: rec.ThreadID},
	}, rec, nil
}

// ProcessAck completes the inviter's connection once the invitee acknowledged the response.
func (s *Service) ProcessAck(msg *dispatcher.InboundMessageContext) (*connection.Record, error) {
	rec, err := msg.RequireConnection()
	if err != nil {
		return nil, err
	}

	thid, err := msg.Message.ThreadID()
	if err != nil {
		return nil, err
	}

	if thid != rec.ThreadID {
		return nil, fmt.Errorf("ack thread %s does not match request %s of connection %s: %w",
			thid, rec.ThreadID, rec.ID, exchange.ErrThreadMismatch)
	}

	if rec.Status.State() == connection.StateResponded && rec.Status.Role() == connection.RoleInviter {
		if err = s.complete(rec); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

// ProcessTrustPing completes a responded connection and returns a ping response when one was requested.
func (s *Service) ProcessTrustPing(msg *dispatcher.InboundMessageContext) (*TrustPingResponse, error) {
	rec, err := msg.RequireConnection()
	if err != nil {
		return nil, err
	}

	var ping TrustPing

	if err = msg.Message.Decode(&ping); err != nil {
		return nil, err
	}

	if rec.Status.State() == connection.StateResponded {
		if err = s.complete(rec); err != nil {
			return nil, err
		}
	}

	if !ping.ResponseRequested {
		return nil, nil
	}

	return &TrustPingResponse{
		Type:   TrustPingResponseMsgType,
		ID:     uuid.New().String(),
		Thread: &decorator.Thread{ID: msg.Message.ID()},
	}, nil
}

// ReturnWhenIsConnected waits until the connection is ready or ctx is done.
func (s *Service) ReturnWhenIsConnected(ctx context.Context, connectionID string) (*connection.Record, error) {
	var ready *connection.Record

	check := func() (bool, error) {
		rec, err := s.store.GetByID(connectionID)
		if err != nil {
			return false, err
		}

		if rec.IsReady() {
			ready = rec
		}

		return ready != nil, nil
	}

	match := func(msg service.StateMsg) bool {
		return msg.ProtocolName == connection.ProtocolName && msg.RecordID == connectionID &&
			(msg.StateID == string(connection.StateResponded) || msg.StateID == string(connection.StateComplete))
	}

	if err := service.WaitFor(ctx, s.store.Events(), match, check); err != nil {
		return nil, fmt.Errorf("wait for connection %s: %w", connectionID, err)
	}

	if ready != nil {
		return ready, nil
	}

	return s.store.GetByID(connectionID)
}

// GetAll returns every connection.
func (s *Service) GetAll() ([]*connection.Record, error) {
	return s.store.GetAll()
}

// GetByID returns a connection.
func (s *Service) GetByID(connectionID string) (*connection.Record, error) {
	return s.store.GetByID(connectionID)
}

// FindByVerkey returns the connection using verkey, or nil.
func (s *Service) FindByVerkey(verkey string) (*connection.Record, error) {
	return s.store.FindByVerkey(verkey)
}

// FindByTheirKey returns the connection whose peer uses theirKey, or nil.
func (s *Service) FindByTheirKey(theirKey string) (*connection.Record, error) {
	return s.store.FindByTheirKey(theirKey)
}

// GetByThreadID returns the connection of a connection protocol thread.
func (s *Service) GetByThreadID(threadID string) (*connection.Record, error) {
	return s.store.GetByThreadID(threadID)
}

// DeleteByID deletes a connection.
func (s *Service) DeleteByID(connectionID string) error {
	return s.store.DeleteByID(connectionID)
}

func (s *Service) complete(rec *connection.Record) error {
	if rec.Status.State() == connection.StateComplete {
		return nil
	}

	return s.store.Transition(rec, connection.StateComplete)
}
