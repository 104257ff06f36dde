/*
Copyright Avast Software. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package legacyconnection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-agent-go/pkg/crypto/signature"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/decorator"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-agent-go/pkg/doc/did"
	"github.com/hyperledger/aries-agent-go/pkg/kms"
	"github.com/hyperledger/aries-agent-go/pkg/kms/localkms"
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

type testProvider struct {
	store      *connection.Store
	kms        *localkms.LocalKMS
	endpoint   string
	label      string
	autoAccept bool
}

func newTestProvider(t *testing.T, label string) *testProvider {
	t.Helper()

	p := mem.NewProvider()

	k, err := localkms.New(p)
	require.NoError(t, err)

	return &testProvider{
		store:    connection.NewStore(record.NewService(p), &service.Message{}),
		kms:      k,
		endpoint: "http://" + label + ".example",
		label:    label,
	}
}

func (p *testProvider) ConnectionStore() *connection.Store { return p.store }
func (p *testProvider) KMS() kms.KeyManager { return p.kms }
func (p *testProvider) SignatureVerifier() signature.Verifier { return p.kms }
func (p *testProvider) ServiceEndpoint() string { return p.endpoint }
func (p *testProvider) RoutingKeys() []string { return nil }
func (p *testProvider) Label() string { return p.label }
func (p *testProvider) AutoAcceptConnections() bool { return p.autoAccept }

func toMsg(t *testing.T, v interface{}) service.DIDCommMsgMap {
	t.Helper()

	msg, err := service.NewDIDCommMsgMap(v)
	require.NoError(t, err)

	return msg
}

// inbound builds the context the transport layer would hand over, resolving the connection by keys.
func inbound(t *testing.T, p *testProvider, v interface{}, senderKey, recipientKey string) *dispatcher.InboundMessageContext {
	t.Helper()

	conn, err := p.store.FindByKeys(senderKey, recipientKey)
	require.NoError(t, err)

	return &dispatcher.InboundMessageContext{
		Message:      toMsg(t, v),
		Connection:   conn,
		SenderKey:    senderKey,
		RecipientKey: recipientKey,
	}
}

type handshake struct {
	alice, bob       *testProvider
	aliceSvc, bobSvc *Service
	aliceConn        *connection.Record
	bobConn          *connection.Record
	request          *Request
}

// upToRequest runs the handshake until the invitee sent its request.
func upToRequest(t *testing.T) *handshake {
	t.Helper()

	h := &handshake{alice: newTestProvider(t, "alice"), bob: newTestProvider(t, "bob")}
	h.aliceSvc, h.bobSvc = New(h.alice), New(h.bob)

	invitation, aliceConn, err := h.aliceSvc.CreateInvitation(&Options{Alias: "bob"})
	require.NoError(t, err)
	require.Equal(t, connection.StateInvited, aliceConn.Status.State())
	require.Equal(t, connection.RoleInviter, aliceConn.Status.Role())
	require.Equal(t, []string{aliceConn.Verkey}, invitation.RecipientKeys)
	require.Equal(t, "alice", invitation.Label)

	bobConn, err := h.bobSvc.ProcessInvitation(invitation, nil)
	require.NoError(t, err)
	require.Equal(t, connection.StateInvited, bobConn.Status.State())
	require.Equal(t, connection.RoleInvitee, bobConn.Status.Role())
	require.Equal(t, aliceConn.Verkey, bobConn.InvitationKey)

	request, bobConn, err := h.bobSvc.CreateRequest(bobConn.ID, nil)
	require.NoError(t, err)
	require.Equal(t, connection.StateRequested, bobConn.Status.State())
	require.Equal(t, request.ID, bobConn.ThreadID)

	h.aliceConn, h.bobConn, h.request = aliceConn, bobConn, request

	return h
}

func TestHandshake(t *testing.T) {
	h := upToRequest(t)

	aliceConn, err := h.aliceSvc.ProcessRequest(inbound(t, h.alice, h.request, h.bobConn.Verkey, h.aliceConn.Verkey))
	require.NoError(t, err)
	require.Equal(t, connection.StateRequested, aliceConn.Status.State())
	require.Equal(t, h.request.ID, aliceConn.ThreadID)
	require.Equal(t, h.bobConn.Verkey, aliceConn.TheirKey)
	require.Equal(t, "bob", aliceConn.TheirLabel)

	response, aliceConn, err := h.aliceSvc.CreateResponse(aliceConn.ID)
	require.NoError(t, err)
	require.Equal(t, connection.StateResponded, aliceConn.Status.State())
	require.Equal(t, h.request.ID, response.Thread.ID)
	require.Equal(t, aliceConn.InvitationKey, response.ConnectionSignature.Signer)

	bobConn, err := h.bobSvc.ProcessResponse(inbound(t, h.bob, response, aliceConn.Verkey, h.bobConn.Verkey))
	require.NoError(t, err)
	require.Equal(t, connection.StateResponded, bobConn.Status.State())
	require.Equal(t, aliceConn.Verkey, bobConn.TheirKey)
	require.Equal(t, aliceConn.DID, bobConn.TheirDID)
	require.True(t, bobConn.IsReady())

	ping, bobConn, err := h.bobSvc.CreateTrustPing(bobConn.ID, true)
	require.NoError(t, err)
	require.Equal(t, connection.StateComplete, bobConn.Status.State())

	pong, err := h.aliceSvc.ProcessTrustPing(inbound(t, h.alice, ping, bobConn.Verkey, aliceConn.Verkey))
	require.NoError(t, err)
	require.Equal(t, ping.ID, pong.Thread.ID)

	aliceConn, err = h.aliceSvc.GetByID(aliceConn.ID)
	require.NoError(t, err)
	require.Equal(t, connection.StateComplete, aliceConn.Status.State())

	require.Equal(t, bobConn.Verkey, aliceConn.TheirKey)
	require.Equal(t, aliceConn.Verkey, bobConn.TheirKey)

	dest, err := bobConn.TheirDestination()
	require.NoError(t, err)
	require.Equal(t, "http://alice.example", dest.ServiceEndpoint)
	require.Equal(t, []string{aliceConn.Verkey}, dest.RecipientKeys)
}

func TestHandshake_Ack(t *testing.T) {
	h := upToRequest(t)

	aliceConn, err := h.aliceSvc.ProcessRequest(inbound(t, h.alice, h.request, h.bobConn.Verkey, h.aliceConn.Verkey))
	require.NoError(t, err)

	response, aliceConn, err := h.aliceSvc.CreateResponse(aliceConn.ID)
	require.NoError(t, err)

	bobConn, err := h.bobSvc.ProcessResponse(inbound(t, h.bob, response, aliceConn.Verkey, h.bobConn.Verkey))
	require.NoError(t, err)

	ack, bobConn, err := h.bobSvc.CreateAck(bobConn.ID)
	require.NoError(t, err)
	require.Equal(t, connection.StateComplete, bobConn.Status.State())
	require.Equal(t, h.request.ID, ack.Thread.ID)

	aliceConn, err = h.aliceSvc.ProcessAck(inbound(t, h.alice, ack, bobConn.Verkey, aliceConn.Verkey))
	require.NoError(t, err)
	require.Equal(t, connection.StateComplete, aliceConn.Status.State())

	t.Run("ack on complete connection is a no-op", func(t *testing.T) {
		aliceConn, err = h.aliceSvc.ProcessAck(inbound(t, h.alice, ack, bobConn.Verkey, aliceConn.Verkey))
		require.NoError(t, err)
		require.Equal(t, connection.StateComplete, aliceConn.Status.State())
	})
}

func TestProcessAck_ThreadMismatch(t *testing.T) {
	h := upToRequest(t)

	aliceConn, err := h.aliceSvc.ProcessRequest(inbound(t, h.alice, h.request, h.bobConn.Verkey, h.aliceConn.Verkey))
	require.NoError(t, err)

	response, aliceConn, err := h.aliceSvc.CreateResponse(aliceConn.ID)
	require.NoError(t, err)

	bobConn, err := h.bobSvc.ProcessResponse(inbound(t, h.bob, response, aliceConn.Verkey, h.bobConn.Verkey))
	require.NoError(t, err)

	ack := &Ack{
		Type:   AckMsgType,
		ID:     uuid.New().String(),
		Status: ackStatusOK,
		Thread: &decorator.Thread{ID: "another-thread"},
	}

	_, err = h.aliceSvc.ProcessAck(inbound(t, h.alice, ack, bobConn.Verkey, aliceConn.Verkey))
	require.ErrorIs(t, err, exchange.ErrThreadMismatch)

	ack.Thread = nil

	_, err = h.aliceSvc.ProcessAck(inbound(t, h.alice, ack, bobConn.Verkey, aliceConn.Verkey))
	require.ErrorIs(t, err, exchange.ErrThreadMismatch)

	aliceConn, err = h.aliceSvc.GetByID(aliceConn.ID)
	require.NoError(t, err)
	require.Equal(t, connection.StateResponded, aliceConn.Status.State())
}

func TestProcessResponse_SignerMismatch(t *testing.T) {
	h := upToRequest(t)

	aliceConn, err := h.aliceSvc.ProcessRequest(inbound(t, h.alice, h.request, h.bobConn.Verkey, h.aliceConn.Verkey))
	require.NoError(t, err)

	// a third party answering the request with a correctly signed response of its own
	mallory := newTestProvider(t, "mallory")

	malloryKey, err := mallory.kms.CreateKey()
	require.NoError(t, err)

	doc, err := did.NewPairwiseDoc(malloryKey, mallory.endpoint, nil)
	require.NoError(t, err)

	sig, err := signature.Sign(&Connection{DID: doc.ID, DIDDoc: doc}, mallory.kms, malloryKey)
	require.NoError(t, err)

	forged := &Response{
		Type:                ResponseMsgType,
		ID:                  "forged",
		ConnectionSignature: sig,
		Thread:              &decorator.Thread{ID: h.request.ID},
	}

	_, err = h.bobSvc.ProcessResponse(inbound(t, h.bob, forged, malloryKey, h.bobConn.Verkey))
	require.ErrorIs(t, err, ErrSignerMismatch)

	bobConn, err := h.bobSvc.GetByID(h.bobConn.ID)
	require.NoError(t, err)
	require.Equal(t, connection.StateRequested, bobConn.Status.State())
	require.Empty(t, bobConn.TheirKey)

	t.Run("tampered signature", func(t *testing.T) {
		response, _, err := h.aliceSvc.CreateResponse(aliceConn.ID)
		require.NoError(t, err)

		response.ConnectionSignature.SignedData = sig.SignedData

		_, err = h.bobSvc.ProcessResponse(inbound(t, h.bob, response, aliceConn.Verkey, h.bobConn.Verkey))
		require.ErrorIs(t, err, signature.ErrSignatureInvalid)
	})

	t.Run("missing signature", func(t *testing.T) {
		_, err = h.bobSvc.ProcessResponse(inbound(t, h.bob, &Response{
			Type: ResponseMsgType, Thread: &decorator.Thread{ID: h.request.ID},
		}, aliceConn.Verkey, h.bobConn.Verkey))
		require.ErrorIs(t, err, exchange.ErrMissingField)
	})

	t.Run("wrong thread", func(t *testing.T) {
		_, err = h.bobSvc.ProcessResponse(inbound(t, h.bob, &Response{
			Type: ResponseMsgType, ConnectionSignature: sig, Thread: &decorator.Thread{ID: "other"},
		}, aliceConn.Verkey, h.bobConn.Verkey))
		require.ErrorIs(t, err, exchange.ErrThreadMismatch)
	})
}

func TestStateViolations(t *testing.T) {
	h := upToRequest(t)

	t.Run("create request from requested", func(t *testing.T) {
		_, _, err := h.bobSvc.CreateRequest(h.bobConn.ID, nil)
		require.ErrorIs(t, err, exchange.ErrStateViolation)

		var stateErr *exchange.StateError
		require.True(t, errors.As(err, &stateErr))
		require.Equal(t, []string{string(connection.StateInvited)}, stateErr.Expected)
		require.Equal(t, string(connection.StateRequested), stateErr.Current)
	})

	t.Run("create request as inviter", func(t *testing.T) {
		_, _, err := h.aliceSvc.CreateRequest(h.aliceConn.ID, nil)
		require.ErrorIs(t, err, exchange.ErrStateViolation)
		require.Contains(t, err.Error(), "role")
	})

	t.Run("create response before request", func(t *testing.T) {
		_, _, err := h.aliceSvc.CreateResponse(h.aliceConn.ID)
		require.ErrorIs(t, err, exchange.ErrStateViolation)
	})

	t.Run("trust ping before responded", func(t *testing.T) {
		_, _, err := h.bobSvc.CreateTrustPing(h.bobConn.ID, false)
		require.ErrorIs(t, err, exchange.ErrStateViolation)
	})

	t.Run("create request from responded names invited", func(t *testing.T) {
		aliceConn, err := h.aliceSvc.ProcessRequest(inbound(t, h.alice, h.request, h.bobConn.Verkey,
			h.aliceConn.Verkey))
		require.NoError(t, err)

		response, _, err := h.aliceSvc.CreateResponse(aliceConn.ID)
		require.NoError(t, err)

		_, err = h.bobSvc.ProcessResponse(inbound(t, h.bob, response, aliceConn.Verkey, h.bobConn.Verkey))
		require.NoError(t, err)

		_, _, err = h.bobSvc.CreateRequest(h.bobConn.ID, nil)

		var stateErr *exchange.StateError
		require.True(t, errors.As(err, &stateErr))
		require.Equal(t, string(connection.StateResponded), stateErr.Current)
		require.Equal(t, []string{string(connection.StateInvited)}, stateErr.Expected)
	})

	t.Run("process request without connection", func(t *testing.T) {
		_, err := h.aliceSvc.ProcessRequest(&dispatcher.InboundMessageContext{Message: toMsg(t, h.request)})
		require.ErrorIs(t, err, dispatcher.ErrConnectionNotFound)
	})
}

func TestProcessRequest_MissingIdentity(t *testing.T) {
	h := upToRequest(t)

	h.request.Connection.DIDDoc = nil

	_, err := h.aliceSvc.ProcessRequest(inbound(t, h.alice, h.request, h.bobConn.Verkey, h.aliceConn.Verkey))
	require.ErrorIs(t, err, exchange.ErrMissingField)

	aliceConn, err := h.aliceSvc.GetByID(h.aliceConn.ID)
	require.NoError(t, err)
	require.Equal(t, connection.StateInvited, aliceConn.Status.State())

	_, err = h.aliceSvc.ProcessRequest(inbound(t, h.alice, &Request{Type: RequestMsgType, ID: "r"},
		h.bobConn.Verkey, h.aliceConn.Verkey))
	require.ErrorIs(t, err, exchange.ErrMissingField)
}

func TestProcessInvitation_Invalid(t *testing.T) {
	svc := New(newTestProvider(t, "bob"))

	_, err := svc.ProcessInvitation(&Invitation{Type: InvitationMsgType, ServiceEndpoint: "http://x"}, nil)
	require.ErrorIs(t, err, exchange.ErrMissingField)

	_, err = svc.ProcessInvitation(&Invitation{Type: InvitationMsgType, RecipientKeys: []string{"k"}}, nil)
	require.ErrorIs(t, err, exchange.ErrMissingField)
}

func TestHandlers_AutoAccept(t *testing.T) {
	h := upToRequest(t)

	autoAccept := true
	invitation, aliceConn, err := h.aliceSvc.CreateInvitation(&Options{AutoAccept: &autoAccept})
	require.NoError(t, err)

	bobConn, err := h.bobSvc.ProcessInvitation(invitation, &Options{AutoAccept: &autoAccept})
	require.NoError(t, err)

	request, bobConn, err := h.bobSvc.CreateRequest(bobConn.ID, nil)
	require.NoError(t, err)

	aliceRegistry, bobRegistry := dispatcher.NewRegistry(), dispatcher.NewRegistry()
	require.NoError(t, aliceRegistry.Register(h.aliceSvc.Handlers()...))
	require.NoError(t, bobRegistry.Register(h.bobSvc.Handlers()...))

	out, err := aliceRegistry.Dispatch(context.Background(),
		inbound(t, h.alice, request, bobConn.Verkey, aliceConn.Verkey))
	require.NoError(t, err)
	require.IsType(t, &Response{}, out.Payload)
	require.Equal(t, connection.StateResponded, out.Connection.Status.State())

	out, err = bobRegistry.Dispatch(context.Background(),
		inbound(t, h.bob, out.Payload, aliceConn.Verkey, bobConn.Verkey))
	require.NoError(t, err)
	require.IsType(t, &TrustPing{}, out.Payload)
	require.Equal(t, connection.StateComplete, out.Connection.Status.State())

	out, err = aliceRegistry.Dispatch(context.Background(),
		inbound(t, h.alice, out.Payload, bobConn.Verkey, aliceConn.Verkey))
	require.NoError(t, err)
	require.Nil(t, out)

	aliceConn, err = h.aliceSvc.GetByID(aliceConn.ID)
	require.NoError(t, err)
	require.Equal(t, connection.StateComplete, aliceConn.Status.State())

	t.Run("manual accept returns no reply", func(t *testing.T) {
		out, err := aliceRegistry.Dispatch(context.Background(),
			inbound(t, h.alice, h.request, h.bobConn.Verkey, h.aliceConn.Verkey))
		require.NoError(t, err)
		require.Nil(t, out)
	})
}

func TestReturnWhenIsConnected(t *testing.T) {
	h := upToRequest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan *connection.Record, 1)

	go func() {
		rec, err := h.bobSvc.ReturnWhenIsConnected(ctx, h.bobConn.ID)
		if err == nil {
			done <- rec
		}

		close(done)
	}()

	aliceConn, err := h.aliceSvc.ProcessRequest(inbound(t, h.alice, h.request, h.bobConn.Verkey, h.aliceConn.Verkey))
	require.NoError(t, err)

	response, aliceConn, err := h.aliceSvc.CreateResponse(aliceConn.ID)
	require.NoError(t, err)

	_, err = h.bobSvc.ProcessResponse(inbound(t, h.bob, response, aliceConn.Verkey, h.bobConn.Verkey))
	require.NoError(t, err)

	rec, ok := <-done
	require.True(t, ok)
	require.True(t, rec.IsReady())

	t.Run("already connected", func(t *testing.T) {
		rec, err := h.bobSvc.ReturnWhenIsConnected(context.Background(), h.bobConn.ID)
		require.NoError(t, err)
		require.True(t, rec.IsReady())
	})

	t.Run("timeout", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		_, err := h.aliceSvc.ReturnWhenIsConnected(ctx, h.aliceConn.ID)
		require.NoError(t, err) // alice is responded already

		_, pending, err := h.aliceSvc.CreateInvitation(nil)
		require.NoError(t, err)

		_, err = h.aliceSvc.ReturnWhenIsConnected(ctx, pending.ID)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
