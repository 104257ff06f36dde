/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package context

import (
	"errors"
	"testing"
	"time"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	mockstorage "github.com/hyperledger/aries-framework-go/component/storageutil/mock"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/packer/noop"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/legacyconnection"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/presentproof"
	"github.com/hyperledger/aries-agent-go/pkg/kms/localkms"
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
)

var (
	_ legacyconnection.Provider = (*Provider)(nil)
	_ issuecredential.Provider  = (*Provider)(nil)
	_ presentproof.Provider     = (*Provider)(nil)
)

func TestNewProvider(t *testing.T) {
	t.Run("test new with default", func(t *testing.T) {
		prov, err := New()
		require.NoError(t, err)
		require.Empty(t, prov.Outbound())
		require.Nil(t, prov.RecordService())
		require.EqualValues(t, defaultOutboundRetries, prov.OutboundRetries())
		require.Equal(t, defaultOutboundRetryInterval, prov.OutboundRetryInterval())
		require.NoError(t, prov.Close())
	})

	t.Run("test error return from options", func(t *testing.T) {
		_, err := New(func(opts *Provider) error {
			return errors.New("error creating the framework option")
		})
		require.Error(t, err)
		require.Contains(t, err.Error(), "option failed")
	})

	t.Run("test storage provider derives the record service", func(t *testing.T) {
		p := mem.NewProvider()

		prov, err := New(WithStorageProvider(p))
		require.NoError(t, err)
		require.Equal(t, p, prov.StorageProvider())
		require.NotNil(t, prov.RecordService())

		svc := record.NewService(mem.NewProvider())

		prov, err = New(WithRecordService(svc), WithStorageProvider(p))
		require.NoError(t, err)
		require.Same(t, svc, prov.RecordService())
	})

	t.Run("test new with options", func(t *testing.T) {
		k, err := localkms.New(mem.NewProvider())
		require.NoError(t, err)

		events := &service.Message{}
		svc := record.NewService(mem.NewProvider())
		store := connection.NewStore(svc, events)
		registry := dispatcher.NewRegistry()
		packer := noop.New()

		prov, err := New(
			WithCorrelationID("tenant-1"),
			WithRecordService(svc),
			WithStateEvents(events),
			WithConnectionStore(store),
			WithKMS(k),
			WithSignatureVerifier(k),
			WithLabel("alice"),
			WithServiceEndpoint("http://alice.example.com", "routing-key"),
			WithAutoAccept(true, exchange.AutoAcceptAlways, exchange.AutoAcceptContentApproved),
			WithPacker(packer),
			WithOutboundRetries(5, time.Millisecond),
			WithMessageRegistry(registry),
		)
		require.NoError(t, err)
		require.Equal(t, "tenant-1", prov.CorrelationID())
		require.Same(t, events, prov.StateEvents())
		require.Same(t, store, prov.ConnectionStore())
		require.Equal(t, k, prov.KMS())
		require.Equal(t, k, prov.SignatureVerifier())
		require.Equal(t, "alice", prov.Label())
		require.Equal(t, "http://alice.example.com", prov.ServiceEndpoint())
		require.Equal(t, []string{"routing-key"}, prov.RoutingKeys())
		require.True(t, prov.AutoAcceptConnections())
		require.Equal(t, exchange.AutoAcceptAlways, prov.AutoAcceptCredentials())
		require.Equal(t, exchange.AutoAcceptContentApproved, prov.AutoAcceptProofs())
		require.Same(t, packer, prov.Packer())
		require.EqualValues(t, 5, prov.OutboundRetries())
		require.Equal(t, time.Millisecond, prov.OutboundRetryInterval())
		require.Same(t, registry, prov.MessageRegistry())
	})
}

func TestProvider_Close(t *testing.T) {
	t.Run("close and destroy", func(t *testing.T) {
		destroyed := false

		prov, err := New(WithStorageProvider(mem.NewProvider()), WithOnDestroy(func() error {
			destroyed = true
			return nil
		}))
		require.NoError(t, err)
		require.NoError(t, prov.Destroy())
		require.True(t, destroyed)
	})

	t.Run("close error", func(t *testing.T) {
		destroyed := false

		prov, err := New(WithStorageProvider(&mockstorage.Provider{ErrClose: errors.New("busy")}),
			WithOnDestroy(func() error {
				destroyed = true
				return nil
			}))
		require.NoError(t, err)

		err = prov.Close()
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to close the store")

		require.Error(t, prov.Destroy())
		require.False(t, destroyed)
	})
}
