/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aries

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/packer/noop"
	arieshttp "github.com/hyperledger/aries-agent-go/pkg/didcomm/transport/http"
)

// defFrameworkOpts provides default framework options.
func defFrameworkOpts(frameworkOpts *Aries) error {
	if len(frameworkOpts.outboundTransports) == 0 {
		outbound, err := arieshttp.NewOutbound(arieshttp.WithOutboundHTTPClient(&http.Client{}))
		if err != nil {
			return fmt.Errorf("http outbound transport initialization failed: %w", err)
		}

		frameworkOpts.outboundTransports = append(frameworkOpts.outboundTransports, outbound)
	}

	if frameworkOpts.storeProvider == nil {
		frameworkOpts.storeProvider = mem.NewProvider()
	}

	if frameworkOpts.tenantStorage == nil {
		frameworkOpts.tenantStorage = &memTenantStorage{}
	}

	if frameworkOpts.packer == nil {
		frameworkOpts.packer = noop.New()
	}

	if frameworkOpts.label == "" {
		frameworkOpts.label = defaultLabel
	}

	if frameworkOpts.endpoint == "" {
		frameworkOpts.endpoint = defaultEndpoint
	}

	return nil
}

// memTenantStorage keeps an in-memory provider per tenant for the life of the process. Closing a tenant
// context keeps its data; Remove drops it.
type memTenantStorage struct {
	mu        sync.Mutex
	providers map[string]*mem.Provider
}

func (m *memTenantStorage) Open(tenantID string) (storage.Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.providers == nil {
		m.providers = make(map[string]*mem.Provider)
	}

	p, ok := m.providers[tenantID]
	if !ok {
		p = mem.NewProvider()
		m.providers[tenantID] = p
	}

	return &unclosable{Provider: p}, nil
}

func (m *memTenantStorage) Remove(tenantID string) error {
	m.mu.Lock()
	p, ok := m.providers[tenantID]
	delete(m.providers, tenantID)
	m.mu.Unlock()

	if !ok {
		return nil
	}

	return p.Close()
}

type unclosable struct {
	storage.Provider
}

func (u *unclosable) Close() error {
	return nil
}
