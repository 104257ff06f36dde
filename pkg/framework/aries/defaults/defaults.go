/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package defaults provides framework options backed by persistent storage.
package defaults

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hyperledger/aries-framework-go/component/storage/leveldb"
	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/hyperledger/aries-agent-go/pkg/framework/aries"
)

// WithStorePath return new default store provider instantiate with db path.
func WithStorePath(storePath string) aries.Option {
	return func(opts *aries.Aries) error {
		if storePath == "" {
			return fmt.Errorf("leveldb provider initialization failed : empty store path")
		}

		return aries.WithStoreProvider(leveldb.NewProvider(storePath))(opts)
	}
}

// WithTenantStorePath keeps the storage of each tenant in its own leveldb database below storePath.
func WithTenantStorePath(storePath string) aries.Option {
	return func(opts *aries.Aries) error {
		s, err := NewTenantStorage(storePath)
		if err != nil {
			return err
		}

		return aries.WithTenantStorage(s)(opts)
	}
}

// TenantStorage opens one leveldb database per tenant.
type TenantStorage struct {
	root string
}

// NewTenantStorage returns tenant storage rooted at storePath.
func NewTenantStorage(storePath string) (*TenantStorage, error) {
	if storePath == "" {
		return nil, fmt.Errorf("tenant storage initialization failed : empty store path")
	}

	return &TenantStorage{root: storePath}, nil
}

// Open returns the storage of a tenant, created on first use.
func (s *TenantStorage) Open(tenantID string) (storage.Provider, error) {
	path, err := s.path(tenantID)
	if err != nil {
		return nil, err
	}

	return leveldb.NewProvider(path), nil
}

// Remove deletes the database of a tenant.
func (s *TenantStorage) Remove(tenantID string) error {
	path, err := s.path(tenantID)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove storage of tenant %s: %w", tenantID, err)
	}

	return nil
}

// path only accepts generated tenant IDs, so no ID can leave the root directory.
func (s *TenantStorage) path(tenantID string) (string, error) {
	if _, err := uuid.Parse(tenantID); err != nil {
		return "", fmt.Errorf("invalid tenant ID %q: %w", tenantID, err)
	}

	return filepath.Join(s.root, tenantID), nil
}
