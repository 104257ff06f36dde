/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package aries

import (
	gocontext "context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher/inbound"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher/outbound"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/packer"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/legacyconnection"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/presentproof"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport"
	"github.com/hyperledger/aries-agent-go/pkg/framework/context"
	"github.com/hyperledger/aries-agent-go/pkg/kms/localkms"
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
	"github.com/hyperledger/aries-agent-go/pkg/tenant"
	"github.com/hyperledger/aries-agent-go/pkg/wallet/attrib"
)

const (
	defaultEndpoint = "didcomm:transport/queue"
	defaultLabel    = "aries-agent"

	// TenantPathPrefix prefixes the inbound path of tenant agents below the root endpoint.
	TenantPathPrefix = "/tenant/"
)

var logger = log.New("aries-agent/framework")

// TenantStorage opens the storage of tenant agents.
type TenantStorage interface {
	Open(tenantID string) (storage.Provider, error)
	// Remove deletes the storage of a tenant once it is closed.
	Remove(tenantID string) error
}

// Aries provides access to the context being managed by the framework. The context can be used to create aries clients.
type Aries struct {
	storeProvider         storage.Provider
	tenantStorage         TenantStorage
	tenantOpts            []tenant.Option
	correlationID         string
	label                 string
	endpoint              string
	routingKeys           []string
	autoAcceptConnections bool
	autoAcceptCredentials exchange.AutoAccept
	autoAcceptProofs      exchange.AutoAccept
	outboundTransports    []transport.OutboundTransport
	packer                packer.Packer
	outboundRetries       *uint64
	outboundRetryInterval time.Duration

	recordService      *record.Service
	stateEvents        *service.Message
	connectionStore    *connection.Store
	kms                *localkms.LocalKMS
	wallet             *attrib.Wallet
	registry           *dispatcher.Registry
	outboundDispatcher *outbound.Dispatcher
	inboundHandler     *inbound.MessageHandler
	connectionService  *legacyconnection.Service
	issueCredentialSvc *issuecredential.Service
	presentProofSvc    *presentproof.Service
	tenants            *tenant.Client[*context.Provider]
}

// Option configures the framework.
type Option func(opts *Aries) error

// New initializes the Aries framework based on the set of options provided. This function returns a framework
// which can be used to manage Aries clients by getting the framework context.
func New(opts ...Option) (*Aries, error) {
	frameworkOpts := &Aries{}

	// generate framework configs from options
	for _, option := range opts {
		err := option(frameworkOpts)
		if err != nil {
			closeErr := frameworkOpts.Close()
			return nil, fmt.Errorf("close err: %v Error in option passed to New: %w", closeErr, err)
		}
	}

	// get the default framework options
	err := defFrameworkOpts(frameworkOpts)
	if err != nil {
		return nil, fmt.Errorf("default option initialization failed: %w", err)
	}

	// The protocol services depend on the context, which in turn carries the services. The context is
	// created once per step with what exists so far.
	return initializeServices(frameworkOpts)
}

func initializeServices(frameworkOpts *Aries) (*Aries, error) {
	// Order of initializing service is important
	createStores(frameworkOpts)

	if err := createKMS(frameworkOpts); err != nil {
		return nil, err
	}

	frameworkOpts.wallet = attrib.New(frameworkOpts.recordService, frameworkOpts.kms, frameworkOpts.kms)

	if err := createOutboundDispatcher(frameworkOpts); err != nil {
		return nil, err
	}

	if err := loadServices(frameworkOpts); err != nil {
		return nil, err
	}

	if err := createInboundHandler(frameworkOpts); err != nil {
		return nil, err
	}

	// tenants are only managed by the root agent
	if frameworkOpts.correlationID == "" {
		frameworkOpts.tenants = tenant.NewClient(frameworkOpts.recordService, frameworkOpts.newTenantAgent,
			frameworkOpts.tenantOpts...)
	}

	return frameworkOpts, nil
}

// WithStoreProvider injects a storage provider to the Aries framework.
func WithStoreProvider(prov storage.Provider) Option {
	return func(opts *Aries) error {
		opts.storeProvider = prov
		return nil
	}
}

// WithTenantStorage sets where tenant agents keep their data. By default each tenant gets in-memory storage.
func WithTenantStorage(s TenantStorage) Option {
	return func(opts *Aries) error {
		opts.tenantStorage = s
		return nil
	}
}

// WithTenantOptions configures the tenant session coordinator.
func WithTenantOptions(tenantOpts ...tenant.Option) Option {
	return func(opts *Aries) error {
		opts.tenantOpts = append(opts.tenantOpts, tenantOpts...)
		return nil
	}
}

// WithLabel sets the label the agent presents in invitations and requests.
func WithLabel(label string) Option {
	return func(opts *Aries) error {
		opts.label = label
		return nil
	}
}

// WithEndpoint sets the endpoint peers reach the agent at, and the keys of the mediators on the way.
func WithEndpoint(endpoint string, routingKeys ...string) Option {
	return func(opts *Aries) error {
		opts.endpoint = endpoint
		opts.routingKeys = routingKeys

		return nil
	}
}

// WithAutoAcceptConnections answers connection requests without the controller.
func WithAutoAcceptConnections(autoAccept bool) Option {
	return func(opts *Aries) error {
		opts.autoAcceptConnections = autoAccept
		return nil
	}
}

// WithAutoAccept sets the agent wide credential and proof auto accept policies.
func WithAutoAccept(credentials, proofs exchange.AutoAccept) Option {
	return func(opts *Aries) error {
		opts.autoAcceptCredentials = credentials
		opts.autoAcceptProofs = proofs

		return nil
	}
}

// WithOutboundTransports injects a outbound transports to the Aries framework.
func WithOutboundTransports(outboundTransports ...transport.OutboundTransport) Option {
	return func(opts *Aries) error {
		opts.outboundTransports = append(opts.outboundTransports, outboundTransports...)
		return nil
	}
}

// WithPacker injects the envelope packer to the Aries framework.
func WithPacker(p packer.Packer) Option {
	return func(opts *Aries) error {
		opts.packer = p
		return nil
	}
}

// WithOutboundRetries sets how often and how far apart failed outbound deliveries are retried.
func WithOutboundRetries(retries uint64, interval time.Duration) Option {
	return func(opts *Aries) error {
		opts.outboundRetries = &retries
		opts.outboundRetryInterval = interval

		return nil
	}
}

func withCorrelationID(id string) Option {
	return func(opts *Aries) error {
		opts.correlationID = id
		return nil
	}
}

// Context provides a handle to the framework context.
func (a *Aries) Context() (*context.Provider, error) {
	opts := []context.ProviderOption{
		context.WithCorrelationID(a.correlationID),
		context.WithStorageProvider(a.storeProvider),
		context.WithRecordService(a.recordService),
		context.WithStateEvents(a.stateEvents),
		context.WithConnectionStore(a.connectionStore),
		context.WithLabel(a.label),
		context.WithServiceEndpoint(a.endpoint, a.routingKeys...),
		context.WithAutoAccept(a.autoAcceptConnections, a.autoAcceptCredentials, a.autoAcceptProofs),
		context.WithPacker(a.packer),
		context.WithOutboundTransports(a.outboundTransports...),
		context.WithMessageRegistry(a.registry),
		context.WithProtocolServices(a.connectionService, a.issueCredentialSvc, a.presentProofSvc),
	}

	if a.kms != nil {
		opts = append(opts, context.WithKMS(a.kms), context.WithSignatureVerifier(a.kms))
	}

	if a.wallet != nil {
		opts = append(opts, context.WithWallet(a.wallet))
	}

	if a.outboundRetries != nil {
		opts = append(opts, context.WithOutboundRetries(*a.outboundRetries, a.outboundRetryInterval))
	}

	if a.outboundDispatcher != nil {
		opts = append(opts, context.WithOutboundDispatcher(a.outboundDispatcher))
	}

	if a.inboundHandler != nil {
		opts = append(opts, context.WithInboundMessageHandler(a.inboundHandler.HandlerFunc()))
	}

	return context.New(opts...)
}

// Tenants returns the tenant client of the root agent, nil for tenant agents.
func (a *Aries) Tenants() *tenant.Client[*context.Provider] {
	return a.tenants
}

// Close frees resources being maintained by the framework.
func (a *Aries) Close() error {
	if a.tenants != nil {
		if err := a.tenants.Close(); err != nil {
			return fmt.Errorf("failed to close tenant agents: %w", err)
		}
	}

	if a.storeProvider != nil {
		err := a.storeProvider.Close()
		if err != nil {
			return fmt.Errorf("failed to close the store: %w", err)
		}
	}

	return nil
}

func createStores(frameworkOpts *Aries) {
	frameworkOpts.recordService = record.NewService(frameworkOpts.storeProvider)
	frameworkOpts.stateEvents = &service.Message{}
	frameworkOpts.connectionStore = connection.NewStore(frameworkOpts.recordService, frameworkOpts.stateEvents)
	frameworkOpts.registry = dispatcher.NewRegistry()
}

func createKMS(frameworkOpts *Aries) error {
	k, err := localkms.New(frameworkOpts.storeProvider)
	if err != nil {
		return fmt.Errorf("create local kms failed: %w", err)
	}

	frameworkOpts.kms = k

	return nil
}

func createOutboundDispatcher(frameworkOpts *Aries) error {
	ctx, err := frameworkOpts.Context()
	if err != nil {
		return fmt.Errorf("context creation failed: %w", err)
	}

	frameworkOpts.outboundDispatcher = outbound.NewOutbound(ctx)

	return nil
}

func loadServices(frameworkOpts *Aries) error {
	ctx, err := frameworkOpts.Context()
	if err != nil {
		return fmt.Errorf("create context failed: %w", err)
	}

	frameworkOpts.connectionService = legacyconnection.New(ctx)
	frameworkOpts.issueCredentialSvc = issuecredential.New(ctx)
	frameworkOpts.presentProofSvc = presentproof.New(ctx)

	var handlers []dispatcher.Handler

	handlers = append(handlers, frameworkOpts.connectionService.Handlers()...)
	handlers = append(handlers, frameworkOpts.issueCredentialSvc.Handlers()...)
	handlers = append(handlers, frameworkOpts.presentProofSvc.Handlers()...)

	if err = frameworkOpts.registry.Register(handlers...); err != nil {
		return fmt.Errorf("register message handlers: %w", err)
	}

	return nil
}

func createInboundHandler(frameworkOpts *Aries) error {
	ctx, err := frameworkOpts.Context()
	if err != nil {
		return fmt.Errorf("context creation failed: %w", err)
	}

	frameworkOpts.inboundHandler = inbound.NewInboundMessageHandler(ctx)

	return nil
}

// TenantEndpoint returns the endpoint of a tenant agent below the root agent endpoint. Endpoints that are
// not URLs are shared.
func TenantEndpoint(endpoint, tenantID string) string {
	if !strings.Contains(endpoint, "://") {
		return endpoint
	}

	return strings.TrimSuffix(endpoint, "/") + TenantPathPrefix + tenantID
}

// newTenantAgent creates the agent context of a tenant: the root configuration over the tenant's storage.
func (a *Aries) newTenantAgent(_ gocontext.Context, rec *tenant.Record) (*context.Provider, error) {
	correlationID, err := tenant.CorrelationID(rec.ID)
	if err != nil {
		return nil, err
	}

	store, err := a.tenantStorage.Open(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("open storage of tenant %s: %w", rec.ID, err)
	}

	label := rec.Label
	if label == "" {
		label = a.label
	}

	opts := []Option{
		withCorrelationID(correlationID),
		WithStoreProvider(store),
		WithLabel(label),
		WithEndpoint(TenantEndpoint(a.endpoint, rec.ID), a.routingKeys...),
		WithAutoAcceptConnections(a.autoAcceptConnections),
		WithAutoAccept(a.autoAcceptCredentials, a.autoAcceptProofs),
		WithOutboundTransports(a.outboundTransports...),
		WithPacker(a.packer),
	}

	if a.outboundRetries != nil {
		opts = append(opts, WithOutboundRetries(*a.outboundRetries, a.outboundRetryInterval))
	}

	agent, err := New(opts...)
	if err != nil {
		if closeErr := store.Close(); closeErr != nil {
			logger.Warnf("failed to close storage of tenant %s: %s", rec.ID, closeErr)
		}

		return nil, fmt.Errorf("create agent of tenant %s: %w", rec.ID, err)
	}

	ctx, err := agent.Context()
	if err != nil {
		return nil, err
	}

	tenantID := rec.ID

	return ctx, context.WithOnDestroy(func() error {
		return a.tenantStorage.Remove(tenantID)
	})(ctx)
}
