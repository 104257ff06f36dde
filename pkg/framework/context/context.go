/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package context creates a framework Provider context to add optional (non default) framework services and provides
// simple accessor methods to those same services.
package context

import (
	"fmt"
	"time"

	"github.com/hyperledger/aries-framework-go/spi/storage"

	"github.com/hyperledger/aries-agent-go/pkg/crypto/signature"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/common/service"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/dispatcher"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/packer"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/exchange"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/issuecredential"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/legacyconnection"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/protocol/presentproof"
	"github.com/hyperledger/aries-agent-go/pkg/didcomm/transport"
	"github.com/hyperledger/aries-agent-go/pkg/kms"
	"github.com/hyperledger/aries-agent-go/pkg/store/connection"
	"github.com/hyperledger/aries-agent-go/pkg/store/record"
	"github.com/hyperledger/aries-agent-go/pkg/wallet/attrib"
)

const (
	defaultOutboundRetries       = 3
	defaultOutboundRetryInterval = time.Second
)

// Provider supplies the framework configuration to client objects.
type Provider struct {
	correlationID         string
	storeProvider         storage.Provider
	recordService         *record.Service
	stateEvents           *service.Message
	connectionStore       *connection.Store
	kms                   kms.KeyManager
	signatureVerifier     signature.Verifier
	credentialIssuer      issuecredential.Issuer
	credentialHolder      issuecredential.Holder
	proofProver           presentproof.Prover
	proofVerifier         presentproof.Verifier
	wallet                *attrib.Wallet
	label                 string
	serviceEndpoint       string
	routingKeys           []string
	autoAcceptConnections bool
	autoAcceptCredentials exchange.AutoAccept
	autoAcceptProofs      exchange.AutoAccept
	packer                packer.Packer
	outboundTransports    []transport.OutboundTransport
	outboundRetries       uint64
	outboundRetryInterval time.Duration
	messageRegistry       *dispatcher.Registry
	outboundDispatcher    dispatcher.Outbound
	inboundHandler        transport.InboundMessageHandler
	connectionService     *legacyconnection.Service
	issueCredentialSvc    *issuecredential.Service
	presentProofSvc       *presentproof.Service
	onDestroy             func() error
}

// New instantiates a new context provider.
func New(opts ...ProviderOption) (*Provider, error) {
	ctxProvider := Provider{
		outboundRetries:       defaultOutboundRetries,
		outboundRetryInterval: defaultOutboundRetryInterval,
	}

	for _, opt := range opts {
		err := opt(&ctxProvider)
		if err != nil {
			return nil, fmt.Errorf("option failed: %w", err)
		}
	}

	return &ctxProvider, nil
}

// CorrelationID identifies the agent context, "tenant-<id>" for tenants and empty for the root agent.
func (p *Provider) CorrelationID() string {
	return p.correlationID
}

// StorageProvider return a storage provider.
func (p *Provider) StorageProvider() storage.Provider {
	return p.storeProvider
}

// RecordService returns the record service over the storage provider.
func (p *Provider) RecordService() *record.Service {
	return p.recordService
}

// StateEvents returns the registry of protocol state change subscribers.
func (p *Provider) StateEvents() *service.Message {
	return p.stateEvents
}

// ConnectionStore returns the connection store.
func (p *Provider) ConnectionStore() *connection.Store {
	return p.connectionStore
}

// KMS returns a Key Management Service.
func (p *Provider) KMS() kms.KeyManager {
	return p.kms
}

// SignatureVerifier returns the verifier of signature decorators.
func (p *Provider) SignatureVerifier() signature.Verifier {
	return p.signatureVerifier
}

// CredentialIssuer returns the issuer side credential format implementation.
func (p *Provider) CredentialIssuer() issuecredential.Issuer {
	return p.credentialIssuer
}

// CredentialHolder returns the holder side credential format implementation.
func (p *Provider) CredentialHolder() issuecredential.Holder {
	return p.credentialHolder
}

// ProofProver returns the prover side proof format implementation.
func (p *Provider) ProofProver() presentproof.Prover {
	return p.proofProver
}

// ProofVerifier returns the verifier side proof format implementation.
func (p *Provider) ProofVerifier() presentproof.Verifier {
	return p.proofVerifier
}

// Wallet returns the attribute credential wallet, nil when other formats are used.
func (p *Provider) Wallet() *attrib.Wallet {
	return p.wallet
}

// Label returns the label announced in invitations and requests.
func (p *Provider) Label() string {
	return p.label
}

// ServiceEndpoint returns an service endpoint.
func (p *Provider) ServiceEndpoint() string {
	return p.serviceEndpoint
}

// RoutingKeys returns the routing keys announced with the service endpoint.
func (p *Provider) RoutingKeys() []string {
	return p.routingKeys
}

// AutoAcceptConnections reports whether connection requests are answered without the controller.
func (p *Provider) AutoAcceptConnections() bool {
	return p.autoAcceptConnections
}

// AutoAcceptCredentials returns the agent wide credential auto accept policy.
func (p *Provider) AutoAcceptCredentials() exchange.AutoAccept {
	return p.autoAcceptCredentials
}

// AutoAcceptProofs returns the agent wide proof auto accept policy.
func (p *Provider) AutoAcceptProofs() exchange.AutoAccept {
	return p.autoAcceptProofs
}

// Packer returns the envelope packer.
func (p *Provider) Packer() packer.Packer {
	return p.packer
}

// OutboundTransports returns an outbound transports.
func (p *Provider) OutboundTransports() []transport.OutboundTransport {
	return p.outboundTransports
}

// OutboundRetries returns how many times a failed delivery is retried.
func (p *Provider) OutboundRetries() uint64 {
	return p.outboundRetries
}

// OutboundRetryInterval returns the delay between delivery attempts.
func (p *Provider) OutboundRetryInterval() time.Duration {
	return p.outboundRetryInterval
}

// MessageRegistry returns the handlers of inbound message types.
func (p *Provider) MessageRegistry() *dispatcher.Registry {
	return p.messageRegistry
}

// Outbound returns an outbound dispatcher.
func (p *Provider) Outbound() dispatcher.Outbound {
	return p.outboundDispatcher
}

// InboundMessageHandler return an inbound message handler.
func (p *Provider) InboundMessageHandler() transport.InboundMessageHandler {
	return p.inboundHandler
}

// ConnectionService returns the connection protocol service.
func (p *Provider) ConnectionService() *legacyconnection.Service {
	return p.connectionService
}

// IssueCredentialService returns the issue credential protocol service.
func (p *Provider) IssueCredentialService() *issuecredential.Service {
	return p.issueCredentialSvc
}

// PresentProofService returns the present proof protocol service.
func (p *Provider) PresentProofService() *presentproof.Service {
	return p.presentProofSvc
}

// Close closes the storage of the context.
func (p *Provider) Close() error {
	if p.storeProvider == nil {
		return nil
	}

	if err := p.storeProvider.Close(); err != nil {
		return fmt.Errorf("failed to close the store: %w", err)
	}

	return nil
}

// Destroy closes the context and removes its storage.
func (p *Provider) Destroy() error {
	if err := p.Close(); err != nil {
		return err
	}

	if p.onDestroy != nil {
		return p.onDestroy()
	}

	return nil
}

// ProviderOption configures the framework.
type ProviderOption func(opts *Provider) error

// WithCorrelationID injects the context correlation id.
func WithCorrelationID(id string) ProviderOption {
	return func(opts *Provider) error {
		opts.correlationID = id
		return nil
	}
}

// WithStorageProvider injects a storage provider into the context. Its record service is derived from it
// unless one is injected.
func WithStorageProvider(s storage.Provider) ProviderOption {
	return func(opts *Provider) error {
		opts.storeProvider = s

		if opts.recordService == nil && s != nil {
			opts.recordService = record.NewService(s)
		}

		return nil
	}
}

// WithRecordService injects a record service into the context.
func WithRecordService(svc *record.Service) ProviderOption {
	return func(opts *Provider) error {
		opts.recordService = svc
		return nil
	}
}

// WithStateEvents injects the state change registry into the context.
func WithStateEvents(events *service.Message) ProviderOption {
	return func(opts *Provider) error {
		opts.stateEvents = events
		return nil
	}
}

// WithConnectionStore injects a connection store into the context.
func WithConnectionStore(store *connection.Store) ProviderOption {
	return func(opts *Provider) error {
		opts.connectionStore = store
		return nil
	}
}

// WithKMS injects a KMS service into the context.
func WithKMS(k kms.KeyManager) ProviderOption {
	return func(opts *Provider) error {
		opts.kms = k
		return nil
	}
}

// WithSignatureVerifier injects the verifier of signature decorators into the context.
func WithSignatureVerifier(v signature.Verifier) ProviderOption {
	return func(opts *Provider) error {
		opts.signatureVerifier = v
		return nil
	}
}

// WithCredentialFormat injects the credential format implementations into the context.
func WithCredentialFormat(issuer issuecredential.Issuer, holder issuecredential.Holder) ProviderOption {
	return func(opts *Provider) error {
		opts.credentialIssuer = issuer
		opts.credentialHolder = holder

		return nil
	}
}

// WithProofFormat injects the proof format implementations into the context.
func WithProofFormat(prover presentproof.Prover, verifier presentproof.Verifier) ProviderOption {
	return func(opts *Provider) error {
		opts.proofProver = prover
		opts.proofVerifier = verifier

		return nil
	}
}

// WithWallet injects the attribute credential wallet as the format of both protocols and every role.
func WithWallet(w *attrib.Wallet) ProviderOption {
	return func(opts *Provider) error {
		opts.wallet = w
		opts.credentialIssuer, opts.credentialHolder = w, w
		opts.proofProver, opts.proofVerifier = w, w

		return nil
	}
}

// WithLabel injects the agent label into the context.
func WithLabel(label string) ProviderOption {
	return func(opts *Provider) error {
		opts.label = label
		return nil
	}
}

// WithServiceEndpoint injects an service transport endpoint into the context.
func WithServiceEndpoint(endpoint string, routingKeys ...string) ProviderOption {
	return func(opts *Provider) error {
		opts.serviceEndpoint = endpoint
		opts.routingKeys = routingKeys

		return nil
	}
}

// WithAutoAccept injects the auto accept policies into the context.
func WithAutoAccept(connections bool, credentials, proofs exchange.AutoAccept) ProviderOption {
	return func(opts *Provider) error {
		opts.autoAcceptConnections = connections
		opts.autoAcceptCredentials = credentials
		opts.autoAcceptProofs = proofs

		return nil
	}
}

// WithPacker injects the envelope packer into the context.
func WithPacker(p packer.Packer) ProviderOption {
	return func(opts *Provider) error {
		opts.packer = p
		return nil
	}
}

// WithOutboundTransports injects an outbound transports into the context.
func WithOutboundTransports(transports ...transport.OutboundTransport) ProviderOption {
	return func(opts *Provider) error {
		opts.outboundTransports = transports
		return nil
	}
}

// WithOutboundRetries sets how often and how far apart failed deliveries are retried.
func WithOutboundRetries(retries uint64, interval time.Duration) ProviderOption {
	return func(opts *Provider) error {
		opts.outboundRetries = retries
		opts.outboundRetryInterval = interval

		return nil
	}
}

// WithMessageRegistry injects the inbound message handler registry into the context.
func WithMessageRegistry(r *dispatcher.Registry) ProviderOption {
	return func(opts *Provider) error {
		opts.messageRegistry = r
		return nil
	}
}

// WithOutboundDispatcher injects an outbound dispatcher into the context.
func WithOutboundDispatcher(outboundDispatcher dispatcher.Outbound) ProviderOption {
	return func(opts *Provider) error {
		opts.outboundDispatcher = outboundDispatcher
		return nil
	}
}

// WithInboundMessageHandler injects the handler of inbound envelopes into the context.
func WithInboundMessageHandler(h transport.InboundMessageHandler) ProviderOption {
	return func(opts *Provider) error {
		opts.inboundHandler = h
		return nil
	}
}

// WithProtocolServices injects the protocol services into the context.
func WithProtocolServices(connections *legacyconnection.Service, credentials *issuecredential.Service,
	proofs *presentproof.Service) ProviderOption {
	return func(opts *Provider) error {
		opts.connectionService = connections
		opts.issueCredentialSvc = credentials
		opts.presentProofSvc = proofs

		return nil
	}
}

// WithOnDestroy sets the function removing the storage of the context once it is closed.
func WithOnDestroy(fn func() error) ProviderOption {
	return func(opts *Provider) error {
		opts.onDestroy = fn
		return nil
	}
}
