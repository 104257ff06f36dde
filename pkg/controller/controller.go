/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package controller assembles the command and REST handlers of an agent.
package controller

import (
	"fmt"

	"github.com/hyperledger/aries-agent-go/pkg/controller/command"
	issuecredentialcmd "github.com/hyperledger/aries-agent-go/pkg/controller/command/issuecredential"
	legacyconnectioncmd "github.com/hyperledger/aries-agent-go/pkg/controller/command/legacyconnection"
	presentproofcmd "github.com/hyperledger/aries-agent-go/pkg/controller/command/presentproof"
	tenantcmd "github.com/hyperledger/aries-agent-go/pkg/controller/command/tenant"
	"github.com/hyperledger/aries-agent-go/pkg/controller/rest"
	issuecredentialrest "github.com/hyperledger/aries-agent-go/pkg/controller/rest/issuecredential"
	legacyconnectionrest "github.com/hyperledger/aries-agent-go/pkg/controller/rest/legacyconnection"
	presentproofrest "github.com/hyperledger/aries-agent-go/pkg/controller/rest/presentproof"
	tenantrest "github.com/hyperledger/aries-agent-go/pkg/controller/rest/tenant"
	"github.com/hyperledger/aries-agent-go/pkg/controller/webnotifier"
	"github.com/hyperledger/aries-agent-go/pkg/framework/context"
	"github.com/hyperledger/aries-agent-go/pkg/tenant"
)

// DefaultWSPath is the path of the websocket notification endpoint.
const DefaultWSPath = "/ws"

type allOpts struct {
	webhookURLs []string
	wsPath      string
	httpOpts    []webnotifier.HTTPOption
	notifier    command.Notifier
	tenants     *tenant.Client[*context.Provider]
}

// Opt represents a controller option.
type Opt func(opts *allOpts)

// WithWebhookURLs is an option for setting up a webhook dispatcher which will notify clients of events.
func WithWebhookURLs(webhookURLs ...string) Opt {
	return func(opts *allOpts) {
		opts.webhookURLs = webhookURLs
	}
}

// WithWSPath sets the path of the websocket notification endpoint.
func WithWSPath(path string) Opt {
	return func(opts *allOpts) {
		opts.wsPath = path
	}
}

// WithWebhookOptions configures delivery to the webhook URLs.
func WithWebhookOptions(httpOpts ...webnotifier.HTTPOption) Opt {
	return func(opts *allOpts) {
		opts.httpOpts = append(opts.httpOpts, httpOpts...)
	}
}

// WithNotifier is an option for setting up a notifier which will notify clients of events.
// It replaces the webhook and websocket notifiers.
func WithNotifier(notifier command.Notifier) Opt {
	return func(opts *allOpts) {
		opts.notifier = notifier
	}
}

// WithTenants exposes tenant management on the controller.
func WithTenants(tenants *tenant.Client[*context.Provider]) Opt {
	return func(opts *allOpts) {
		opts.tenants = tenants
	}
}

type handlerProvider interface {
	GetRESTHandlers() []rest.Handler
}

// Controller holds the handlers of an agent and forwards its state events to the notifier.
type Controller struct {
	restHandlers    []rest.Handler
	commandHandlers []command.Handler
	stopObserver    func()
}

// New builds the controller of the agent behind ctx.
func New(ctx *context.Provider, opts ...Opt) (*Controller, error) {
	o := &allOpts{wsPath: DefaultWSPath}
	// Apply options
	for _, opt := range opts {
		opt(o)
	}

	notifier := o.notifier
	if notifier == nil {
		notifier = webnotifier.New(o.wsPath, o.webhookURLs, o.httpOpts...)
	}

	c := &Controller{}

	if err := c.addCommands(ctx, o.tenants); err != nil {
		return nil, err
	}

	if err := c.addOperations(ctx, o.tenants); err != nil {
		return nil, err
	}

	if nhp, ok := notifier.(handlerProvider); ok {
		c.restHandlers = append(c.restHandlers, nhp.GetRESTHandlers()...)
	}

	stop, err := webnotifier.NewObserver(notifier).Observe(ctx.StateEvents())
	if err != nil {
		return nil, fmt.Errorf("observe state events: %w", err)
	}

	c.stopObserver = stop

	return c, nil
}

func (c *Controller) addCommands(ctx *context.Provider, tenants *tenant.Client[*context.Provider]) error {
	connections, err := legacyconnectioncmd.New(ctx)
	if err != nil {
		return fmt.Errorf("create legacy-connection command : %w", err)
	}

	credentials, err := issuecredentialcmd.New(ctx)
	if err != nil {
		return fmt.Errorf("create issue credential command : %w", err)
	}

	proofs, err := presentproofcmd.New(ctx)
	if err != nil {
		return fmt.Errorf("create present proof command : %w", err)
	}

	c.commandHandlers = append(c.commandHandlers, connections.GetHandlers()...)
	c.commandHandlers = append(c.commandHandlers, credentials.GetHandlers()...)
	c.commandHandlers = append(c.commandHandlers, proofs.GetHandlers()...)

	if tenants != nil {
		tenantCmd, err := tenantcmd.New(tenants)
		if err != nil {
			return fmt.Errorf("create tenant command : %w", err)
		}

		c.commandHandlers = append(c.commandHandlers, tenantCmd.GetHandlers()...)
	}

	return nil
}

func (c *Controller) addOperations(ctx *context.Provider, tenants *tenant.Client[*context.Provider]) error {
	connections, err := legacyconnectionrest.New(ctx)
	if err != nil {
		return err
	}

	credentials, err := issuecredentialrest.New(ctx)
	if err != nil {
		return err
	}

	proofs, err := presentproofrest.New(ctx)
	if err != nil {
		return err
	}

	c.restHandlers = append(c.restHandlers, connections.GetRESTHandlers()...)
	c.restHandlers = append(c.restHandlers, credentials.GetRESTHandlers()...)
	c.restHandlers = append(c.restHandlers, proofs.GetRESTHandlers()...)

	if tenants != nil {
		tenantOp, err := tenantrest.New(tenants)
		if err != nil {
			return err
		}

		c.restHandlers = append(c.restHandlers, tenantOp.GetRESTHandlers()...)
	}

	return nil
}

// GetRESTHandlers returns all REST handlers provided by controller.
func (c *Controller) GetRESTHandlers() []rest.Handler {
	return c.restHandlers
}

// GetCommandHandlers returns all command handlers provided by controller.
func (c *Controller) GetCommandHandlers() []command.Handler {
	return c.commandHandlers
}

// Close stops forwarding state events.
func (c *Controller) Close() {
	if c.stopObserver != nil {
		c.stopObserver()
		c.stopObserver = nil
	}
}
