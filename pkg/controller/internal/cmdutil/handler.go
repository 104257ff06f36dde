/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package cmdutil holds the handler types shared by the command and REST controllers.
package cmdutil

import (
	"net/http"

	"github.com/hyperledger/aries-agent-go/pkg/controller/command"
)

// HTTPHandler routes an http method on a path to a handler func.
type HTTPHandler struct {
	path, method string
	handle       http.HandlerFunc
}

// NewHTTPHandler returns a handler for method requests on path.
func NewHTTPHandler(path, method string, handle http.HandlerFunc) *HTTPHandler {
	return &HTTPHandler{path: path, method: method, handle: handle}
}

// Path of the route.
func (h *HTTPHandler) Path() string { return h.path }

// Method of the route.
func (h *HTTPHandler) Method() string { return h.method }

// Handle returns the handler func.
func (h *HTTPHandler) Handle() http.HandlerFunc { return h.handle }

// CommandHandler binds a command exec to the command name and method it is invoked by.
type CommandHandler struct {
	name, method string
	handle       command.Exec
}

// NewCommandHandler returns the handler of method of the named command.
func NewCommandHandler(name, method string, exec command.Exec) *CommandHandler {
	return &CommandHandler{name: name, method: method, handle: exec}
}

// Name of the command.
func (c *CommandHandler) Name() string { return c.name }

// Method of the command.
func (c *CommandHandler) Method() string { return c.method }

// Handle returns the command exec.
func (c *CommandHandler) Handle() command.Exec { return c.handle }
