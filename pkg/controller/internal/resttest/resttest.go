/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package resttest serves single REST handlers in tests.
package resttest

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/hyperledger/aries-agent-go/pkg/controller/rest"
)

// HandlerLookup returns the handler registered for path and method.
func HandlerLookup(t *testing.T, handlers []rest.Handler, path, method string) rest.Handler {
	t.Helper()

	require.NotEmpty(t, handlers)

	for _, h := range handlers {
		if h.Path() == path && h.Method() == method {
			return h
		}
	}

	require.Fail(t, "unable to find handler", "%s %s", method, path)

	return nil
}

// SendRequestToHandler serves a request for url with handler and returns the response body and status.
func SendRequestToHandler(t *testing.T, handler rest.Handler, requestBody io.Reader, url string) (*bytes.Buffer,
	int) {
	t.Helper()

	req, err := http.NewRequest(handler.Method(), url, requestBody)
	require.NoError(t, err)

	router := mux.NewRouter()
	router.HandleFunc(handler.Path(), handler.Handle()).Methods(handler.Method())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	return rr.Body, rr.Code
}
