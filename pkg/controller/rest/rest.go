/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package rest exposes controller commands over HTTP.
package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/hyperledger/aries-agent-go/pkg/controller/command"
)

var logger = log.New("aries-agent/rest")

// Handler http handler for each controller API endpoint.
type Handler interface {
	Path() string
	Method() string
	Handle() http.HandlerFunc
}

// genericErrorBody is the body of error responses.
type genericErrorBody struct {
	Code    command.Code `json:"code"`
	Message string       `json:"message"`
}

// Execute executes the command with the request and writes its response or error to rw.
func Execute(exec command.Exec, rw http.ResponseWriter, req io.Reader) {
	rw.Header().Set("Content-Type", "application/json")

	if err := exec(rw, req); err != nil {
		SendError(rw, err)
	}
}

// SendError writes a command error; validation errors are bad requests.
func SendError(rw http.ResponseWriter, err command.Error) {
	var status int

	switch err.Type() {
	case command.ValidationError:
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}

	SendHTTPStatusError(rw, status, err.Code(), err)
}

// SendHTTPStatusError writes an error with the given status code.
func SendHTTPStatusError(rw http.ResponseWriter, httpStatus int, code command.Code, err error) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(httpStatus)

	e := json.NewEncoder(rw).Encode(genericErrorBody{
		Code:    code,
		Message: err.Error(),
	})
	if e != nil {
		logger.Errorf("Unable to send error response, %s", e)
	}
}

// WithPathVars returns the JSON request body with the named path variables of req added as fields. An
// empty body is an empty object.
func WithPathVars(req *http.Request, names ...string) (io.Reader, error) {
	fields := map[string]json.RawMessage{}

	if req.Body != nil {
		var buf bytes.Buffer

		if _, err := io.Copy(&buf, req.Body); err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}

		if len(bytes.TrimSpace(buf.Bytes())) > 0 {
			if err := json.Unmarshal(buf.Bytes(), &fields); err != nil {
				return nil, fmt.Errorf("request body is not a JSON object: %w", err)
			}
		}
	}

	if fields == nil {
		fields = map[string]json.RawMessage{}
	}

	vars := mux.Vars(req)

	for _, name := range names {
		value, err := json.Marshal(vars[name])
		if err != nil {
			return nil, err
		}

		fields[name] = value
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(body), nil
}

// ExecuteWithPathVars executes the command with the request body extended by the named path variables.
func ExecuteWithPathVars(exec command.Exec, rw http.ResponseWriter, req *http.Request, names ...string) {
	body, err := WithPathVars(req, names...)
	if err != nil {
		SendHTTPStatusError(rw, http.StatusBadRequest, command.UnknownStatus, err)

		return
	}

	Execute(exec, rw, body)
}

// ExecuteWithQuery executes the command with a request object built from the named query parameters.
// Missing parameters are left out.
func ExecuteWithQuery(exec command.Exec, rw http.ResponseWriter, req *http.Request, names ...string) {
	fields := map[string]string{}
	query := req.URL.Query()

	for _, name := range names {
		if value := query.Get(name); value != "" {
			fields[name] = value
		}
	}

	body, err := json.Marshal(fields)
	if err != nil {
		SendHTTPStatusError(rw, http.StatusBadRequest, command.UnknownStatus, err)

		return
	}

	Execute(exec, rw, bytes.NewReader(body))
}
