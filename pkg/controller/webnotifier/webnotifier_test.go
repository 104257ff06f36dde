/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package webnotifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("New WebNotifier (populated)", func(t *testing.T) {
		n := New("/ws", []string{"http://localhost:8080"})
		require.NotNil(t, n)
		require.Equal(t, 2, len(n.notifiers))
		require.Equal(t, 1, len(n.handlers))
		require.Equal(t, "/ws", n.GetRESTHandlers()[0].Path())
	})

	t.Run("New WebNotifier (nil)", func(t *testing.T) {
		n := New("", nil)
		require.NotNil(t, n)
		require.Equal(t, 2, len(n.notifiers))
		require.Equal(t, 1, len(n.handlers))
	})
}

func TestPrepareTopicMessage(t *testing.T) {
	msg, err := PrepareTopicMessage("topic", []byte(`{"a":1}`))
	require.NoError(t, err)

	var topic topicMessage
	require.NoError(t, json.Unmarshal(msg, &topic))
	require.Equal(t, "topic", topic.Topic)
	require.NotEmpty(t, topic.ID)
	require.JSONEq(t, `{"a":1}`, string(topic.Message))

	_, err = PrepareTopicMessage("", []byte(`{}`))
	require.EqualError(t, err, emptyTopicErrMsg)

	_, err = PrepareTopicMessage("topic", nil)
	require.EqualError(t, err, emptyMessageErrMsg)

	_, err = PrepareTopicMessage("topic", []byte("not json"))
	require.Error(t, err)
}

func TestNotify(t *testing.T) {
	t.Run("webhook receives topic message", func(t *testing.T) {
		received := make(chan []byte, 1)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))

			received <- body
		}))
		defer srv.Close()

		n := New("/ws", []string{srv.URL})
		require.NoError(t, n.Notify(context.Background(), "example", []byte(`{"msg":"payload"}`)))

		var topic topicMessage
		require.NoError(t, json.Unmarshal(<-received, &topic))
		require.Equal(t, "example", topic.Topic)
		require.JSONEq(t, `{"msg":"payload"}`, string(topic.Message))
	})

	t.Run("unreachable webhook", func(t *testing.T) {
		n := New("/ws", []string{"http://localhost:1"}, WithRetries(1, time.Millisecond))

		err := n.Notify(context.Background(), "example", []byte(`{"msg":"payload"}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to post notification")
	})

	t.Run("empty message", func(t *testing.T) {
		n := New("/ws", nil)
		require.Error(t, n.Notify(context.Background(), "example", nil))
	})
}

func TestHTTPNotifier_Retry(t *testing.T) {
	t.Run("server error is retried", func(t *testing.T) {
		var calls int32

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)

				return
			}

			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		n := NewHTTPNotifier([]string{srv.URL}, WithRetries(5, time.Millisecond), WithHTTPClient(srv.Client()))
		require.NoError(t, n.Notify(context.Background(), "example", []byte(`{}`)))
		require.EqualValues(t, 3, atomic.LoadInt32(&calls))
	})

	t.Run("client error is not retried", func(t *testing.T) {
		var calls int32

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		n := NewHTTPNotifier([]string{srv.URL}, WithRetries(5, time.Millisecond))

		err := n.Notify(context.Background(), "example", []byte(`{}`))
		require.Error(t, err)
		require.Contains(t, err.Error(), "404")
		require.EqualValues(t, 1, atomic.LoadInt32(&calls))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		n := NewHTTPNotifier([]string{"http://localhost:1"}, WithRetries(5, time.Second))
		require.Error(t, n.Notify(ctx, "example", []byte(`{}`)))
	})
}
