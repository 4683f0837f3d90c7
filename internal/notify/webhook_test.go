package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookTransport_Send(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := NewWebhookTransport(WebhookConfig{URL: server.URL})
	err := transport.Send(context.Background(), "alice", "Approval required", "Document doc-1 needs you")
	require.NoError(t, err)

	assert.Equal(t, "alice", got.Recipient)
	assert.Equal(t, "Approval required", got.Subject)
	assert.Equal(t, "Document doc-1 needs you", got.Body)
}

func TestWebhookTransport_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := NewWebhookTransport(WebhookConfig{URL: server.URL})
	err := transport.Send(context.Background(), "alice", "s", "b")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhookTransport_ClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	transport := NewWebhookTransport(WebhookConfig{URL: server.URL})
	err := transport.Send(context.Background(), "alice", "s", "b")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWebhookTransport_Unconfigured(t *testing.T) {
	transport := NewWebhookTransport(WebhookConfig{Timeout: time.Second})
	err := transport.Send(context.Background(), "alice", "s", "b")
	require.Error(t, err)
}
