package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/annel0/voxelforge/internal/eventbus"
	"github.com/annel0/voxelforge/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type received struct {
	mu     sync.Mutex
	bodies [][]byte
	sigs   []string
}

func (r *received) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

func TestOutboundWebhookDelivery(t *testing.T) {
	var got received
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		body, _ := io.ReadAll(req.Body)
		got.mu.Lock()
		got.bodies = append(got.bodies, body)
		got.sigs = append(got.sigs, req.Header.Get("X-Webhook-Signature"))
		got.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	bus := eventbus.NewMemoryBus(16)
	defer bus.Close()

	m := NewOutboundWebhookManager(logging.NewDiscardLogger())
	defer m.Close()
	require.NoError(t, m.Attach(context.Background(), bus))
	m.AddWebhook(OutboundWebhook{Name: "audit", URL: srv.URL, Secret: "s3cret", Events: []string{"access_denied"}})

	skip, err := eventbus.NewEnvelope("test", "cell_placed", 1, nil)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), skip))
	env, err := eventbus.NewEnvelope("test", "access_denied", 6, map[string]string{"mode": "private"})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), env))

	require.Eventually(t, func() bool { return got.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	got.mu.Lock()
	defer got.mu.Unlock()
	var delivered eventbus.Envelope
	require.NoError(t, json.Unmarshal(got.bodies[0], &delivered))
	assert.Equal(t, env.ID, delivered.ID)
	assert.Equal(t, Signature(got.bodies[0], "s3cret"), got.sigs[0])
}

func TestOutboundWebhookFailureCount(t *testing.T) {
	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := NewOutboundWebhookManager(logging.NewDiscardLogger())
	m.retryDelay = time.Millisecond
	hook := m.AddWebhook(OutboundWebhook{Name: "flaky", URL: srv.URL, Events: []string{"*"}, RetryCount: 2})

	env, err := eventbus.NewEnvelope("test", "structure_formed", 3, nil)
	require.NoError(t, err)
	m.Enqueue(env)
	m.Close()

	mu.Lock()
	assert.Equal(t, 3, calls, "первая попытка и два повтора")
	mu.Unlock()
	stored, ok := m.GetWebhook(hook.ID)
	require.True(t, ok)
	assert.Equal(t, 1, stored.FailureCount)
	assert.NotNil(t, stored.LastUsed)
}
