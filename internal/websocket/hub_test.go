package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/propertyhub/api/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func TestHub_PublishModelStatus(t *testing.T) {
	h := newTestHub(t)

	watcher := &Client{ListingID: "listing-1", Send: make(chan []byte, 4)}
	other := &Client{ListingID: "listing-2", Send: make(chan []byte, 4)}
	h.Register(watcher)
	h.Register(other)
	require.Eventually(t, func() bool { return h.Subscribers("listing-1") == 1 }, time.Second, 5*time.Millisecond)

	url := "https://cdn.example.com/models/listing-1.glb"
	h.PublishModelStatus(&model.Listing{
		ID:                "listing-1",
		Model3D:           &url,
		Model3DStatus:     model.Model3DCompleted,
		Model3DRetryCount: 1,
	})

	select {
	case data := <-watcher.Send:
		var msg model.WSModelStatusMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, model.WSMessageTypeModelStatus, msg.Type)
		assert.Equal(t, "listing-1", msg.ListingID)
		assert.Equal(t, model.Model3DCompleted, msg.Status)
		assert.Equal(t, url, msg.Model3D)
		assert.Equal(t, 1, msg.RetryCount)
	case <-time.After(time.Second):
		t.Fatal("expected status event for subscribed listing")
	}

	select {
	case <-other.Send:
		t.Fatal("unrelated listing received an event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_Unregister(t *testing.T) {
	h := newTestHub(t)

	c := &Client{ListingID: "listing-1", Send: make(chan []byte, 1)}
	h.Register(c)
	require.Eventually(t, func() bool { return h.Subscribers("listing-1") == 1 }, time.Second, 5*time.Millisecond)

	h.Unregister(c)
	require.Eventually(t, func() bool { return h.Subscribers("listing-1") == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-c.Send
	assert.False(t, ok, "send channel should be closed after unregister")
}
