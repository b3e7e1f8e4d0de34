package ws_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhq/execore/internal/handler/execution/ws"
)

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, hub *ws.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber count never reached %d", want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcastsToSubscriber(t *testing.T) {
	hub := ws.NewPositionStreamHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server)
	waitForSubscribers(t, hub, 1)

	payload := []byte(`{"type":"PositionOpened","event":{}}`)
	hub.Broadcast(payload)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, got, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.Equal(t, payload, got)
}

func TestHubFansOutToAllSubscribers(t *testing.T) {
	hub := ws.NewPositionStreamHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	first := dial(t, server)
	second := dial(t, server)
	waitForSubscribers(t, hub, 2)

	payload := []byte(`{"type":"PositionClosed","event":{}}`)
	hub.Broadcast(payload)

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, got, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}
}

func TestHubDropsDisconnectedSubscriber(t *testing.T) {
	hub := ws.NewPositionStreamHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server)
	waitForSubscribers(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForSubscribers(t, hub, 0)

	// broadcasting into an empty hub is a no-op
	hub.Broadcast([]byte(`{}`))
	assert.Equal(t, 0, hub.SubscriberCount())
}
