// Package api provides unit tests for the WebSocket event hub.
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kimhsiao/fieldsync/internal/queue"
)

// TestHubBroadcastsDrainLifecycle tests that drain events reach a connected
// client as typed envelopes.
func TestHubBroadcastsDrainLifecycle(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub)

	hub.DrainStarted()
	env := readEnvelope(t, conn)
	if env.Type != EventSyncStarted {
		t.Errorf("expected %s, got %s", EventSyncStarted, env.Type)
	}

	hub.DrainCompleted(&queue.DrainReport{Processed: 3, Succeeded: 2, Failed: 1, Remaining: 1})
	env = readEnvelope(t, conn)
	if env.Type != EventSyncCompleted {
		t.Errorf("expected %s, got %s", EventSyncCompleted, env.Type)
	}
	if env.Data["succeeded"].(float64) != 2 {
		t.Errorf("expected succeeded=2 in payload, got %v", env.Data["succeeded"])
	}

	hub.DrainFailed(errFake("store gone"))
	env = readEnvelope(t, conn)
	if env.Type != EventSyncFailed {
		t.Errorf("expected %s, got %s", EventSyncFailed, env.Type)
	}
	if env.Data["error"] != "store gone" {
		t.Errorf("expected error message in payload, got %v", env.Data["error"])
	}
}

// dialHub serves the hub over httptest and connects one client, waiting for
// registration to land in the hub's event loop.
func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWebSocket)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() == 0 {
		t.Fatal("client never registered")
	}
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		t.Fatalf("unmarshal envelope failed: %v", err)
	}
	return env
}

type errFake string

func (e errFake) Error() string { return string(e) }
