package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"labelstation/internal/config"
	"labelstation/internal/logger"
	"labelstation/internal/model"
)

func newTestHub(t *testing.T) (*HubService, *httptest.Server) {
	t.Helper()
	log := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	t.Cleanup(func() { log.Close() })

	hub := NewHubService(log)
	go hub.Run()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
		defer hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *HubService, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, have %d", n, hub.GetClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_NotifyReachesClients(t *testing.T) {
	hub, server := newTestHub(t)
	first := dial(t, server)
	second := dial(t, server)
	waitForClients(t, hub, 2)

	hub.Notify(model.Event{Kind: model.EventIntegrated, Filename: "a.jpg"})

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage failed: %v", err)
		}
		var ev model.Event
		if err := json.Unmarshal(message, &ev); err != nil {
			t.Fatalf("Invalid event JSON %s: %v", message, err)
		}
		if ev.Kind != model.EventIntegrated || ev.Filename != "a.jpg" || ev.CreatedAt.IsZero() {
			t.Errorf("Unexpected event: %+v", ev)
		}
	}
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	hub, server := newTestHub(t)
	conn := dial(t, server)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub, _ := newTestHub(t)
	for i := 0; i < 200; i++ {
		hub.Broadcast([]byte("ping"))
	}
}
