// Package websocket fans lifecycle events out to connected labeling clients.
package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"labelstation/internal/logger"
	"labelstation/internal/model"
)

const writeTimeout = 5 * time.Second

type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until Stop is called.
func (h *HubService) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Client connected. Total: %d", count)

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			var failed []*websocket.Conn
			h.mutex.RLock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Error("Error sending message: %v", err)
					failed = append(failed, client)
				}
			}
			h.mutex.RUnlock()
			for _, client := range failed {
				h.remove(client)
			}

		case <-h.done:
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return
		}
	}
}

// Stop closes every client and ends Run.
func (h *HubService) Stop() {
	close(h.done)
}

func (h *HubService) remove(client *websocket.Conn) {
	h.mutex.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		client.Close()
	}
	count := len(h.clients)
	h.mutex.Unlock()
	if ok {
		h.logger.Info("Client disconnected. Total: %d", count)
	}
}

func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues a message for every client. It never blocks; when the
// queue is full the message is dropped.
func (h *HubService) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warning("⚠️ Broadcast queue full - dropping message")
	}
}

// Notify publishes a lifecycle event as JSON.
func (h *HubService) Notify(ev model.Event) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	message, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Error encoding event: %v", err)
		return
	}
	h.Broadcast(message)
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
