package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"labelstation/internal/dto"
	"labelstation/internal/logger"
	"labelstation/internal/service"
)

// EventsWebsocketHandler registers labeling clients in the HubService so
// they are told when the queue changes.
func EventsWebsocketHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		manager.GetWebsocketService().Register(connection)
		defer manager.GetWebsocketService().Unregister(connection)

		logger.Info("Event listener connected")

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Event listener disconnected normally")
				} else {
					logger.Warning("Event listener disconnected with error: %v", err)
				}
				break
			}
		}
	}
}

// EventsHandler handles GET /api/events?limit=N.
func EventsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}

		limit := atoiDefault(r.URL.Query().Get("limit"), 50)
		if limit > 500 {
			limit = 500
		}
		events, err := manager.RecentEvents(limit)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.EventsResponse{Status: "ok", Events: events})
	}
}

// atoiDefault parses a positive integer or returns def.
func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
