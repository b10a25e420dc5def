package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"labelstation/internal/config"
	"labelstation/internal/dto"
	"labelstation/internal/imaging"
	"labelstation/internal/logger"
	"labelstation/internal/service"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// FrameHandler handles POST /api/frame: it runs live detection and returns
// the frame with boxes drawn on it.
func FrameHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		var req dto.ImageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, logger, err)
			return
		}
		frame, err := imaging.DecodeDataURI(req.Image)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		result, err := manager.ProcessFrame(r.Context(), frame)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, frameResponse(result))
	}
}

// StreamHandler handles /api/stream, a WebSocket carrying frames from the
// operator's camera. Frames arrive as binary JPEG or as an ImageRequest JSON
// text message; each processed frame is answered with a FrameResponse.
// Frames above the configured rate or arriving while the workers are busy
// are dropped.
func StreamHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		defer connection.Close()

		limit := rate.Inf
		if cfg.StreamFPS > 0 {
			limit = rate.Limit(cfg.StreamFPS)
		}
		limiter := rate.NewLimiter(limit, 1)
		logger.Info("Stream client connected")

		for {
			messageType, data, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Stream client disconnected normally")
				} else {
					logger.Warning("Stream client disconnected with error: %v", err)
				}
				return
			}
			if !limiter.Allow() {
				continue
			}

			frame := data
			if messageType == websocket.TextMessage {
				frame, err = decodeStreamMessage(data)
				if err != nil {
					connection.WriteJSON(dto.StatusResponse{Status: "error", Message: err.Error()})
					continue
				}
			}

			result, err := manager.ProcessFrame(r.Context(), frame)
			if errors.Is(err, service.ErrBusy) {
				continue
			}
			if err != nil {
				logger.Error("Stream frame failed: %v", err)
				connection.WriteJSON(dto.StatusResponse{Status: "error", Message: err.Error()})
				continue
			}
			if err := connection.WriteJSON(frameResponse(result)); err != nil {
				logger.Warning("Error writing to stream client: %v", err)
				return
			}
		}
	}
}

func decodeStreamMessage(data []byte) ([]byte, error) {
	var req dto.ImageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return imaging.DecodeDataURI(req.Image)
}

func frameResponse(result *service.FrameResult) dto.FrameResponse {
	return dto.FrameResponse{
		Status:     "ok",
		Image:      imaging.EncodeDataURI(result.Image),
		Detections: len(result.Detections),
		Boxes:      result.Detections,
	}
}
