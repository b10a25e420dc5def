package handler

import (
	"net/http"

	"labelstation/internal/dto"
	"labelstation/internal/imaging"
	"labelstation/internal/logger"
	"labelstation/internal/service"
)

// CaptureHandler handles POST /api/capture by saving the frame to the
// labeling queue.
func CaptureHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		var req dto.ImageRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, logger, err)
			return
		}
		data, err := imaging.DecodeDataURI(req.Image)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		item, err := manager.GetLifecycle().Capture(data)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.CaptureResponse{Status: "ok", Filename: item.Filename})
	}
}

// NextHandler handles GET /api/next. Calling it twice returns the same
// capture until that capture is labeled or discarded.
func NextHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}

		item, data, err := manager.GetLifecycle().Next()
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if item == nil {
			writeJSON(w, http.StatusOK, dto.NextResponse{Status: "empty", Message: "No images waiting for labels"})
			return
		}

		w.Header().Set("Cache-Control", "no-cache")
		writeJSON(w, http.StatusOK, dto.NextResponse{
			Status:   "ok",
			Filename: item.Filename,
			Image:    imaging.EncodeDataURI(data),
		})
	}
}

// LabelHandler handles POST /api/label by validating the boxes and moving
// the capture into the dataset.
func LabelHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		var req dto.LabelRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, logger, err)
			return
		}

		n, err := manager.GetLifecycle().SubmitLabel(req.Filename, req.Labels)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.LabelResponse{Status: "ok", Image: req.Filename, Labels: n})
	}
}

// DeleteHandler handles POST /api/delete by moving the capture to the
// rejection directory.
func DeleteHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		var req dto.DeleteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, logger, err)
			return
		}

		if err := manager.GetLifecycle().Discard(req.Filename); err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.StatusResponse{Status: "ok", Message: req.Filename + " moved to the rejection directory"})
	}
}
