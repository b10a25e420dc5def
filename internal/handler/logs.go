package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"labelstation/internal/dto"
	"labelstation/internal/logger"
)

// ShowLogsHandler serves the log file of one level as text/plain.
func ShowLogsHandler(logger *logger.Logger, level logger.Level) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		serveLogFile(w, r, logger.Dir(), level.FileName())
	}
}

// serveLogFile is a helper that sets headers and serves a log file if it exists.
func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Log file not found: " + filename))
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	http.ServeFile(w, r, filePath)
}

// ClearLogsHandler truncates the log file of one level.
func ClearLogsHandler(logger *logger.Logger, level logger.Level) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		if err := logger.CleanLogs(level); err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.StatusResponse{Status: "ok", Message: level.FileName() + " cleared"})
	}
}
