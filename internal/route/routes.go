package route

import (
	"net/http"
	"os"
	"path/filepath"

	"labelstation/internal/config"
	"labelstation/internal/handler"
	"labelstation/internal/logger"
	"labelstation/internal/metrics"
	"labelstation/internal/middleware"
	"labelstation/internal/service"
)

// StaticDirectory holds the operator pages.
const StaticDirectory = "static"

var logLevels = logger.Levels

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join(StaticDirectory, filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger, mt *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(StaticDirectory))))

	// Live assist
	mux.HandleFunc("/api/frame", handler.FrameHandler(manager, logger))
	mux.HandleFunc("/api/stream", handler.StreamHandler(manager, cfg, logger))

	// Labeling queue
	mux.HandleFunc("/api/capture", handler.CaptureHandler(manager, logger))
	mux.HandleFunc("/api/next", handler.NextHandler(manager, logger))
	mux.HandleFunc("/api/label", handler.LabelHandler(manager, logger))
	mux.HandleFunc("/api/delete", handler.DeleteHandler(manager, logger))
	mux.HandleFunc("/api/events", handler.EventsHandler(manager, logger))
	mux.HandleFunc("/api/events/ws", handler.EventsWebsocketHandler(manager, logger))

	// Dataset
	mux.HandleFunc("/api/stats", handler.StatsHandler(manager, logger))
	mux.HandleFunc("/api/dataset/preview", handler.PreviewHandler(manager, logger))
	mux.HandleFunc("/api/maintenance/split", handler.SplitHandler(manager, logger))
	mux.HandleFunc("/api/maintenance/scrub", handler.ScrubHandler(manager, logger))

	// Log endpoints
	for _, level := range logLevels {
		mux.HandleFunc("/logs/"+string(level), handler.ShowLogsHandler(logger, level))
		mux.HandleFunc("/logs/"+string(level)+"/clear", handler.ClearLogsHandler(logger, level))
	}

	mux.Handle("/metrics", mt.Handler())

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /labeling -> /static/labeling.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	// Apply middleware
	return middleware.AuthMiddleware(cfg.Password, mux)
}
