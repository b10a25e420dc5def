package handler

import (
	"net/http"

	"labelstation/internal/dto"
	"labelstation/internal/imaging"
	"labelstation/internal/logger"
	"labelstation/internal/model"
	"labelstation/internal/service"
	"labelstation/internal/service/dataset"
)

// StatsHandler handles GET /api/stats.
func StatsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}

		stats, err := manager.GetLifecycle().Stats()
		if err != nil {
			writeError(w, logger, err)
			return
		}
		resp := dto.StatsResponse{Status: "ok", Stats: stats}
		if runner := manager.GetRunner(); runner != nil {
			resp.LastSplit, err = runner.LatestSplit()
			if err != nil {
				writeError(w, logger, err)
				return
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// PreviewHandler handles GET /api/dataset/preview?filename= and returns the
// dataset image with its stored boxes drawn on it.
func PreviewHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodGet) {
			return
		}

		filename := r.URL.Query().Get("filename")
		img, record, err := manager.RenderEntry(filename)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if record == nil {
			record = []model.Annotation{}
		}
		writeJSON(w, http.StatusOK, dto.PreviewResponse{
			Status:   "ok",
			Filename: filename,
			Image:    imaging.EncodeDataURI(img),
			Labels:   record,
		})
	}
}

// SplitHandler handles POST /api/maintenance/split. The body is optional.
func SplitHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		var req dto.SplitRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, logger, err)
				return
			}
		}

		run, desc, err := manager.GetRunner().Split(r.Context(), req.Ratio)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.SplitResponse{Status: "ok", Run: run, Descriptor: desc})
	}
}

// ScrubHandler handles POST /api/maintenance/scrub. Without a partition every
// materialized partition is scrubbed.
func ScrubHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}

		var req dto.ScrubRequest
		if r.ContentLength != 0 {
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, logger, err)
				return
			}
		}

		var partitions []model.Partition
		if req.Partition != "" {
			p, err := dataset.ParsePartition(req.Partition)
			if err != nil {
				writeError(w, logger, err)
				return
			}
			partitions = append(partitions, p)
		}

		reports, err := manager.GetRunner().Scrub(partitions...)
		if err != nil {
			writeError(w, logger, err)
			return
		}
		if reports == nil {
			reports = []*dataset.Report{}
		}
		writeJSON(w, http.StatusOK, dto.ScrubResponse{Status: "ok", Reports: reports})
	}
}
