// Package api implements the riskscope REST API. Handlers are thin: they
// decode requests, call the analysis service and map its errors to statuses.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/riskscope/riskscope/internal/analysis"
)

// maxBodyBytes bounds request bodies; a full batch of 100 projects with facts fits easily.
const maxBodyBytes = 16 << 20

// Handler is the top-level API handler for the riskscope service.
type Handler struct {
	svc    *analysis.Service
	cache  ReportCache
	logger *slog.Logger
}

// NewHandler creates a new API handler. A nil cache uses an in-process LRU.
func NewHandler(svc *analysis.Service, cache ReportCache, logger *slog.Logger) *Handler {
	if cache == nil {
		cache = NewLRUCache(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, cache: cache, logger: logger}
}

// RegisterRoutes registers all API routes on the given ServeMux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Scoring
	mux.HandleFunc("POST /api/v1/analyze", h.handleAnalyze)
	mux.HandleFunc("POST /api/v1/batch", h.handleBatch)

	// Reports
	mux.HandleFunc("GET /api/reports/{id}", h.handleGetReport)
	mux.HandleFunc("GET /api/reports/{id}/export", h.handleExport)
	mux.HandleFunc("POST /api/reports/{id}/rescore", h.handleRescore)
	mux.HandleFunc("GET /api/projects/{canonical}/history", h.handleHistory)

	// Watchlist
	mux.HandleFunc("GET /api/watchlist", h.handleListWatchlist)
	mux.HandleFunc("POST /api/watchlist", h.handleWatch)
	mux.HandleFunc("DELETE /api/watchlist/{canonical}", h.handleUnwatch)

	mux.HandleFunc("GET /api/catalog", h.handleCatalog)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps service errors: bad input is 400, missing resources
// 404, anything else 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case analysis.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case analysis.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
