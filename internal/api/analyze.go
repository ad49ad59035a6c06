package api

import (
	"net/http"

	"github.com/riskscope/riskscope/pkg/report"
)

type batchRequest struct {
	Projects []report.Input `json:"projects"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var in report.Input
	if !decodeBody(w, r, &in) {
		return
	}

	rep, err := h.svc.Analyze(r.Context(), in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.cache.Put(r.Context(), rep)
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Projects) == 0 {
		writeError(w, http.StatusBadRequest, "projects is required")
		return
	}

	out, err := h.svc.Batch(r.Context(), req.Projects)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	for _, rep := range out.Result.Reports {
		h.cache.Put(r.Context(), rep)
	}
	writeJSON(w, http.StatusOK, out)
}
