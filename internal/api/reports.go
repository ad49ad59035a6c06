package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/riskscope/riskscope/pkg/export"
	"github.com/riskscope/riskscope/pkg/report"
)

// report loads a report through the cache.
func (h *Handler) report(r *http.Request, id string) (*report.Report, error) {
	if rep, ok := h.cache.Get(r.Context(), id); ok {
		return rep, nil
	}
	rep, err := h.svc.Report(r.Context(), id)
	if err != nil {
		return nil, err
	}
	h.cache.Put(r.Context(), rep)
	return rep, nil
}

func (h *Handler) handleGetReport(w http.ResponseWriter, r *http.Request) {
	rep, err := h.report(r, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(export.FormatJSON)
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	renderer, err := format.Renderer()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := h.report(r, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := renderer.Render(&buf, rep); err != nil {
		h.logger.Error("export failed", "report", rep.ID, "format", format, "error", err)
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	if format == export.FormatCSV || format == export.FormatHTML {
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", export.Filename(rep.Name(), format.Ext())))
	}
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) handleRescore(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Rescore(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.cache.Put(r.Context(), rep)
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	reports, err := h.svc.History(r.Context(), r.PathValue("canonical"), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"canonicalName": r.PathValue("canonical"),
		"reports":       reports,
	})
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Catalog())
}
