package api

import (
	"net/http"

	"github.com/riskscope/riskscope/internal/store"
)

func (h *Handler) handleListWatchlist(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Watchlist(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) handleWatch(w http.ResponseWriter, r *http.Request) {
	var item store.WatchItem
	if !decodeBody(w, r, &item) {
		return
	}
	saved, err := h.svc.Watch(r.Context(), item)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) handleUnwatch(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unwatch(r.Context(), r.PathValue("canonical")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
