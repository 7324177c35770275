package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pagegrid/pagegrid/internal/history"
)

// HistoryHandler serves the edit journal.
type HistoryHandler struct {
	store history.Store
}

// NewHistoryHandler creates a HistoryHandler.
func NewHistoryHandler(store history.Store) *HistoryHandler {
	return &HistoryHandler{store: store}
}

type historyResponse struct {
	Entries    []history.EditEntry `json:"entries"`
	NextCursor string              `json:"next_cursor,omitempty"`
	TotalCount int                 `json:"total_count"`
}

// Query serves GET /v1/entities/{entityID}/history. Supports page_size,
// cursor, kind (repeatable), since and until (RFC 3339).
func (h *HistoryHandler) Query(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	page := parsePagination(r)

	opts := history.DefaultQueryOptions()
	opts.Limit = page.Limit
	opts.Cursor = page.Cursor
	opts.Kinds = r.URL.Query()["kind"]

	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_PAYLOAD", "since must be RFC 3339")
			return
		}
		opts.Since = &t
	}
	if v := r.URL.Query().Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_PAYLOAD", "until must be RFC 3339")
			return
		}
		opts.Until = &t
	}

	entries, nextCursor, total, err := h.store.QueryByEntity(r.Context(), entityID, opts)
	if err != nil {
		rejectionToHTTP(w, err)
		return
	}
	if entries == nil {
		entries = []history.EditEntry{}
	}
	writeJSON(w, http.StatusOK, historyResponse{
		Entries:    entries,
		NextCursor: nextCursor,
		TotalCount: total,
	})
}
