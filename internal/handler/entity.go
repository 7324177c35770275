// Package handler exposes the synchronization engine over REST: entity
// state, operation publishing, slot configuration, and the edit journal.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pagegrid/pagegrid/internal/dispatch"
	"github.com/pagegrid/pagegrid/internal/persist"
	"github.com/pagegrid/pagegrid/internal/slot"
	"github.com/pagegrid/pagegrid/internal/types"
)

// EntityHandler serves entity widget state.
type EntityHandler struct {
	disp    *dispatch.Dispatcher
	backend persist.Backend
	slots   *slot.Registry
}

// NewEntityHandler creates an EntityHandler.
func NewEntityHandler(disp *dispatch.Dispatcher, backend persist.Backend, slots *slot.Registry) *EntityHandler {
	return &EntityHandler{disp: disp, backend: backend, slots: slots}
}

type entityResponse struct {
	EntityID   string             `json:"entity_id"`
	EntityType string             `json:"entity_type,omitempty"`
	Widgets    types.SlotContents `json:"widgets"`
}

// Get serves GET /v1/entities/{entityID}. Entities not yet in memory are
// loaded from the backend and seeded, so the first reader pays the load.
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	slots, ok := h.disp.Store().Snapshot(entityID)
	if !ok {
		loaded, err := h.backend.LoadEntity(r.Context(), entityID)
		if err != nil {
			rejectionToHTTP(w, err)
			return
		}
		h.disp.Store().SeedEntity(entityID, loaded)
		slots = loaded
	}

	resp := entityResponse{EntityID: entityID, Widgets: slots}
	if entityType, err := h.backend.EntityType(r.Context(), entityID); err == nil {
		resp.EntityType = entityType
	}
	writeJSON(w, http.StatusOK, resp)
}

type saveEntityRequest struct {
	EntityType string             `json:"entity_type"`
	Widgets    types.SlotContents `json:"widgets"`
}

type saveEntityResponse struct {
	EntityID string   `json:"entity_id"`
	Warnings []string `json:"warnings,omitempty"`
}

// Save serves PUT /v1/entities/{entityID}: wholesale replacement of an
// entity's contents, with advisory required-slot warnings. Empty required
// slots never block the save.
func (h *EntityHandler) Save(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")

	var req saveEntityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_PAYLOAD", "invalid request body")
		return
	}
	if req.EntityType == "" {
		writeError(w, http.StatusBadRequest, "BAD_PAYLOAD", "entity_type is required")
		return
	}
	if req.Widgets == nil {
		req.Widgets = make(types.SlotContents)
	}

	if err := h.backend.SaveEntity(r.Context(), entityID, req.EntityType, req.Widgets); err != nil {
		rejectionToHTTP(w, err)
		return
	}
	h.disp.Store().SeedEntity(entityID, req.Widgets)

	resp := saveEntityResponse{EntityID: entityID}
	for _, v := range slot.CheckRequired(h.slots.ConfigsFor(req.EntityType), req.Widgets) {
		resp.Warnings = append(resp.Warnings, v.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}
