package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pagegrid/pagegrid/internal/slot"
	"github.com/pagegrid/pagegrid/internal/types"
)

// SlotConfigHandler serves the slot configuration editors render from.
type SlotConfigHandler struct {
	registry *slot.Registry
}

// NewSlotConfigHandler creates a SlotConfigHandler.
func NewSlotConfigHandler(registry *slot.Registry) *SlotConfigHandler {
	return &SlotConfigHandler{registry: registry}
}

type entityTypesResponse struct {
	EntityTypes []string `json:"entity_types"`
}

// ListEntityTypes serves GET /v1/entity-types.
func (h *SlotConfigHandler) ListEntityTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, entityTypesResponse{EntityTypes: h.registry.EntityTypes()})
}

type slotConfigsResponse struct {
	EntityType string             `json:"entity_type"`
	Slots      []types.SlotConfig `json:"slots"`
}

// ListSlots serves GET /v1/entity-types/{entityType}/slots.
func (h *SlotConfigHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	cfgs := h.registry.ConfigsFor(entityType)
	if len(cfgs) == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unknown entity type: "+entityType)
		return
	}
	writeJSON(w, http.StatusOK, slotConfigsResponse{EntityType: entityType, Slots: cfgs})
}
