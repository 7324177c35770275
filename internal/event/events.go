package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pagegrid/pagegrid/internal/types"
)

// DomainEvent carries the canonical shape of every committed-operation event.
type DomainEvent struct {
	ID         string
	EventType  string
	OccurredAt time.Time
	EntityID   string
	Origin     string // componentId of the dispatching surface
	Affected   []types.WidgetRef
	Summary    string
	Payload    json.RawMessage
}

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

// WidgetAddedPayload carries event-specific data for WidgetAdded.
type WidgetAddedPayload struct {
	Slot       string `json:"slot"`
	WidgetID   string `json:"widget_id"`
	WidgetType string `json:"widget_type"`
	Order      int    `json:"order"`
}

func NewWidgetAdded(entityID, origin string, p WidgetAddedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "widget_added",
		OccurredAt: time.Now(),
		EntityID:   entityID,
		Origin:     origin,
		Affected: []types.WidgetRef{
			{EntityID: entityID, Slot: p.Slot, WidgetID: p.WidgetID},
		},
		Summary: fmt.Sprintf("Widget %s added to slot %q at %d", p.WidgetType, p.Slot, p.Order),
		Payload: mustJSON(p),
	}
}

// WidgetRemovedPayload carries event-specific data for WidgetRemoved.
type WidgetRemovedPayload struct {
	Slot       string `json:"slot"`
	WidgetID   string `json:"widget_id"`
	WidgetType string `json:"widget_type"`
}

func NewWidgetRemoved(entityID, origin string, p WidgetRemovedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "widget_removed",
		OccurredAt: time.Now(),
		EntityID:   entityID,
		Origin:     origin,
		Affected: []types.WidgetRef{
			{EntityID: entityID, Slot: p.Slot, WidgetID: p.WidgetID},
		},
		Summary: fmt.Sprintf("Widget %s removed from slot %q", p.WidgetType, p.Slot),
		Payload: mustJSON(p),
	}
}

// WidgetMovedPayload carries event-specific data for WidgetMoved.
type WidgetMovedPayload struct {
	Slot      string `json:"slot"`
	WidgetID  string `json:"widget_id"`
	FromIndex int    `json:"from_index"`
	ToIndex   int    `json:"to_index"`
}

func NewWidgetMoved(entityID, origin string, p WidgetMovedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "widget_moved",
		OccurredAt: time.Now(),
		EntityID:   entityID,
		Origin:     origin,
		Affected: []types.WidgetRef{
			{EntityID: entityID, Slot: p.Slot, WidgetID: p.WidgetID},
		},
		Summary: fmt.Sprintf("Widget moved in slot %q: %d to %d", p.Slot, p.FromIndex, p.ToIndex),
		Payload: mustJSON(p),
	}
}

// WidgetConfigUpdatedPayload carries event-specific data for WidgetConfigUpdated.
type WidgetConfigUpdatedPayload struct {
	Slot     string `json:"slot"`
	WidgetID string `json:"widget_id"`
}

func NewWidgetConfigUpdated(entityID, origin string, p WidgetConfigUpdatedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "widget_config_updated",
		OccurredAt: time.Now(),
		EntityID:   entityID,
		Origin:     origin,
		Affected: []types.WidgetRef{
			{EntityID: entityID, Slot: p.Slot, WidgetID: p.WidgetID},
		},
		Summary: fmt.Sprintf("Widget configuration replaced in slot %q", p.Slot),
		Payload: mustJSON(p),
	}
}

// DataReloadedPayload carries event-specific data for DataReloaded.
type DataReloadedPayload struct {
	Reason        string   `json:"reason"`
	UpdatedFields []string `json:"updated_fields,omitempty"`
}

func NewDataReloaded(origin string, p DataReloadedPayload) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  "data_reloaded",
		OccurredAt: time.Now(),
		Origin:     origin,
		Summary:    fmt.Sprintf("Reload requested: %s", p.Reason),
		Payload:    mustJSON(p),
	}
}
