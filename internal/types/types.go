// Package types provides the shared data model for the widget synchronization
// engine: entities, slots, widgets, and the canonical state shape handed to
// subscribing editing surfaces.
package types

import "encoding/json"

// Widget is a typed, configurable content unit placed in a slot. Position is
// implicit: the widget's index in its slot's ordered list. IDs are unique
// within one entity across all of its slots.
type Widget struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config"`
}

// Clone returns a deep copy of the widget. Config bytes are copied so callers
// can hold clones across later mutations of the original.
func (w Widget) Clone() Widget {
	c := w
	if w.Config != nil {
		c.Config = make(json.RawMessage, len(w.Config))
		copy(c.Config, w.Config)
	}
	return c
}

// SlotContents is one entity's mapping of slot name to its ordered widgets.
type SlotContents map[string][]Widget

// Clone returns a deep copy of the slot contents.
func (s SlotContents) Clone() SlotContents {
	if s == nil {
		return nil
	}
	out := make(SlotContents, len(s))
	for name, widgets := range s {
		ws := make([]Widget, len(widgets))
		for i, w := range widgets {
			ws[i] = w.Clone()
		}
		out[name] = ws
	}
	return out
}

// EntityState is the per-entity shape delivered to subscribers.
type EntityState struct {
	Widgets SlotContents `json:"widgets"`
}

// CanonicalState is the full store snapshot shape of the consumer contract:
// { entities: { [entityId]: { widgets: { [slotName]: Widget[] } } } }.
type CanonicalState struct {
	Entities map[string]EntityState `json:"entities"`
}

// WidgetControl describes one widget type offered by a slot, including the
// configuration a freshly added widget starts with.
type WidgetControl struct {
	WidgetType    string          `json:"widget_type" yaml:"widget_type" validate:"required"`
	Label         string          `json:"label" yaml:"label" validate:"required"`
	DefaultConfig json.RawMessage `json:"default_config,omitempty" yaml:"-"`
	// ConfigSchema is an optional JSON Schema document constraining widget
	// configuration for this type.
	ConfigSchema json.RawMessage `json:"config_schema,omitempty" yaml:"-"`
}

// SlotConfig is the externally supplied, read-only configuration of one slot.
// A nil MaxWidgets means unlimited; an empty AllowedWidgetTypes (or a "*"
// entry) means any type is accepted.
type SlotConfig struct {
	Name               string          `json:"name" yaml:"name" validate:"required"`
	Label              string          `json:"label" yaml:"label" validate:"required"`
	Description        string          `json:"description,omitempty" yaml:"description"`
	Required           bool            `json:"required" yaml:"required"`
	MaxWidgets         *int            `json:"max_widgets,omitempty" yaml:"max_widgets"`
	AllowedWidgetTypes []string        `json:"allowed_widget_types,omitempty" yaml:"allowed_widget_types"`
	WidgetControls     []WidgetControl `json:"widget_controls,omitempty" yaml:"-" validate:"dive"`
}

// AllowsType reports whether the slot accepts the given widget type.
func (c SlotConfig) AllowsType(widgetType string) bool {
	if len(c.AllowedWidgetTypes) == 0 {
		return true
	}
	for _, t := range c.AllowedWidgetTypes {
		if t == "*" || t == widgetType {
			return true
		}
	}
	return false
}

// WidgetRef identifies one widget instance inside an entity, used by events
// and the edit history journal.
type WidgetRef struct {
	EntityID string `json:"entity_id"`
	Slot     string `json:"slot"`
	WidgetID string `json:"widget_id"`
}
