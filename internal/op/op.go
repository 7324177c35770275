// Package op defines the operation vocabulary of the synchronization engine:
// one tagged-union Operation type covering every mutation an editing surface
// can request. Consumers pattern-match on Kind instead of subscribing to
// string-keyed events.
package op

import (
	"encoding/json"
	"fmt"

	"github.com/pagegrid/pagegrid/internal/types"
)

// Kind tags an operation variant.
type Kind string

const (
	KindAddWidget          Kind = "ADD_WIDGET"
	KindRemoveWidget       Kind = "REMOVE_WIDGET"
	KindMoveWidget         Kind = "MOVE_WIDGET"
	KindUpdateWidgetConfig Kind = "UPDATE_WIDGET_CONFIG"
	KindReloadData         Kind = "RELOAD_DATA"
)

// AddWidget inserts a widget into a slot at Order (append when Order equals
// the slot's current length).
type AddWidget struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
	Slot   string          `json:"slot"`
	Order  int             `json:"order"`
}

// RemoveWidget removes the widget wherever it is found in the entity.
// An absent id is an idempotent no-op.
type RemoveWidget struct {
	ID string `json:"id"`
}

// MoveWidget reorders a widget within one slot. Cross-slot relocation is not
// a primitive; compose RemoveWidget + AddWidget.
type MoveWidget struct {
	ID        string `json:"id"`
	Slot      string `json:"slot"`
	FromIndex int    `json:"from_index"`
	ToIndex   int    `json:"to_index"`
}

// UpdateWidgetConfig replaces a widget's configuration wholesale; position is
// unchanged. No partial merge.
type UpdateWidgetConfig struct {
	ID     string          `json:"id"`
	Slot   string          `json:"slot"`
	Config json.RawMessage `json:"config"`
}

// ReloadData signals consumers to refetch entity metadata from the backend.
// It never mutates the store.
type ReloadData struct {
	Reason        string   `json:"reason"`
	UpdatedFields []string `json:"updated_fields,omitempty"`
}

// Operation is the tagged union submitted by editing surfaces. Exactly the
// payload matching Kind is set.
type Operation struct {
	Kind     Kind   `json:"kind"`
	EntityID string `json:"entity_id"`

	Add          *AddWidget          `json:"add,omitempty"`
	Remove       *RemoveWidget       `json:"remove,omitempty"`
	Move         *MoveWidget         `json:"move,omitempty"`
	UpdateConfig *UpdateWidgetConfig `json:"update_config,omitempty"`
	Reload       *ReloadData         `json:"reload,omitempty"`
}

// WidgetID returns the id of the widget the operation targets, or "" for
// RELOAD_DATA.
func (o Operation) WidgetID() string {
	switch o.Kind {
	case KindAddWidget:
		if o.Add != nil {
			return o.Add.ID
		}
	case KindRemoveWidget:
		if o.Remove != nil {
			return o.Remove.ID
		}
	case KindMoveWidget:
		if o.Move != nil {
			return o.Move.ID
		}
	case KindUpdateWidgetConfig:
		if o.UpdateConfig != nil {
			return o.UpdateConfig.ID
		}
	}
	return ""
}

// Slot returns the slot the operation targets, or "" when the operation is
// not slot-addressed (REMOVE_WIDGET finds its widget, RELOAD_DATA has none).
func (o Operation) Slot() string {
	switch o.Kind {
	case KindAddWidget:
		if o.Add != nil {
			return o.Add.Slot
		}
	case KindMoveWidget:
		if o.Move != nil {
			return o.Move.Slot
		}
	case KindUpdateWidgetConfig:
		if o.UpdateConfig != nil {
			return o.UpdateConfig.Slot
		}
	}
	return ""
}

// Validate checks the payload shape for the operation's kind.
func (o Operation) Validate() error {
	if o.Kind != KindReloadData && o.EntityID == "" {
		return &BadPayloadError{Kind: o.Kind, Reason: "entity_id is required"}
	}
	switch o.Kind {
	case KindAddWidget:
		if o.Add == nil {
			return &BadPayloadError{Kind: o.Kind, Reason: "missing add payload"}
		}
		if o.Add.ID == "" || o.Add.Type == "" || o.Add.Slot == "" {
			return &BadPayloadError{Kind: o.Kind, Reason: "id, type and slot are required"}
		}
		if o.Add.Order < 0 {
			return &BadPayloadError{Kind: o.Kind, Reason: "order must be non-negative"}
		}
	case KindRemoveWidget:
		if o.Remove == nil || o.Remove.ID == "" {
			return &BadPayloadError{Kind: o.Kind, Reason: "id is required"}
		}
	case KindMoveWidget:
		if o.Move == nil || o.Move.ID == "" || o.Move.Slot == "" {
			return &BadPayloadError{Kind: o.Kind, Reason: "id and slot are required"}
		}
		if o.Move.FromIndex < 0 || o.Move.ToIndex < 0 {
			return &BadPayloadError{Kind: o.Kind, Reason: "indices must be non-negative"}
		}
	case KindUpdateWidgetConfig:
		if o.UpdateConfig == nil || o.UpdateConfig.ID == "" || o.UpdateConfig.Slot == "" {
			return &BadPayloadError{Kind: o.Kind, Reason: "id and slot are required"}
		}
	case KindReloadData:
		if o.Reload == nil || o.Reload.Reason == "" {
			return &BadPayloadError{Kind: o.Kind, Reason: "reason is required"}
		}
	default:
		return &BadPayloadError{Kind: o.Kind, Reason: "unknown operation kind"}
	}
	return nil
}

// NewAdd builds an ADD_WIDGET operation.
func NewAdd(entityID string, w types.Widget, slot string, order int) Operation {
	return Operation{
		Kind:     KindAddWidget,
		EntityID: entityID,
		Add:      &AddWidget{ID: w.ID, Type: w.Type, Config: w.Config, Slot: slot, Order: order},
	}
}

// NewRemove builds a REMOVE_WIDGET operation.
func NewRemove(entityID, widgetID string) Operation {
	return Operation{Kind: KindRemoveWidget, EntityID: entityID, Remove: &RemoveWidget{ID: widgetID}}
}

// NewMove builds a MOVE_WIDGET operation.
func NewMove(entityID, widgetID, slot string, from, to int) Operation {
	return Operation{
		Kind:     KindMoveWidget,
		EntityID: entityID,
		Move:     &MoveWidget{ID: widgetID, Slot: slot, FromIndex: from, ToIndex: to},
	}
}

// NewUpdateConfig builds an UPDATE_WIDGET_CONFIG operation.
func NewUpdateConfig(entityID, widgetID, slot string, config json.RawMessage) Operation {
	return Operation{
		Kind:         KindUpdateWidgetConfig,
		EntityID:     entityID,
		UpdateConfig: &UpdateWidgetConfig{ID: widgetID, Slot: slot, Config: config},
	}
}

// NewReload builds a RELOAD_DATA operation.
func NewReload(reason string, updatedFields []string) Operation {
	return Operation{Kind: KindReloadData, Reload: &ReloadData{Reason: reason, UpdatedFields: updatedFields}}
}

// Envelope is the JSON wire shape of an operation: the kind plus its raw
// payload, decoded into the matching variant.
type Envelope struct {
	Kind     Kind            `json:"kind"`
	EntityID string          `json:"entity_id"`
	Payload  json.RawMessage `json:"payload"`
}

// Decode resolves an envelope into a validated Operation.
func Decode(env Envelope) (Operation, error) {
	o := Operation{Kind: env.Kind, EntityID: env.EntityID}
	var dst any
	switch env.Kind {
	case KindAddWidget:
		o.Add = &AddWidget{}
		dst = o.Add
	case KindRemoveWidget:
		o.Remove = &RemoveWidget{}
		dst = o.Remove
	case KindMoveWidget:
		o.Move = &MoveWidget{}
		dst = o.Move
	case KindUpdateWidgetConfig:
		o.UpdateConfig = &UpdateWidgetConfig{}
		dst = o.UpdateConfig
	case KindReloadData:
		o.Reload = &ReloadData{}
		dst = o.Reload
	default:
		return Operation{}, &BadPayloadError{Kind: env.Kind, Reason: "unknown operation kind"}
	}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, dst); err != nil {
			return Operation{}, &BadPayloadError{Kind: env.Kind, Reason: fmt.Sprintf("decoding payload: %v", err)}
		}
	}
	if err := o.Validate(); err != nil {
		return Operation{}, err
	}
	return o, nil
}
