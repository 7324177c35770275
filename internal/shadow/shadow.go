// Package shadow is the consumer side of the synchronization engine: an
// optimistic local copy of one entity's widget collections, owned by a single
// editing surface. Mutations splice the local copy immediately, then publish
// through the dispatcher; changes arriving from other components pass through
// a structural filter before wholesale replacement.
package shadow

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pagegrid/pagegrid/internal/dispatch"
	"github.com/pagegrid/pagegrid/internal/op"
	"github.com/pagegrid/pagegrid/internal/types"
	"github.com/pagegrid/pagegrid/internal/widgetpath"
)

// State tracks where the shadow stands relative to canonical state.
type State int

const (
	// Uninitialized: never seeded; external changes are ignored.
	Uninitialized State = iota
	// Synced: the shadow matches the last canonical snapshot it saw.
	Synced
	// LocallyDirty: the shadow holds optimistic edits not yet confirmed.
	LocallyDirty
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Synced:
		return "synced"
	case LocallyDirty:
		return "locally-dirty"
	}
	return "unknown"
}

// Shadow is one editing surface's optimistic copy of one entity.
// Not safe for concurrent use; each surface owns its shadow.
type Shadow struct {
	componentID string
	entityID    string
	disp        *dispatch.Dispatcher
	log         zerolog.Logger

	state State
	slots types.SlotContents
}

// New returns an uninitialized shadow for the entity, publishing as
// componentID.
func New(componentID, entityID string, d *dispatch.Dispatcher, log zerolog.Logger) *Shadow {
	return &Shadow{
		componentID: componentID,
		entityID:    entityID,
		disp:        d,
		log: log.With().
			Str("component", componentID).
			Str("entity", entityID).
			Logger(),
		state: Uninitialized,
		slots: make(types.SlotContents),
	}
}

// ComponentID returns the publishing identity of this shadow.
func (s *Shadow) ComponentID() string { return s.componentID }

// EntityID returns the entity this shadow tracks.
func (s *Shadow) EntityID() string { return s.entityID }

// State returns the shadow's synchronization state.
func (s *Shadow) State() State { return s.state }

// Dispatcher returns the dispatcher this shadow publishes through.
func (s *Shadow) Dispatcher() *dispatch.Dispatcher { return s.disp }

// Slots returns a deep copy of the shadow's current contents.
func (s *Shadow) Slots() types.SlotContents { return s.slots.Clone() }

// SlotWidgets returns a deep copy of one slot's widgets.
func (s *Shadow) SlotWidgets(slotName string) []types.Widget {
	widgets := s.slots[slotName]
	out := make([]types.Widget, len(widgets))
	for i, w := range widgets {
		out[i] = w.Clone()
	}
	return out
}

// Seed loads the initial canonical contents. Only valid once, from
// Uninitialized.
func (s *Shadow) Seed(slots types.SlotContents) {
	if s.state != Uninitialized {
		s.log.Warn().Str("state", s.state.String()).Msg("ignoring seed of initialized shadow")
		return
	}
	s.slots = slots.Clone()
	s.state = Synced
}

// AddWidget creates a widget of widgetType with a fresh id, splices it into
// the slot at position (clamped to the slot's length), and publishes the add.
func (s *Shadow) AddWidget(ctx context.Context, slotName, widgetType string, config json.RawMessage, position int) (types.Widget, dispatch.Outcome, error) {
	w := types.Widget{ID: uuid.New().String(), Type: widgetType, Config: config}
	return s.insert(ctx, slotName, position, w)
}

// PasteAdd splices an already-built widget into the slot and publishes the
// add. The caller owns id generation.
func (s *Shadow) PasteAdd(ctx context.Context, slotName string, position int, w types.Widget) (dispatch.Outcome, error) {
	_, out, err := s.insert(ctx, slotName, position, w)
	return out, err
}

func (s *Shadow) insert(ctx context.Context, slotName string, position int, w types.Widget) (types.Widget, dispatch.Outcome, error) {
	widgets := s.slots[slotName]
	if position < 0 {
		position = 0
	}
	if position > len(widgets) {
		position = len(widgets)
	}

	widgets = append(widgets, types.Widget{})
	copy(widgets[position+1:], widgets[position:])
	widgets[position] = w.Clone()
	s.slots[slotName] = widgets
	s.state = LocallyDirty

	out, err := s.disp.PublishUpdate(ctx, s.componentID, op.NewAdd(s.entityID, w, slotName, position))
	s.settle(out, err)
	return w, out, err
}

// RemoveWidget splices the widget out of whichever slot holds it and
// publishes the removal. Unknown ids publish anyway; the dispatcher treats
// them as no-ops.
func (s *Shadow) RemoveWidget(ctx context.Context, widgetID string) (dispatch.Outcome, error) {
	s.RemoveLocal(widgetID)
	out, err := s.disp.PublishUpdate(ctx, s.componentID, op.NewRemove(s.entityID, widgetID))
	s.settle(out, err)
	return out, err
}

// RemoveLocal splices the widget out of the shadow without publishing.
// Callers batching removals publish separately.
func (s *Shadow) RemoveLocal(widgetID string) bool {
	for name, widgets := range s.slots {
		for i, w := range widgets {
			if w.ID == widgetID {
				s.slots[name] = append(widgets[:i], widgets[i+1:]...)
				s.state = LocallyDirty
				return true
			}
		}
	}
	return false
}

// MoveUp moves the widget one position toward the front of its slot. Returns
// false without publishing when the widget is already first or unknown.
func (s *Shadow) MoveUp(ctx context.Context, widgetID string) (bool, dispatch.Outcome, error) {
	return s.moveBy(ctx, widgetID, -1)
}

// MoveDown moves the widget one position toward the back of its slot. Returns
// false without publishing when the widget is already last or unknown.
func (s *Shadow) MoveDown(ctx context.Context, widgetID string) (bool, dispatch.Outcome, error) {
	return s.moveBy(ctx, widgetID, +1)
}

func (s *Shadow) moveBy(ctx context.Context, widgetID string, delta int) (bool, dispatch.Outcome, error) {
	slotName, from := s.find(widgetID)
	if slotName == "" {
		return false, dispatch.Outcome{}, nil
	}
	to := from + delta
	if to < 0 || to >= len(s.slots[slotName]) {
		// Boundary: nothing to do, nothing to publish.
		return false, dispatch.Outcome{}, nil
	}

	widgets := s.slots[slotName]
	widgets[from], widgets[to] = widgets[to], widgets[from]
	s.state = LocallyDirty

	out, err := s.disp.PublishUpdate(ctx, s.componentID, op.NewMove(s.entityID, widgetID, slotName, from, to))
	s.settle(out, err)
	return true, out, err
}

// UpdateConfig replaces the widget's configuration wholesale and publishes
// the update.
func (s *Shadow) UpdateConfig(ctx context.Context, slotName, widgetID string, config json.RawMessage) (dispatch.Outcome, error) {
	for i, w := range s.slots[slotName] {
		if w.ID == widgetID {
			s.slots[slotName][i].Config = append(json.RawMessage(nil), config...)
			s.state = LocallyDirty
			break
		}
	}
	out, err := s.disp.PublishUpdate(ctx, s.componentID, op.NewUpdateConfig(s.entityID, widgetID, slotName, config))
	s.settle(out, err)
	return out, err
}

// Duplicate clones the widget under a fresh id and appends the copy at the
// end of its slot.
func (s *Shadow) Duplicate(ctx context.Context, widgetID string) (types.Widget, dispatch.Outcome, error) {
	slotName, idx := s.find(widgetID)
	if slotName == "" {
		return types.Widget{}, dispatch.Outcome{}, op.ErrNotFound
	}
	src := s.slots[slotName][idx]
	dup := types.Widget{ID: uuid.New().String(), Type: src.Type, Config: src.Config}.Clone()
	return s.insert(ctx, slotName, len(s.slots[slotName]), dup)
}

// BulkDelete removes every selected widget still present, splicing the local
// copy per the removal plan and publishing one batch of removals.
func (s *Shadow) BulkDelete(ctx context.Context, sel *widgetpath.Selection) dispatch.BatchResult {
	plans := widgetpath.PlanRemovals(sel, s.slots)
	var ops []op.Operation
	for _, plan := range plans {
		for _, idx := range plan.Indices {
			widgets := s.slots[plan.Slot]
			s.slots[plan.Slot] = append(widgets[:idx], widgets[idx+1:]...)
		}
		for _, id := range plan.IDs {
			ops = append(ops, op.NewRemove(s.entityID, id))
		}
	}
	if len(ops) == 0 {
		return dispatch.BatchResult{}
	}
	s.state = LocallyDirty
	res := s.disp.PublishBatch(ctx, s.componentID, ops)
	if res.Committed() == len(ops) {
		s.state = Synced
	}
	return res
}

// ApplyExternal reconciles a change from another component. Structurally
// identical states (same widget ids in the same order per slot) are ignored
// and the method returns false; anything else replaces the shadow wholesale
// and returns true.
func (s *Shadow) ApplyExternal(c dispatch.Change) bool {
	if s.state == Uninitialized {
		return false
	}
	if c.Origin == s.componentID {
		// The registry already suppresses echoes; belt and braces.
		return false
	}
	entity, ok := c.State.Entities[s.entityID]
	if !ok {
		return false
	}
	if structurallyEqual(s.slots, entity.Widgets) {
		return false
	}
	s.slots = entity.Widgets.Clone()
	s.state = Synced
	return true
}

// structurallyEqual compares per-slot widget-id sequences over the union of
// slot names. Config differences are invisible to the filter.
func structurallyEqual(a, b types.SlotContents) bool {
	names := make(map[string]struct{}, len(a)+len(b))
	for name := range a {
		names[name] = struct{}{}
	}
	for name := range b {
		names[name] = struct{}{}
	}
	for name := range names {
		wa, wb := a[name], b[name]
		if len(wa) != len(wb) {
			return false
		}
		for i := range wa {
			if wa[i].ID != wb[i].ID {
				return false
			}
		}
	}
	return true
}

func (s *Shadow) find(widgetID string) (string, int) {
	for name, widgets := range s.slots {
		for i, w := range widgets {
			if w.ID == widgetID {
				return name, i
			}
		}
	}
	return "", -1
}

// settle records the post-publish state: a clean commit means the shadow
// matches canonical again; rejections and no-ops leave the optimistic edit in
// place, divergent until the next external change.
func (s *Shadow) settle(out dispatch.Outcome, err error) {
	if err == nil && out.Committed {
		s.state = Synced
		return
	}
	if err != nil {
		s.log.Debug().Err(err).Msg("publish rejected, shadow diverges until next external change")
	}
}
