// Package store holds the canonical in-memory widget collections: one
// slot-to-widget-list mapping per entity, mutated only through committed
// operations applied by the dispatcher.
package store

import (
	"sync"

	"github.com/pagegrid/pagegrid/internal/op"
	"github.com/pagegrid/pagegrid/internal/types"
)

// Store is the canonical widget state for all loaded entities.
type Store struct {
	mu       sync.RWMutex
	entities map[string]types.SlotContents
}

// New returns an empty store.
func New() *Store {
	return &Store{entities: make(map[string]types.SlotContents)}
}

// SeedEntity replaces one entity's contents wholesale, deep-copying the
// input. Used on initial load from the backend.
func (s *Store) SeedEntity(entityID string, slots types.SlotContents) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[entityID] = slots.Clone()
}

// HasEntity reports whether the entity is loaded.
func (s *Store) HasEntity(entityID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entities[entityID]
	return ok
}

// Snapshot returns a deep copy of one entity's slots.
func (s *Store) Snapshot(entityID string) (types.SlotContents, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slots, ok := s.entities[entityID]
	if !ok {
		return nil, false
	}
	return slots.Clone(), true
}

// SnapshotAll returns a deep copy of the whole store in the consumer
// contract's canonical shape.
func (s *Store) SnapshotAll() types.CanonicalState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := types.CanonicalState{Entities: make(map[string]types.EntityState, len(s.entities))}
	for id, slots := range s.entities {
		out.Entities[id] = types.EntityState{Widgets: slots.Clone()}
	}
	return out
}

// SlotWidgets returns a deep copy of one slot's widgets.
func (s *Store) SlotWidgets(entityID, slot string) []types.Widget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	widgets := s.entities[entityID][slot]
	out := make([]types.Widget, len(widgets))
	for i, w := range widgets {
		out[i] = w.Clone()
	}
	return out
}

// FindSlot returns the slot holding the widget, or "".
func (s *Store) FindSlot(entityID, widgetID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(entityID, widgetID)
}

// HasWidgetID reports whether the id exists anywhere in the entity.
func (s *Store) HasWidgetID(entityID, widgetID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(entityID, widgetID) != ""
}

// findLocked returns the slot holding the widget, or "".
func (s *Store) findLocked(entityID, widgetID string) string {
	for slot, widgets := range s.entities[entityID] {
		for _, w := range widgets {
			if w.ID == widgetID {
				return slot
			}
		}
	}
	return ""
}

// Apply mutates the store per one validated operation. It returns
// op.ErrNotFound (wrapped) for absent-id removes, moves and config updates;
// the dispatcher maps that to an idempotent no-op. RELOAD_DATA and
// same-index moves apply nothing and return (false, nil).
func (s *Store) Apply(o op.Operation) (applied bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch o.Kind {
	case op.KindAddWidget:
		return s.applyAdd(o)
	case op.KindRemoveWidget:
		return s.applyRemove(o)
	case op.KindMoveWidget:
		return s.applyMove(o)
	case op.KindUpdateWidgetConfig:
		return s.applyUpdateConfig(o)
	case op.KindReloadData:
		return false, nil
	}
	return false, &op.BadPayloadError{Kind: o.Kind, Reason: "unknown operation kind"}
}

func (s *Store) applyAdd(o op.Operation) (bool, error) {
	p := o.Add
	if s.findLocked(o.EntityID, p.ID) != "" {
		return false, &op.DuplicateIDError{EntityID: o.EntityID, WidgetID: p.ID}
	}

	slots := s.entities[o.EntityID]
	if slots == nil {
		slots = make(types.SlotContents)
		s.entities[o.EntityID] = slots
	}
	widgets := slots[p.Slot]

	idx := p.Order
	if idx > len(widgets) {
		idx = len(widgets)
	}
	w := types.Widget{ID: p.ID, Type: p.Type, Config: p.Config}.Clone()
	widgets = append(widgets, types.Widget{})
	copy(widgets[idx+1:], widgets[idx:])
	widgets[idx] = w
	slots[p.Slot] = widgets
	return true, nil
}

func (s *Store) applyRemove(o op.Operation) (bool, error) {
	slot := s.findLocked(o.EntityID, o.Remove.ID)
	if slot == "" {
		return false, op.ErrNotFound
	}
	widgets := s.entities[o.EntityID][slot]
	for i, w := range widgets {
		if w.ID == o.Remove.ID {
			s.entities[o.EntityID][slot] = append(widgets[:i], widgets[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *Store) applyMove(o op.Operation) (bool, error) {
	p := o.Move
	widgets, ok := s.entities[o.EntityID][p.Slot]
	if !ok {
		return false, op.ErrNotFound
	}
	if p.FromIndex >= len(widgets) {
		return false, &op.OutOfBoundsError{Slot: p.Slot, Index: p.FromIndex, Len: len(widgets)}
	}
	if p.ToIndex >= len(widgets) {
		return false, &op.OutOfBoundsError{Slot: p.Slot, Index: p.ToIndex, Len: len(widgets)}
	}
	if widgets[p.FromIndex].ID != p.ID {
		// Stale indices from a surface that lost a race; treat as absent.
		return false, op.ErrNotFound
	}
	if p.FromIndex == p.ToIndex {
		return false, nil
	}

	w := widgets[p.FromIndex]
	if p.FromIndex < p.ToIndex {
		copy(widgets[p.FromIndex:], widgets[p.FromIndex+1:p.ToIndex+1])
	} else {
		copy(widgets[p.ToIndex+1:], widgets[p.ToIndex:p.FromIndex])
	}
	widgets[p.ToIndex] = w
	return true, nil
}

func (s *Store) applyUpdateConfig(o op.Operation) (bool, error) {
	p := o.UpdateConfig
	widgets := s.entities[o.EntityID][p.Slot]
	for i, w := range widgets {
		if w.ID == p.ID {
			widgets[i].Config = append([]byte(nil), p.Config...)
			return true, nil
		}
	}
	return false, op.ErrNotFound
}
