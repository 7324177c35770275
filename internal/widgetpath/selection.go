package widgetpath

import (
	"sort"

	"github.com/pagegrid/pagegrid/internal/types"
)

// Selection is a set of widget paths backing multi-select UI state.
// Not safe for concurrent use; each editing surface owns its own selection.
type Selection struct {
	paths map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{paths: make(map[string]struct{})}
}

// Add puts one widget into the selection.
func (s *Selection) Add(slot, widgetID string) {
	s.paths[Join(slot, widgetID)] = struct{}{}
}

// Remove takes one widget out of the selection.
func (s *Selection) Remove(slot, widgetID string) {
	delete(s.paths, Join(slot, widgetID))
}

// Toggle flips one widget's membership and reports the new state.
func (s *Selection) Toggle(slot, widgetID string) bool {
	p := Join(slot, widgetID)
	if _, ok := s.paths[p]; ok {
		delete(s.paths, p)
		return false
	}
	s.paths[p] = struct{}{}
	return true
}

// Contains reports whether the widget is selected.
func (s *Selection) Contains(slot, widgetID string) bool {
	_, ok := s.paths[Join(slot, widgetID)]
	return ok
}

// SelectSlot adds every widget currently in the slot.
func (s *Selection) SelectSlot(slot string, widgets []types.Widget) {
	for _, w := range widgets {
		s.Add(slot, w.ID)
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.paths = make(map[string]struct{})
}

// Len returns the number of selected widgets.
func (s *Selection) Len() int { return len(s.paths) }

// Paths returns the selected paths in sorted order for deterministic batches.
func (s *Selection) Paths() []string {
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// RemovalPlan is the per-slot deletion order for a bulk delete: indices are
// listed descending so earlier splices never invalidate later ones.
type RemovalPlan struct {
	Slot    string
	Indices []int
	IDs     []string
}

// PlanRemovals resolves the selection against current slot contents. Selected
// widgets that are no longer present are dropped from the plan.
func PlanRemovals(sel *Selection, slots types.SlotContents) []RemovalPlan {
	grouped := GroupBySlot(sel.Paths())

	slotNames := make([]string, 0, len(grouped))
	for name := range grouped {
		slotNames = append(slotNames, name)
	}
	sort.Strings(slotNames)

	var plans []RemovalPlan
	for _, name := range slotNames {
		wanted := make(map[string]struct{}, len(grouped[name]))
		for _, id := range grouped[name] {
			wanted[id] = struct{}{}
		}

		var indices []int
		for i, w := range slots[name] {
			if _, ok := wanted[w.ID]; ok {
				indices = append(indices, i)
			}
		}
		if len(indices) == 0 {
			continue
		}
		// Descending, so splicing index k leaves indices < k intact.
		sort.Sort(sort.Reverse(sort.IntSlice(indices)))

		ids := make([]string, len(indices))
		for i, idx := range indices {
			ids[i] = slots[name][idx].ID
		}
		plans = append(plans, RemovalPlan{Slot: name, Indices: indices, IDs: ids})
	}
	return plans
}
