package widgetpath

import (
	"testing"

	"github.com/pagegrid/pagegrid/internal/types"
)

func testSlots() types.SlotContents {
	return types.SlotContents{
		"main": {
			{ID: "w1", Type: "core_widgets.ContentWidget"},
			{ID: "w2", Type: "core_widgets.ContentWidget"},
			{ID: "w3", Type: "core_widgets.ImageWidget"},
		},
		"sidebar": {
			{ID: "w4", Type: "core_widgets.NavWidget"},
		},
	}
}

func TestSelection_ToggleAndContains(t *testing.T) {
	sel := NewSelection()

	if !sel.Toggle("main", "w1") {
		t.Error("first toggle should select")
	}
	if !sel.Contains("main", "w1") {
		t.Error("w1 should be selected")
	}
	if sel.Toggle("main", "w1") {
		t.Error("second toggle should deselect")
	}
	if sel.Len() != 0 {
		t.Errorf("len = %d, want 0", sel.Len())
	}
}

func TestSelection_SelectSlotAndClear(t *testing.T) {
	slots := testSlots()
	sel := NewSelection()
	sel.SelectSlot("main", slots["main"])

	if sel.Len() != 3 {
		t.Fatalf("len = %d, want 3", sel.Len())
	}
	sel.Clear()
	if sel.Len() != 0 {
		t.Errorf("len after clear = %d, want 0", sel.Len())
	}
}

func TestPlanRemovals_DescendingIndices(t *testing.T) {
	slots := testSlots()
	sel := NewSelection()
	sel.Add("main", "w1")
	sel.Add("main", "w3")
	sel.Add("sidebar", "w4")

	plans := PlanRemovals(sel, slots)
	if len(plans) != 2 {
		t.Fatalf("plans = %d, want 2", len(plans))
	}

	main := plans[0]
	if main.Slot != "main" {
		t.Fatalf("plans[0].Slot = %q, want main", main.Slot)
	}
	if len(main.Indices) != 2 || main.Indices[0] != 2 || main.Indices[1] != 0 {
		t.Errorf("main indices = %v, want [2 0]", main.Indices)
	}
	if main.IDs[0] != "w3" || main.IDs[1] != "w1" {
		t.Errorf("main ids = %v, want [w3 w1]", main.IDs)
	}

	sidebar := plans[1]
	if sidebar.Slot != "sidebar" || len(sidebar.IDs) != 1 || sidebar.IDs[0] != "w4" {
		t.Errorf("unexpected sidebar plan: %+v", sidebar)
	}
}

func TestPlanRemovals_StaleSelectionDropped(t *testing.T) {
	slots := testSlots()
	sel := NewSelection()
	sel.Add("main", "gone")

	plans := PlanRemovals(sel, slots)
	if len(plans) != 0 {
		t.Errorf("plans = %v, want none for stale selection", plans)
	}
}
