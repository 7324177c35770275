package slot

import (
	"testing"

	"github.com/pagegrid/pagegrid/internal/types"
)

func intptr(n int) *int { return &n }

func TestValidate_LimitReached(t *testing.T) {
	cfg := types.SlotConfig{Name: "sidebar", MaxWidgets: intptr(1)}
	proposed := []types.Widget{
		{ID: "x", Type: "core_widgets.NavWidget"},
		{ID: "y", Type: "core_widgets.NavWidget"},
	}

	v := Validate(cfg, proposed)
	if v == nil || v.Kind != LimitReached {
		t.Fatalf("violation = %v, want LIMIT_REACHED", v)
	}
	if v.Slot != "sidebar" {
		t.Errorf("slot = %q, want sidebar", v.Slot)
	}
}

func TestValidate_AtLimitIsAllowed(t *testing.T) {
	cfg := types.SlotConfig{Name: "sidebar", MaxWidgets: intptr(2)}
	proposed := []types.Widget{{ID: "x"}, {ID: "y"}}

	if v := Validate(cfg, proposed); v != nil {
		t.Errorf("violation = %v, want nil at exactly maxWidgets", v)
	}
}

func TestValidate_TypeNotAllowed(t *testing.T) {
	cfg := types.SlotConfig{
		Name:               "main",
		AllowedWidgetTypes: []string{"core_widgets.ContentWidget"},
	}
	proposed := []types.Widget{{ID: "x", Type: "core_widgets.VideoWidget"}}

	v := Validate(cfg, proposed)
	if v == nil || v.Kind != TypeNotAllowed {
		t.Fatalf("violation = %v, want TYPE_NOT_ALLOWED", v)
	}
}

func TestValidate_Wildcard(t *testing.T) {
	for _, allowed := range [][]string{nil, {"*"}} {
		cfg := types.SlotConfig{Name: "main", AllowedWidgetTypes: allowed}
		proposed := []types.Widget{{ID: "x", Type: "anything.AtAll"}}
		if v := Validate(cfg, proposed); v != nil {
			t.Errorf("allowed=%v: violation = %v, want nil", allowed, v)
		}
	}
}

func TestValidate_NilMaxWidgetsIsUnlimited(t *testing.T) {
	cfg := types.SlotConfig{Name: "main"}
	proposed := make([]types.Widget, 100)
	if v := Validate(cfg, proposed); v != nil {
		t.Errorf("violation = %v, want nil for unlimited slot", v)
	}
}

func TestCheckRequired(t *testing.T) {
	cfgs := []types.SlotConfig{
		{Name: "main", Required: true},
		{Name: "sidebar", Required: false},
		{Name: "footer", Required: true},
	}
	slots := types.SlotContents{
		"main": {{ID: "x"}},
	}

	violations := CheckRequired(cfgs, slots)
	if len(violations) != 1 {
		t.Fatalf("violations = %d, want 1", len(violations))
	}
	if violations[0].Kind != RequiredSlotEmpty || violations[0].Slot != "footer" {
		t.Errorf("unexpected violation: %+v", violations[0])
	}
}
