package widgetpath

import "testing"

func TestJoinSplit(t *testing.T) {
	path := Join("main", "abc-123")
	if path != "main/abc-123" {
		t.Errorf("path = %q, want main/abc-123", path)
	}

	slot, id, err := Split(path)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if slot != "main" || id != "abc-123" {
		t.Errorf("Split = (%q, %q), want (main, abc-123)", slot, id)
	}
}

func TestSplit_WidgetIDWithSlash(t *testing.T) {
	// Only the first separator splits; anything after belongs to the id.
	slot, id, err := Split("sidebar/a/b")
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if slot != "sidebar" || id != "a/b" {
		t.Errorf("Split = (%q, %q), want (sidebar, a/b)", slot, id)
	}
}

func TestSplit_Malformed(t *testing.T) {
	for _, path := range []string{"", "noslash", "/leading", "trailing/"} {
		if _, _, err := Split(path); err == nil {
			t.Errorf("Split(%q): expected error", path)
		}
	}
}

func TestGroupBySlot(t *testing.T) {
	groups := GroupBySlot([]string{"main/a", "main/b", "sidebar/c", "bogus"})
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(groups))
	}
	if len(groups["main"]) != 2 || len(groups["sidebar"]) != 1 {
		t.Errorf("unexpected grouping: %v", groups)
	}
}
