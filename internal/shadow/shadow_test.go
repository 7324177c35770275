package shadow

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagegrid/pagegrid/internal/dispatch"
	"github.com/pagegrid/pagegrid/internal/op"
	"github.com/pagegrid/pagegrid/internal/persist"
	"github.com/pagegrid/pagegrid/internal/store"
	"github.com/pagegrid/pagegrid/internal/types"
	"github.com/pagegrid/pagegrid/internal/widgetpath"
)

func newTestShadow(t *testing.T) *Shadow {
	t.Helper()
	d := dispatch.New(store.New(), nil, persist.NewMemoryBackend(), dispatch.NewRegistry(zerolog.Nop()), zerolog.Nop())
	return New("editor-1", "page-1", d, zerolog.Nop())
}

func seedThree(t *testing.T, s *Shadow) {
	t.Helper()
	s.Seed(types.SlotContents{
		"main": {
			{ID: "x", Type: "text"},
			{ID: "y", Type: "text"},
			{ID: "z", Type: "text"},
		},
	})
	s.Dispatcher().Store().SeedEntity("page-1", s.Slots())
}

func ids(widgets []types.Widget) []string {
	out := make([]string, len(widgets))
	for i, w := range widgets {
		out[i] = w.ID
	}
	return out
}

func TestSeedOnlyOnce(t *testing.T) {
	s := newTestShadow(t)
	require.Equal(t, Uninitialized, s.State())

	s.Seed(types.SlotContents{"main": {{ID: "a", Type: "text"}}})
	assert.Equal(t, Synced, s.State())

	s.Seed(types.SlotContents{"main": {{ID: "b", Type: "text"}}})
	assert.Equal(t, []string{"a"}, ids(s.SlotWidgets("main")))
}

func TestAddWidgetOptimisticSplice(t *testing.T) {
	ctx := context.Background()
	s := newTestShadow(t)
	seedThree(t, s)

	w, out, err := s.AddWidget(ctx, "main", "image", json.RawMessage(`{"src":"a.png"}`), 1)
	require.NoError(t, err)
	assert.True(t, out.Committed)
	assert.NotEmpty(t, w.ID)
	assert.Equal(t, []string{"x", w.ID, "y", "z"}, ids(s.SlotWidgets("main")))
	assert.Equal(t, Synced, s.State())

	// The canonical store saw the same splice.
	canonical, _ := s.Dispatcher().Store().Snapshot("page-1")
	assert.Equal(t, ids(s.SlotWidgets("main")), ids(canonical["main"]))
}

func TestMoveBoundariesDoNotPublish(t *testing.T) {
	ctx := context.Background()
	s := newTestShadow(t)
	seedThree(t, s)

	moved, _, err := s.MoveUp(ctx, "x")
	require.NoError(t, err)
	assert.False(t, moved)

	moved, _, err = s.MoveDown(ctx, "z")
	require.NoError(t, err)
	assert.False(t, moved)

	moved, _, err = s.MoveUp(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, moved)

	assert.Equal(t, []string{"x", "y", "z"}, ids(s.SlotWidgets("main")))
}

func TestMoveUpReorders(t *testing.T) {
	ctx := context.Background()
	s := newTestShadow(t)
	seedThree(t, s)

	moved, out, err := s.MoveUp(ctx, "y")
	require.NoError(t, err)
	assert.True(t, moved)
	assert.True(t, out.Committed)
	assert.Equal(t, []string{"y", "x", "z"}, ids(s.SlotWidgets("main")))

	canonical, _ := s.Dispatcher().Store().Snapshot("page-1")
	assert.Equal(t, []string{"y", "x", "z"}, ids(canonical["main"]))
}

func TestDuplicateAppendsAtEnd(t *testing.T) {
	ctx := context.Background()
	s := newTestShadow(t)
	seedThree(t, s)

	dup, out, err := s.Duplicate(ctx, "y")
	require.NoError(t, err)
	assert.True(t, out.Committed)
	require.NotEqual(t, "y", dup.ID)
	got := ids(s.SlotWidgets("main"))
	assert.Equal(t, []string{"x", "y", "z", dup.ID}, got)
}

func TestDuplicateUnknownWidget(t *testing.T) {
	ctx := context.Background()
	s := newTestShadow(t)
	seedThree(t, s)

	_, _, err := s.Duplicate(ctx, "ghost")
	assert.ErrorIs(t, err, op.ErrNotFound)
}

func TestApplyExternalIgnoresStructurallyIdentical(t *testing.T) {
	s := newTestShadow(t)
	seedThree(t, s)

	// Same ids, same order, different config: the filter must not replace.
	same := types.SlotContents{
		"main": {
			{ID: "x", Type: "text", Config: json.RawMessage(`{"title":"edited"}`)},
			{ID: "y", Type: "text"},
			{ID: "z", Type: "text"},
		},
	}
	replaced := s.ApplyExternal(dispatch.Change{
		Origin: "editor-2",
		State:  types.CanonicalState{Entities: map[string]types.EntityState{"page-1": {Widgets: same}}},
	})
	assert.False(t, replaced)
}

func TestApplyExternalReplacesOnStructuralChange(t *testing.T) {
	s := newTestShadow(t)
	seedThree(t, s)

	reordered := types.SlotContents{
		"main": {
			{ID: "y", Type: "text"},
			{ID: "x", Type: "text"},
			{ID: "z", Type: "text"},
		},
	}
	replaced := s.ApplyExternal(dispatch.Change{
		Origin: "editor-2",
		State:  types.CanonicalState{Entities: map[string]types.EntityState{"page-1": {Widgets: reordered}}},
	})
	assert.True(t, replaced)
	assert.Equal(t, []string{"y", "x", "z"}, ids(s.SlotWidgets("main")))
	assert.Equal(t, Synced, s.State())
}

func TestApplyExternalIgnoresOtherEntities(t *testing.T) {
	s := newTestShadow(t)
	seedThree(t, s)

	replaced := s.ApplyExternal(dispatch.Change{
		Origin: "editor-2",
		State: types.CanonicalState{Entities: map[string]types.EntityState{
			"page-9": {Widgets: types.SlotContents{"main": {{ID: "q", Type: "text"}}}},
		}},
	})
	assert.False(t, replaced)
	assert.Equal(t, []string{"x", "y", "z"}, ids(s.SlotWidgets("main")))
}

func TestApplyExternalNewSlotAppears(t *testing.T) {
	s := newTestShadow(t)
	seedThree(t, s)

	grown := s.Slots()
	grown["sidebar"] = []types.Widget{{ID: "s1", Type: "nav"}}
	replaced := s.ApplyExternal(dispatch.Change{
		Origin: "editor-2",
		State:  types.CanonicalState{Entities: map[string]types.EntityState{"page-1": {Widgets: grown}}},
	})
	assert.True(t, replaced)
	assert.Equal(t, []string{"s1"}, ids(s.SlotWidgets("sidebar")))
}

func TestBulkDeleteSelection(t *testing.T) {
	ctx := context.Background()
	s := newTestShadow(t)
	seedThree(t, s)

	sel := widgetpath.NewSelection()
	sel.Add("main", "x")
	sel.Add("main", "z")
	sel.Add("main", "ghost") // stale selection entry

	res := s.BulkDelete(ctx, sel)
	assert.Equal(t, 2, res.Committed())
	assert.Equal(t, []string{"y"}, ids(s.SlotWidgets("main")))

	canonical, _ := s.Dispatcher().Store().Snapshot("page-1")
	assert.Equal(t, []string{"y"}, ids(canonical["main"]))
	assert.Equal(t, Synced, s.State())
}

func TestBulkDeleteEmptySelection(t *testing.T) {
	ctx := context.Background()
	s := newTestShadow(t)
	seedThree(t, s)

	res := s.BulkDelete(ctx, widgetpath.NewSelection())
	assert.Empty(t, res.Items)
	assert.Equal(t, []string{"x", "y", "z"}, ids(s.SlotWidgets("main")))
}
