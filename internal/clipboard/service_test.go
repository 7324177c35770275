package clipboard

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagegrid/pagegrid/internal/dispatch"
	"github.com/pagegrid/pagegrid/internal/persist"
	"github.com/pagegrid/pagegrid/internal/shadow"
	"github.com/pagegrid/pagegrid/internal/store"
	"github.com/pagegrid/pagegrid/internal/types"
)

type fixture struct {
	disp   *dispatch.Dispatcher
	source *shadow.Shadow
	target *shadow.Shadow
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := dispatch.New(store.New(), nil, persist.NewMemoryBackend(), dispatch.NewRegistry(zerolog.Nop()), zerolog.Nop())

	source := shadow.New("editor-1", "page-1", d, zerolog.Nop())
	source.Seed(types.SlotContents{
		"main": {
			{ID: "a", Type: "text", Config: json.RawMessage(`{"title":"first"}`)},
			{ID: "b", Type: "image", Config: json.RawMessage(`{"src":"b.png"}`)},
		},
	})
	d.Store().SeedEntity("page-1", source.Slots())

	target := shadow.New("editor-2", "page-2", d, zerolog.Nop())
	target.Seed(types.SlotContents{
		"main": {{ID: "t1", Type: "text"}},
	})
	d.Store().SeedEntity("page-2", target.Slots())

	return &fixture{disp: d, source: source, target: target, svc: NewService(zerolog.Nop())}
}

func ids(widgets []types.Widget) []string {
	out := make([]string, len(widgets))
	for i, w := range widgets {
		out[i] = w.ID
	}
	return out
}

func TestCopyPasteMintsFreshIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.svc.Copy("page-1", "main", f.source.SlotWidgets("main"))
	res, err := f.svc.Paste(ctx, f.target, "main", 1, false)
	require.NoError(t, err)
	require.Len(t, res.Widgets, 2)

	// Fresh ids, source untouched.
	assert.NotEqual(t, "a", res.Widgets[0].ID)
	assert.NotEqual(t, "b", res.Widgets[1].ID)
	assert.Equal(t, "text", res.Widgets[0].Type)
	assert.JSONEq(t, `{"title":"first"}`, string(res.Widgets[0].Config))

	got := ids(f.target.SlotWidgets("main"))
	assert.Equal(t, []string{"t1", res.Widgets[0].ID, res.Widgets[1].ID}, got)

	sourceState, _ := f.disp.Store().Snapshot("page-1")
	assert.Equal(t, []string{"a", "b"}, ids(sourceState["main"]))

	// keepClipboard was false: the entry is gone.
	assert.False(t, f.svc.HasEntry())
}

func TestCopyPasteRepeatedWithKeep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.svc.Copy("page-1", "main", f.source.SlotWidgets("main")[:1])

	first, err := f.svc.Paste(ctx, f.target, "main", 0, true)
	require.NoError(t, err)
	assert.True(t, f.svc.HasEntry())

	second, err := f.svc.Paste(ctx, f.target, "main", 0, true)
	require.NoError(t, err)

	// Each paste minted its own id.
	assert.NotEqual(t, first.Widgets[0].ID, second.Widgets[0].ID)
	assert.Len(t, f.target.SlotWidgets("main"), 3)
}

func TestCutPasteCrossEntityMovesWidgets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.svc.Cut("page-1", "main", f.source.SlotWidgets("main"))
	res, err := f.svc.Paste(ctx, f.target, "main", 1, false)
	require.NoError(t, err)
	require.Len(t, res.Widgets, 2)
	require.NotNil(t, res.RemoveResult)
	assert.Equal(t, 2, res.RemoveResult.Committed())

	// The source entity lost its widgets canonically.
	sourceState, _ := f.disp.Store().Snapshot("page-1")
	assert.Empty(t, sourceState["main"])

	// The target gained fresh-id copies.
	targetState, _ := f.disp.Store().Snapshot("page-2")
	assert.Equal(t, []string{"t1", res.Widgets[0].ID, res.Widgets[1].ID}, ids(targetState["main"]))

	// Cut entries never survive a paste, keep or not.
	assert.False(t, f.svc.HasEntry())
}

func TestCutPasteSameEntitySplicesShadow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.svc.Cut("page-1", "main", f.source.SlotWidgets("main")[:1]) // cut "a"
	res, err := f.svc.Paste(ctx, f.source, "main", 2, false)
	require.NoError(t, err)
	require.Len(t, res.Widgets, 1)

	// "a" is gone from the source shadow itself; the pasted copy remains.
	got := ids(f.source.SlotWidgets("main"))
	assert.Equal(t, []string{"b", res.Widgets[0].ID}, got)

	canonical, _ := f.disp.Store().Snapshot("page-1")
	assert.Equal(t, got, ids(canonical["main"]))
}

func TestCutKeepFlagIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.svc.Cut("page-1", "main", f.source.SlotWidgets("main"))
	_, err := f.svc.Paste(ctx, f.target, "main", 0, true)
	require.NoError(t, err)
	assert.False(t, f.svc.HasEntry())
}

func TestPasteEmptyClipboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Paste(ctx, f.target, "main", 0, false)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestNewCopyReplacesEntry(t *testing.T) {
	f := newFixture(t)

	f.svc.Cut("page-1", "main", f.source.SlotWidgets("main"))
	f.svc.Copy("page-2", "main", f.target.SlotWidgets("main"))

	entry, ok := f.svc.Entry()
	require.True(t, ok)
	assert.Equal(t, OpCopy, entry.Kind)
	assert.Equal(t, "page-2", entry.Meta.InstanceID)
	assert.Len(t, entry.Snapshots, 1)
}
