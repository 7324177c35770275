// Package clipboard implements cross-entity widget transfer: an injectable
// single-entry clipboard service holding widget snapshots, plus the
// paste-mode state machine editing surfaces use to drive repeated pastes.
package clipboard

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pagegrid/pagegrid/internal/dispatch"
	"github.com/pagegrid/pagegrid/internal/op"
	"github.com/pagegrid/pagegrid/internal/shadow"
	"github.com/pagegrid/pagegrid/internal/types"
	"github.com/pagegrid/pagegrid/internal/widgetpath"
)

// OpKind distinguishes copy from cut.
type OpKind string

const (
	OpCopy OpKind = "copy"
	OpCut  OpKind = "cut"
)

// Snapshot is one clipboard widget: type and config, never the id. Every
// paste mints fresh ids.
type Snapshot struct {
	Type   string
	Config []byte
}

// Metadata records where a cut came from so the paste can complete the move.
type Metadata struct {
	// InstanceID is the source entity.
	InstanceID string
	// WidgetPaths are the source slot/widget-id paths, in snapshot order.
	WidgetPaths []string
}

// Entry is the clipboard's single slot: the snapshots, their provenance, and
// whether the source widgets await removal.
type Entry struct {
	Kind      OpKind
	Snapshots []Snapshot
	Meta      Metadata
}

// Service is the shared clipboard. One entry; a new copy or cut replaces it.
// Inject one Service per editing session (or per test).
type Service struct {
	mu    sync.Mutex
	entry *Entry
	log   zerolog.Logger
}

// NewService returns an empty clipboard.
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("component", "clipboard").Logger()}
}

// Copy stores snapshots of the widgets. Source ids are recorded only for
// provenance; copies never remove anything.
func (s *Service) Copy(entityID string, slotName string, widgets []types.Widget) {
	s.store(OpCopy, entityID, slotName, widgets)
}

// Cut stores snapshots and marks the source widgets for removal on paste.
// The source entity keeps its widgets until the paste lands.
func (s *Service) Cut(entityID string, slotName string, widgets []types.Widget) {
	s.store(OpCut, entityID, slotName, widgets)
}

func (s *Service) store(kind OpKind, entityID, slotName string, widgets []types.Widget) {
	entry := &Entry{
		Kind: kind,
		Meta: Metadata{InstanceID: entityID},
	}
	for _, w := range widgets {
		entry.Snapshots = append(entry.Snapshots, Snapshot{
			Type:   w.Type,
			Config: append([]byte(nil), w.Config...),
		})
		entry.Meta.WidgetPaths = append(entry.Meta.WidgetPaths, widgetpath.Join(slotName, w.ID))
	}

	s.mu.Lock()
	s.entry = entry
	s.mu.Unlock()
	s.log.Debug().
		Str("kind", string(kind)).
		Str("entity", entityID).
		Int("widgets", len(widgets)).
		Msg("clipboard replaced")
}

// Entry returns a copy of the current entry, if any.
func (s *Service) Entry() (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entry == nil {
		return Entry{}, false
	}
	return *s.entry, true
}

// HasEntry reports whether the clipboard holds anything.
func (s *Service) HasEntry() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry != nil
}

// Clear empties the clipboard.
func (s *Service) Clear() {
	s.mu.Lock()
	s.entry = nil
	s.mu.Unlock()
}

// PasteResult reports what a paste did.
type PasteResult struct {
	// Widgets are the freshly minted widgets, in paste order.
	Widgets []types.Widget
	// AddOutcomes are the per-widget dispatch outcomes.
	AddOutcomes []dispatch.Outcome
	// RemoveResult is set for cut pastes: the batch that removed the
	// source widgets.
	RemoveResult *dispatch.BatchResult
}

// Paste materializes the clipboard into target's slot starting at position.
// Every pasted widget gets a fresh id. For a cut entry the source widgets are
// removed afterwards in one batch, completing the move; same-entity cuts also
// splice the target shadow. The clipboard clears unless the entry was a copy
// and keepClipboard is set.
func (s *Service) Paste(ctx context.Context, target *shadow.Shadow, slotName string, position int, keepClipboard bool) (*PasteResult, error) {
	entry, ok := s.Entry()
	if !ok {
		return nil, ErrEmpty
	}

	res := &PasteResult{}
	for i, snap := range entry.Snapshots {
		w := types.Widget{
			ID:     uuid.New().String(),
			Type:   snap.Type,
			Config: append([]byte(nil), snap.Config...),
		}
		out, err := target.PasteAdd(ctx, slotName, position+i, w)
		res.AddOutcomes = append(res.AddOutcomes, out)
		if err != nil {
			// A rejected paste (slot limit, disallowed type) stops here;
			// earlier widgets stay, per the no-rollback policy.
			s.log.Warn().Err(err).
				Str("slot", slotName).
				Int("pasted", i).
				Msg("paste stopped by rejection")
			return res, err
		}
		res.Widgets = append(res.Widgets, w)
	}

	if entry.Kind == OpCut {
		res.RemoveResult = s.removeSources(ctx, target, entry.Meta)
	}

	if entry.Kind != OpCopy || !keepClipboard {
		s.Clear()
	}
	return res, nil
}

// removeSources completes a cut by removing the source widgets in one batch.
// When the cut came from the target's own entity the shadow is spliced too;
// cross-entity cuts only publish, and the source's consumers converge through
// the change fan-out.
func (s *Service) removeSources(ctx context.Context, target *shadow.Shadow, meta Metadata) *dispatch.BatchResult {
	sameEntity := meta.InstanceID == target.EntityID()
	var ops []op.Operation
	for _, path := range meta.WidgetPaths {
		_, widgetID, err := widgetpath.Split(path)
		if err != nil {
			s.log.Warn().Str("path", path).Msg("skipping malformed clipboard path")
			continue
		}
		if sameEntity {
			target.RemoveLocal(widgetID)
		}
		ops = append(ops, op.NewRemove(meta.InstanceID, widgetID))
	}
	if len(ops) == 0 {
		return nil
	}
	res := target.Dispatcher().PublishBatch(ctx, target.ComponentID(), ops)
	return &res
}
