// Package dispatch is the commit pipeline of the synchronization engine.
// Every mutation flows through PublishUpdate: validate, apply to the
// canonical store, fan out to subscribers (suppressing the originating
// component), journal the event, then persist. Persistence failures are
// surfaced on the Outcome but never roll back the in-memory commit; the
// caller decides how loudly to complain.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"github.com/pagegrid/pagegrid/internal/event"
	"github.com/pagegrid/pagegrid/internal/op"
	"github.com/pagegrid/pagegrid/internal/persist"
	"github.com/pagegrid/pagegrid/internal/slot"
	"github.com/pagegrid/pagegrid/internal/store"
	"github.com/pagegrid/pagegrid/internal/types"
)

// SlotProvider resolves the slot configuration governing an entity's slot.
// A false return means no configuration is known and the mutation is
// permitted unchecked.
type SlotProvider interface {
	ConfigFor(ctx context.Context, entityID, slotName string) (types.SlotConfig, bool)
}

// Outcome reports what one published operation did.
type Outcome struct {
	// Committed is true when the store changed and subscribers were notified.
	Committed bool
	// NoOp is true for idempotent non-effects: absent-id removes and moves,
	// and same-index moves. Nothing was fanned out.
	NoOp bool
	// WidgetID is the id the operation targeted, when it targeted one.
	WidgetID string
	// Violation is set when slot constraints rejected the operation.
	Violation *slot.Violation
	// PersistErr is set when the commit succeeded in memory but the backend
	// write failed. The in-memory state is authoritative and stays.
	PersistErr error
}

// BatchItem pairs one batch operation with its result.
type BatchItem struct {
	Index   int
	Outcome Outcome
	Err     error
}

// BatchResult reports per-item results of PublishBatch.
type BatchResult struct {
	Items []BatchItem
}

// Committed counts the items that changed state.
func (r BatchResult) Committed() int {
	n := 0
	for _, it := range r.Items {
		if it.Outcome.Committed {
			n++
		}
	}
	return n
}

// ConfigValidator checks a widget configuration document before it is
// accepted, typically against the widget type's JSON Schema.
type ConfigValidator func(widgetType string, raw json.RawMessage) error

// Dispatcher owns the commit pipeline. All fields are set at construction;
// the recorder and config validator are optional.
type Dispatcher struct {
	store       *store.Store
	slots       SlotProvider
	backend     persist.Backend
	registry    *Registry
	recorder    event.Recorder
	checkConfig ConfigValidator
	log         zerolog.Logger
}

// New assembles a dispatcher. slots and recorder may be nil.
func New(st *store.Store, slots SlotProvider, backend persist.Backend, reg *Registry, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:    st,
		slots:    slots,
		backend:  backend,
		registry: reg,
		log:      log.With().Str("component", "dispatcher").Logger(),
	}
}

// SetRecorder attaches an event recorder. Recording failures are logged, not
// propagated.
func (d *Dispatcher) SetRecorder(r event.Recorder) { d.recorder = r }

// SetConfigValidator attaches a widget-config validator, applied to adds and
// config updates before the store mutates.
func (d *Dispatcher) SetConfigValidator(v ConfigValidator) { d.checkConfig = v }

// Store exposes the canonical store for read access.
func (d *Dispatcher) Store() *store.Store { return d.store }

// Registry exposes the subscription registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// PublishUpdate runs one operation through the pipeline on behalf of
// componentID. The error return covers rejections (bad payload, constraint
// violation, duplicate id, out-of-bounds move); inspect the Outcome for
// no-ops and persistence divergence.
func (d *Dispatcher) PublishUpdate(ctx context.Context, componentID string, o op.Operation) (Outcome, error) {
	out, err := d.applyLocal(ctx, componentID, o)
	if err != nil || out.NoOp {
		return out, err
	}

	if o.Kind != op.KindReloadData {
		if perr := d.backend.Apply(ctx, o); perr != nil {
			out.PersistErr = perr
			d.log.Error().Err(perr).
				Str("entity", o.EntityID).
				Str("kind", string(o.Kind)).
				Msg("backend write failed, in-memory state diverges")
		}
	}
	return out, nil
}

// PublishBatch runs several operations on behalf of componentID, one fan-out
// per committed item and a single backend round trip at the end. A rejected
// item does not stop later items.
func (d *Dispatcher) PublishBatch(ctx context.Context, componentID string, ops []op.Operation) BatchResult {
	result := BatchResult{Items: make([]BatchItem, len(ops))}
	var committed []op.Operation
	var committedAt []int

	for i, o := range ops {
		out, err := d.applyLocal(ctx, componentID, o)
		result.Items[i] = BatchItem{Index: i, Outcome: out, Err: err}
		if err == nil && out.Committed && o.Kind != op.KindReloadData {
			committed = append(committed, o)
			committedAt = append(committedAt, i)
		}
	}

	if len(committed) > 0 {
		for j, perr := range d.backend.ApplyBatch(ctx, committed) {
			if perr != nil {
				i := committedAt[j]
				result.Items[i].Outcome.PersistErr = perr
				d.log.Error().Err(perr).
					Str("entity", committed[j].EntityID).
					Str("kind", string(committed[j].Kind)).
					Msg("backend batch write failed, in-memory state diverges")
			}
		}
	}
	return result
}

// applyLocal validates, checks slot constraints, mutates the store, fans out
// the change, and journals the event. It never touches the backend.
func (d *Dispatcher) applyLocal(ctx context.Context, componentID string, o op.Operation) (Outcome, error) {
	out := Outcome{WidgetID: o.WidgetID()}

	if err := o.Validate(); err != nil {
		return out, err
	}

	if o.Kind == op.KindAddWidget {
		if v := d.checkSlot(ctx, o); v != nil {
			out.Violation = v
			return out, v
		}
		if d.checkConfig != nil && len(o.Add.Config) > 0 {
			if err := d.checkConfig(o.Add.Type, o.Add.Config); err != nil {
				return out, err
			}
		}
	}
	if o.Kind == op.KindUpdateWidgetConfig && d.checkConfig != nil {
		widgetType := d.widgetType(o.EntityID, o.UpdateConfig.Slot, o.UpdateConfig.ID)
		if widgetType != "" && len(o.UpdateConfig.Config) > 0 {
			if err := d.checkConfig(widgetType, o.UpdateConfig.Config); err != nil {
				return out, err
			}
		}
	}

	// RELOAD_DATA fans out without mutating anything.
	if o.Kind == op.KindReloadData {
		out.Committed = true
		d.notify(componentID, o)
		d.record(ctx, componentID, o)
		return out, nil
	}

	removedFrom := ""
	if o.Kind == op.KindRemoveWidget {
		// The slot is unknown after the removal; capture it for the event.
		removedFrom = d.store.FindSlot(o.EntityID, o.Remove.ID)
	}

	applied, err := d.store.Apply(o)
	if errors.Is(err, op.ErrNotFound) {
		// Absent targets are idempotent: already-removed widgets, stale
		// moves, config updates on deleted widgets.
		out.NoOp = true
		d.log.Debug().
			Str("entity", o.EntityID).
			Str("kind", string(o.Kind)).
			Str("widget", out.WidgetID).
			Msg("operation targeted an absent widget, ignoring")
		return out, nil
	}
	if err != nil {
		return out, err
	}
	if !applied {
		// Same-index move: nothing changed, nothing to announce.
		out.NoOp = true
		return out, nil
	}

	out.Committed = true
	d.notify(componentID, o)
	d.recordWithSlot(ctx, componentID, o, removedFrom)
	return out, nil
}

// checkSlot validates an addition against the slot's configuration, when one
// is known.
func (d *Dispatcher) checkSlot(ctx context.Context, o op.Operation) *slot.Violation {
	if d.slots == nil {
		return nil
	}
	cfg, ok := d.slots.ConfigFor(ctx, o.EntityID, o.Add.Slot)
	if !ok {
		return nil
	}
	proposed := d.store.SlotWidgets(o.EntityID, o.Add.Slot)
	proposed = append(proposed, types.Widget{ID: o.Add.ID, Type: o.Add.Type, Config: o.Add.Config})
	return slot.Validate(cfg, proposed)
}

// widgetType looks up the current type of a widget, or "" when absent.
func (d *Dispatcher) widgetType(entityID, slotName, widgetID string) string {
	for _, w := range d.store.SlotWidgets(entityID, slotName) {
		if w.ID == widgetID {
			return w.Type
		}
	}
	return ""
}

func (d *Dispatcher) notify(componentID string, o op.Operation) {
	d.registry.Notify(Change{
		Origin: componentID,
		Op:     o,
		State:  d.store.SnapshotAll(),
	})
}

func (d *Dispatcher) record(ctx context.Context, componentID string, o op.Operation) {
	d.recordWithSlot(ctx, componentID, o, "")
}

func (d *Dispatcher) recordWithSlot(ctx context.Context, componentID string, o op.Operation, removedFrom string) {
	if d.recorder == nil {
		return
	}
	var evt event.DomainEvent
	switch o.Kind {
	case op.KindAddWidget:
		evt = event.NewWidgetAdded(o.EntityID, componentID, event.WidgetAddedPayload{
			Slot:       o.Add.Slot,
			WidgetID:   o.Add.ID,
			WidgetType: o.Add.Type,
			Order:      o.Add.Order,
		})
	case op.KindRemoveWidget:
		evt = event.NewWidgetRemoved(o.EntityID, componentID, event.WidgetRemovedPayload{
			Slot:     removedFrom,
			WidgetID: o.Remove.ID,
		})
	case op.KindMoveWidget:
		evt = event.NewWidgetMoved(o.EntityID, componentID, event.WidgetMovedPayload{
			Slot:      o.Move.Slot,
			WidgetID:  o.Move.ID,
			FromIndex: o.Move.FromIndex,
			ToIndex:   o.Move.ToIndex,
		})
	case op.KindUpdateWidgetConfig:
		evt = event.NewWidgetConfigUpdated(o.EntityID, componentID, event.WidgetConfigUpdatedPayload{
			Slot:     o.UpdateConfig.Slot,
			WidgetID: o.UpdateConfig.ID,
		})
	case op.KindReloadData:
		evt = event.NewDataReloaded(componentID, event.DataReloadedPayload{
			Reason:        o.Reload.Reason,
			UpdatedFields: o.Reload.UpdatedFields,
		})
	default:
		return
	}
	if err := d.recorder.Record(ctx, evt); err != nil {
		d.log.Warn().Err(err).Str("kind", string(o.Kind)).Msg("recording event failed")
	}
}
