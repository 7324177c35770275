// Package event provides domain event recording for committed operations.
// Events are fanned out as EditEntry records via the history.Store interface,
// then handed to an optional Publisher for downstream consumers.
package event

import (
	"context"

	"github.com/pagegrid/pagegrid/internal/history"
)

// Recorder writes domain events to the edit journal.
type Recorder interface {
	Record(ctx context.Context, evt DomainEvent) error
}

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

// HistoryRecorder implements Recorder by fanning out a DomainEvent into one
// EditEntry per affected widget (or a single entry when no widget is
// affected, e.g. data_reloaded), then writing via history.Store. If a
// Publisher is set, the event is also published after the store write
// succeeds.
type HistoryRecorder struct {
	store history.Store
	bus   Publisher
}

// NewHistoryRecorder creates a HistoryRecorder backed by the given store.
func NewHistoryRecorder(store history.Store) *HistoryRecorder {
	return &HistoryRecorder{store: store}
}

// SetPublisher attaches a downstream publisher. Events are published after
// journal writes.
func (r *HistoryRecorder) SetPublisher(p Publisher) {
	r.bus = p
}

// Record fans out a DomainEvent into EditEntry records, writes them, and
// publishes downstream.
func (r *HistoryRecorder) Record(ctx context.Context, evt DomainEvent) error {
	var entries []history.EditEntry
	if len(evt.Affected) == 0 {
		entries = []history.EditEntry{{
			OpID:       evt.ID,
			Kind:       evt.EventType,
			OccurredAt: evt.OccurredAt,
			EntityID:   evt.EntityID,
			Origin:     evt.Origin,
			Summary:    evt.Summary,
			Payload:    evt.Payload,
		}}
	} else {
		entries = make([]history.EditEntry, 0, len(evt.Affected))
		for _, ref := range evt.Affected {
			entries = append(entries, history.EditEntry{
				OpID:       evt.ID,
				Kind:       evt.EventType,
				OccurredAt: evt.OccurredAt,
				EntityID:   ref.EntityID,
				Slot:       ref.Slot,
				WidgetID:   ref.WidgetID,
				Origin:     evt.Origin,
				Summary:    evt.Summary,
				Payload:    evt.Payload,
			})
		}
	}
	if err := r.store.WriteEntries(ctx, entries); err != nil {
		return err
	}

	if r.bus != nil {
		r.bus.Publish(ctx, evt)
	}
	return nil
}
