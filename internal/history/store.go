// Package history journals committed widget operations. Every commit fans
// out into one EditEntry per affected widget, written through the Store
// interface and queryable per entity for audit timelines.
package history

import (
	"context"
	"encoding/json"
	"time"
)

// EditEntry is one journal row: a committed operation's effect on one widget.
type EditEntry struct {
	OpID       string          `json:"op_id"`
	Kind       string          `json:"kind"`
	OccurredAt time.Time       `json:"occurred_at"`
	EntityID   string          `json:"entity_id"`
	Slot       string          `json:"slot,omitempty"`
	WidgetID   string          `json:"widget_id,omitempty"`
	WidgetType string          `json:"widget_type,omitempty"`
	Origin     string          `json:"origin"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// QueryOptions filters and paginates an entity's journal.
type QueryOptions struct {
	Limit  int
	Since  *time.Time
	Until  *time.Time
	Kinds  []string
	Cursor string // occurred_at of the last row from the previous page
}

// DefaultQueryOptions returns the standard page shape.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Limit: 100}
}

// Store reads and writes edit entries.
type Store interface {
	// WriteEntries appends one or more entries (one commit → many entries).
	WriteEntries(ctx context.Context, entries []EditEntry) error

	// QueryByEntity returns an entity's entries newest-first.
	QueryByEntity(ctx context.Context, entityID string, opts QueryOptions) (entries []EditEntry, nextCursor string, totalCount int, err error)
}
