package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLiteStore implements Store on the engine's SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLiteStore over an open database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// CreateTable creates the edit_entries table. Idempotent; run at startup
// after the widget-table migrations.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS edit_entries (
			op_id       TEXT NOT NULL,
			kind        TEXT NOT NULL,
			occurred_at TIMESTAMP NOT NULL,
			entity_id   TEXT NOT NULL,
			slot        TEXT NOT NULL DEFAULT '',
			widget_id   TEXT NOT NULL DEFAULT '',
			widget_type TEXT NOT NULL DEFAULT '',
			origin      TEXT NOT NULL,
			summary     TEXT NOT NULL,
			payload     BLOB,
			PRIMARY KEY (entity_id, occurred_at, op_id, widget_id)
		);

		CREATE INDEX IF NOT EXISTS idx_edit_entries_entity_time
			ON edit_entries (entity_id, occurred_at DESC);
	`)
	return err
}

// WriteEntries inserts entries in one multi-row statement.
func (s *SQLiteStore) WriteEntries(ctx context.Context, entries []EditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString(`INSERT INTO edit_entries (
		op_id, kind, occurred_at, entity_id, slot, widget_id, widget_type, origin, summary, payload
	) VALUES `)

	args := make([]any, 0, len(entries)*10)
	for i, e := range entries {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			e.OpID, e.Kind, e.OccurredAt.UTC().Format(time.RFC3339Nano), e.EntityID,
			e.Slot, e.WidgetID, e.WidgetType, e.Origin, e.Summary, []byte(e.Payload),
		)
	}

	b.WriteString(" ON CONFLICT DO NOTHING")
	_, err := s.db.ExecContext(ctx, b.String(), args...)
	return err
}

// QueryByEntity returns an entity's entries newest-first with cursor
// pagination.
func (s *SQLiteStore) QueryByEntity(ctx context.Context, entityID string, opts QueryOptions) ([]EditEntry, string, int, error) {
	if opts.Limit <= 0 || opts.Limit > 500 {
		opts.Limit = 100
	}

	conditions := []string{"entity_id = ?"}
	args := []any{entityID}

	if opts.Since != nil {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, opts.Since.UTC().Format(time.RFC3339Nano))
	}
	if opts.Until != nil {
		conditions = append(conditions, "occurred_at <= ?")
		args = append(args, opts.Until.UTC().Format(time.RFC3339Nano))
	}
	if len(opts.Kinds) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(opts.Kinds)), ", ")
		conditions = append(conditions, fmt.Sprintf("kind IN (%s)", placeholders))
		for _, k := range opts.Kinds {
			args = append(args, k)
		}
	}
	if opts.Cursor != "" {
		if cursorTime, err := time.Parse(time.RFC3339Nano, opts.Cursor); err == nil {
			conditions = append(conditions, "occurred_at < ?")
			args = append(args, cursorTime.UTC().Format(time.RFC3339Nano))
		}
	}

	where := strings.Join(conditions, " AND ")
	query := fmt.Sprintf(
		`SELECT op_id, kind, occurred_at, entity_id, slot, widget_id, widget_type, origin, summary, payload
		FROM edit_entries
		WHERE %s
		ORDER BY occurred_at DESC
		LIMIT ?`, where)
	queryArgs := append(append([]any{}, args...), opts.Limit+1) // one extra for the cursor

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, "", 0, fmt.Errorf("querying edit entries: %w", err)
	}
	defer rows.Close()

	var entries []EditEntry
	for rows.Next() {
		var e EditEntry
		var occurredAt string
		var payload []byte
		if err := rows.Scan(
			&e.OpID, &e.Kind, &occurredAt, &e.EntityID, &e.Slot,
			&e.WidgetID, &e.WidgetType, &e.Origin, &e.Summary, &payload,
		); err != nil {
			return nil, "", 0, fmt.Errorf("scanning edit entry: %w", err)
		}
		e.OccurredAt, _ = time.Parse(time.RFC3339Nano, occurredAt)
		e.Payload = payload
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", 0, err
	}

	var nextCursor string
	if len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
		nextCursor = entries[len(entries)-1].OccurredAt.Format(time.RFC3339Nano)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM edit_entries WHERE %s", where)
	var totalCount int
	_ = s.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalCount)

	return entries, nextCursor, totalCount, nil
}
