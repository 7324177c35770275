package persist

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"

	"github.com/pagegrid/pagegrid/internal/op"
	"github.com/pagegrid/pagegrid/internal/types"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteBackend implements Backend on a local SQLite database.
type SQLiteBackend struct {
	db  *sql.DB
	log zerolog.Logger
}

// OpenSQLite opens the database, applies pragmas, and runs migrations.
func OpenSQLite(ctx context.Context, path string, log zerolog.Logger) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// modernc.org/sqlite serialises writes; a single connection avoids
	// SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	b := &SQLiteBackend{db: db, log: log.With().Str("component", "sqlite-backend").Logger()}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(b.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// DB exposes the handle so the edit journal can share the database.
func (b *SQLiteBackend) DB() *sql.DB { return b.db }

// Close closes the database.
func (b *SQLiteBackend) Close() error { return b.db.Close() }

// Apply persists one committed operation in its own transaction.
func (b *SQLiteBackend) Apply(ctx context.Context, o op.Operation) error {
	if o.Kind == op.KindReloadData {
		return nil
	}
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := applyTx(ctx, tx, o); err != nil {
		return err
	}
	return tx.Commit()
}

// ApplyBatch persists several operations in one transaction, reporting
// per-item results. Failed items are skipped; the rest still commit.
func (b *SQLiteBackend) ApplyBatch(ctx context.Context, ops []op.Operation) []error {
	errs := make([]error, len(ops))

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		for i := range errs {
			errs[i] = err
		}
		return errs
	}
	defer tx.Rollback()

	for i, o := range ops {
		if o.Kind == op.KindReloadData {
			continue
		}
		errs[i] = applyTx(ctx, tx, o)
	}

	if err := tx.Commit(); err != nil {
		for i := range errs {
			if errs[i] == nil {
				errs[i] = err
			}
		}
	}
	return errs
}

func applyTx(ctx context.Context, tx *sql.Tx, o op.Operation) error {
	switch o.Kind {
	case op.KindAddWidget:
		return applyAdd(ctx, tx, o)
	case op.KindRemoveWidget:
		return applyRemove(ctx, tx, o)
	case op.KindMoveWidget:
		return applyMove(ctx, tx, o)
	case op.KindUpdateWidgetConfig:
		return applyUpdateConfig(ctx, tx, o)
	}
	return &op.BadPayloadError{Kind: o.Kind, Reason: "unknown operation kind"}
}

func applyAdd(ctx context.Context, tx *sql.Tx, o op.Operation) error {
	p := o.Add

	// Entity rows normally exist before widgets arrive; an add against an
	// unseen entity registers it with an empty type.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO entities (id, entity_type) VALUES (?, '') ON CONFLICT (id) DO NOTHING`,
		o.EntityID,
	); err != nil {
		return err
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM widgets WHERE entity_id = ? AND slot = ?`,
		o.EntityID, p.Slot,
	).Scan(&count); err != nil {
		return err
	}
	idx := p.Order
	if idx > count {
		idx = count
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE widgets SET position = position + 1 WHERE entity_id = ? AND slot = ? AND position >= ?`,
		o.EntityID, p.Slot, idx,
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO widgets (entity_id, slot, position, widget_id, widget_type, config)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		o.EntityID, p.Slot, idx, p.ID, p.Type, []byte(p.Config),
	); err != nil {
		return fmt.Errorf("inserting widget %s: %w", p.ID, err)
	}
	return nil
}

func applyRemove(ctx context.Context, tx *sql.Tx, o op.Operation) error {
	var slot string
	var position int
	err := tx.QueryRowContext(ctx,
		`SELECT slot, position FROM widgets WHERE entity_id = ? AND widget_id = ?`,
		o.EntityID, o.Remove.ID,
	).Scan(&slot, &position)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // idempotent
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM widgets WHERE entity_id = ? AND widget_id = ?`,
		o.EntityID, o.Remove.ID,
	); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE widgets SET position = position - 1 WHERE entity_id = ? AND slot = ? AND position > ?`,
		o.EntityID, slot, position,
	)
	return err
}

func applyMove(ctx context.Context, tx *sql.Tx, o op.Operation) error {
	p := o.Move

	// The stored position is authoritative; the client's fromIndex may be
	// stale by the time the write lands.
	var from int
	err := tx.QueryRowContext(ctx,
		`SELECT position FROM widgets WHERE entity_id = ? AND widget_id = ? AND slot = ?`,
		o.EntityID, p.ID, p.Slot,
	).Scan(&from)
	if errors.Is(err, sql.ErrNoRows) {
		return nil // idempotent
	}
	if err != nil {
		return err
	}

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM widgets WHERE entity_id = ? AND slot = ?`,
		o.EntityID, p.Slot,
	).Scan(&count); err != nil {
		return err
	}
	to := p.ToIndex
	if to >= count {
		to = count - 1
	}
	if to == from {
		return nil
	}

	if from < to {
		if _, err := tx.ExecContext(ctx,
			`UPDATE widgets SET position = position - 1
			 WHERE entity_id = ? AND slot = ? AND position > ? AND position <= ?`,
			o.EntityID, p.Slot, from, to,
		); err != nil {
			return err
		}
	} else {
		if _, err := tx.ExecContext(ctx,
			`UPDATE widgets SET position = position + 1
			 WHERE entity_id = ? AND slot = ? AND position >= ? AND position < ?`,
			o.EntityID, p.Slot, to, from,
		); err != nil {
			return err
		}
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE widgets SET position = ? WHERE entity_id = ? AND widget_id = ?`,
		to, o.EntityID, p.ID,
	)
	return err
}

func applyUpdateConfig(ctx context.Context, tx *sql.Tx, o op.Operation) error {
	p := o.UpdateConfig
	_, err := tx.ExecContext(ctx,
		`UPDATE widgets SET config = ? WHERE entity_id = ? AND widget_id = ? AND slot = ?`,
		[]byte(p.Config), o.EntityID, p.ID, p.Slot,
	)
	return err
}

// LoadEntity returns the entity's full slot contents ordered by position.
func (b *SQLiteBackend) LoadEntity(ctx context.Context, entityID string) (types.SlotContents, error) {
	var exists int
	if err := b.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entities WHERE id = ?`, entityID,
	).Scan(&exists); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrEntityNotFound
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT slot, widget_id, widget_type, config
		 FROM widgets WHERE entity_id = ? ORDER BY slot, position`,
		entityID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading entity %s: %w", entityID, err)
	}
	defer rows.Close()

	slots := make(types.SlotContents)
	for rows.Next() {
		var slot string
		var w types.Widget
		var config []byte
		if err := rows.Scan(&slot, &w.ID, &w.Type, &config); err != nil {
			return nil, fmt.Errorf("scanning widget: %w", err)
		}
		w.Config = json.RawMessage(config)
		slots[slot] = append(slots[slot], w)
	}
	return slots, rows.Err()
}

// SaveEntity replaces the entity's contents wholesale.
func (b *SQLiteBackend) SaveEntity(ctx context.Context, entityID, entityType string, slots types.SlotContents) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO entities (id, entity_type) VALUES (?, ?)
		 ON CONFLICT (id) DO UPDATE SET entity_type = excluded.entity_type`,
		entityID, entityType,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM widgets WHERE entity_id = ?`, entityID,
	); err != nil {
		return err
	}

	for slot, widgets := range slots {
		for i, w := range widgets {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO widgets (entity_id, slot, position, widget_id, widget_type, config)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				entityID, slot, i, w.ID, w.Type, []byte(w.Config),
			); err != nil {
				return fmt.Errorf("inserting widget %s: %w", w.ID, err)
			}
		}
	}
	return tx.Commit()
}

// EntityType returns the entity's configured type.
func (b *SQLiteBackend) EntityType(ctx context.Context, entityID string) (string, error) {
	var entityType string
	err := b.db.QueryRowContext(ctx,
		`SELECT entity_type FROM entities WHERE id = ?`, entityID,
	).Scan(&entityType)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrEntityNotFound
	}
	return entityType, err
}
