// Package store persists the canonical product set and named selection
// lists in a local SQLite database. Writes are batched: each call runs in a
// single transaction, so a batch either lands entirely or not at all.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cartledger/cartledger/internal/product"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	asin     TEXT PRIMARY KEY,
	title    TEXT NOT NULL,
	price    REAL NOT NULL,
	image    TEXT NOT NULL DEFAULT '',
	position INTEGER,
	degraded INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS lists (
	name TEXT PRIMARY KEY,
	ids  TEXT NOT NULL
);`

// List is a named selection of ASINs.
type List struct {
	Name string   `json:"name"`
	IDs  []string `json:"ids"`
}

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// GetAll returns every stored record, positioned records first in position
// order, then unpositioned ones, ASIN as the tie-break.
func (s *Store) GetAll(ctx context.Context) ([]product.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asin, title, price, image, position, degraded
		FROM products
		ORDER BY position IS NULL, position, asin`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var out []product.Record
	for rows.Next() {
		var r product.Record
		var pos sql.NullInt64
		if err := rows.Scan(&r.ASIN, &r.Title, &r.Price, &r.Image, &pos, &r.Degraded); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if pos.Valid {
			p := int(pos.Int64)
			r.Position = &p
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Upsert replaces-by-ASIN within one transaction. Records without an ASIN
// are skipped rather than failing the batch.
func (s *Store) Upsert(ctx context.Context, records []product.Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO products (asin, title, price, image, position, degraded)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(asin) DO UPDATE SET
			title = excluded.title,
			price = excluded.price,
			image = excluded.image,
			position = excluded.position,
			degraded = excluded.degraded`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if r.ASIN == "" {
			continue
		}
		var pos any
		if r.Position != nil {
			pos = *r.Position
		}
		if _, err := stmt.ExecContext(ctx, r.ASIN, r.Title, r.Price, r.Image, pos, r.Degraded); err != nil {
			return fmt.Errorf("upsert %s: %w", r.ASIN, err)
		}
	}
	return tx.Commit()
}

// Clear removes all products.
func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM products`)
	return err
}

// SaveList stores or replaces a named ASIN selection.
func (s *Store) SaveList(ctx context.Context, name string, ids []string) error {
	if name == "" {
		return fmt.Errorf("list name is empty")
	}
	if ids == nil {
		ids = []string{}
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode list ids: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO lists (name, ids) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET ids = excluded.ids`, name, string(encoded))
	return err
}

// Lists returns all named selections ordered by name.
func (s *Store) Lists(ctx context.Context) ([]List, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, ids FROM lists ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	defer rows.Close()

	var out []List
	for rows.Next() {
		var l List
		var encoded string
		if err := rows.Scan(&l.Name, &encoded); err != nil {
			return nil, fmt.Errorf("scan list: %w", err)
		}
		if err := json.Unmarshal([]byte(encoded), &l.IDs); err != nil {
			return nil, fmt.Errorf("decode list %s: %w", l.Name, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// DeleteList removes a named selection; deleting a missing list is a no-op.
func (s *Store) DeleteList(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM lists WHERE name = ?`, name)
	return err
}

// ClearLists removes all named selections.
func (s *Store) ClearLists(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM lists`)
	return err
}
