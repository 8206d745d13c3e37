// Package exchange implements the backup/restore file format: a single JSON
// document carrying the product set, named lists, and the current
// selection. Restores run in replace mode (clear first) or merge mode
// (upsert into the existing set).
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cartledger/cartledger/internal/product"
	"github.com/cartledger/cartledger/internal/store"
)

// Version is the only exchange document version understood.
const Version = 1

// ErrUnsupportedVersion is returned for documents with a different version.
var ErrUnsupportedVersion = fmt.Errorf("unsupported exchange document version")

// Mode selects how a restore treats the existing canonical set.
type Mode string

const (
	// Replace clears the stored products and lists before loading.
	Replace Mode = "replace"
	// Merge upserts into the existing set without clearing.
	Merge Mode = "merge"
)

// Store is the storage collaborator consumed by export and import. It is
// satisfied by the SQLite store and by the in-memory fallback.
type Store interface {
	GetAll(ctx context.Context) ([]product.Record, error)
	Upsert(ctx context.Context, records []product.Record) error
	Clear(ctx context.Context) error
	SaveList(ctx context.Context, name string, ids []string) error
	Lists(ctx context.Context) ([]store.List, error)
	DeleteList(ctx context.Context, name string) error
	ClearLists(ctx context.Context) error
}

// Document is the on-disk exchange format.
type Document struct {
	Version          int              `json:"version"`
	ExportedAt       time.Time        `json:"exportedAt"`
	Products         []product.Record `json:"products"`
	Lists            []store.List     `json:"lists"`
	CurrentSelection []string         `json:"currentSelection"`
}

// Export snapshots the store into a Document.
func Export(ctx context.Context, st Store, selection []string) (Document, error) {
	products, err := st.GetAll(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("read products: %w", err)
	}
	lists, err := st.Lists(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("read lists: %w", err)
	}
	if selection == nil {
		selection = []string{}
	}
	return Document{
		Version:          Version,
		ExportedAt:       time.Now().UTC(),
		Products:         products,
		Lists:            lists,
		CurrentSelection: selection,
	}, nil
}

// Write renders the document as indented JSON.
func Write(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Read decodes and shape-checks an exchange document. Only the structural
// shape and version are validated; record contents are taken as-is.
func Read(r io.Reader) (Document, error) {
	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode exchange document: %w", err)
	}
	if doc.Version != Version {
		return Document{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	return doc, nil
}

// Import loads a document into the store. Replace mode clears products and
// lists first; merge mode upserts only. Lists without a name are skipped
// with a diagnostic, never fatally.
func Import(ctx context.Context, st Store, doc Document, mode Mode) error {
	if mode == Replace {
		if err := st.Clear(ctx); err != nil {
			return fmt.Errorf("clear products: %w", err)
		}
		if err := st.ClearLists(ctx); err != nil {
			return fmt.Errorf("clear lists: %w", err)
		}
	}
	if len(doc.Products) > 0 {
		if err := st.Upsert(ctx, doc.Products); err != nil {
			return fmt.Errorf("upsert products: %w", err)
		}
	}
	for _, l := range doc.Lists {
		if l.Name == "" {
			log.Warn().Msg("skipping unnamed list in exchange document")
			continue
		}
		if err := st.SaveList(ctx, l.Name, l.IDs); err != nil {
			return fmt.Errorf("save list %s: %w", l.Name, err)
		}
	}
	return nil
}
