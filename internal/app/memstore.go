package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/cartledger/cartledger/internal/product"
	"github.com/cartledger/cartledger/internal/store"
)

// memStore is the in-memory fallback used when the SQLite store cannot be
// opened. State lives for one invocation only.
type memStore struct {
	products map[string]product.Record
	lists    map[string][]string
}

func newMemStore() *memStore {
	return &memStore{
		products: map[string]product.Record{},
		lists:    map[string][]string{},
	}
}

func (m *memStore) GetAll(_ context.Context) ([]product.Record, error) {
	out := make([]product.Record, 0, len(m.products))
	for _, r := range m.products {
		out = append(out, r)
	}
	return product.Sort(out, product.SortConfig{Key: product.ByPosition, Dir: product.Asc}), nil
}

func (m *memStore) Upsert(_ context.Context, records []product.Record) error {
	for _, r := range records {
		if r.ASIN == "" {
			continue
		}
		m.products[r.ASIN] = r
	}
	return nil
}

func (m *memStore) Clear(_ context.Context) error {
	m.products = map[string]product.Record{}
	return nil
}

func (m *memStore) SaveList(_ context.Context, name string, ids []string) error {
	if name == "" {
		return fmt.Errorf("list name is empty")
	}
	if ids == nil {
		ids = []string{}
	}
	m.lists[name] = ids
	return nil
}

func (m *memStore) Lists(_ context.Context) ([]store.List, error) {
	names := make([]string, 0, len(m.lists))
	for name := range m.lists {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]store.List, 0, len(names))
	for _, name := range names {
		out = append(out, store.List{Name: name, IDs: m.lists[name]})
	}
	return out, nil
}

func (m *memStore) DeleteList(_ context.Context, name string) error {
	delete(m.lists, name)
	return nil
}

func (m *memStore) ClearLists(_ context.Context) error {
	m.lists = map[string][]string{}
	return nil
}
