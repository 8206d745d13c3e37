// Package product defines the canonical cart record and the pure
// collection operations (dedupe, ordering, filtering) shared by the
// extractors and the store.
package product

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Record is a single extracted cart item. ASIN is the stable identity used
// for dedupe and upsert. Position reflects source-document order and is nil
// for records that never carried one (they order after all positioned
// records). Degraded marks ASIN-only records whose title fell back to the
// identifier during extraction.
type Record struct {
	ASIN     string  `json:"asin"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Image    string  `json:"image,omitempty"`
	Position *int    `json:"position,omitempty"`
	Degraded bool    `json:"degraded,omitempty"`
}

// DedupeByASIN drops second-and-later occurrences of an ASIN, keeping the
// first record encountered and preserving input order.
func DedupeByASIN(records []Record) []Record {
	seen := map[string]struct{}{}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.ASIN]; ok {
			continue
		}
		seen[r.ASIN] = struct{}{}
		out = append(out, r)
	}
	return out
}

// SortKey selects the primary ordering column.
type SortKey string

const (
	ByPosition SortKey = "position"
	ByTitle    SortKey = "title"
	ByPrice    SortKey = "price"
)

// Direction is the sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortConfig describes one sort request. Lang drives title collation; the
// zero tag falls back to the collation root.
type SortConfig struct {
	Key  SortKey
	Dir  Direction
	Lang language.Tag
}

// NextSort toggles direction when the active key is clicked again and
// resets to ascending when a different key is chosen.
func NextSort(prev SortConfig, clicked SortKey) SortConfig {
	if prev.Key == clicked {
		dir := Asc
		if prev.Dir == Asc {
			dir = Desc
		}
		return SortConfig{Key: prev.Key, Dir: dir, Lang: prev.Lang}
	}
	return SortConfig{Key: clicked, Dir: Asc, Lang: prev.Lang}
}

// Sort returns a new slice ordered by cfg. Missing positions sort as
// +infinity and missing prices as 0. Ties at the primary key are broken by
// ASIN, scaled by the same direction multiplier as the primary comparison,
// so a descending sort also reverses the tie-break.
func Sort(records []Record, cfg SortConfig) []Record {
	out := make([]Record, len(records))
	copy(out, records)

	mult := 1
	if cfg.Dir == Desc {
		mult = -1
	}

	var coll *collate.Collator
	if cfg.Key == ByTitle {
		coll = collate.New(cfg.Lang)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		var cmp int
		switch cfg.Key {
		case ByTitle:
			cmp = coll.CompareString(a.Title, b.Title)
		case ByPrice:
			cmp = compareFloat(a.Price, b.Price)
		default: // position
			cmp = compareFloat(positionOf(a), positionOf(b))
		}
		if cmp == 0 {
			cmp = strings.Compare(a.ASIN, b.ASIN)
		}
		return cmp*mult < 0
	})
	return out
}

func positionOf(r Record) float64 {
	if r.Position == nil {
		return math.Inf(1)
	}
	return float64(*r.Position)
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// FilterByTitle keeps records whose title contains the query,
// case-insensitive. Leading and trailing whitespace in the query is part of
// the match, which enables pseudo word-boundary filtering: " ear" matches
// "golden ears" but not "year". A query that trims to empty disables
// filtering and returns the input slice unchanged.
func FilterByTitle(records []Record, query string) []Record {
	if strings.TrimSpace(query) == "" {
		return records
	}
	q := strings.ToLower(query)
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.Title), q) {
			out = append(out, r)
		}
	}
	return out
}

// SelectionTotal sums the prices of records whose ASIN is in the selection.
func SelectionTotal(records []Record, selected []string) float64 {
	set := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		set[id] = struct{}{}
	}
	var total float64
	for _, r := range records {
		if _, ok := set[r.ASIN]; ok {
			total += r.Price
		}
	}
	return total
}

// Pos is a convenience for building positioned records.
func Pos(i int) *int { return &i }
