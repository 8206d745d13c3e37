// Package takeout scans Amazon privacy-export (Takeout) ZIP archives for
// cart-item files and parses them into product records. Export dumps are
// wildly inconsistent, so entries are located by path substring and parsed
// through per-format fallbacks: JSON, newline-delimited JSON, and CSV.
package takeout

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cartledger/cartledger/internal/normalize"
	"github.com/cartledger/cartledger/internal/product"
)

// MaxArchiveBytes is the upfront size ceiling (1.2 GiB). Larger archives
// are rejected before any decompression is attempted.
const MaxArchiveBytes int64 = 1288490188

// ErrArchiveTooLarge is returned for archives over MaxArchiveBytes.
var ErrArchiveTooLarge = errors.New("archive exceeds 1.2 GiB size ceiling")

// Default candidate key lists for the heterogeneous JSON shapes seen in
// export dumps. First present key wins.
var (
	defaultASINKeys  = []string{"asin", "ASIN", "itemAsin", "productAsin"}
	defaultTitleKeys = []string{"title", "productTitle", "itemTitle", "product_name", "name"}
	defaultPriceKeys = []string{"price", "itemPrice", "priceAmount", "price_value", "amount", "unitPrice"}
)

// CSV header matching patterns, case-insensitive substring semantics.
var (
	asinHeaderRe  = regexp.MustCompile(`(?i)asin`)
	titleHeaderRe = regexp.MustCompile(`(?i)title|name|product`)
	priceHeaderRe = regexp.MustCompile(`(?i)price|amount|unit`)
)

// Options tunes one extraction pass. The key lists default to the built-in
// candidates when empty; Debug enables per-entry diagnostics.
type Options struct {
	Debug     bool
	ASINKeys  []string
	TitleKeys []string
	PriceKeys []string
}

func (o *Options) fill() {
	if len(o.ASINKeys) == 0 {
		o.ASINKeys = defaultASINKeys
	}
	if len(o.TitleKeys) == 0 {
		o.TitleKeys = defaultTitleKeys
	}
	if len(o.PriceKeys) == 0 {
		o.PriceKeys = defaultPriceKeys
	}
}

// ParseFile opens a Takeout ZIP on disk and extracts its cart items.
func ParseFile(name string, opts Options) ([]product.Record, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	return ParseReaderAt(f, info.Size(), opts)
}

// ParseReaderAt extracts cart items from an in-memory or seekable ZIP
// payload. The size ceiling is enforced before the directory is read.
func ParseReaderAt(ra io.ReaderAt, size int64, opts Options) ([]product.Record, error) {
	if size > MaxArchiveBytes {
		return nil, ErrArchiveTooLarge
	}
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}
	return ParseReader(zr, opts), nil
}

// ParseReader scans the archive directory for cart-item entries, parses
// each one, and returns the deduplicated records in archive listing order.
// Unreadable or unparseable entries are skipped; they never fail the pass.
func ParseReader(zr *zip.Reader, opts Options) []product.Record {
	opts.fill()

	var all []product.Record
	matched := 0
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() || !isCartEntry(entry.Name) {
			continue
		}
		matched++
		content, err := readEntry(entry)
		if err != nil {
			log.Warn().Err(err).Str("entry", entry.Name).Msg("unreadable archive entry; skipping")
			continue
		}
		parsed := parseEntry(entry.Name, content, opts)
		if opts.Debug {
			log.Debug().Str("entry", entry.Name).Int("records", len(parsed)).Msg("parsed archive entry")
		}
		all = append(all, parsed...)
	}
	if matched == 0 {
		log.Warn().Msg("no cart-item entries found in archive")
	}
	return product.DedupeByASIN(all)
}

// isCartEntry reports whether the entry path names a cart dump. Matching is
// deliberately loose: any path containing the Retail.CartItems marker, or
// just "cartitems", qualifies.
func isCartEntry(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "retail.cartitems") || strings.Contains(lower, "cartitems")
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// parseEntry dispatches on the entry extension. Unknown extensions try the
// formats in order and accept the first strategy that yields records.
func parseEntry(name string, content []byte, opts Options) []product.Record {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".jsonl", ".ndjson":
		return parseJSON(content, opts)
	case ".csv":
		return parseCSV(content, opts)
	default:
		if records := parseJSON(content, opts); len(records) > 0 {
			return records
		}
		return parseCSV(content, opts)
	}
}

// parseJSON tries a whole-document parse first and falls back to
// newline-delimited objects. A non-array top level is resolved to its first
// array-valued property, or treated as a single-element array.
func parseJSON(content []byte, opts Options) []product.Record {
	var top any
	if err := json.Unmarshal(content, &top); err != nil {
		return parseNDJSON(content, opts)
	}

	var items []any
	switch v := top.(type) {
	case []any:
		items = v
	case map[string]any:
		items = firstArrayProperty(v)
		if items == nil {
			items = []any{v}
		}
	default:
		return nil
	}

	var out []product.Record
	for _, item := range items {
		if rec, ok := normalizeCandidate(item, opts); ok {
			out = append(out, rec)
		}
	}
	return out
}

// firstArrayProperty returns the first array-valued property, scanning keys
// in sorted order so the choice is deterministic.
func firstArrayProperty(obj map[string]any) []any {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if arr, ok := obj[k].([]any); ok {
			return arr
		}
	}
	return nil
}

func parseNDJSON(content []byte, opts Options) []product.Record {
	var out []product.Record
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if !strings.HasPrefix(line, "{") || !strings.HasSuffix(line, "}") {
			continue
		}
		var obj any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			continue
		}
		if rec, ok := normalizeCandidate(obj, opts); ok {
			out = append(out, rec)
		}
	}
	return out
}

// normalizeCandidate maps one raw JSON object onto a Record. Nested item/
// product sub-objects are shallow-merged with the sub-object winning on key
// collisions (an accepted heuristic carried over from the export formats
// observed in the wild). Candidates lacking an ASIN or a title are dropped.
func normalizeCandidate(raw any, opts Options) (product.Record, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return product.Record{}, false
	}
	obj = flatten(obj, "item")
	obj = flatten(obj, "product")

	asin := strings.TrimSpace(asString(pick(obj, opts.ASINKeys)))
	title := strings.TrimSpace(asString(pick(obj, opts.TitleKeys)))
	if asin == "" || title == "" {
		return product.Record{}, false
	}
	return product.Record{
		ASIN:  asin,
		Title: title,
		Price: normalize.CoercePrice(pick(obj, opts.PriceKeys)),
	}, true
}

func flatten(obj map[string]any, key string) map[string]any {
	nested, ok := obj[key].(map[string]any)
	if !ok {
		return obj
	}
	merged := make(map[string]any, len(obj)+len(nested))
	for k, v := range obj {
		merged[k] = v
	}
	for k, v := range nested {
		merged[k] = v
	}
	return merged
}

func pick(obj map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return ""
	}
}

// parseCSV reads a header-first CSV. Columns are matched by
// case-insensitive pattern against canonical field names. Rows without an
// ASIN are skipped; rows without a title get the ASIN as a degraded
// placeholder title. Malformed rows are skipped silently.
func parseCSV(content []byte, opts Options) []product.Record {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	asinIdx := findColumn(header, asinHeaderRe)
	titleIdx := findColumn(header, titleHeaderRe)
	priceIdx := findColumn(header, priceHeaderRe)
	if asinIdx < 0 {
		return nil
	}

	var out []product.Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		asin := strings.TrimSpace(cell(row, asinIdx))
		if asin == "" {
			continue
		}
		title := strings.TrimSpace(cell(row, titleIdx))
		degraded := false
		if title == "" {
			title = asin
			degraded = true
		}
		out = append(out, product.Record{
			ASIN:     asin,
			Title:    title,
			Price:    normalize.CoercePrice(cell(row, priceIdx)),
			Degraded: degraded,
		})
	}
	return out
}

func findColumn(header []string, re *regexp.Regexp) int {
	for i, h := range header {
		if re.MatchString(strings.TrimSpace(h)) {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
