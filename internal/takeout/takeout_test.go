package takeout

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

func buildZip(t *testing.T, names []string, contents map[string]string) *zip.Reader {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(contents[name])); err != nil {
			t.Fatalf("write entry %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("reopen zip: %v", err)
	}
	return zr
}

func one(t *testing.T, name, content string) *zip.Reader {
	t.Helper()
	return buildZip(t, []string{name}, map[string]string{name: content})
}

func TestParseReader_JSONEntryWithDuplicate(t *testing.T) {
	zr := one(t, "Retail.CartItems.1/data.json",
		`[{"asin":"A1","title":"Widget","price":"$5.00"}, {"asin":"A1","title":"Dup"}]`)
	records := ParseReader(zr, Options{})
	if len(records) != 1 {
		t.Fatalf("expected exactly 1 record after dedupe, got %d", len(records))
	}
	r := records[0]
	if r.ASIN != "A1" || r.Title != "Widget" || r.Price != 5 {
		t.Fatalf("unexpected record: %+v", r)
	}
}

func TestParseReader_ObjectWrappedArray(t *testing.T) {
	zr := one(t, "Retail.CartItems.2/cartItems.json",
		`{"meta":"x","items":[{"asin":"A2","title":"Boxed"}]}`)
	records := ParseReader(zr, Options{})
	if len(records) != 1 || records[0].ASIN != "A2" {
		t.Fatalf("expected record from wrapped array, got %+v", records)
	}
}

func TestParseReader_SingleObjectTreatedAsOneElementArray(t *testing.T) {
	zr := one(t, "export/CartItems/one.json", `{"asin":"A3","title":"Solo","price":3}`)
	records := ParseReader(zr, Options{})
	if len(records) != 1 || records[0].ASIN != "A3" || records[0].Price != 3 {
		t.Fatalf("expected single-object record, got %+v", records)
	}
}

func TestParseReader_NDJSONFallback(t *testing.T) {
	content := `garbage first line
{"asin":"N1","title":"Line one","price":"1.50"}
{broken json line}
{"asin":"N2","title":"Line two"}`
	zr := one(t, "Retail.CartItems.1/dump.ndjson", content)
	records := ParseReader(zr, Options{})
	if len(records) != 2 {
		t.Fatalf("expected 2 NDJSON records, got %d: %+v", len(records), records)
	}
	if records[0].ASIN != "N1" || records[0].Price != 1.5 || records[1].ASIN != "N2" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestParseReader_NestedItemFlattened(t *testing.T) {
	zr := one(t, "cartitems.json",
		`[{"item":{"asin":"F1","title":"Nested"},"price":"$2.00"}]`)
	records := ParseReader(zr, Options{})
	if len(records) != 1 || records[0].ASIN != "F1" || records[0].Price != 2 {
		t.Fatalf("expected flattened nested item, got %+v", records)
	}
}

func TestParseReader_CSVWithFullHeader(t *testing.T) {
	csv := "ASIN,Product Title,Unit Price\nC1,\"Cable, braided\",$12.00\n,headless row,1\nC2,,\n"
	zr := one(t, "Retail.CartItems.1/items.csv", csv)
	records := ParseReader(zr, Options{})
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d: %+v", len(records), records)
	}
	if records[0].Title != "Cable, braided" || records[0].Price != 12 {
		t.Fatalf("quoted CSV cell mishandled: %+v", records[0])
	}
	// Row without a title degrades to the ASIN placeholder.
	if records[1].ASIN != "C2" || records[1].Title != "C2" || !records[1].Degraded {
		t.Fatalf("expected degraded ASIN-only record, got %+v", records[1])
	}
}

func TestParseReader_CSVASINOnlyColumn(t *testing.T) {
	csv := "asin\nD1\nD2\n"
	zr := one(t, "Retail.CartItems.3/asins.csv", csv)
	records := ParseReader(zr, Options{})
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, r := range records {
		if r.Title != r.ASIN || r.Price != 0 || !r.Degraded {
			t.Fatalf("expected degraded record with ASIN title and price 0, got %+v", r)
		}
	}
}

func TestParseReader_TxtTriesJSONThenCSV(t *testing.T) {
	csv := "asin,title\nT1,From txt\n"
	zr := one(t, "Retail.CartItems.1/dump.txt", csv)
	records := ParseReader(zr, Options{})
	if len(records) != 1 || records[0].ASIN != "T1" || records[0].Title != "From txt" {
		t.Fatalf("expected CSV fallback for txt entry, got %+v", records)
	}
}

func TestParseReader_IgnoresUnrelatedEntries(t *testing.T) {
	names := []string{
		"Retail.OrderHistory.1/orders.csv",
		"Retail.CartItems.1/data.json",
	}
	zr := buildZip(t, names, map[string]string{
		"Retail.OrderHistory.1/orders.csv": "asin,title\nX1,should not appear\n",
		"Retail.CartItems.1/data.json":     `[{"asin":"K1","title":"Kept"}]`,
	})
	records := ParseReader(zr, Options{})
	if len(records) != 1 || records[0].ASIN != "K1" {
		t.Fatalf("expected only cart entries to be scanned, got %+v", records)
	}
}

func TestParseReader_DedupeAcrossEntriesKeepsFirstInListingOrder(t *testing.T) {
	names := []string{
		"Retail.CartItems.1/a.json",
		"Retail.CartItems.2/b.json",
	}
	zr := buildZip(t, names, map[string]string{
		"Retail.CartItems.1/a.json": `[{"asin":"S1","title":"First file"}]`,
		"Retail.CartItems.2/b.json": `[{"asin":"S1","title":"Second file"},{"asin":"S2","title":"New"}]`,
	})
	records := ParseReader(zr, Options{})
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Title != "First file" {
		t.Fatalf("first occurrence should win across entries, got %+v", records[0])
	}
}

func TestParseReader_MalformedEntryYieldsNothing(t *testing.T) {
	zr := one(t, "Retail.CartItems.1/broken.json", `{"this": "has", "no": "cart data"`)
	records := ParseReader(zr, Options{})
	if len(records) != 0 {
		t.Fatalf("expected no records from malformed entry, got %+v", records)
	}
}

func TestParseReaderAt_SizeCeiling(t *testing.T) {
	_, err := ParseReaderAt(bytes.NewReader(nil), MaxArchiveBytes+1, Options{})
	if !errors.Is(err, ErrArchiveTooLarge) {
		t.Fatalf("expected ErrArchiveTooLarge, got %v", err)
	}
}

func TestParseReader_CustomKeyCandidates(t *testing.T) {
	zr := one(t, "cartitems.json", `[{"sku":"Z1","label":"Custom keys"}]`)
	records := ParseReader(zr, Options{
		ASINKeys:  []string{"sku"},
		TitleKeys: []string{"label"},
	})
	if len(records) != 1 || records[0].ASIN != "Z1" || records[0].Title != "Custom keys" {
		t.Fatalf("expected custom key candidates to apply, got %+v", records)
	}
}
