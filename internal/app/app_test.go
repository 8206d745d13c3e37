package app

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cartledger/cartledger/internal/store"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const cartHTML = `
<html><body>
<div data-asin="B01" data-price="10">
  <a class="sc-product-link sc-product-title" href="/dp/B01">First item</a>
</div>
<div data-asin="B02">
  <span class="sc-product-title">Second item</span>
  <span class="a-price"><span class="a-offscreen">$2.50</span></span>
</div>
</body></html>`

func TestRun_HTMLImportPersistsWithPositions(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		HTMLPath: writeFile(t, dir, "cart.html", cartHTML),
		DBPath:   filepath.Join(dir, "cart.db"),
	}

	a := New(cfg)
	var out bytes.Buffer
	a.SetOutput(&out)
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	a.Close()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer st.Close()
	records, err := st.GetAll(context.Background())
	if err != nil {
		t.Fatalf("getAll: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ASIN != "B01" || records[0].Position == nil || *records[0].Position != 0 {
		t.Fatalf("expected document-order positions, got %+v", records[0])
	}
	if records[1].Price != 2.5 {
		t.Fatalf("expected visible price for second item, got %v", records[1].Price)
	}
	if !strings.Contains(out.String(), "First item") {
		t.Fatalf("listing output missing item: %q", out.String())
	}
}

func TestRun_TakeoutThenExportAndRestore(t *testing.T) {
	dir := t.TempDir()

	// Build a small takeout archive on disk.
	zipPath := filepath.Join(dir, "takeout.zip")
	f, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	w, _ := zw.Create("Retail.CartItems.1/data.json")
	_, _ = w.Write([]byte(`[{"asin":"Z1","title":"Zip item","price":"$7.00"}]`))
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	f.Close()

	exportPath := filepath.Join(dir, "backup.json")
	cfg := Config{
		TakeoutPath: zipPath,
		DBPath:      filepath.Join(dir, "a.db"),
		ExportPath:  exportPath,
	}
	a := New(cfg)
	a.SetOutput(&bytes.Buffer{})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run import+export: %v", err)
	}
	a.Close()

	// Restore the backup into a fresh database in replace mode.
	cfg2 := Config{
		ImportPath: exportPath,
		ImportMode: "replace",
		DBPath:     filepath.Join(dir, "b.db"),
	}
	b := New(cfg2)
	b.SetOutput(&bytes.Buffer{})
	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("run restore: %v", err)
	}
	b.Close()

	st, err := store.Open(cfg2.DBPath)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer st.Close()
	records, err := st.GetAll(context.Background())
	if err != nil {
		t.Fatalf("getAll: %v", err)
	}
	if len(records) != 1 || records[0].ASIN != "Z1" || records[0].Price != 7 {
		t.Fatalf("restore mismatch: %+v", records)
	}
}

func TestRun_ListSaveAndUse(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "cart.db")
	html := writeFile(t, dir, "cart.html", cartHTML)

	a := New(Config{HTMLPath: html, DBPath: db, ListSave: "all"})
	a.SetOutput(&bytes.Buffer{})
	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("run save: %v", err)
	}
	a.Close()

	var out bytes.Buffer
	b := New(Config{DBPath: db, ListUse: "all"})
	b.SetOutput(&out)
	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("run use: %v", err)
	}
	b.Close()

	if !strings.Contains(out.String(), "selected 2 items, total 12.50") {
		t.Fatalf("expected selection total in output, got %q", out.String())
	}
}

func TestLoadConfigFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
db: /tmp/cart.db
language: en
sort:
  key: price
  dir: desc
takeout:
  asinKeys: [sku]
verbose: true
`)
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fc.DB != "/tmp/cart.db" || fc.Sort.Key != "price" || fc.Sort.Dir != "desc" {
		t.Fatalf("unexpected config: %+v", fc)
	}
	if len(fc.Takeout.ASINKeys) != 1 || fc.Takeout.ASINKeys[0] != "sku" {
		t.Fatalf("unexpected takeout keys: %+v", fc.Takeout)
	}
	if !fc.Verbose {
		t.Fatalf("expected verbose true")
	}
}

func TestApplyFileConfig_FlagsWin(t *testing.T) {
	cfg := Config{DBPath: "flag.db", SortKey: "title"}
	var fc FileConfig
	fc.DB = "file.db"
	fc.Sort.Key = "price"
	fc.Sort.Dir = "desc"
	fc.Language = "fi"

	ApplyFileConfig(&cfg, fc)
	if cfg.DBPath != "flag.db" {
		t.Fatalf("flag value must win, got %q", cfg.DBPath)
	}
	if cfg.SortKey != "title" {
		t.Fatalf("flag sort key must win, got %q", cfg.SortKey)
	}
	if cfg.SortDir != "desc" || cfg.Language != "fi" {
		t.Fatalf("unset fields should come from the file: %+v", cfg)
	}
}
