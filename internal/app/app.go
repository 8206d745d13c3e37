// Package app wires the extractors, the store, and the output paths into
// one invocation: import whatever sources were given, reconcile them into
// the canonical set, then render the requested views.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"github.com/cartledger/cartledger/internal/exchange"
	"github.com/cartledger/cartledger/internal/htmlcart"
	"github.com/cartledger/cartledger/internal/product"
	"github.com/cartledger/cartledger/internal/report"
	"github.com/cartledger/cartledger/internal/store"
	"github.com/cartledger/cartledger/internal/takeout"
)

type App struct {
	cfg Config
	st  exchange.Store
	out io.Writer

	closeStore func() error
}

// New opens the configured store. When persistence is unavailable the app
// degrades to an empty in-memory state rather than failing: extraction and
// listing still work, the results just do not survive the invocation.
func New(cfg Config) *App {
	a := &App{cfg: cfg, out: os.Stdout}
	s, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Warn().Err(err).Str("db", cfg.DBPath).Msg("store unavailable; using in-memory state for this run")
		a.st = newMemStore()
		return a
	}
	a.st = s
	a.closeStore = s.Close
	return a
}

// SetOutput redirects listing output, used by tests.
func (a *App) SetOutput(w io.Writer) { a.out = w }

func (a *App) Close() {
	if a.closeStore != nil {
		if err := a.closeStore(); err != nil {
			log.Warn().Err(err).Msg("closing store")
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	if a.cfg.ClearAll {
		if err := a.st.Clear(ctx); err != nil {
			return fmt.Errorf("clear products: %w", err)
		}
		log.Info().Msg("cleared cached products")
	}

	if a.cfg.ImportPath != "" {
		if err := a.restore(ctx); err != nil {
			return err
		}
	}
	if a.cfg.HTMLPath != "" {
		if err := a.importHTML(ctx); err != nil {
			return err
		}
	}
	if a.cfg.TakeoutPath != "" {
		if err := a.importTakeout(ctx); err != nil {
			return err
		}
	}
	if a.cfg.ListDelete != "" {
		if err := a.st.DeleteList(ctx, a.cfg.ListDelete); err != nil {
			return fmt.Errorf("delete list %s: %w", a.cfg.ListDelete, err)
		}
		log.Info().Str("list", a.cfg.ListDelete).Msg("deleted list")
	}

	records, err := a.st.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	view := product.Sort(records, a.sortConfig())
	view = product.FilterByTitle(view, a.cfg.Filter)

	if a.cfg.ListSave != "" {
		ids := make([]string, 0, len(view))
		for _, r := range view {
			ids = append(ids, r.ASIN)
		}
		if err := a.st.SaveList(ctx, a.cfg.ListSave, ids); err != nil {
			return fmt.Errorf("save list %s: %w", a.cfg.ListSave, err)
		}
		log.Info().Str("list", a.cfg.ListSave).Int("items", len(ids)).Msg("saved list")
	}

	selection, err := a.selection(ctx)
	if err != nil {
		return err
	}

	if a.cfg.ExportPath != "" {
		if err := a.export(ctx, selection); err != nil {
			return err
		}
	}
	if a.cfg.ReportPath != "" {
		if err := report.WritePDF(view, selection, a.cfg.ReportPath); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		log.Info().Str("out", a.cfg.ReportPath).Msg("wrote PDF report")
	}

	a.printTable(view, selection)
	return nil
}

func (a *App) sortConfig() product.SortConfig {
	cfg := product.SortConfig{
		Key:  product.SortKey(a.cfg.SortKey),
		Dir:  product.Direction(a.cfg.SortDir),
		Lang: language.Make(a.cfg.Language),
	}
	if cfg.Key == "" {
		cfg.Key = product.ByPosition
	}
	if cfg.Dir == "" {
		cfg.Dir = product.Asc
	}
	return cfg
}

// importHTML extracts records from a saved cart page, stamps them with
// their source-document order, and upserts the batch.
func (a *App) importHTML(ctx context.Context) error {
	f, err := os.Open(a.cfg.HTMLPath)
	if err != nil {
		return fmt.Errorf("open html: %w", err)
	}
	defer f.Close()

	records, err := htmlcart.Parse(f, htmlcart.Options{Debug: a.cfg.DebugExtract})
	if err != nil {
		return fmt.Errorf("parse html cart: %w", err)
	}
	if len(records) == 0 {
		log.Warn().Str("file", a.cfg.HTMLPath).Msg("no products found in HTML document")
		return nil
	}
	assignPositions(records)
	if err := a.st.Upsert(ctx, records); err != nil {
		return fmt.Errorf("store html import: %w", err)
	}
	log.Info().Int("count", len(records)).Str("file", a.cfg.HTMLPath).Msg("imported products from HTML")
	return nil
}

func (a *App) importTakeout(ctx context.Context) error {
	records, err := takeout.ParseFile(a.cfg.TakeoutPath, takeout.Options{
		Debug:     a.cfg.DebugExtract,
		ASINKeys:  a.cfg.TakeoutASINKeys,
		TitleKeys: a.cfg.TakeoutTitleKeys,
		PriceKeys: a.cfg.TakeoutPriceKeys,
	})
	if err != nil {
		if errors.Is(err, takeout.ErrArchiveTooLarge) {
			return fmt.Errorf("takeout archive %s is too large to process: %w", a.cfg.TakeoutPath, err)
		}
		return fmt.Errorf("parse takeout archive: %w", err)
	}
	if len(records) == 0 {
		log.Warn().Str("file", a.cfg.TakeoutPath).Msg("no cart items found in takeout archive")
		return nil
	}
	assignPositions(records)
	if err := a.st.Upsert(ctx, records); err != nil {
		return fmt.Errorf("store takeout import: %w", err)
	}
	log.Info().Int("count", len(records)).Str("file", a.cfg.TakeoutPath).Msg("imported products from takeout archive")
	return nil
}

func assignPositions(records []product.Record) {
	for i := range records {
		records[i].Position = product.Pos(i)
	}
}

func (a *App) restore(ctx context.Context) error {
	f, err := os.Open(a.cfg.ImportPath)
	if err != nil {
		return fmt.Errorf("open exchange file: %w", err)
	}
	defer f.Close()

	doc, err := exchange.Read(f)
	if err != nil {
		return fmt.Errorf("read exchange file: %w", err)
	}
	mode := exchange.Mode(a.cfg.ImportMode)
	if mode != exchange.Replace {
		mode = exchange.Merge
	}
	if err := exchange.Import(ctx, a.st, doc, mode); err != nil {
		return fmt.Errorf("import exchange file: %w", err)
	}
	log.Info().Int("products", len(doc.Products)).Int("lists", len(doc.Lists)).Str("mode", string(mode)).Msg("restored backup")
	return nil
}

func (a *App) export(ctx context.Context, selection []string) error {
	doc, err := exchange.Export(ctx, a.st, selection)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	f, err := os.Create(a.cfg.ExportPath)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()
	if err := exchange.Write(f, doc); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	log.Info().Str("out", a.cfg.ExportPath).Int("products", len(doc.Products)).Msg("wrote backup")
	return nil
}

// selection resolves the active named list, if any, into a set of ASINs.
func (a *App) selection(ctx context.Context) ([]string, error) {
	if a.cfg.ListUse == "" {
		return nil, nil
	}
	lists, err := a.st.Lists(ctx)
	if err != nil {
		return nil, fmt.Errorf("load lists: %w", err)
	}
	for _, l := range lists {
		if l.Name == a.cfg.ListUse {
			return l.IDs, nil
		}
	}
	log.Warn().Str("list", a.cfg.ListUse).Msg("named list not found; continuing without a selection")
	return nil, nil
}

func (a *App) printTable(view []product.Record, selection []string) {
	w := tabwriter.NewWriter(a.out, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tASIN\tTITLE\tPRICE\tIMAGE")
	for _, r := range view {
		pos := "-"
		if r.Position != nil {
			pos = fmt.Sprintf("%d", *r.Position)
		}
		title := r.Title
		if r.Degraded {
			title += " [asin-only]"
		}
		img := "-"
		if r.Image != "" {
			img = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\n", pos, r.ASIN, title, r.Price, img)
	}
	w.Flush()

	if len(selection) > 0 {
		fmt.Fprintf(a.out, "\nselected %d items, total %.2f\n", len(selection), product.SelectionTotal(view, selection))
		return
	}
	var total float64
	for _, r := range view {
		total += r.Price
	}
	fmt.Fprintf(a.out, "\n%d items, total %.2f\n", len(view), total)
}
