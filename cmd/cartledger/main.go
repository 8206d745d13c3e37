package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cartledger/cartledger/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		configPath string
		cfg        app.Config
	)

	flag.StringVar(&cfg.HTMLPath, "html", "", "Path to a saved cart / saved-for-later HTML page to import")
	flag.StringVar(&cfg.TakeoutPath, "takeout", "", "Path to an Amazon Takeout ZIP (Retail.CartItems.*) to import")
	flag.StringVar(&cfg.ExportPath, "export", "", "Write a JSON backup (products, lists, selection) to this path")
	flag.StringVar(&cfg.ImportPath, "import", "", "Restore a JSON backup from this path")
	flag.StringVar(&cfg.ImportMode, "import.mode", "merge", "Restore mode: merge or replace")
	flag.StringVar(&cfg.ReportPath, "report", "", "Write a PDF report of the current view to this path")
	flag.StringVar(&cfg.SortKey, "sort.key", "", "Sort key: position, title, or price (default position)")
	flag.StringVar(&cfg.SortDir, "sort.dir", "", "Sort direction: asc or desc (default asc)")
	flag.StringVar(&cfg.Filter, "filter", "", "Title substring filter; leading/trailing spaces are significant")
	flag.StringVar(&cfg.Language, "lang", "", "Optional language hint for title collation, e.g. 'en' or 'fi'")
	flag.StringVar(&cfg.ListSave, "list.save", "", "Save the current view as a named selection list")
	flag.StringVar(&cfg.ListDelete, "list.delete", "", "Delete a named selection list")
	flag.StringVar(&cfg.ListUse, "list.use", "", "Use a named selection list for totals and the report")
	flag.StringVar(&cfg.DBPath, "db", "cartledger.db", "SQLite database path")
	flag.BoolVar(&cfg.ClearAll, "clear", false, "Clear all cached products before other actions")
	flag.StringVar(&configPath, "config", "", "Optional YAML or JSON config file")
	flag.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")
	flag.BoolVar(&cfg.DebugExtract, "debug-extract", false, "Log per-container/per-entry extraction diagnostics")
	flag.Parse()

	if configPath != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("config", configPath).Msg("load config file failed")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc)
	}

	if cfg.Verbose || cfg.DebugExtract {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	a := app.New(cfg)
	defer a.Close()

	if err := a.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}
