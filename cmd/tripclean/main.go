package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"tripclean/internal/config"
	"tripclean/internal/export"
	"tripclean/internal/fetch"
	"tripclean/internal/geo"
	"tripclean/internal/holiday"
	"tripclean/internal/ingest"
	"tripclean/internal/pipeline"
	"tripclean/internal/storage"
	"tripclean/internal/trip"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// CLI flags
	fetchOnly := flag.Bool("fetch", false, "Download trip archives and boundary file, then exit")
	months := flag.String("months", "", "Limit months: '1-3' or '1,7,12' (default all)")
	flag.IntVar(&cfg.Year, "year", cfg.Year, "Dataset year")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory for monthly archives and boundary file")
	flag.StringVar(&cfg.OutDir, "out-dir", cfg.OutDir, "Directory for cleaned dataset and audit report")
	flag.StringVar(&cfg.BoundaryFile, "boundary", cfg.BoundaryFile, "Service-area boundary GeoJSON file")
	flag.StringVar(&cfg.BBox, "bbox", cfg.BBox, "Service-area box: minLat,minLng,maxLat,maxLng")
	flag.StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "Also write cleaned trips to this SQLite file")
	flag.StringVar(&cfg.XLSXPath, "xlsx", cfg.XLSXPath, "Also write an XLSX workbook to this path")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Parallel file parse workers")
	flag.BoolVar(&cfg.Overwrite, "overwrite", cfg.Overwrite, "Re-download archives that already exist")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flag.Parse()

	logger := newLogger(cfg.LogLevel)

	if *months != "" {
		ms, err := config.ParseMonths(*months)
		if err != nil {
			logger.Error("invalid months flag", "error", err)
			os.Exit(1)
		}
		cfg.Months = ms
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *fetchOnly {
		if err := runFetch(ctx, cfg, logger); err != nil {
			logger.Error("fetch failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := runClean(ctx, cfg, logger); err != nil {
		logger.Error("cleaning run failed", "error", err)
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func runFetch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	dl := fetch.NewDownloader(cfg.BaseURL, cfg.ArchiveSlug, cfg.DataDir, logger)

	if _, err := dl.FetchMonths(ctx, cfg.Year, cfg.Months, cfg.Overwrite, cfg.FetchWorkers); err != nil {
		return err
	}
	if cfg.BoundaryURL != "" {
		dest := cfg.BoundaryFile
		if dest == "" {
			dest = "boundary.geojson"
		}
		if _, err := dl.FetchBoundary(ctx, cfg.BoundaryURL, dest, cfg.Overwrite); err != nil {
			return err
		}
	}
	logger.Info("fetch complete", "months", len(cfg.Months), "dir", cfg.DataDir)
	return nil
}

func runClean(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	inputs, err := discoverInputs(cfg, logger)
	if err != nil {
		return err
	}

	region, err := buildRegion(cfg)
	if err != nil {
		return err
	}

	holidays, err := buildHolidays(ctx, cfg, logger)
	if err != nil {
		return err
	}

	reader := ingest.NewReader(ingest.Options{
		Comma:     cfg.Delimiter,
		HasHeader: cfg.HasHeader,
		Encoding:  cfg.Encoding,

		TimeLayout: cfg.TimeLayout,
		Location:   cfg.Location(),
		Workers:    cfg.Workers,
	}, logger)

	parsed, err := reader.ReadAll(ctx, inputs)
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.Config{
		Region:        region,
		Holidays:      holidays,
		MorningStart:  cfg.MorningStart,
		DaytimeStart:  cfg.DaytimeStart,
		EveningStart:  cfg.EveningStart,
		NightStart:    cfg.NightStart,
		IQRMultiplier: cfg.IQRMultiplier,
	}, logger)

	result := p.Run(parsed)

	csvPath := filepath.Join(cfg.OutDir, cfg.CSVName)
	writer := export.NewCSVWriter(cfg.TimeLayout, cfg.CSVBOM, logger)
	if err := writer.Write(csvPath, result.Records); err != nil {
		return err
	}

	auditPath := filepath.Join(cfg.OutDir, cfg.AuditName)
	if err := export.WriteAuditReport(auditPath, result.Audit, logger); err != nil {
		return err
	}

	if cfg.XLSXPath != "" {
		if err := export.WriteWorkbook(cfg.XLSXPath, result.Records, result.Audit, cfg.TimeLayout, logger); err != nil {
			return err
		}
	}

	if cfg.SQLitePath != "" {
		if err := writeSQLite(ctx, cfg.SQLitePath, result.Audit, result.Records, logger); err != nil {
			return err
		}
	}

	logger.Info("done",
		"rows_in", result.Audit.RowsRead,
		"rows_out", result.Audit.RowsOut,
		"dropped", result.Audit.Dropped(),
		"parse_skipped", result.Audit.ParseSkipped,
		"output", csvPath,
	)
	return nil
}

// writeSQLite saves the run to the SQLite sink and logs what the database
// now holds, including the run that was replaced.
func writeSQLite(ctx context.Context, path string, audit pipeline.Audit, records []trip.Record, logger *slog.Logger) error {
	db, err := storage.Open(path, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	prev, err := db.LastRun(ctx)
	if err != nil {
		return err
	}
	if err := db.SaveRun(ctx, audit, records); err != nil {
		return err
	}
	stored, err := db.TripCount(ctx)
	if err != nil {
		return err
	}

	if prev != nil {
		logger.Info("sqlite sink updated",
			"path", path,
			"trips", stored,
			"replaced_run", prev.RunID,
			"replaced_rows_out", prev.RowsOut,
		)
	} else {
		logger.Info("sqlite sink updated", "path", path, "trips", stored)
	}
	return nil
}

// discoverInputs resolves the monthly input files in the data directory.
// For each configured month a plain CSV is preferred over the original
// zip archive. At least one month must be present.
func discoverInputs(cfg *config.Config, logger *slog.Logger) ([]string, error) {
	var inputs []string
	var missing []string
	for _, m := range cfg.Months {
		base := fmt.Sprintf("%04d%02d-%s", cfg.Year, int(m), cfg.ArchiveSlug)
		csvPath := filepath.Join(cfg.DataDir, base+".csv")
		zipPath := filepath.Join(cfg.DataDir, base+".zip")
		switch {
		case fileExists(csvPath):
			inputs = append(inputs, csvPath)
		case fileExists(zipPath):
			inputs = append(inputs, zipPath)
		default:
			missing = append(missing, base)
		}
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no input files for year %d in %s (run with -fetch first)", cfg.Year, cfg.DataDir)
	}
	if len(missing) > 0 {
		logger.Warn("some months are missing", "missing", strings.Join(missing, ", "))
	}
	return inputs, nil
}

func buildRegion(cfg *config.Config) (geo.Region, error) {
	if cfg.BoundaryFile != "" {
		path := cfg.BoundaryFile
		if !filepath.IsAbs(path) && !fileExists(path) {
			path = filepath.Join(cfg.DataDir, path)
		}
		return geo.LoadGeoJSON(path)
	}
	if cfg.BBox != "" {
		b, err := cfg.ParseBBox()
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, nil
}

func buildHolidays(ctx context.Context, cfg *config.Config, logger *slog.Logger) (holiday.Source, error) {
	if cfg.HolidayFile != "" {
		cal, err := holiday.LoadFile(cfg.HolidayFile)
		if err != nil {
			return nil, err
		}
		logger.Info("holiday calendar loaded", "file", cfg.HolidayFile, "dates", len(cal))
		return cal, nil
	}
	if cfg.HolidayCountry != "" {
		client := holiday.NewClient(cfg.HolidayAPIBase)
		cal, err := client.Fetch(ctx, cfg.Year, cfg.HolidayCountry)
		if err != nil {
			return nil, fmt.Errorf("fetch holidays: %w", err)
		}
		logger.Info("holiday calendar fetched", "country", cfg.HolidayCountry, "dates", len(cal))
		return cal, nil
	}
	return holiday.None, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
