package export

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"tripclean/internal/pipeline"
	"tripclean/internal/trip"
)

// WriteWorkbook writes the cleaned dataset and the audit summary as one
// XLSX workbook: a "trips" sheet with the full output schema and an
// "audit" sheet with the per-stage counts.
func WriteWorkbook(path string, records []trip.Record, audit pipeline.Audit, timeLayout string, logger *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const tripsSheet = "trips"
	if err := f.SetSheetName("Sheet1", tripsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	// Stream rows: monthly datasets run into the millions.
	sw, err := f.NewStreamWriter(tripsSheet)
	if err != nil {
		return fmt.Errorf("create stream writer: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	cw := NewCSVWriter(timeLayout, false, logger)
	for i := range records {
		cells := cw.Row(&records[i])
		row := make([]interface{}, len(cells))
		for j, c := range cells {
			row[j] = c
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush trips sheet: %w", err)
	}

	if err := writeAuditSheet(f, audit); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	logger.Info("workbook written", "path", path, "rows", len(records))
	return nil
}

func writeAuditSheet(f *excelize.File, audit pipeline.Audit) error {
	const sheet = "audit"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create audit sheet: %w", err)
	}

	rows := [][]interface{}{
		{"run_id", audit.RunID},
		{"started_at", audit.StartedAt.Format("2006-01-02 15:04:05")},
		{"finished_at", audit.FinishedAt.Format("2006-01-02 15:04:05")},
		{"rows_read", audit.RowsRead},
		{"parse_skipped", audit.ParseSkipped},
		{"dedup_dropped", audit.DedupDropped},
		{"temporal_dropped", audit.TemporalDropped},
		{"completeness_dropped", audit.CompletenessDropped},
		{"bounds_dropped", audit.BoundsDropped},
		{"nonpositive_dropped", audit.NonpositiveDropped},
		{"outlier_dropped", audit.OutlierDropped},
		{"rows_out", audit.RowsOut},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write audit row %d: %w", i, err)
		}
	}
	return nil
}
