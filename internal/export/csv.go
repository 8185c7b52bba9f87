// Package export writes the cleaned dataset and its audit report in the
// formats downstream BI tools consume: CSV, JSON, XLSX and (via the
// storage package) SQLite.
package export

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"tripclean/internal/trip"
)

// Columns is the output schema: the raw columns followed by the derived
// ones.
var Columns = []string{
	"ride_id", "rideable_type", "started_at", "ended_at",
	"start_station_name", "start_station_id", "end_station_name", "end_station_id",
	"start_lat", "start_lng", "end_lat", "end_lng", "member_casual",
	"duration_seconds", "distance_meters", "speed_mps",
	"month", "day_of_week", "time_of_day", "is_holiday", "holiday_name",
}

// CSVWriter writes cleaned trip records as CSV.
type CSVWriter struct {
	timeLayout string
	bom        bool // UTF-8 BOM prefix, helps Excel recognize the encoding
	logger     *slog.Logger
}

// NewCSVWriter creates a CSVWriter. Pass "" for the default time layout.
func NewCSVWriter(timeLayout string, bom bool, logger *slog.Logger) *CSVWriter {
	if timeLayout == "" {
		timeLayout = trip.DefaultTimeLayout
	}
	return &CSVWriter{timeLayout: timeLayout, bom: bom, logger: logger}
}

// Write writes all records to path, creating parent directories as needed.
func (w *CSVWriter) Write(path string, records []trip.Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	if w.bom {
		if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("write BOM: %w", err)
		}
	}

	cw := csv.NewWriter(f)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := range records {
		if err := cw.Write(w.Row(&records[i])); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	w.logger.Info("cleaned dataset written", "path", path, "rows", len(records))
	return nil
}

// Row renders one record in Columns order.
func (w *CSVWriter) Row(r *trip.Record) []string {
	endLat, endLng := "", ""
	if r.End.HasCoords {
		endLat = formatFloat(r.End.Lat)
		endLng = formatFloat(r.End.Lng)
	}
	return []string{
		r.ID,
		string(r.BikeType),
		r.StartedAt.Format(w.timeLayout),
		r.EndedAt.Format(w.timeLayout),
		r.Start.Name, r.Start.ID, r.End.Name, r.End.ID,
		formatFloat(r.Start.Lat), formatFloat(r.Start.Lng), endLat, endLng,
		string(r.UserType),
		formatFloat(r.DurationSeconds),
		formatFloat(r.DistanceMeters),
		formatFloat(r.SpeedMPS),
		strconv.Itoa(int(r.Month)),
		strings.ToLower(r.DayOfWeek.String()),
		string(r.TimeOfDay),
		strconv.FormatBool(r.IsHoliday),
		r.HolidayName,
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
