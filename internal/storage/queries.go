package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tripclean/internal/pipeline"
	"tripclean/internal/trip"
)

const timeLayout = trip.DefaultTimeLayout

// SaveRun replaces the trips table with the cleaned records and appends
// the run's audit row, all in one transaction. Earlier runs stay in the
// runs table for history; only the newest cleaned dataset is kept.
func (db *DB) SaveRun(ctx context.Context, audit pipeline.Audit, records []trip.Record) error {
	start := time.Now()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trips`); err != nil {
		return fmt.Errorf("clear trips: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, finished_at, rows_read, parse_skipped,
		 dedup_dropped, temporal_dropped, completeness_dropped, bounds_dropped,
		 nonpositive_dropped, outlier_dropped, rows_out)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		audit.RunID,
		audit.StartedAt.UTC().Format(time.RFC3339),
		audit.FinishedAt.UTC().Format(time.RFC3339),
		audit.RowsRead, audit.ParseSkipped,
		audit.DedupDropped, audit.TemporalDropped, audit.CompletenessDropped,
		audit.BoundsDropped, audit.NonpositiveDropped, audit.OutlierDropped,
		audit.RowsOut,
	); err != nil {
		return fmt.Errorf("insert run %s: %w", audit.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO trips (ride_id, run_id, rideable_type, started_at, ended_at,
		 start_station_name, start_station_id, end_station_name, end_station_id,
		 start_lat, start_lng, end_lat, end_lng, member_casual,
		 duration_seconds, distance_meters, speed_mps,
		 month, day_of_week, time_of_day, is_holiday, holiday_name)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare trips: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		var endLat, endLng interface{}
		if r.End.HasCoords {
			endLat, endLng = r.End.Lat, r.End.Lng
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, audit.RunID, string(r.BikeType),
			r.StartedAt.Format(timeLayout), r.EndedAt.Format(timeLayout),
			r.Start.Name, r.Start.ID, r.End.Name, r.End.ID,
			r.Start.Lat, r.Start.Lng, endLat, endLng,
			string(r.UserType),
			r.DurationSeconds, r.DistanceMeters, r.SpeedMPS,
			int(r.Month), strings.ToLower(r.DayOfWeek.String()), string(r.TimeOfDay),
			r.IsHoliday, r.HolidayName,
		); err != nil {
			return fmt.Errorf("insert trip %s: %w", r.ID, err)
		}
		if (i+1)%500000 == 0 {
			db.logger.Info("inserting trips", "rows", i+1)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	db.logger.Info("run saved",
		"run_id", audit.RunID,
		"duration", time.Since(start).Round(time.Millisecond),
		"trips", len(records),
	)
	return nil
}

// TripCount returns the number of trips currently stored.
func (db *DB) TripCount(ctx context.Context) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trips`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count trips: %w", err)
	}
	return n, nil
}

// RunSummary is one row of the runs history table.
type RunSummary struct {
	RunID      string
	FinishedAt string
	RowsRead   int
	RowsOut    int
}

// LastRun returns the most recent run, or nil if none exists.
func (db *DB) LastRun(ctx context.Context) (*RunSummary, error) {
	var r RunSummary
	err := db.QueryRowContext(ctx,
		`SELECT run_id, finished_at, rows_read, rows_out
		 FROM runs ORDER BY finished_at DESC LIMIT 1`).
		Scan(&r.RunID, &r.FinishedAt, &r.RowsRead, &r.RowsOut)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}
	return &r, nil
}
