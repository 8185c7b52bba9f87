package storage

import "fmt"

// migrate creates the output schema if it doesn't exist.
func (db *DB) migrate() error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	db.logger.Info("database migrations applied")
	return nil
}

var migrations = []string{
	// One row per cleaning run, with the full audit trail.
	`CREATE TABLE IF NOT EXISTS runs (
		run_id               TEXT PRIMARY KEY,
		started_at           TEXT NOT NULL,
		finished_at          TEXT NOT NULL,
		rows_read            INTEGER NOT NULL,
		parse_skipped        INTEGER NOT NULL,
		dedup_dropped        INTEGER NOT NULL,
		temporal_dropped     INTEGER NOT NULL,
		completeness_dropped INTEGER NOT NULL,
		bounds_dropped       INTEGER NOT NULL,
		nonpositive_dropped  INTEGER NOT NULL,
		outlier_dropped      INTEGER NOT NULL,
		rows_out             INTEGER NOT NULL
	)`,

	// Cleaned trips, raw columns plus derived features.
	`CREATE TABLE IF NOT EXISTS trips (
		ride_id            TEXT PRIMARY KEY,
		run_id             TEXT NOT NULL REFERENCES runs(run_id),
		rideable_type      TEXT NOT NULL,
		started_at         TEXT NOT NULL,
		ended_at           TEXT NOT NULL,
		start_station_name TEXT,
		start_station_id   TEXT,
		end_station_name   TEXT,
		end_station_id     TEXT,
		start_lat          REAL NOT NULL,
		start_lng          REAL NOT NULL,
		end_lat            REAL,
		end_lng            REAL,
		member_casual      TEXT NOT NULL,
		duration_seconds   REAL NOT NULL,
		distance_meters    REAL NOT NULL,
		speed_mps          REAL NOT NULL,
		month              INTEGER NOT NULL,
		day_of_week        TEXT NOT NULL,
		time_of_day        TEXT NOT NULL,
		is_holiday         INTEGER NOT NULL DEFAULT 0,
		holiday_name       TEXT
	)`,

	// Indexes for the comparisons the analysis slices on.
	`CREATE INDEX IF NOT EXISTS idx_trips_member ON trips(member_casual)`,
	`CREATE INDEX IF NOT EXISTS idx_trips_month ON trips(month)`,
	`CREATE INDEX IF NOT EXISTS idx_trips_bike ON trips(rideable_type)`,
	`CREATE INDEX IF NOT EXISTS idx_trips_time_of_day ON trips(time_of_day)`,
}
