package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tripclean/internal/pipeline"
	"tripclean/internal/trip"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRecord() trip.Record {
	start := time.Date(2024, 6, 1, 8, 15, 0, 0, time.UTC)
	return trip.Record{
		ID:              "ABC123",
		BikeType:        trip.BikeElectric,
		UserType:        trip.UserCasual,
		StartedAt:       start,
		EndedAt:         start.Add(30 * time.Minute),
		Start:           trip.Station{ID: "S1", Name: "Clark St & Elm St", Lat: 41.902973, Lng: -87.63128, HasCoords: true},
		End:             trip.Station{ID: "S2", Name: "Wells St & Concord Ln", Lat: 41.912133, Lng: -87.634656, HasCoords: true},
		DurationSeconds: 1800,
		DistanceMeters:  1046.5,
		SpeedMPS:        0.5814,
		Month:           time.June,
		DayOfWeek:       time.Saturday,
		TimeOfDay:       trip.Morning,
	}
}

func TestCSVWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "trips_clean.csv")
	rec := sampleRecord()

	w := NewCSVWriter("", false, discard())
	if err := w.Write(path, []trip.Record{rec}); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}
	if len(rows[0]) != len(Columns) {
		t.Errorf("header has %d columns, want %d", len(rows[0]), len(Columns))
	}

	got := map[string]string{}
	for i, col := range rows[0] {
		got[col] = rows[1][i]
	}
	checks := map[string]string{
		"ride_id":          "ABC123",
		"rideable_type":    "electric_bike",
		"started_at":       "2024-06-01 08:15:00",
		"member_casual":    "casual",
		"duration_seconds": "1800",
		"month":            "6",
		"day_of_week":      "saturday",
		"time_of_day":      "morning",
		"is_holiday":       "false",
		"holiday_name":     "",
	}
	for col, want := range checks {
		if got[col] != want {
			t.Errorf("%s = %q, want %q", col, got[col], want)
		}
	}
}

func TestCSVWrite_AbsentEndCoordsStayBlank(t *testing.T) {
	rec := sampleRecord()
	rec.End = trip.Station{Name: "Wells St & Concord Ln"}

	w := NewCSVWriter("", false, discard())
	row := w.Row(&rec)

	cols := map[string]string{}
	for i, col := range Columns {
		cols[col] = row[i]
	}
	if cols["end_lat"] != "" || cols["end_lng"] != "" {
		t.Errorf("end coords = %q, %q, want blank", cols["end_lat"], cols["end_lng"])
	}
	if cols["end_station_name"] != "Wells St & Concord Ln" {
		t.Errorf("end_station_name = %q", cols["end_station_name"])
	}
}

func TestCSVWrite_BOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trips.csv")
	w := NewCSVWriter("", true, discard())
	if err := w.Write(path, nil); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("output does not start with a UTF-8 BOM")
	}
}

func TestCSVWrite_Deterministic(t *testing.T) {
	recs := []trip.Record{sampleRecord()}
	recs[0].ID = "A"
	second := sampleRecord()
	second.ID = "B"
	recs = append(recs, second)

	dir := t.TempDir()
	w := NewCSVWriter("", false, discard())

	p1 := filepath.Join(dir, "one.csv")
	p2 := filepath.Join(dir, "two.csv")
	if err := w.Write(p1, recs); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(p2, recs); err != nil {
		t.Fatal(err)
	}

	b1, _ := os.ReadFile(p1)
	b2, _ := os.ReadFile(p2)
	if !bytes.Equal(b1, b2) {
		t.Error("two writes of the same records differ")
	}
}

func TestWriteAuditReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.json")
	audit := pipeline.Audit{
		RunID:           "run-1",
		RowsRead:        100,
		DedupDropped:    3,
		TemporalDropped: 2,
		RowsOut:         95,
	}

	if err := WriteAuditReport(path, audit, discard()); err != nil {
		t.Fatalf("WriteAuditReport() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasSuffix(data, []byte("\n")) {
		t.Error("report does not end with a newline")
	}

	var got pipeline.Audit
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if got.RunID != "run-1" || got.RowsRead != 100 || got.RowsOut != 95 {
		t.Errorf("decoded audit = %+v", got)
	}
}
