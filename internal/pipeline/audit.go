package pipeline

import (
	"time"

	"github.com/google/uuid"

	"tripclean/internal/ingest"
)

// FileCount summarizes one input file for the audit trail.
type FileCount struct {
	File    string `json:"file"`
	Rows    int    `json:"rows"`
	Parsed  int    `json:"parsed"`
	Skipped int    `json:"skipped"`
}

// Audit is the per-run accounting of every dropped record. Each drop is
// attributed to exactly one stage; rows_read equals rows_out plus
// parse_skipped plus the sum of all drop counters.
type Audit struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Files []FileCount `json:"files"`

	RowsRead            int `json:"rows_read"`
	ParseSkipped        int `json:"parse_skipped"`
	DedupDropped        int `json:"dedup_dropped"`
	TemporalDropped     int `json:"temporal_dropped"`
	CompletenessDropped int `json:"completeness_dropped"`
	BoundsDropped       int `json:"bounds_dropped"`
	NonpositiveDropped  int `json:"nonpositive_dropped"`
	OutlierDropped      int `json:"outlier_dropped"`
	RowsOut             int `json:"rows_out"`

	// First few row-level parse failures, for traceability.
	ParseErrors []string `json:"parse_errors,omitempty"`
}

func newAudit(in *ingest.Result) Audit {
	a := Audit{
		RunID:        uuid.NewString(),
		StartedAt:    time.Now().UTC(),
		RowsRead:     in.RowsRead,
		ParseSkipped: in.Skipped,
	}
	for _, f := range in.Files {
		a.Files = append(a.Files, FileCount{
			File:    f.File,
			Rows:    f.RowsRead,
			Parsed:  len(f.Records),
			Skipped: f.Skipped,
		})
	}
	for _, pe := range in.Errors {
		a.ParseErrors = append(a.ParseErrors, pe.Error())
	}
	return a
}

// Dropped returns the total number of records removed after parsing.
func (a Audit) Dropped() int {
	return a.DedupDropped + a.TemporalDropped + a.CompletenessDropped +
		a.BoundsDropped + a.NonpositiveDropped + a.OutlierDropped
}
