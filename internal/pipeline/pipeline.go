// Package pipeline runs the cleaning stages over parsed trip records:
// dedup, temporal and geographic filters, feature derivation, and the
// per-vehicle-class log-IQR outlier fence. A record dropped at any stage
// is final; it is never reconsidered by a later stage.
package pipeline

import (
	"log/slog"
	"time"

	"tripclean/internal/geo"
	"tripclean/internal/holiday"
	"tripclean/internal/ingest"
	"tripclean/internal/trip"
)

// Config carries the pipeline's open parameters. The service-area region
// and the holiday calendar are collaborators supplied by the caller, never
// hardcoded city values.
type Config struct {
	Region   geo.Region
	Holidays holiday.Source

	// Start hours for the time-of-day buckets. Hours before MorningStart
	// and from NightStart on are "night".
	MorningStart int
	DaytimeStart int
	EveningStart int
	NightStart   int

	// IQRMultiplier is the fence width k in [Q1-k*IQR, Q3+k*IQR].
	IQRMultiplier float64
}

func (c Config) withDefaults() Config {
	if c.Holidays == nil {
		c.Holidays = holiday.None
	}
	if c.MorningStart == 0 {
		c.MorningStart = 6
	}
	if c.DaytimeStart == 0 {
		c.DaytimeStart = 12
	}
	if c.EveningStart == 0 {
		c.EveningStart = 18
	}
	if c.NightStart == 0 {
		c.NightStart = 23
	}
	if c.IQRMultiplier == 0 {
		c.IQRMultiplier = 1.5
	}
	return c
}

// Result is the surviving record set plus the audit trail.
type Result struct {
	Records []trip.Record
	Audit   Audit
}

// Pipeline executes the cleaning stages in a fixed order.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline.
func New(cfg Config, logger *slog.Logger) *Pipeline {
	return &Pipeline{cfg: cfg.withDefaults(), logger: logger}
}

// Run cleans the ingested dataset. The input must be the full assembled
// year: dedup and the outlier quartiles are dataset-wide reductions.
func (p *Pipeline) Run(in *ingest.Result) *Result {
	start := time.Now()
	audit := newAudit(in)

	recs := in.Records
	recs, audit.DedupDropped = dedup(recs)
	recs, audit.TemporalDropped = filterTemporal(recs)
	recs, audit.CompletenessDropped = filterCompleteness(recs)
	recs, audit.BoundsDropped = p.filterBounds(recs)
	p.derive(recs)
	recs, audit.NonpositiveDropped, audit.OutlierDropped = p.filterOutliers(recs)

	audit.RowsOut = len(recs)
	audit.FinishedAt = time.Now().UTC()

	p.logger.Info("pipeline complete",
		"run_id", audit.RunID,
		"duration", time.Since(start).Round(time.Millisecond),
		"rows_read", audit.RowsRead,
		"parse_skipped", audit.ParseSkipped,
		"dedup_dropped", audit.DedupDropped,
		"temporal_dropped", audit.TemporalDropped,
		"completeness_dropped", audit.CompletenessDropped,
		"bounds_dropped", audit.BoundsDropped,
		"nonpositive_dropped", audit.NonpositiveDropped,
		"outlier_dropped", audit.OutlierDropped,
		"rows_out", audit.RowsOut,
	)
	return &Result{Records: recs, Audit: audit}
}

// dedup keeps the first occurrence of each ride id, in input order.
func dedup(records []trip.Record) ([]trip.Record, int) {
	seen := make(map[string]struct{}, len(records))
	kept := records[:0:0]
	dropped := 0
	for _, r := range records {
		if _, ok := seen[r.ID]; ok {
			dropped++
			continue
		}
		seen[r.ID] = struct{}{}
		kept = append(kept, r)
	}
	return kept, dropped
}

// filterTemporal drops records that end before they start.
func filterTemporal(records []trip.Record) ([]trip.Record, int) {
	kept := records[:0:0]
	dropped := 0
	for _, r := range records {
		if r.StartedAt.After(r.EndedAt) {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

// filterCompleteness drops records whose end station is entirely absent:
// name, id, and both coordinates all missing. Any one present retains the
// record.
func filterCompleteness(records []trip.Record) ([]trip.Record, int) {
	kept := records[:0:0]
	dropped := 0
	for _, r := range records {
		if r.End.Empty() {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

// filterBounds drops records with a start or end coordinate outside the
// configured service area. With no region configured the stage passes
// everything through.
func (p *Pipeline) filterBounds(records []trip.Record) ([]trip.Record, int) {
	if p.cfg.Region == nil {
		return records, 0
	}
	kept := records[:0:0]
	dropped := 0
	for _, r := range records {
		if !p.cfg.Region.Contains(r.Start.Lat, r.Start.Lng) {
			dropped++
			continue
		}
		if r.End.HasCoords && !p.cfg.Region.Contains(r.End.Lat, r.End.Lng) {
			dropped++
			continue
		}
		kept = append(kept, r)
	}
	return kept, dropped
}

// derive populates the computed fields. It is a pure function of the raw
// fields and the configured collaborators; running it twice on the same
// record gives the same result.
func (p *Pipeline) derive(records []trip.Record) {
	for i := range records {
		r := &records[i]
		r.DurationSeconds = r.EndedAt.Sub(r.StartedAt).Seconds()
		if r.End.HasCoords {
			r.DistanceMeters = geo.Haversine(r.Start.Lat, r.Start.Lng, r.End.Lat, r.End.Lng)
		}
		if r.DurationSeconds > 0 {
			r.SpeedMPS = r.DistanceMeters / r.DurationSeconds
		}
		r.Month = r.StartedAt.Month()
		r.DayOfWeek = r.StartedAt.Weekday()
		r.TimeOfDay = p.bucket(r.StartedAt.Hour())
		if name, ok := p.cfg.Holidays.Holiday(r.StartedAt); ok {
			r.IsHoliday = true
			r.HolidayName = name
		}
	}
}

func (p *Pipeline) bucket(hour int) trip.TimeOfDay {
	switch {
	case hour < p.cfg.MorningStart || hour >= p.cfg.NightStart:
		return trip.Night
	case hour < p.cfg.DaytimeStart:
		return trip.Morning
	case hour < p.cfg.EveningStart:
		return trip.Daytime
	default:
		return trip.Evening
	}
}
