package pipeline

import (
	"math"

	"tripclean/internal/stats"
	"tripclean/internal/trip"
)

// Trip distributions differ sharply between human-powered and electric
// bikes, so the fences are computed per vehicle class. Within a class,
// each numeric attribute gets its own fence over the log-transformed
// values; a record outside any fence is dropped.

type attribute struct {
	name  string
	value func(*trip.Record) float64
}

var outlierAttributes = []attribute{
	{"duration_seconds", func(r *trip.Record) float64 { return r.DurationSeconds }},
	{"distance_meters", func(r *trip.Record) float64 { return r.DistanceMeters }},
	{"speed_mps", func(r *trip.Record) float64 { return r.SpeedMPS }},
}

// filterOutliers applies the log-IQR fence per attribute and vehicle
// class. Records with a non-positive attribute value are invalid for the
// log transform; they are dropped first and never enter the quartile
// computation.
func (p *Pipeline) filterOutliers(records []trip.Record) (kept []trip.Record, nonpositive, outliers int) {
	valid := records[:0:0]
	for _, r := range records {
		if !positiveAttributes(&r) {
			nonpositive++
			continue
		}
		valid = append(valid, r)
	}

	// Quartiles over the log-transformed values of the surviving records,
	// one fence per (class, attribute).
	type key struct {
		class trip.VehicleClass
		attr  string
	}
	samples := make(map[key][]float64)
	for i := range valid {
		r := &valid[i]
		for _, a := range outlierAttributes {
			k := key{r.BikeType.Class(), a.name}
			samples[k] = append(samples[k], math.Log(a.value(r)))
		}
	}

	fences := make(map[key]stats.Fences, len(samples))
	for k, vals := range samples {
		if f, ok := stats.IQRFences(vals, p.cfg.IQRMultiplier); ok {
			fences[k] = f
		}
	}

	kept = valid[:0:0]
	for _, r := range valid {
		inside := true
		for _, a := range outlierAttributes {
			f, ok := fences[key{r.BikeType.Class(), a.name}]
			if ok && !f.Within(math.Log(a.value(&r))) {
				inside = false
				break
			}
		}
		if !inside {
			outliers++
			continue
		}
		kept = append(kept, r)
	}
	return kept, nonpositive, outliers
}

func positiveAttributes(r *trip.Record) bool {
	for _, a := range outlierAttributes {
		if a.value(r) <= 0 {
			return false
		}
	}
	return true
}
