package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tripclean/internal/geo"
)

// ConfigurationError is a fatal startup failure: an invalid bounding
// region, bucket ordering, or other parameter the run cannot proceed
// without.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// Config holds application configuration from environment variables.
// CLI flags may override individual fields after Load.
type Config struct {
	DataDir string // monthly archives and boundary file live here
	OutDir  string // cleaned dataset and audit report are written here

	// Fetch settings (original data source: monthly archives on a static
	// file host plus a city-boundary GeoJSON export).
	BaseURL      string
	ArchiveSlug  string
	BoundaryURL  string
	Year         int
	Months       []time.Month
	Overwrite    bool
	FetchWorkers int

	// Input CSV shape.
	Delimiter  rune
	HasHeader  bool
	Encoding   string // IANA charset name, "" means UTF-8
	TimeLayout string
	Timezone   string

	// Service-area region: a GeoJSON boundary file (relative paths are
	// resolved under DataDir) or a "minLat,minLng,maxLat,maxLng" box.
	// Empty disables the bounds filter.
	BoundaryFile string
	BBox         string

	// Holiday calendar: a local date,name CSV, or a country code for the
	// public-holidays API. The file wins when both are set.
	HolidayFile    string
	HolidayCountry string
	HolidayAPIBase string

	// Time-of-day bucket start hours.
	MorningStart int
	DaytimeStart int
	EveningStart int
	NightStart   int

	// Outlier fence width.
	IQRMultiplier float64

	// Parallel parse fan-out.
	Workers int

	// Output toggles. Empty paths disable the optional sinks.
	CSVName    string
	AuditName  string
	SQLitePath string
	XLSXPath   string
	CSVBOM     bool

	LogLevel string
}

// Load reads configuration from the environment with defaults, after
// loading .env if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:      envStr("TRIPCLEAN_DATA_DIR", "./data"),
		OutDir:       envStr("TRIPCLEAN_OUT_DIR", "./out"),
		BaseURL:      envStr("TRIPCLEAN_BASE_URL", "https://divvy-tripdata.s3.amazonaws.com"),
		ArchiveSlug:  envStr("TRIPCLEAN_ARCHIVE_SLUG", "divvy-tripdata"),
		BoundaryURL:  envStr("TRIPCLEAN_BOUNDARY_URL", ""),
		Year:         envInt("TRIPCLEAN_YEAR", time.Now().Year()-1),
		Overwrite:    envBool("TRIPCLEAN_OVERWRITE", false),
		FetchWorkers: envInt("TRIPCLEAN_FETCH_WORKERS", 4),

		HasHeader:  envBool("TRIPCLEAN_CSV_HEADER", true),
		Encoding:   envStr("TRIPCLEAN_CSV_ENCODING", ""),
		TimeLayout: envStr("TRIPCLEAN_TIME_LAYOUT", "2006-01-02 15:04:05"),
		Timezone:   envStr("TRIPCLEAN_TZ", "UTC"),

		BoundaryFile: envStr("TRIPCLEAN_BOUNDARY_FILE", ""),
		BBox:         envStr("TRIPCLEAN_BBOX", ""),

		HolidayFile:    envStr("TRIPCLEAN_HOLIDAY_FILE", ""),
		HolidayCountry: envStr("TRIPCLEAN_HOLIDAY_COUNTRY", ""),
		HolidayAPIBase: envStr("TRIPCLEAN_HOLIDAY_API", ""),

		MorningStart: envInt("TRIPCLEAN_MORNING_START", 6),
		DaytimeStart: envInt("TRIPCLEAN_DAYTIME_START", 12),
		EveningStart: envInt("TRIPCLEAN_EVENING_START", 18),
		NightStart:   envInt("TRIPCLEAN_NIGHT_START", 23),

		IQRMultiplier: envFloat("TRIPCLEAN_IQR_MULTIPLIER", 1.5),
		Workers:       envInt("TRIPCLEAN_WORKERS", 4),

		CSVName:    envStr("TRIPCLEAN_CSV_NAME", "trips_clean.csv"),
		AuditName:  envStr("TRIPCLEAN_AUDIT_NAME", "audit.json"),
		SQLitePath: envStr("TRIPCLEAN_SQLITE_PATH", ""),
		XLSXPath:   envStr("TRIPCLEAN_XLSX_PATH", ""),
		CSVBOM:     envBool("TRIPCLEAN_CSV_BOM", true),

		LogLevel: envStr("TRIPCLEAN_LOG_LEVEL", "info"),
	}

	delim := envStr("TRIPCLEAN_CSV_DELIMITER", ",")
	runes := []rune(delim)
	if len(runes) != 1 {
		return nil, &ConfigurationError{Field: "TRIPCLEAN_CSV_DELIMITER", Reason: "must be a single character"}
	}
	cfg.Delimiter = runes[0]

	months, err := ParseMonths(envStr("TRIPCLEAN_MONTHS", ""))
	if err != nil {
		return nil, err
	}
	cfg.Months = months

	return cfg, nil
}

// ParseMonths parses a month-set expression such as "1-3,7,12". Empty
// means all twelve months.
func ParseMonths(s string) ([]time.Month, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		months := make([]time.Month, 0, 12)
		for m := time.January; m <= time.December; m++ {
			months = append(months, m)
		}
		return months, nil
	}

	set := map[int]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if a, b, ok := strings.Cut(part, "-"); ok {
			lo, err1 := strconv.Atoi(strings.TrimSpace(a))
			hi, err2 := strconv.Atoi(strings.TrimSpace(b))
			if err1 != nil || err2 != nil || lo > hi {
				return nil, &ConfigurationError{Field: "months", Reason: fmt.Sprintf("bad range %q", part)}
			}
			for m := lo; m <= hi; m++ {
				set[m] = true
			}
		} else {
			m, err := strconv.Atoi(part)
			if err != nil {
				return nil, &ConfigurationError{Field: "months", Reason: fmt.Sprintf("bad month %q", part)}
			}
			set[m] = true
		}
	}

	var months []time.Month
	for m := 1; m <= 12; m++ {
		if set[m] {
			months = append(months, time.Month(m))
		}
	}
	if len(months) == 0 || len(set) != len(months) {
		return nil, &ConfigurationError{Field: "months", Reason: "months must be within 1-12"}
	}
	return months, nil
}

// Validate checks cross-field constraints. Called once at startup; any
// failure is fatal.
func (c *Config) Validate() error {
	if c.Year < 2000 || c.Year > 2100 {
		return &ConfigurationError{Field: "year", Reason: fmt.Sprintf("implausible year %d", c.Year)}
	}
	if c.IQRMultiplier <= 0 {
		return &ConfigurationError{Field: "iqr_multiplier", Reason: "must be positive"}
	}
	if c.Workers <= 0 {
		return &ConfigurationError{Field: "workers", Reason: "must be positive"}
	}
	if !(0 < c.MorningStart && c.MorningStart < c.DaytimeStart &&
		c.DaytimeStart < c.EveningStart && c.EveningStart < c.NightStart && c.NightStart <= 24) {
		return &ConfigurationError{Field: "buckets", Reason: "start hours must be strictly increasing within 0-24"}
	}
	if c.BBox != "" {
		if _, err := c.ParseBBox(); err != nil {
			return err
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return &ConfigurationError{Field: "tz", Reason: fmt.Sprintf("unknown timezone %q", c.Timezone)}
	}
	return nil
}

// ParseBBox parses the TRIPCLEAN_BBOX expression,
// minLat,minLng,maxLat,maxLng, into a service-area box.
func (c *Config) ParseBBox() (geo.Box, error) {
	parts := strings.Split(c.BBox, ",")
	if len(parts) != 4 {
		return geo.Box{}, &ConfigurationError{Field: "bbox", Reason: "want minLat,minLng,maxLat,maxLng"}
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.Box{}, &ConfigurationError{Field: "bbox", Reason: fmt.Sprintf("bad number %q", p)}
		}
		vals[i] = v
	}
	b := geo.Box{MinLat: vals[0], MinLng: vals[1], MaxLat: vals[2], MaxLng: vals[3]}
	if !b.Valid() {
		return geo.Box{}, &ConfigurationError{Field: "bbox", Reason: "min must be less than max, within -90..90 lat and -180..180 lng"}
	}
	return b, nil
}

// Location resolves the configured timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
