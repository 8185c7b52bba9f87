package config

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"tripclean/internal/geo"
)

func TestParseMonths(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []time.Month
	}{
		{"empty means full year", "", []time.Month{
			time.January, time.February, time.March, time.April,
			time.May, time.June, time.July, time.August,
			time.September, time.October, time.November, time.December,
		}},
		{"single month", "7", []time.Month{time.July}},
		{"list", "1,3,12", []time.Month{time.January, time.March, time.December}},
		{"range", "4-6", []time.Month{time.April, time.May, time.June}},
		{"range plus singles", "1-3,7", []time.Month{time.January, time.February, time.March, time.July}},
		{"duplicates collapse", "2,2,2-3", []time.Month{time.February, time.March}},
		{"spaces tolerated", " 5 , 6 ", []time.Month{time.May, time.June}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonths(tt.in)
			if err != nil {
				t.Fatalf("ParseMonths(%q) error: %v", tt.in, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseMonths(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseMonths_Errors(t *testing.T) {
	tests := []string{"0", "13", "1-13", "abc", "3-1", "1-2-3"}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			if _, err := ParseMonths(in); err == nil {
				t.Errorf("ParseMonths(%q) expected error, got nil", in)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Year:          2024,
		IQRMultiplier: 1.5,
		Workers:       4,
		MorningStart:  6,
		DaytimeStart:  12,
		EveningStart:  18,
		NightStart:    23,
		Timezone:      "UTC",
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate() error on valid config: %v", err)
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"implausible year", func(c *Config) { c.Year = 1900 }, "year"},
		{"zero multiplier", func(c *Config) { c.IQRMultiplier = 0 }, "iqr_multiplier"},
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"buckets out of order", func(c *Config) { c.EveningStart = 10 }, "buckets"},
		{"night past midnight", func(c *Config) { c.NightStart = 25 }, "buckets"},
		{"bad bbox", func(c *Config) { c.BBox = "41.6,-87.95,41.0,-87.5" }, "bbox"},
		{"unknown timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "tz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("error %T is not a ConfigurationError", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ce.Field, tt.wantField)
			}
		})
	}
}

func TestParseBBox(t *testing.T) {
	cfg := validConfig()
	cfg.BBox = "41.6, -87.95, 42.1, -87.5"

	got, err := cfg.ParseBBox()
	if err != nil {
		t.Fatalf("ParseBBox() error: %v", err)
	}
	want := geo.Box{MinLat: 41.6, MinLng: -87.95, MaxLat: 42.1, MaxLng: -87.5}
	if got != want {
		t.Errorf("ParseBBox() = %+v, want %+v", got, want)
	}
}

func TestParseBBox_Errors(t *testing.T) {
	tests := []struct {
		name string
		bbox string
	}{
		{"too few parts", "41.6,-87.95,42.1"},
		{"not a number", "41.6,-87.95,42.1,west"},
		{"min above max", "42.1,-87.95,41.6,-87.5"},
		{"latitude beyond pole", "41.6,-87.95,95.0,-87.5"},
		{"longitude beyond antimeridian", "41.6,-187.0,42.1,-87.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.BBox = tt.bbox
			if _, err := cfg.ParseBBox(); err == nil {
				t.Error("ParseBBox() expected error, got nil")
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.BaseURL == "" || cfg.ArchiveSlug == "" {
		t.Error("fetch defaults are empty")
	}
	if cfg.Delimiter != ',' {
		t.Errorf("Delimiter = %q, want ','", cfg.Delimiter)
	}
	if len(cfg.Months) != 12 {
		t.Errorf("Months = %v, want all twelve", cfg.Months)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config fails validation: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRIPCLEAN_MONTHS", "6-8")
	t.Setenv("TRIPCLEAN_CSV_DELIMITER", ";")
	t.Setenv("TRIPCLEAN_IQR_MULTIPLIER", "3.0")
	t.Setenv("TRIPCLEAN_CSV_BOM", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if want := []time.Month{time.June, time.July, time.August}; !reflect.DeepEqual(cfg.Months, want) {
		t.Errorf("Months = %v, want %v", cfg.Months, want)
	}
	if cfg.Delimiter != ';' {
		t.Errorf("Delimiter = %q", cfg.Delimiter)
	}
	if cfg.IQRMultiplier != 3.0 {
		t.Errorf("IQRMultiplier = %v", cfg.IQRMultiplier)
	}
	if cfg.CSVBOM {
		t.Error("CSVBOM = true, want false")
	}
}

func TestLocation(t *testing.T) {
	cfg := validConfig()
	cfg.Timezone = "America/Chicago"
	if got := cfg.Location(); got.String() != "America/Chicago" {
		t.Errorf("Location() = %v", got)
	}

	cfg.Timezone = "not-a-zone"
	if got := cfg.Location(); got != time.UTC {
		t.Errorf("Location() fallback = %v, want UTC", got)
	}
}
