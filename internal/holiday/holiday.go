// Package holiday supplies the holiday calendar consulted by the feature
// stage. A calendar is a lookup from civil date to holiday name; it can be
// loaded from a local CSV file or fetched from the public-holidays API.
package holiday

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Source answers whether a date is a public holiday.
type Source interface {
	// Holiday returns the holiday name for the date, if any.
	Holiday(t time.Time) (string, bool)
}

// Calendar is an in-memory Source keyed by civil date.
type Calendar map[string]string

// Holiday implements Source.
func (c Calendar) Holiday(t time.Time) (string, bool) {
	name, ok := c[t.Format(dateLayout)]
	return name, ok
}

// None is an empty calendar for runs without holiday data.
var None = Calendar{}

// LoadFile reads a calendar from a CSV file of `date,name` rows
// (YYYY-MM-DD). A header row is detected and skipped.
func LoadFile(path string) (Calendar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open holiday file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	cal := Calendar{}
	line := 0
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read holiday file row %d: %w", line, err)
		}
		line++
		if len(rec) < 2 {
			return nil, fmt.Errorf("holiday file row %d: want date,name", line)
		}
		date := strings.TrimSpace(rec[0])
		if line == 1 && strings.EqualFold(date, "date") {
			continue
		}
		if _, err := time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("holiday file row %d: bad date %q", line, date)
		}
		cal[date] = strings.TrimSpace(rec[1])
	}
	return cal, nil
}
