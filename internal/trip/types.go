package trip

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeLayout matches the timestamp format used by the monthly trip
// exports. Fractional seconds appear in some months and are accepted too.
const DefaultTimeLayout = "2006-01-02 15:04:05"

// BikeType is the vehicle type recorded for a rental.
type BikeType string

const (
	BikeClassic  BikeType = "classic_bike"
	BikeDocked   BikeType = "docked_bike"
	BikeElectric BikeType = "electric_bike"
)

// VehicleClass groups bike types into the two classes whose trip
// distributions are analyzed separately.
type VehicleClass string

const (
	ClassConventional VehicleClass = "conventional"
	ClassElectric     VehicleClass = "electric"
)

// Class returns the vehicle class for outlier partitioning. Classic and
// docked bikes are both human-powered and share one distribution.
func (b BikeType) Class() VehicleClass {
	if b == BikeElectric {
		return ClassElectric
	}
	return ClassConventional
}

// UserType is the rider segment.
type UserType string

const (
	UserMember UserType = "member"
	UserCasual UserType = "casual"
)

// TimeOfDay is the bucket derived from a trip's start hour.
type TimeOfDay string

const (
	Night   TimeOfDay = "night"
	Morning TimeOfDay = "morning"
	Daytime TimeOfDay = "daytime"
	Evening TimeOfDay = "evening"
)

// RawTrip mirrors one input CSV row. All fields are strings; coercion into
// a Record happens in FromRaw so a bad cell can name its column.
type RawTrip struct {
	RideID           string `csv:"ride_id"`
	RideableType     string `csv:"rideable_type"`
	StartedAt        string `csv:"started_at"`
	EndedAt          string `csv:"ended_at"`
	StartStationName string `csv:"start_station_name"`
	StartStationID   string `csv:"start_station_id"`
	EndStationName   string `csv:"end_station_name"`
	EndStationID     string `csv:"end_station_id"`
	StartLat         string `csv:"start_lat"`
	StartLng         string `csv:"start_lng"`
	EndLat           string `csv:"end_lat"`
	EndLng           string `csv:"end_lng"`
	MemberCasual     string `csv:"member_casual"`
}

// Station identifies one end of a trip. Every field may be empty in the
// raw data; HasCoords distinguishes a real (0,0) from an absent position.
type Station struct {
	ID        string
	Name      string
	Lat       float64
	Lng       float64
	HasCoords bool
}

// Empty reports whether the station carries no information at all.
func (s Station) Empty() bool {
	return s.ID == "" && s.Name == "" && !s.HasCoords
}

// Record is one validated bike rental. The derived block stays zero until
// the feature stage populates it; nothing downstream may treat it as a
// source of truth before then.
type Record struct {
	ID        string
	BikeType  BikeType
	UserType  UserType
	StartedAt time.Time
	EndedAt   time.Time
	Start     Station
	End       Station

	// Derived fields, computed by the feature stage.
	DurationSeconds float64
	DistanceMeters  float64
	SpeedMPS        float64
	Month           time.Month
	DayOfWeek       time.Weekday
	TimeOfDay       TimeOfDay
	IsHoliday       bool
	HolidayName     string
}

// FieldError reports a cell that failed coercion. Ingestion wraps it with
// file and row position.
type FieldError struct {
	Column string
	Value  string
	Err    error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("column %s: invalid value %q: %v", e.Column, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// FromRaw coerces a raw CSV row into a Record. Timestamps parse in loc
// using layout (fractional seconds tolerated). Required fields are the ride
// id, bike type, both timestamps, the rider segment and the start
// coordinates; end station fields are optional and may all be absent.
func FromRaw(raw RawTrip, loc *time.Location, layout string) (Record, error) {
	var rec Record

	rec.ID = strings.TrimSpace(raw.RideID)
	if rec.ID == "" {
		return rec, &FieldError{Column: "ride_id", Value: raw.RideID, Err: fmt.Errorf("empty")}
	}

	bt, err := parseBikeType(raw.RideableType)
	if err != nil {
		return rec, &FieldError{Column: "rideable_type", Value: raw.RideableType, Err: err}
	}
	rec.BikeType = bt

	ut, err := parseUserType(raw.MemberCasual)
	if err != nil {
		return rec, &FieldError{Column: "member_casual", Value: raw.MemberCasual, Err: err}
	}
	rec.UserType = ut

	rec.StartedAt, err = parseTime(raw.StartedAt, loc, layout)
	if err != nil {
		return rec, &FieldError{Column: "started_at", Value: raw.StartedAt, Err: err}
	}
	rec.EndedAt, err = parseTime(raw.EndedAt, loc, layout)
	if err != nil {
		return rec, &FieldError{Column: "ended_at", Value: raw.EndedAt, Err: err}
	}

	rec.Start = Station{ID: strings.TrimSpace(raw.StartStationID), Name: strings.TrimSpace(raw.StartStationName)}
	rec.Start.Lat, err = parseCoord(raw.StartLat)
	if err != nil {
		return rec, &FieldError{Column: "start_lat", Value: raw.StartLat, Err: err}
	}
	rec.Start.Lng, err = parseCoord(raw.StartLng)
	if err != nil {
		return rec, &FieldError{Column: "start_lng", Value: raw.StartLng, Err: err}
	}
	rec.Start.HasCoords = true

	rec.End = Station{ID: strings.TrimSpace(raw.EndStationID), Name: strings.TrimSpace(raw.EndStationName)}
	endLat := strings.TrimSpace(raw.EndLat)
	endLng := strings.TrimSpace(raw.EndLng)
	if endLat != "" || endLng != "" {
		rec.End.Lat, err = parseCoord(raw.EndLat)
		if err != nil {
			return rec, &FieldError{Column: "end_lat", Value: raw.EndLat, Err: err}
		}
		rec.End.Lng, err = parseCoord(raw.EndLng)
		if err != nil {
			return rec, &FieldError{Column: "end_lng", Value: raw.EndLng, Err: err}
		}
		rec.End.HasCoords = true
	}

	return rec, nil
}

func parseBikeType(s string) (BikeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "classic_bike", "classic":
		return BikeClassic, nil
	case "docked_bike", "docked":
		return BikeDocked, nil
	case "electric_bike", "electric":
		return BikeElectric, nil
	}
	return "", fmt.Errorf("unknown bike type")
}

func parseUserType(s string) (UserType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "member":
		return UserMember, nil
	case "casual":
		return UserCasual, nil
	}
	return "", fmt.Errorf("unknown rider segment")
}

func parseTime(s string, loc *time.Location, layout string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(layout, s, loc); err == nil {
		return t, nil
	}
	// Some monthly exports carry fractional seconds.
	t, err := time.ParseInLocation(layout+".999", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp does not match %q", layout)
	}
	return t, nil
}

func parseCoord(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a coordinate")
	}
	return v, nil
}
