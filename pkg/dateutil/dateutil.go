// Package dateutil converts between the local display forms used by the
// scheduling client and the UTC wire format spoken by the API.
//
// Two fallback policies coexist on purpose and are fixed per function:
// display helpers that must never fail fall back to the current instant,
// while helpers whose callers branch on failure return an empty string.
package dateutil

import (
	"time"
)

const (
	// LocalDateLayout is MM-dd-yyyy, used for week anchors and day comparisons.
	LocalDateLayout = "01-02-2006"
	// WireLayout is yyyy-MM-dd'T'HH:mm:ss.SSS'Z', always rendered in UTC.
	WireLayout = "2006-01-02T15:04:05.000Z"
	// TimeLayout is hh:mm a.
	TimeLayout = "03:04 PM"
	// DayLabelLayout is EEE MM/dd.
	DayLabelLayout = "Mon 01/02"

	// StaleAfter is how long a fetched week stays fresh for callers that
	// track the last download time.
	StaleAfter = 30 * time.Second

	appointmentHour = 8
)

// LocalDateString renders t as MM-dd-yyyy in the local timezone.
func LocalDateString(t time.Time) string {
	return t.In(time.Local).Format(LocalDateLayout)
}

// WireDateString renders t in the UTC wire format with millisecond precision.
func WireDateString(t time.Time) string {
	return t.UTC().Format(WireLayout)
}

// ParseWireDate parses a wire-format timestamp. Malformed input is an error.
func ParseWireDate(raw string) (time.Time, error) {
	return time.Parse(WireLayout, raw)
}

// WireDateOrNow parses raw, returning the current instant when it is malformed.
func WireDateOrNow(raw string) time.Time {
	t, err := ParseWireDate(raw)
	if err != nil {
		return time.Now()
	}
	return t
}

// WireToLocalDateString converts a wire timestamp to MM-dd-yyyy in the local
// timezone. Malformed input yields "".
func WireToLocalDateString(raw string) string {
	t, err := ParseWireDate(raw)
	if err != nil {
		return ""
	}
	return LocalDateString(t)
}

// WireToLocalTimeString renders the local hh:mm a of a wire timestamp shifted
// by addMillis. The shift is applied in whole seconds. Malformed input yields "".
func WireToLocalTimeString(raw string, addMillis int64) string {
	t, err := ParseWireDate(raw)
	if err != nil {
		return ""
	}
	shift := time.Duration(addMillis/1000) * time.Second
	return t.Add(shift).In(time.Local).Format(TimeLayout)
}

// UTCTimeString renders t as hh:mm a in UTC.
func UTCTimeString(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// SameLocalDay reports whether the wire timestamp falls on the same local
// calendar day as t. Malformed input never matches.
func SameLocalDay(raw string, t time.Time) bool {
	day := WireToLocalDateString(raw)
	if day == "" {
		return false
	}
	return day == LocalDateString(t)
}

// ElapsedSeconds returns the seconds between the wire timestamp and ref.
// A malformed timestamp is treated as now.
func ElapsedSeconds(raw string, ref time.Time) float64 {
	return ref.Sub(WireDateOrNow(raw)).Seconds()
}

// Weekday returns the weekday number of t in the local timezone using
// 1 = Sunday through 7 = Saturday.
func Weekday(t time.Time) int {
	return int(t.In(time.Local).Weekday()) + 1
}

// FirstDayOfWeek returns the Monday that starts the week containing t.
// Sunday belongs to the week that began six days earlier. The time of day is
// preserved.
func FirstDayOfWeek(t time.Time) time.Time {
	local := t.In(time.Local)
	weekday := Weekday(local)
	delta := -(weekday - 2)
	if weekday == 1 {
		delta = -6
	}
	return local.AddDate(0, 0, delta)
}

// WeekDays returns the seven local days of the week containing t, Monday first.
func WeekDays(t time.Time) []time.Time {
	start := FirstDayOfWeek(t)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// DefaultAppointmentTime returns 08:00 local time on the calendar day of t.
func DefaultAppointmentTime(t time.Time) time.Time {
	local := t.In(time.Local)
	y, m, d := local.Date()
	return time.Date(y, m, d, appointmentHour, 0, 0, 0, time.Local)
}

// DayLabel renders t as EEE MM/dd in the local timezone.
func DayLabel(t time.Time) string {
	return t.In(time.Local).Format(DayLabelLayout)
}

// LocalDateLabel converts MM-dd-yyyy into EEE MM/dd. Unparseable input
// labels the current day.
func LocalDateLabel(raw string) string {
	t, err := time.ParseInLocation(LocalDateLayout, raw, time.Local)
	if err != nil {
		t = time.Now()
	}
	return DayLabel(t)
}
