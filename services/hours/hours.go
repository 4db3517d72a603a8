// Package hours converts merchant opening hours between the stored canonical
// strings and the open/close values the editor works with.
//
// A canonical day string is "Closed", "24 Hours" or "HH:MM-HH:MM" in 24-hour
// time. Legacy 12-hour ranges are migrated on parse.
package hours

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Closed = "Closed"
	AllDay = "24 Hours"

	DefaultOpen  = "09:00"
	DefaultClose = "17:00"

	// Undefined is what Display shows for a day with no stored value.
	Undefined = "—"
)

// ErrUnrecognized marks a value that matched no known format. The day is
// assumed open with default times so the merchant is not silently closed.
var ErrUnrecognized = errors.New("hours: unrecognized format")

var (
	strictRange = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)-([01]\d|2[0-3]):([0-5]\d)$`)
	legacyRange = regexp.MustCompile(`(?i)^(\d{1,2}):(\d{2})\s*(AM|PM)\s*[-–]\s*(\d{1,2}):(\d{2})\s*(AM|PM)$`)
)

// DayHours is the editable form of one day.
type DayHours struct {
	IsOpen bool   `json:"isOpen"`
	Open   string `json:"open"`
	Close  string `json:"close"`
}

// String formats d as a canonical day string.
func (d DayHours) String() string {
	return Format(d.IsOpen, d.Open, d.Close)
}

// AllDay reports whether d spans the whole day.
func (d DayHours) AllDay() bool {
	return d.IsOpen && d.Open == "00:00" && d.Close == "23:59"
}

func closedDay() DayHours {
	return DayHours{IsOpen: false, Open: DefaultOpen, Close: DefaultClose}
}

// Parse reads a stored day string. An empty string means the day is not
// set. Unparseable input is treated as open 09:00-17:00.
func Parse(raw string) DayHours {
	d, _ := ParseChecked(raw)
	return d
}

// ParseChecked is Parse, but also returns ErrUnrecognized when the lenient
// default was applied.
func ParseChecked(raw string) (DayHours, error) {
	s := strings.TrimSpace(raw)
	switch {
	case s == "" || strings.EqualFold(s, Closed):
		return closedDay(), nil
	case strings.EqualFold(s, AllDay):
		return DayHours{IsOpen: true, Open: "00:00", Close: "23:59"}, nil
	}

	if m := strictRange.FindStringSubmatch(s); m != nil {
		return DayHours{
			IsOpen: true,
			Open:   m[1] + ":" + m[2],
			Close:  m[3] + ":" + m[4],
		}, nil
	}

	if m := legacyRange.FindStringSubmatch(s); m != nil {
		open, okOpen := to24(m[1], m[2], m[3])
		closeAt, okClose := to24(m[4], m[5], m[6])
		if okOpen && okClose {
			return DayHours{IsOpen: true, Open: open, Close: closeAt}, nil
		}
	}

	return DayHours{IsOpen: true, Open: DefaultOpen, Close: DefaultClose},
		fmt.Errorf("%w: %q", ErrUnrecognized, raw)
}

// to24 converts a 12-hour clock reading. 12 AM is midnight, 12 PM is noon.
func to24(hour, minute, meridiem string) (string, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil || h < 1 || h > 12 {
		return "", false
	}
	m, err := strconv.Atoi(minute)
	if err != nil || m > 59 {
		return "", false
	}
	h %= 12
	if strings.EqualFold(meridiem, "PM") {
		h += 12
	}
	return fmt.Sprintf("%02d:%02d", h, m), true
}

// Format builds the canonical string. Times are written exactly as given;
// an inverted range is kept as is.
func Format(isOpen bool, open, closeAt string) string {
	if !isOpen {
		return Closed
	}
	if open == "00:00" && closeAt == "23:59" {
		return AllDay
	}
	return open + "-" + closeAt
}

// Display renders a stored day string for people, e.g. "9:00 AM – 5:00 PM".
func Display(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return Undefined
	}
	d := Parse(raw)
	switch {
	case !d.IsOpen:
		return Closed
	case d.AllDay():
		return AllDay
	}
	return to12(d.Open) + " – " + to12(d.Close)
}

func to12(hhmm string) string {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return hhmm
	}
	return t.Format("3:04 PM")
}

// IsCanonical reports whether raw is already in stored form. The full-day
// range is stored as AllDay, so "00:00-23:59" is not canonical.
func IsCanonical(raw string) bool {
	if raw == "00:00-23:59" {
		return false
	}
	return raw == Closed || raw == AllDay || strictRange.MatchString(raw)
}
