package hours

import (
	"errors"
	"sort"
)

// Weekday identifies a day key in a Week.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Days lists the week in display order.
var Days = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Workdays are the days ApplyToWeekdays fills from Monday.
var Workdays = []Weekday{Tuesday, Wednesday, Thursday, Friday}

func (d Weekday) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// Week maps each day to its canonical string. A missing key means the day
// was never set.
type Week map[Weekday]string

// Clone returns an independent copy.
func (w Week) Clone() Week {
	out := make(Week, len(w))
	for d, v := range w {
		out[d] = v
	}
	return out
}

// Day parses the value stored for d.
func (w Week) Day(d Weekday) DayHours {
	return Parse(w[d])
}

// Display renders every day for people, in week order.
func (w Week) Display() map[Weekday]string {
	out := make(map[Weekday]string, len(Days))
	for _, d := range Days {
		out[d] = Display(w[d])
	}
	return out
}

// Normalize rewrites every set day into canonical form. It returns the days
// whose value had to be guessed, sorted in week order.
func (w Week) Normalize() (Week, []Weekday) {
	out := make(Week, len(w))
	var guessed []Weekday
	for d, raw := range w {
		if raw == "" {
			continue
		}
		parsed, err := ParseChecked(raw)
		if errors.Is(err, ErrUnrecognized) {
			guessed = append(guessed, d)
		}
		out[d] = parsed.String()
	}
	sortDays(guessed)
	return out, guessed
}

// Set returns a copy of w with value stored under every listed day.
func Set(w Week, value string, days ...Weekday) Week {
	out := w.Clone()
	for _, d := range days {
		out[d] = value
	}
	return out
}

// CopyDay copies the value of from onto the listed days. If from has no
// value, w is returned unchanged.
func CopyDay(w Week, from Weekday, to ...Weekday) Week {
	v, ok := w[from]
	if !ok || v == "" {
		return w.Clone()
	}
	return Set(w, v, to...)
}

// ApplyToWeekdays copies Monday onto Tuesday through Friday. The weekend is
// left alone.
func ApplyToWeekdays(w Week) Week {
	return CopyDay(w, Monday, Workdays...)
}

// CopyToAll copies Monday onto every day.
func CopyToAll(w Week) Week {
	return CopyDay(w, Monday, Days...)
}

// SetAllClosed marks all seven days closed.
func SetAllClosed(w Week) Week {
	return Set(w, Closed, Days...)
}

var dayIndex = func() map[Weekday]int {
	m := make(map[Weekday]int, len(Days))
	for i, d := range Days {
		m[d] = i
	}
	return m
}()

func sortDays(days []Weekday) {
	sort.Slice(days, func(i, j int) bool { return dayIndex[days[i]] < dayIndex[days[j]] })
}
