package hours

import (
	"fmt"
	"sort"
)

// Preset is a named schedule. Days listed in Open get Hours, every other day
// is closed.
type Preset struct {
	Name  string    `json:"name"`
	Label string    `json:"label"`
	Hours string    `json:"hours"`
	Open  []Weekday `json:"open"`
}

var presets = map[string]Preset{
	"business": {
		Name:  "business",
		Label: "Business hours (Mon–Fri 9–5)",
		Hours: "09:00-17:00",
		Open:  []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday},
	},
	"retail": {
		Name:  "retail",
		Label: "Retail (Mon–Sat 10–9)",
		Hours: "10:00-21:00",
		Open:  []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday},
	},
	"restaurant": {
		Name:  "restaurant",
		Label: "Restaurant (daily 11–10)",
		Hours: "11:00-22:00",
		Open:  Days,
	},
	"always-open": {
		Name:  "always-open",
		Label: "Open 24 hours",
		Hours: AllDay,
		Open:  Days,
	},
}

// LookupPreset finds a preset by name.
func LookupPreset(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("hours: unknown preset %q", name)
	}
	return p, nil
}

// Presets lists every preset sorted by name.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ApplyPreset overwrites all seven days from p.
func ApplyPreset(w Week, p Preset) Week {
	out := Set(w, Closed, Days...)
	return Set(out, p.Hours, p.Open...)
}
