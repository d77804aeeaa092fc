package derive

import (
	"strings"
	"time"
)

var timeLayouts = []string{"03:04 PM", "3:04 PM", "03:04PM", "3:04PM", "15:04"}

var weekdays = map[string]time.Weekday{}

func init() {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		weekdays[name] = d
		weekdays[name[:3]] = d
	}
}

// Occurrence is one class session in the expanded month.
type Occurrence struct {
	Source    string    `json:"source"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Completed bool      `json:"completed"`
}

type ScheduleSummary struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}

type classSlot struct {
	day    time.Weekday
	hour   int
	minute int
}

// parseClassTime reads "<DayName>-<time>", e.g. "Monday-04:00 PM".
func parseClassTime(raw string) (classSlot, bool) {
	dayPart, timePart, ok := strings.Cut(strings.TrimSpace(raw), "-")
	if !ok {
		return classSlot{}, false
	}
	day, ok := ParseWeekday(dayPart)
	if !ok {
		return classSlot{}, false
	}
	hour, minute, ok := ParseClock(timePart)
	if !ok {
		return classSlot{}, false
	}
	return classSlot{day: day, hour: hour, minute: minute}, true
}

// ExpandSchedule lists one-hour occurrences of every class time on each
// matching weekday of the given month, in loc. An occurrence is completed
// once its end is strictly before now.
func ExpandSchedule(classTimes []string, year int, month time.Month, now time.Time, loc *time.Location) []Occurrence {
	if loc == nil {
		loc = time.Local
	}
	var out []Occurrence
	for _, raw := range classTimes {
		slot, ok := parseClassTime(raw)
		if !ok {
			continue
		}
		for d := time.Date(year, month, 1, 0, 0, 0, 0, loc); d.Month() == month; d = d.AddDate(0, 0, 1) {
			if d.Weekday() != slot.day {
				continue
			}
			start := time.Date(year, month, d.Day(), slot.hour, slot.minute, 0, 0, loc)
			end := start.Add(time.Hour)
			out = append(out, Occurrence{Source: raw, Start: start, End: end, Completed: end.Before(now)})
		}
	}
	return out
}

func SummarizeSchedule(occ []Occurrence) ScheduleSummary {
	s := ScheduleSummary{Total: len(occ)}
	for _, o := range occ {
		if o.Completed {
			s.Completed++
		} else {
			s.Pending++
		}
	}
	return s
}

// ParseWeekday accepts full or three-letter day names in any case.
func ParseWeekday(name string) (time.Weekday, bool) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// ParseClock reads a time of day in any of the accepted class-time layouts.
func ParseClock(raw string) (hour, minute int, ok bool) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Hour(), t.Minute(), true
		}
	}
	return 0, 0, false
}

// ValidClassTime reports whether raw expands to any occurrences.
func ValidClassTime(raw string) bool {
	_, ok := parseClassTime(raw)
	return ok
}
