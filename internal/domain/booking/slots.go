package booking

import (
	"sort"
	"time"

	"github.com/BruksfildServices01/portal-scheduler/internal/models"
)

// Window is one bookable time range within a single day.
type Window struct {
	Start time.Time
	End   time.Time
}

// Slot is a candidate start time with its availability flag.
type Slot struct {
	Time      time.Time `json:"time"`
	Available bool      `json:"available"`
}

// Busy is an occupied interval, already widened by the owning booking's own
// buffers. Host-wide: it may come from any event type of the host.
type Busy struct {
	Start time.Time
	End   time.Time
}

type DateAvailability struct {
	Date      string `json:"date"`
	Available bool   `json:"available"`
}

const DateLayout = "2006-01-02"

func timeAt(day time.Time, hm string) (time.Time, bool) {
	t, err := time.Parse("15:04", hm)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(
		day.Year(), day.Month(), day.Day(),
		t.Hour(), t.Minute(), 0, 0,
		day.Location(),
	), true
}

// ResolveDayWindows turns the weekly rules, and the date override when one
// exists, into the day's bookable windows. day must be local midnight.
// An override fully replaces weekly evaluation for its date; an available
// override without explicit times keeps the weekly window times.
func ResolveDayWindows(rules []models.WeeklyRule, override *models.DateOverride, day time.Time) []Window {
	if override != nil && !override.IsAvailable {
		return nil
	}

	if override != nil && override.StartTime != "" && override.EndTime != "" {
		start, ok1 := timeAt(day, override.StartTime)
		end, ok2 := timeAt(day, override.EndTime)
		if !ok1 || !ok2 || !end.After(start) {
			return nil
		}
		return []Window{{Start: start, End: end}}
	}

	weekday := int(day.Weekday())

	var windows []Window
	for _, r := range rules {
		if r.Weekday != weekday || !r.IsAvailable {
			continue
		}
		start, ok1 := timeAt(day, r.StartTime)
		end, ok2 := timeAt(day, r.EndTime)
		if !ok1 || !ok2 || !end.After(start) {
			continue
		}
		windows = append(windows, Window{Start: start, End: end})
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].Start.Before(windows[j].Start)
	})

	return windows
}

// GenerateSlots walks each window at duration steps and flags every slot.
// Deterministic and side-effect-free; the result is the one day's grid only.
//
// A slot is unavailable when it starts before the minimum notice, past the
// booking horizon, or when its buffered interval overlaps any busy interval
// of the host. Windows are never merged; duplicate starts from overlapping
// rules are deduplicated, keeping the slot available if any copy was.
func GenerateSlots(et *models.EventType, windows []Window, busy []Busy, now time.Time) []Slot {
	duration := time.Duration(et.DurationMin) * time.Minute
	if duration <= 0 {
		return []Slot{}
	}

	bufBefore := time.Duration(et.BufferBeforeMin) * time.Minute
	bufAfter := time.Duration(et.BufferAfterMin) * time.Minute
	minNotice := now.Add(time.Duration(et.MinNoticeHours) * time.Hour)

	horizon := time.Time{}
	if et.MaxDaysInFuture > 0 {
		horizon = now.AddDate(0, 0, et.MaxDaysInFuture)
	}

	var slots []Slot

	for _, w := range windows {
		for s := w.Start; !s.Add(duration).After(w.End); s = s.Add(duration) {
			available := s.After(minNotice)
			if available && !horizon.IsZero() && s.After(horizon) {
				available = false
			}

			if available {
				slotStart := s.Add(-bufBefore)
				slotEnd := s.Add(duration).Add(bufAfter)
				for _, b := range busy {
					if slotStart.Before(b.End) && slotEnd.After(b.Start) {
						available = false
						break
					}
				}
			}

			slots = append(slots, Slot{Time: s, Available: available})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Time.Before(slots[j].Time)
	})

	deduped := slots[:0]
	for _, s := range slots {
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(s.Time) {
			deduped[n-1].Available = deduped[n-1].Available || s.Available
			continue
		}
		deduped = append(deduped, s)
	}

	if deduped == nil {
		return []Slot{}
	}
	return deduped
}

// SlotAvailable re-runs the slot checks for one concrete start time. Used by
// booking creation to validate against data read inside the transaction.
func SlotAvailable(et *models.EventType, windows []Window, busy []Busy, start, now time.Time) bool {
	for _, s := range GenerateSlots(et, windows, busy, now) {
		if s.Time.Equal(start) {
			return s.Available
		}
	}
	return false
}

// AvailableDates resolves, per calendar day of the month, whether any window
// exists, bounded by [today, now + maxDaysInFuture]. No slot-level checks.
func AvailableDates(
	et *models.EventType,
	rules []models.WeeklyRule,
	overrides map[string]*models.DateOverride,
	year int,
	month time.Month,
	loc *time.Location,
	now time.Time,
) []DateAvailability {

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	horizon := now.AddDate(0, 0, et.MaxDaysInFuture)

	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	next := first.AddDate(0, 1, 0)

	var out []DateAvailability
	for day := first; day.Before(next); day = day.AddDate(0, 0, 1) {
		dateStr := day.Format(DateLayout)

		available := false
		if !day.Before(today) && !day.After(horizon) {
			available = len(ResolveDayWindows(rules, overrides[dateStr], day)) > 0
		}

		out = append(out, DateAvailability{Date: dateStr, Available: available})
	}

	return out
}
