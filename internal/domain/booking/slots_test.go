package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/portal-scheduler/internal/models"
)

func berlin(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return loc
}

func mondayRule(start, end string) models.WeeklyRule {
	return models.WeeklyRule{
		Weekday:     1,
		StartTime:   start,
		EndTime:     end,
		IsAvailable: true,
	}
}

func eventType(durationMin int) *models.EventType {
	return &models.EventType{
		DurationMin:     durationMin,
		MinNoticeHours:  4,
		MaxDaysInFuture: 60,
	}
}

// 2026-09-07 is a Monday.
func monday(loc *time.Location) time.Time {
	return time.Date(2026, 9, 7, 0, 0, 0, 0, loc)
}

func TestGenerateSlots_SingleWindow(t *testing.T) {
	loc := berlin(t)
	day := monday(loc)

	et := eventType(30)
	rules := []models.WeeklyRule{mondayRule("09:00", "10:00")}

	windows := ResolveDayWindows(rules, nil, day)
	now := day.AddDate(0, 0, -1)

	slots := GenerateSlots(et, windows, nil, now)

	require.Len(t, slots, 2)
	assert.Equal(t, day.Add(9*time.Hour), slots[0].Time)
	assert.Equal(t, day.Add(9*time.Hour+30*time.Minute), slots[1].Time)
	assert.True(t, slots[0].Available)
	assert.True(t, slots[1].Available)
}

func TestGenerateSlots_SlotMustEndInsideWindow(t *testing.T) {
	loc := berlin(t)
	day := monday(loc)

	// 09:00-09:50 fits one 30-minute slot only: the 09:30 slot would end at
	// 10:00, past the window.
	et := eventType(30)
	windows := ResolveDayWindows([]models.WeeklyRule{mondayRule("09:00", "09:50")}, nil, day)

	slots := GenerateSlots(et, windows, nil, day.AddDate(0, 0, -1))

	require.Len(t, slots, 1)
	assert.Equal(t, day.Add(9*time.Hour), slots[0].Time)
}

func TestGenerateSlots_BusyWithBufferKnocksOutNeighbor(t *testing.T) {
	loc := berlin(t)
	day := monday(loc)

	et := eventType(30)
	et.BufferAfterMin = 15

	windows := ResolveDayWindows([]models.WeeklyRule{mondayRule("09:00", "11:00")}, nil, day)

	// an existing 09:00-09:30 booking, already widened by its own buffers
	busy := []Busy{{
		Start: day.Add(9 * time.Hour),
		End:   day.Add(9*time.Hour + 30*time.Minute),
	}}

	slots := GenerateSlots(et, windows, busy, day.AddDate(0, 0, -1))
	require.Len(t, slots, 4)

	byTime := map[string]bool{}
	for _, s := range slots {
		byTime[s.Time.Format("15:04")] = s.Available
	}

	assert.False(t, byTime["09:00"])
	// the 09:30 slot ends at 10:00 and carries 15 min of trailing buffer,
	// which still clears the busy interval; 09:00 overlap is what blocks it
	assert.True(t, byTime["09:30"])
	assert.True(t, byTime["10:00"])
	assert.True(t, byTime["10:30"])

	// buffer-before pushes the candidate back into the busy interval
	et.BufferAfterMin = 0
	et.BufferBeforeMin = 15
	slots = GenerateSlots(et, windows, busy, day.AddDate(0, 0, -1))
	for _, s := range slots {
		if s.Time.Equal(day.Add(9*time.Hour + 30*time.Minute)) {
			assert.False(t, s.Available)
		}
	}
}

func TestGenerateSlots_MinNotice(t *testing.T) {
	loc := berlin(t)
	day := monday(loc)

	et := eventType(30)
	windows := ResolveDayWindows([]models.WeeklyRule{mondayRule("09:00", "10:00")}, nil, day)

	// 05:00 same day + 4h notice: 09:00 is too soon, 09:30 is fine
	now := day.Add(5 * time.Hour)

	slots := GenerateSlots(et, windows, nil, now)
	require.Len(t, slots, 2)
	assert.False(t, slots[0].Available)
	assert.True(t, slots[1].Available)
}

func TestGenerateSlots_BeyondBookingHorizon(t *testing.T) {
	loc := berlin(t)
	day := monday(loc)

	et := eventType(30)
	et.MaxDaysInFuture = 10

	windows := ResolveDayWindows([]models.WeeklyRule{mondayRule("09:00", "10:00")}, nil, day)

	// the whole day sits past the 10-day horizon
	now := day.AddDate(0, 0, -30)
	slots := GenerateSlots(et, windows, nil, now)

	require.Len(t, slots, 2)
	assert.False(t, slots[0].Available)
	assert.False(t, slots[1].Available)
	assert.False(t, SlotAvailable(et, windows, nil, day.Add(9*time.Hour), now))

	// inside the horizon the same grid opens up
	slots = GenerateSlots(et, windows, nil, day.AddDate(0, 0, -5))
	assert.True(t, slots[0].Available)
}

func TestGenerateSlots_OverlappingRulesDeduplicate(t *testing.T) {
	loc := berlin(t)
	day := monday(loc)

	et := eventType(30)
	windows := ResolveDayWindows([]models.WeeklyRule{
		mondayRule("09:00", "10:00"),
		mondayRule("09:00", "10:00"),
	}, nil, day)

	slots := GenerateSlots(et, windows, nil, day.AddDate(0, 0, -1))

	assert.Len(t, slots, 2)
}

func TestGenerateSlots_NoWindowsReturnsEmptySlice(t *testing.T) {
	et := eventType(30)
	slots := GenerateSlots(et, nil, nil, time.Now())

	require.NotNil(t, slots)
	assert.Empty(t, slots)
}

func TestResolveDayWindows_UnavailableOverride(t *testing.T) {
	loc := berlin(t)
	day := monday(loc)

	rules := []models.WeeklyRule{mondayRule("09:00", "17:00")}
	override := &models.DateOverride{IsAvailable: false}

	assert.Empty(t, ResolveDayWindows(rules, override, day))
}

func TestResolveDayWindows_OverrideWithTimesReplacesRules(t *testing.T) {
	loc := berlin(t)
	day := monday(loc)

	rules := []models.WeeklyRule{mondayRule("09:00", "17:00")}
	override := &models.DateOverride{
		IsAvailable: true,
		StartTime:   "13:00",
		EndTime:     "15:00",
	}

	windows := ResolveDayWindows(rules, override, day)

	require.Len(t, windows, 1)
	assert.Equal(t, day.Add(13*time.Hour), windows[0].Start)
	assert.Equal(t, day.Add(15*time.Hour), windows[0].End)
}

func TestResolveDayWindows_AvailableOverrideWithoutTimesKeepsRules(t *testing.T) {
	loc := berlin(t)
	day := monday(loc)

	rules := []models.WeeklyRule{mondayRule("09:00", "12:00")}
	override := &models.DateOverride{IsAvailable: true}

	windows := ResolveDayWindows(rules, override, day)

	require.Len(t, windows, 1)
	assert.Equal(t, day.Add(9*time.Hour), windows[0].Start)
}

func TestResolveDayWindows_SkipsUnavailableAndOtherWeekdays(t *testing.T) {
	loc := berlin(t)
	day := monday(loc)

	blocked := mondayRule("09:00", "12:00")
	blocked.IsAvailable = false

	tuesday := mondayRule("09:00", "12:00")
	tuesday.Weekday = 2

	assert.Empty(t, ResolveDayWindows([]models.WeeklyRule{blocked, tuesday}, nil, day))
}

func TestSlotAvailable(t *testing.T) {
	loc := berlin(t)
	day := monday(loc)

	et := eventType(30)
	windows := ResolveDayWindows([]models.WeeklyRule{mondayRule("09:00", "10:00")}, nil, day)
	now := day.AddDate(0, 0, -1)

	assert.True(t, SlotAvailable(et, windows, nil, day.Add(9*time.Hour), now))

	// off-grid start times are never bookable
	assert.False(t, SlotAvailable(et, windows, nil, day.Add(9*time.Hour+15*time.Minute), now))

	busy := []Busy{{Start: day.Add(9 * time.Hour), End: day.Add(9*time.Hour + 30*time.Minute)}}
	assert.False(t, SlotAvailable(et, windows, busy, day.Add(9*time.Hour), now))
}

func TestAvailableDates_BoundedByHorizon(t *testing.T) {
	loc := berlin(t)

	et := eventType(30)
	et.MaxDaysInFuture = 10

	rules := []models.WeeklyRule{mondayRule("09:00", "17:00")}

	now := time.Date(2026, 9, 7, 8, 0, 0, 0, loc)
	dates := AvailableDates(et, rules, nil, 2026, time.September, loc, now)

	require.Len(t, dates, 30)

	byDate := map[string]bool{}
	for _, d := range dates {
		byDate[d.Date] = d.Available
	}

	assert.True(t, byDate["2026-09-07"])  // Monday, today
	assert.True(t, byDate["2026-09-14"])  // Monday inside horizon
	assert.False(t, byDate["2026-09-08"]) // Tuesday, no rule
	assert.False(t, byDate["2026-09-21"]) // Monday past the 10-day horizon
}

func TestAvailableDates_PastDaysNeverAvailable(t *testing.T) {
	loc := berlin(t)

	et := eventType(30)
	rules := []models.WeeklyRule{mondayRule("09:00", "17:00")}

	now := time.Date(2026, 9, 15, 8, 0, 0, 0, loc)
	dates := AvailableDates(et, rules, nil, 2026, time.September, loc, now)

	byDate := map[string]bool{}
	for _, d := range dates {
		byDate[d.Date] = d.Available
	}

	assert.False(t, byDate["2026-09-07"])
	assert.True(t, byDate["2026-09-21"])
}

func TestAvailableDates_OverrideBlocksDay(t *testing.T) {
	loc := berlin(t)

	et := eventType(30)
	rules := []models.WeeklyRule{mondayRule("09:00", "17:00")}
	overrides := map[string]*models.DateOverride{
		"2026-09-14": {IsAvailable: false},
	}

	now := time.Date(2026, 9, 7, 8, 0, 0, 0, loc)
	dates := AvailableDates(et, rules, overrides, 2026, time.September, loc, now)

	byDate := map[string]bool{}
	for _, d := range dates {
		byDate[d.Date] = d.Available
	}

	assert.True(t, byDate["2026-09-07"])
	assert.False(t, byDate["2026-09-14"])
}
