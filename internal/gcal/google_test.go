package gcal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
)

func TestFromGoogleEvent_Timed(t *testing.T) {
	ev := fromGoogleEvent(&calendar.Event{
		Id:      "abc",
		Summary: "Planning",
		Status:  "confirmed",
		Start:   &calendar.EventDateTime{DateTime: "2026-09-07T10:00:00+02:00"},
		End:     &calendar.EventDateTime{DateTime: "2026-09-07T11:00:00+02:00"},
	})

	assert.Equal(t, "abc", ev.ID)
	assert.Equal(t, "Planning", ev.Title)
	assert.False(t, ev.IsAllDay)
	assert.False(t, ev.Cancelled)
	assert.Equal(t, time.Hour, ev.End.Sub(ev.Start))
}

func TestFromGoogleEvent_AllDayEndIsExclusive(t *testing.T) {
	ev := fromGoogleEvent(&calendar.Event{
		Id:    "abc",
		Start: &calendar.EventDateTime{Date: "2026-09-07"},
		End:   &calendar.EventDateTime{Date: "2026-09-09"},
	})

	require.True(t, ev.IsAllDay)
	assert.Equal(t, "2026-09-07", ev.Start.Format("2006-01-02"))
	// a two-day event ends on the 8th, not the 9th
	assert.Equal(t, "2026-09-08", ev.End.Format("2006-01-02"))
}

func TestFromGoogleEvent_UntitledFallbackAndMeetLink(t *testing.T) {
	ev := fromGoogleEvent(&calendar.Event{
		Id:     "abc",
		Status: "cancelled",
		ConferenceData: &calendar.ConferenceData{
			EntryPoints: []*calendar.EntryPoint{
				{EntryPointType: "phone", Uri: "tel:+49123"},
				{EntryPointType: "video", Uri: "https://meet.google.com/xyz"},
			},
		},
	})

	assert.Equal(t, "Untitled Event", ev.Title)
	assert.True(t, ev.Cancelled)
	assert.Equal(t, "https://meet.google.com/xyz", ev.MeetLink)
}

func TestToGoogleEvent(t *testing.T) {
	start := time.Date(2026, 9, 7, 10, 0, 0, 0, time.UTC)

	gev := toGoogleEvent(RemoteEvent{
		Title: "Intro Call: Guest",
		Start: start,
		End:   start.Add(30 * time.Minute),
	})
	require.NotNil(t, gev.Start)
	assert.Equal(t, "2026-09-07T10:00:00Z", gev.Start.DateTime)
	assert.Empty(t, gev.Start.Date)

	allDay := toGoogleEvent(RemoteEvent{
		Title:    "Offsite",
		Start:    start,
		End:      start,
		IsAllDay: true,
	})
	assert.Equal(t, "2026-09-07", allDay.Start.Date)
	assert.Empty(t, allDay.Start.DateTime)
	// exclusive end date, so a one-day event spans exactly one day
	assert.Equal(t, "2026-09-08", allDay.End.Date)
}

func TestAllDayEventRoundTrip(t *testing.T) {
	imported := fromGoogleEvent(&calendar.Event{
		Id:    "offsite",
		Start: &calendar.EventDateTime{Date: "2026-09-07"},
		End:   &calendar.EventDateTime{Date: "2026-09-09"},
	})

	exported := toGoogleEvent(imported)

	assert.Equal(t, "2026-09-07", exported.Start.Date)
	assert.Equal(t, "2026-09-09", exported.End.Date)
}
