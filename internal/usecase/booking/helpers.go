package booking

import (
	"time"

	"github.com/BruksfildServices01/portal-scheduler/internal/models"
	"github.com/BruksfildServices01/portal-scheduler/internal/timezone"
)

// hostLocation resolves slot math to the schedule's timezone, falling back
// to the host's own.
func hostLocation(et *models.EventType, host *models.User) *time.Location {
	if et.Schedule != nil && et.Schedule.Timezone != "" {
		return timezone.Location(et.Schedule.Timezone)
	}
	return timezone.Location(host.Timezone)
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return start, start.Add(24 * time.Hour)
}
